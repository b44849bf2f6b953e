package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"ghost-crew/configs"
	"ghost-crew/internal/models"
	"ghost-crew/internal/repository"
	"ghost-crew/internal/seed"
	"ghost-crew/pkg/database"
	"ghost-crew/pkg/logger"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo crew, yachts and jobs into the server database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configs.LoadConfig()
			if err := initLoggers(cfg.LogDir); err != nil {
				return err
			}
			defer logger.SyncLoggers()

			plan, err := loadPlan(file)
			if err != nil {
				return err
			}

			db, err := database.OpenPostgres(cfg.PostgresDSN(cfg.DBName))
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()
			if err := repository.CreateTableIfNotExists(cmd.Context(), db); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeding %d jobs...\n", len(plan.Jobs))
			summary, err := seed.Run(cmd.Context(), repository.NewStore(db), plan, time.Now())
			if err != nil {
				return err
			}
			printSeedSummary(cmd, summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed plan (default: built-in demo plan)")
	return cmd
}

func loadPlan(file string) (*seed.Plan, error) {
	if file == "" {
		return seed.DefaultPlan()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return seed.ParsePlan(data)
}

func printSeedSummary(cmd *cobra.Command, summary *seed.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %d users, %d yachts and %d jobs.\n", summary.UsersCreated, summary.YachtsCreated, len(summary.Jobs))
	statuses := make([]string, 0, len(summary.ByStatus))
	for status := range summary.ByStatus {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	fmt.Fprintln(out, "Job status summary:")
	for _, status := range statuses {
		fmt.Fprintf(out, "  %s: %d\n", status, summary.ByStatus[models.JobStatus(status)])
	}
}
