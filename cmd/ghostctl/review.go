package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func reviewCmd() *cobra.Command {
	var approve bool
	cmd := &cobra.Command{
		Use:   "review [jobId]",
		Short: "Supervisors: list jobs awaiting review, inspect or approve one",
		Args:  cobra.MaximumNArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if len(args) == 0 {
				if _, err := e.navigate("/jobs"); err != nil {
					return err
				}
				jobs, err := e.store.ReviewQueue(ctx)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Nothing awaiting review.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tDATE\tYACHT\tCOMPLETED")
				for _, j := range jobs {
					yacht, completed := "", ""
					if j.Yacht != nil {
						yacht = j.Yacht.Name
					}
					if j.CompletedAt != nil {
						completed = j.CompletedAt.Local().Format("2006-01-02 15:04")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", j.ID, j.ScheduledDate, yacht, completed)
				}
				return w.Flush()
			}

			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			if _, err := e.navigate(fmt.Sprintf("/review/%d", id)); err != nil {
				return err
			}
			detail, err := e.store.ReviewDetail(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, describeJob(detail.Job))
			printChecklist(cmd, detail.Checklist)
			for _, issue := range detail.Issues {
				fmt.Fprintf(out, "Issue #%d [%s] %s\n", issue.ID, issue.Category, issue.Description)
			}

			if approve {
				job, err := e.store.ApproveJob(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Approved %s\n", describeJob(*job))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&approve, "approve", false, "Sign off the job")
	return cmd
}
