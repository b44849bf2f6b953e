// Command ghostctl is the crew's field client: it signs in with a PIN,
// lists the day's jobs, ticks off checklist tasks and queues writes while
// the boat is out of signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ghostctl",
		Short:         "Ghost Crew field client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		statusCmd(),
		jobsCmd(),
		useCmd(),
		startCmd(),
		finishCmd(),
		checklistCmd(),
		completeCmd(),
		issueCmd(),
		syncCmd(),
		watchCmd(),
		reviewCmd(),
		seedCmd(),
	)
	return cmd
}
