package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"ghost-crew/internal/app"

	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send queued work to the server",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			out := cmd.OutOrStdout()
			if !e.store.IsOnline() {
				fmt.Fprintf(out, "Offline, %d item(s) still queued.\n", e.store.PendingSyncCount())
				return nil
			}
			if !e.store.IsAuthenticated() {
				fmt.Fprintf(out, "Sign in to sync %d queued item(s).\n", e.store.PendingSyncCount())
				return nil
			}
			summary := e.store.SyncOfflineQueue(cmd.Context())
			fmt.Fprintf(out, "Synced %d of %d, %d still queued.\n", summary.Synced, summary.Attempted, e.store.PendingSyncCount())
			printSweepNotes(out, e, summary)
			return nil
		}),
	}
}

// printSweepNotes explains items a sweep left in the queue on purpose.
func printSweepNotes(out io.Writer, e *env, summary app.SyncSummary) {
	if summary.Skipped > 0 {
		fmt.Fprintf(out, "%d item(s) belong to another crew member and wait for them to sign in.\n", summary.Skipped)
	}
	if summary.Attempted > 0 && !e.store.IsAuthenticated() {
		fmt.Fprintln(out, "Session expired, sign in again to sync.")
	}
}

func watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Probe the server and sync whenever the connection comes back",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			if interval <= 0 {
				interval = e.cfg.ProbeInterval
			}
			out := cmd.OutOrStdout()
			last := ""
			m := &app.Monitor{
				Store:    e.store,
				Backend:  e.backend,
				Interval: interval,
				Timeout:  e.cfg.RequestTimeout,
				OnProbe: func(online bool, summary app.SyncSummary) {
					state := "offline"
					if online {
						state = "online"
					}
					if state != last {
						fmt.Fprintf(out, "%s %s, %d pending\n", time.Now().Format("15:04:05"), state, e.store.PendingSyncCount())
						last = state
					}
					if summary.Attempted > 0 {
						fmt.Fprintf(out, "synced %d of %d\n", summary.Synced, summary.Attempted)
					}
					printSweepNotes(out, e, summary)
				},
			}
			// Start from offline so the first good probe sweeps the queue.
			e.store.SetOnline(cmd.Context(), false)
			m.Run(cmd.Context())
			if err := cmd.Context().Err(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Probe interval (default GHOST_PROBE_INTERVAL)")
	return cmd
}
