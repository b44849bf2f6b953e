package main

import (
	"errors"
	"fmt"

	"ghost-crew/internal/navigation"

	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	var pin string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with your PIN",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			res := e.store.LoginWithPIN(cmd.Context(), pin)
			if !res.Success {
				return errors.New(res.Error)
			}
			user := e.store.User()
			dest, err := navigation.Resolve("/", e.store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s (%s). Next: %s\n", user.Name, user.Role, dest.Path)
			return nil
		}),
	}
	cmd.Flags().StringVar(&pin, "pin", "", "Your crew PIN")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; queued work stays on this device",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			e.store.Logout(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Signed out. %d item(s) still waiting to sync.\n", e.store.PendingSyncCount())
			return nil
		}),
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, current job and sync state",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			out := cmd.OutOrStdout()
			if user := e.store.User(); user != nil {
				fmt.Fprintf(out, "User:      %s (%s)\n", user.Name, user.Role)
			} else {
				fmt.Fprintln(out, "User:      not signed in")
			}
			if job := e.store.CurrentJob(); job != nil {
				fmt.Fprintf(out, "Job:       %s\n", describeJob(*job))
			} else {
				fmt.Fprintln(out, "Job:       none")
			}
			fmt.Fprintf(out, "Network:   %s (%s)\n", e.connectivity(), e.cfg.APIBaseURL)
			fmt.Fprintf(out, "Pending:   %d\n", e.store.PendingSyncCount())
			return nil
		}),
	}
}
