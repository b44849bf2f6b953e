package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"ghost-crew/internal/app"
	"ghost-crew/internal/models"

	"github.com/spf13/cobra"
)

func describeJob(j models.Job) string {
	yacht := fmt.Sprintf("yacht #%d", j.YachtID)
	if j.Yacht != nil {
		yacht = j.Yacht.Name
	}
	return fmt.Sprintf("#%d %s on %s [%s]", j.ID, yacht, j.ScheduledDate, j.Status)
}

func parseJobID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return id, nil
}

func jobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List today's jobs",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			if _, err := e.navigate("/jobs"); err != nil {
				return err
			}
			jobs := e.store.FetchTodaysJobs(cmd.Context())
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintf(out, "No jobs for today (%s).\n", e.connectivity())
				return nil
			}

			current := e.store.CurrentJob()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tYACHT\tSTATUS\tNOTES")
			for _, j := range jobs {
				marker := ""
				if current != nil && current.ID == j.ID {
					marker = "*"
				}
				yacht, notes := "", ""
				if j.Yacht != nil {
					yacht = j.Yacht.Name
				}
				if j.Notes != nil {
					notes = *j.Notes
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", marker, j.ID, yacht, j.Status, notes)
			}
			return w.Flush()
		}),
	}
}

func useCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <jobId>",
		Short: "Select the job you are working on",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			if _, err := e.navigate("/jobs"); err != nil {
				return err
			}
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			for _, j := range e.store.FetchTodaysJobs(cmd.Context()) {
				if j.ID == id {
					j := j
					if err := e.store.SetCurrentJob(cmd.Context(), &j); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Working on %s\n", describeJob(j))
					return nil
				}
			}
			return fmt.Errorf("job %d is not one of today's jobs (%s)", id, e.connectivity())
		}),
	}
}

// currentOrArg picks the job id from args, falling back to the current job.
func currentOrArg(e *env, args []string) (int, error) {
	if len(args) > 0 {
		return parseJobID(args[0])
	}
	if job := e.store.CurrentJob(); job != nil {
		return job.ID, nil
	}
	return 0, errors.New("no active job, run: ghostctl use <jobId>")
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start [jobId]",
		Short: "Mark a job as started",
		Args:  cobra.MaximumNArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			id, err := currentOrArg(e, args)
			if err != nil {
				return err
			}
			job, err := e.store.StartJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s\n", describeJob(*job))
			return nil
		}),
	}
}

func finishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish [jobId]",
		Short: "Mark a job as completed and ready for review",
		Args:  cobra.MaximumNArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			id, err := currentOrArg(e, args)
			if err != nil {
				return err
			}
			job, err := e.store.FinishJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", describeJob(*job))
			return nil
		}),
	}
}

func checklistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checklist [jobId]",
		Short: "Show the cleaning checklist for a job",
		Args:  cobra.MaximumNArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			id, err := currentOrArg(e, args)
			if err != nil {
				return err
			}
			if _, err := e.navigate(fmt.Sprintf("/checklist/%d", id)); err != nil {
				return err
			}
			items, err := e.store.Checklist(cmd.Context(), id)
			if err != nil {
				return err
			}
			printChecklist(cmd, items)
			return nil
		}),
	}
}

func printChecklist(cmd *cobra.Command, items []models.ChecklistItem) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tTASK\tAREA\tTITLE\tPHOTO")
	done := 0
	for _, item := range items {
		mark, photo := "[ ]", ""
		if item.Completion != nil {
			mark = "[x]"
			done++
			if item.Completion.PhotoURL != nil {
				photo = *item.Completion.PhotoURL
			}
		} else if item.RequiresPhoto {
			photo = "required"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, item.ID, item.Area, item.Title, photo)
	}
	_ = w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "%d/%d done\n", done, len(items))
}

func printResult(cmd *cobra.Command, e *env, what string, res app.Result) error {
	if !res.Success {
		return errors.New(res.Error)
	}
	if res.Offline {
		fmt.Fprintf(cmd.OutOrStdout(), "%s queued, will sync when back online.\n", what)
		if !e.store.IsAuthenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "Session expired, sign in again to sync.")
		}
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s saved.\n", what)
	return nil
}

func completeCmd() *cobra.Command {
	var photo, notes string
	cmd := &cobra.Command{
		Use:   "complete <taskId>",
		Short: "Tick off a checklist task on the current job",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			task, ok := models.ChecklistTaskByID(args[0])
			if !ok {
				return fmt.Errorf("unknown task %q", args[0])
			}
			job := e.store.CurrentJob()
			if job != nil {
				if _, err := e.navigate(fmt.Sprintf("/checklist/%d", job.ID)); err != nil {
					return err
				}
			}

			var photoURL, notesPtr *string
			if photo != "" {
				upload, err := e.store.UploadPhoto(cmd.Context(), photo)
				switch {
				case errors.Is(err, app.ErrOffline):
					fmt.Fprintln(cmd.ErrOrStderr(), "Offline: photo not uploaded, attach it again once back online.")
				case err != nil:
					return fmt.Errorf("upload photo: %w", err)
				default:
					photoURL = &upload.PhotoURL
				}
			} else if task.RequiresPhoto {
				fmt.Fprintf(cmd.ErrOrStderr(), "Note: %s normally needs a photo.\n", task.ID)
			}
			if notes != "" {
				notesPtr = &notes
			}

			return printResult(cmd, e, "Task "+task.ID, e.store.CompleteTask(cmd.Context(), task.ID, photoURL, notesPtr))
		}),
	}
	cmd.Flags().StringVar(&photo, "photo", "", "Photo file to attach")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes for the supervisor")
	return cmd
}

func issueCmd() *cobra.Command {
	var description, category, photo string
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Report a problem on the current job",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			if _, err := e.navigate("/jobs"); err != nil {
				return err
			}
			in := app.IssueInput{Category: category, Description: description}
			if photo != "" {
				upload, err := e.store.UploadPhoto(cmd.Context(), photo)
				switch {
				case errors.Is(err, app.ErrOffline):
					fmt.Fprintln(cmd.ErrOrStderr(), "Offline: photo not uploaded.")
				case err != nil:
					return fmt.Errorf("upload photo: %w", err)
				default:
					in.PhotoURL = &upload.PhotoURL
				}
			}
			return printResult(cmd, e, "Issue", e.store.ReportIssue(cmd.Context(), in))
		}),
	}
	cmd.Flags().StringVar(&description, "description", "", "What is wrong")
	cmd.Flags().StringVar(&category, "category", "", "damage, supplies, access, other")
	cmd.Flags().StringVar(&photo, "photo", "", "Photo file to attach")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}
