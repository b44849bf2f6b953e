// Package seed loads a YAML plan of crew, yachts and jobs into the backend.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ghost-crew/internal/models"
	"ghost-crew/internal/repository"
	"ghost-crew/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultPlan []byte

type UserSpec struct {
	Name string `yaml:"name" validate:"required"`
	PIN  string `yaml:"pin" validate:"required,numeric,min=4,max=8"`
	Role string `yaml:"role" validate:"required,oneof=worker supervisor admin"`
}

type YachtSpec struct {
	Name  string `yaml:"name" validate:"required"`
	Model string `yaml:"model"`
	Berth string `yaml:"berth"`
}

// JobSpec names its yacht and people; Run turns the names into ids.
type JobSpec struct {
	Yacht     string `yaml:"yacht" validate:"required"`
	Assignee  string `yaml:"assignee" validate:"required"`
	DayOffset int    `yaml:"day_offset"`
	Status    string `yaml:"status" validate:"omitempty,oneof=pending in_progress completed reviewed"`

	StartHour       *float64 `yaml:"start_hour" validate:"omitempty,gte=0,lt=24"`
	StartedHoursAgo *float64 `yaml:"started_hours_ago" validate:"omitempty,gt=0"`
	DurationHours   *float64 `yaml:"duration_hours" validate:"omitempty,gt=0"`
	Reviewer        string   `yaml:"reviewer"`
	ReviewHour      *float64 `yaml:"review_hour" validate:"omitempty,gte=0,lt=48"`
	Notes           string   `yaml:"notes"`
}

type Plan struct {
	Users  []UserSpec  `yaml:"users" validate:"dive"`
	Yachts []YachtSpec `yaml:"yachts" validate:"dive"`
	Jobs   []JobSpec   `yaml:"jobs" validate:"required,min=1,dive"`
}

// UnresolvedError lists plan names with no matching row.
type UnresolvedError struct {
	Yachts []string
	Users  []string
}

func (e *UnresolvedError) Error() string {
	var parts []string
	if len(e.Yachts) > 0 {
		parts = append(parts, "yachts: "+strings.Join(e.Yachts, ", "))
	}
	if len(e.Users) > 0 {
		parts = append(parts, "users: "+strings.Join(e.Users, ", "))
	}
	return "unresolved names (" + strings.Join(parts, "; ") + ")"
}

type Summary struct {
	UsersCreated  int
	YachtsCreated int
	Jobs          []models.Job
	ByStatus      map[models.JobStatus]int
}

// ParsePlan decodes and validates a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse seed plan: %w", err)
	}
	if err := validator.New().Struct(plan); err != nil {
		return nil, fmt.Errorf("invalid seed plan: %w", err)
	}
	for i, j := range plan.Jobs {
		if j.Status == string(models.JobReviewed) && j.Reviewer == "" {
			return nil, fmt.Errorf("invalid seed plan: job %d is reviewed but names no reviewer", i+1)
		}
	}
	return &plan, nil
}

// DefaultPlan is the embedded demo plan.
func DefaultPlan() (*Plan, error) {
	return ParsePlan(defaultPlan)
}

// Run creates missing users and yachts, resolves every name in the plan
// and inserts all jobs in one batch. Nothing is inserted when a name does
// not resolve.
func Run(ctx context.Context, store repository.Store, plan *Plan, now time.Time) (*Summary, error) {
	summary := &Summary{ByStatus: map[models.JobStatus]int{}}

	users, err := store.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	userIDs := make(map[string]int, len(users))
	for _, u := range users {
		userIDs[u.Name] = u.ID
	}
	for _, spec := range plan.Users {
		if _, ok := userIDs[spec.Name]; ok {
			continue
		}
		u, err := store.Users.Create(ctx, models.User{Name: spec.Name, PIN: spec.PIN, Role: models.Role(spec.Role)})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, fmt.Errorf("create user %s: PIN already taken", spec.Name)
			}
			return nil, fmt.Errorf("create user %s: %w", spec.Name, err)
		}
		userIDs[u.Name] = u.ID
		summary.UsersCreated++
	}

	yachts, err := store.Yachts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list yachts: %w", err)
	}
	yachtIDs := make(map[string]int, len(yachts))
	for _, y := range yachts {
		yachtIDs[y.Name] = y.ID
	}
	for _, spec := range plan.Yachts {
		if _, ok := yachtIDs[spec.Name]; ok {
			continue
		}
		y, err := store.Yachts.Create(ctx, models.Yacht{Name: spec.Name, Model: spec.Model, Berth: spec.Berth})
		if err != nil {
			return nil, fmt.Errorf("create yacht %s: %w", spec.Name, err)
		}
		yachtIDs[y.Name] = y.ID
		summary.YachtsCreated++
	}
	logger.SystemLogger.Info("Seed reference data ready",
		zap.Int("users", len(userIDs)), zap.Int("yachts", len(yachtIDs)),
		zap.Int("users_created", summary.UsersCreated), zap.Int("yachts_created", summary.YachtsCreated))

	jobs, err := buildJobs(plan.Jobs, yachtIDs, userIDs, now.UTC())
	if err != nil {
		return nil, err
	}

	inserted, err := store.Jobs.InsertBatch(ctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("insert jobs: %w", err)
	}
	summary.Jobs = inserted
	for _, j := range inserted {
		summary.ByStatus[j.Status]++
	}
	logger.AuditLogger.Info("Seeded jobs", zap.Int("jobs", len(inserted)))
	return summary, nil
}

func buildJobs(specs []JobSpec, yachtIDs, userIDs map[string]int, now time.Time) ([]models.Job, error) {
	missing := &UnresolvedError{}
	seenYacht, seenUser := map[string]bool{}, map[string]bool{}
	lookupUser := func(name string) int {
		id, ok := userIDs[name]
		if !ok && !seenUser[name] {
			seenUser[name] = true
			missing.Users = append(missing.Users, name)
		}
		return id
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	jobs := make([]models.Job, 0, len(specs))
	for _, spec := range specs {
		yachtID, ok := yachtIDs[spec.Yacht]
		if !ok && !seenYacht[spec.Yacht] {
			seenYacht[spec.Yacht] = true
			missing.Yachts = append(missing.Yachts, spec.Yacht)
		}
		assignee := lookupUser(spec.Assignee)

		day := today.AddDate(0, 0, spec.DayOffset)
		job := models.Job{
			YachtID:       yachtID,
			AssignedTo:    &assignee,
			ScheduledDate: day.Format("2006-01-02"),
			Status:        models.JobPending,
		}
		if spec.Status != "" {
			job.Status = models.JobStatus(spec.Status)
		}
		if spec.Notes != "" {
			notes := spec.Notes
			job.Notes = &notes
		}
		if spec.Reviewer != "" {
			reviewer := lookupUser(spec.Reviewer)
			job.ReviewedBy = &reviewer
		}
		stampTimes(&job, spec, day, now)
		jobs = append(jobs, job)
	}

	if len(missing.Yachts) > 0 || len(missing.Users) > 0 {
		sort.Strings(missing.Yachts)
		sort.Strings(missing.Users)
		return nil, missing
	}
	return jobs, nil
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// stampTimes fills the lifecycle timestamps the status implies.
func stampTimes(job *models.Job, spec JobSpec, day, now time.Time) {
	if job.Status == models.JobPending {
		return
	}

	started := day.Add(8 * time.Hour)
	switch {
	case spec.StartedHoursAgo != nil:
		started = now.Add(-hours(*spec.StartedHoursAgo))
	case spec.StartHour != nil:
		started = day.Add(hours(*spec.StartHour))
	}
	job.StartedAt = &started
	if job.Status == models.JobInProgress {
		return
	}

	duration := 4 * time.Hour
	if spec.DurationHours != nil {
		duration = hours(*spec.DurationHours)
	}
	completed := started.Add(duration)
	job.CompletedAt = &completed
	if job.Status == models.JobCompleted {
		return
	}

	reviewed := completed.Add(2 * time.Hour)
	if spec.ReviewHour != nil {
		reviewed = day.Add(hours(*spec.ReviewHour))
	}
	job.ReviewedAt = &reviewed
}
