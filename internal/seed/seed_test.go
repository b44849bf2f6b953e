package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	"ghost-crew/internal/models"
	"ghost-crew/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 10, 11, 0, 0, 0, time.UTC)

func TestDefaultPlan(t *testing.T) {
	plan, err := DefaultPlan()
	require.NoError(t, err)
	assert.Len(t, plan.Users, 4)
	assert.Len(t, plan.Yachts, 3)
	assert.Len(t, plan.Jobs, 16)
}

func TestRunDefaultPlan(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	plan, err := DefaultPlan()
	require.NoError(t, err)

	summary, err := Run(ctx, store, plan, now)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.UsersCreated)
	assert.Equal(t, 3, summary.YachtsCreated)
	assert.Len(t, summary.Jobs, 16)
	assert.Equal(t, map[models.JobStatus]int{
		models.JobCompleted:  4,
		models.JobReviewed:   1,
		models.JobInProgress: 2,
		models.JobPending:    9,
	}, summary.ByStatus)

	sarah, err := store.Users.GetByPIN(ctx, "1111")
	require.NoError(t, err)
	today, err := store.Jobs.ListForAssignee(ctx, sarah.ID, "2025-06-10")
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "Wave Rider", today[0].Yacht.Name)

	jane, err := store.Users.GetByPIN(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupervisor, jane.Role)
	reviewed, err := store.Jobs.ListByStatus(ctx, models.JobReviewed)
	require.NoError(t, err)
	require.Len(t, reviewed, 1)
	job := reviewed[0]
	assert.Equal(t, "2025-06-08", job.ScheduledDate)
	require.NotNil(t, job.ReviewedBy)
	assert.Equal(t, jane.ID, *job.ReviewedBy)
	assert.Equal(t, time.Date(2025, 6, 8, 8, 0, 0, 0, time.UTC), *job.StartedAt)
	assert.Equal(t, time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC), *job.CompletedAt)
	assert.Equal(t, time.Date(2025, 6, 8, 14, 0, 0, 0, time.UTC), *job.ReviewedAt)

	// A second run reuses the existing crew and yachts.
	again, err := Run(ctx, store, plan, now)
	require.NoError(t, err)
	assert.Zero(t, again.UsersCreated)
	assert.Zero(t, again.YachtsCreated)
}

func TestStartedHoursAgo(t *testing.T) {
	plan, err := ParsePlan([]byte(`
users: [{name: A, pin: "4444", role: worker}]
yachts: [{name: Y}]
jobs:
  - {yacht: Y, assignee: A, status: in_progress, started_hours_ago: 2}
  - {yacht: Y, assignee: A, day_offset: -3, status: completed, start_hour: 8, duration_hours: 3.5}
`))
	require.NoError(t, err)

	summary, err := Run(context.Background(), memory.NewStore(), plan, now)
	require.NoError(t, err)
	require.Len(t, summary.Jobs, 2)
	assert.Equal(t, now.Add(-2*time.Hour), *summary.Jobs[0].StartedAt)
	assert.Nil(t, summary.Jobs[0].CompletedAt)
	assert.Equal(t, time.Date(2025, 6, 7, 11, 30, 0, 0, time.UTC), *summary.Jobs[1].CompletedAt)
}

func TestRunUnresolvedNames(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	plan, err := ParsePlan([]byte(`
yachts: [{name: Sea Breeze}]
jobs:
  - {yacht: Sea Breeze, assignee: Nobody}
  - {yacht: Ghost Ship, assignee: Nobody}
  - {yacht: Ghost Ship, assignee: Someone}
`))
	require.NoError(t, err)

	_, err = Run(ctx, store, plan, now)
	var unresolved *UnresolvedError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, []string{"Ghost Ship"}, unresolved.Yachts)
	assert.Equal(t, []string{"Nobody", "Someone"}, unresolved.Users)
	assert.Contains(t, err.Error(), "Ghost Ship")

	jobs, err := store.Jobs.ListBetween(ctx, "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestParsePlanRejects(t *testing.T) {
	tests := map[string]string{
		"no jobs":          `users: []`,
		"bad status":       `jobs: [{yacht: Y, assignee: A, status: done}]`,
		"missing yacht":    `jobs: [{assignee: A}]`,
		"bad pin":          "users: [{name: A, pin: \"12\", role: worker}]\njobs: [{yacht: Y, assignee: A}]",
		"reviewed no name": `jobs: [{yacht: Y, assignee: A, status: reviewed}]`,
		"not yaml":         `jobs: [`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlan([]byte(doc))
			assert.Error(t, err)
		})
	}
}
