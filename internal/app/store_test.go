package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ghost-crew/internal/localstore"
	"ghost-crew/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errDown     = errors.New("connection refused")
	errRejected = fmt.Errorf("401 Token expired: %w", ErrSessionExpired)
)

// fakeBackend records writes and fails them while down is set.
type fakeBackend struct {
	mu          sync.Mutex
	users       map[string]models.User
	down        bool
	rejected    bool
	failTasks   map[string]bool
	completions []models.TaskCompletion
	issues      []models.Issue
	tokens      []string
	jobs        []models.Job
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users: map[string]models.User{
			"1111": {ID: 1, Name: "Sarah Interior", Role: models.RoleWorker},
			"2222": {ID: 2, Name: "Mike Exterior", Role: models.RoleWorker},
			"1234": {ID: 3, Name: "John Doe", Role: models.RoleSupervisor},
		},
		failTasks: map[string]bool{},
	}
}

func (f *fakeBackend) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// reject answers writes and job fetches like an expired token until the
// next login.
func (f *fakeBackend) reject() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = true
}

func (f *fakeBackend) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errDown
	}
	return nil
}

func (f *fakeBackend) Login(_ context.Context, pin string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	u, ok := f.users[pin]
	if !ok {
		return nil, errors.New("Invalid PIN")
	}
	f.rejected = false
	return &Session{User: u, Token: fmt.Sprintf("token-%d", u.ID), ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeBackend) TodaysJobs(_ context.Context, token, date string) ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	if f.rejected {
		return nil, errRejected
	}
	f.tokens = append(f.tokens, token)
	return f.jobs, nil
}

func (f *fakeBackend) Checklist(context.Context, string, int) ([]models.ChecklistItem, error) {
	return models.MergeChecklist(models.DefaultChecklist, nil), nil
}

func (f *fakeBackend) StartJob(_ context.Context, _ string, jobID int) (*models.Job, error) {
	return &models.Job{ID: jobID, Status: models.JobInProgress}, nil
}

func (f *fakeBackend) FinishJob(_ context.Context, _ string, jobID int) (*models.Job, error) {
	return &models.Job{ID: jobID, Status: models.JobCompleted}, nil
}

func (f *fakeBackend) UpsertTaskCompletion(_ context.Context, token string, c models.TaskCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down || f.failTasks[c.TaskID] {
		return errDown
	}
	if f.rejected {
		return errRejected
	}
	f.tokens = append(f.tokens, token)
	f.completions = append(f.completions, c)
	return nil
}

func (f *fakeBackend) InsertIssue(_ context.Context, token string, i models.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errDown
	}
	if f.rejected {
		return errRejected
	}
	f.tokens = append(f.tokens, token)
	f.issues = append(f.issues, i)
	return nil
}

func (f *fakeBackend) UploadPhoto(context.Context, string, string) (*PhotoUpload, error) {
	return &PhotoUpload{PhotoURL: "/api/v1/upload/p.png", ThumbnailURL: "/api/v1/upload/thumb_p.png"}, nil
}

func (f *fakeBackend) ReviewQueue(context.Context, string) ([]models.Job, error) {
	return []models.Job{{ID: 9, Status: models.JobCompleted}}, nil
}

func (f *fakeBackend) ReviewDetail(_ context.Context, _ string, jobID int) (*models.ReviewDetail, error) {
	return &models.ReviewDetail{Job: models.Job{ID: jobID}}, nil
}

func (f *fakeBackend) ApproveJob(_ context.Context, _ string, jobID int) (*models.Job, error) {
	return &models.Job{ID: jobID, Status: models.JobReviewed}, nil
}

func (f *fakeBackend) completionTasks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for _, c := range f.completions {
		out = append(out, c.TaskID)
	}
	return out
}

const storeKey = "test-device-key"

func newLocal(t *testing.T) *localstore.Store {
	t.Helper()
	local, err := localstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })
	return local
}

func newStore(t *testing.T, backend Backend, local LocalStorage, online bool) *Store {
	t.Helper()
	ids := 0
	s, err := New(context.Background(), backend, local, Options{
		StoreKey: storeKey,
		Online:   online,
		NewID: func() string {
			ids++
			return fmt.Sprintf("item-%d", ids)
		},
	})
	require.NoError(t, err)
	return s
}

// signedInWithJob returns a store logged in as the worker with job 7 selected.
func signedInWithJob(t *testing.T, backend *fakeBackend, local LocalStorage, online bool) *Store {
	t.Helper()
	ctx := context.Background()
	s := newStore(t, backend, local, true)
	require.True(t, s.LoginWithPIN(ctx, "1111").Success)
	require.NoError(t, s.SetCurrentJob(ctx, &models.Job{ID: 7, Status: models.JobInProgress}))
	s.SetOnline(ctx, online)
	return s
}

func strPtr(s string) *string { return &s }

func mustField(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	return fields[key]
}

func TestLoginUnknownPINLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	s := newStore(t, newFakeBackend(), local, true)

	res := s.LoginWithPIN(ctx, "9999")
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid PIN", res.Error)
	assert.False(t, s.IsAuthenticated())
	_, ok, err := local.Get(ctx, localstore.KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)

	require.True(t, s.LoginWithPIN(ctx, "1111").Success)
	res = s.LoginWithPIN(ctx, "0000")
	assert.False(t, res.Success)
	require.True(t, s.IsAuthenticated())
	assert.Equal(t, "Sarah Interior", s.User().Name)
	assert.Equal(t, "token-1", s.Token())
}

func TestSessionRestoredFromLocalStorage(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	local := newLocal(t)
	first := signedInWithJob(t, backend, local, false)
	require.True(t, first.CompleteTask(ctx, "deck_scrub", nil, nil).Offline)

	sealed, ok, err := local.Get(ctx, localstore.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, sealed, "token-1")

	second := newStore(t, backend, local, true)
	assert.True(t, second.IsAuthenticated())
	assert.Equal(t, models.RoleWorker, second.Role())
	assert.Equal(t, "token-1", second.Token())
	require.NotNil(t, second.CurrentJob())
	assert.Equal(t, 7, second.CurrentJob().ID)
	assert.Equal(t, 1, second.PendingSyncCount())
}

func TestUnreadableTokenSignsOut(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	local := newLocal(t)
	s := newStore(t, backend, local, true)
	require.True(t, s.LoginWithPIN(ctx, "1111").Success)

	other, err := New(ctx, backend, local, Options{StoreKey: "another-key"})
	require.NoError(t, err)
	assert.False(t, other.IsAuthenticated())
}

func TestLogoutKeepsQueue(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	s := signedInWithJob(t, newFakeBackend(), local, false)
	s.CompleteTask(ctx, "deck_scrub", nil, nil)

	s.Logout(ctx)
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.CurrentJob())
	assert.Equal(t, 1, s.PendingSyncCount())

	for _, key := range []string{localstore.KeyUser, localstore.KeyToken, localstore.KeyCurrentJob} {
		_, ok, err := local.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	queue, err := local.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}

func TestCompleteTaskWithoutJob(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newFakeBackend(), newLocal(t), true)
	require.True(t, s.LoginWithPIN(ctx, "1111").Success)

	res := s.CompleteTask(ctx, "deck_scrub", nil, nil)
	assert.Equal(t, Result{Error: "No active job"}, res)
	assert.Zero(t, s.PendingSyncCount())
}

func TestCompleteTaskOnline(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := signedInWithJob(t, backend, newLocal(t), true)

	res := s.CompleteTask(ctx, "deck_scrub", strPtr("/api/v1/upload/a.png"), strPtr("done"))
	assert.Equal(t, Result{Success: true}, res)
	require.Len(t, backend.completions, 1)
	c := backend.completions[0]
	assert.Equal(t, 7, c.JobID)
	assert.Equal(t, 1, c.CompletedBy)
	assert.True(t, c.Synced)
	assert.Equal(t, "done", *c.Notes)
	assert.Zero(t, s.PendingSyncCount())
}

func TestFailedWriteIsQueued(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := signedInWithJob(t, backend, newLocal(t), true)
	backend.setDown(true)

	res := s.CompleteTask(ctx, "deck_scrub", nil, nil)
	assert.Equal(t, Result{Success: true, Offline: true}, res)
	res = s.ReportIssue(ctx, IssueInput{Description: "Leaking hose"})
	assert.Equal(t, Result{Success: true, Offline: true}, res)

	queue := s.Queue()
	require.Len(t, queue, 2)
	assert.Equal(t, models.ActionCompleteTask, queue[0].ActionType)
	assert.Equal(t, models.ActionReportIssue, queue[1].ActionType)
	assert.JSONEq(t, `true`, string(mustField(t, queue[0].Payload, "synced")))
}

func TestQueuedItemRemovedOnlyAfterSuccess(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	local := newLocal(t)
	s := signedInWithJob(t, backend, local, false)

	res := s.CompleteTask(ctx, "deck_scrub", nil, nil)
	require.Equal(t, Result{Success: true, Offline: true}, res)
	assert.Empty(t, backend.completions)
	before := s.Queue()
	require.Len(t, before, 1)

	// Offline sweeps do nothing.
	assert.Equal(t, SyncSummary{}, s.SyncOfflineQueue(ctx))

	// A failed retry leaves the item exactly as it was.
	backend.setDown(true)
	summary := s.SetOnline(ctx, true)
	assert.Equal(t, SyncSummary{Attempted: 1, Failed: 1}, summary)
	after := s.Queue()
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.JSONEq(t, string(before[0].Payload), string(after[0].Payload))
	persisted, err := local.LoadQueue(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, before[0].ID, persisted[0].ID)

	backend.setDown(false)
	summary = s.SyncOfflineQueue(ctx)
	assert.Equal(t, SyncSummary{Attempted: 1, Synced: 1}, summary)
	assert.Zero(t, s.PendingSyncCount())
	assert.False(t, s.IsSyncing())
	require.Len(t, backend.completions, 1)
	assert.False(t, backend.completions[0].Synced)
	persisted, err = local.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestSyncKeepsOrderAndSkipsFailures(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := signedInWithJob(t, backend, newLocal(t), false)

	for _, task := range []string{"deck_scrub", "galley_clean", "bins_empty"} {
		s.CompleteTask(ctx, task, nil, nil)
	}
	s.ReportIssue(ctx, IssueInput{Category: "supplies", Description: "Out of polish"})
	backend.failTasks["galley_clean"] = true

	summary := s.SetOnline(ctx, true)
	assert.Equal(t, SyncSummary{Attempted: 4, Synced: 3, Failed: 1}, summary)
	assert.Equal(t, []string{"deck_scrub", "bins_empty"}, backend.completionTasks())
	require.Len(t, backend.issues, 1)
	require.NotNil(t, backend.issues[0].JobID)
	assert.Equal(t, 7, *backend.issues[0].JobID)

	queue := s.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, "item-2", queue[0].ID)
}

func TestSyncNeedsSession(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := signedInWithJob(t, backend, newLocal(t), false)
	s.CompleteTask(ctx, "deck_scrub", nil, nil)
	s.Logout(ctx)

	assert.Equal(t, SyncSummary{}, s.SetOnline(ctx, true))
	assert.Equal(t, 1, s.PendingSyncCount())

	// The next sign-in sweeps with the new token.
	require.True(t, s.LoginWithPIN(ctx, "1234").Success)
	assert.Equal(t, SyncSummary{Attempted: 1, Synced: 1}, s.SyncOfflineQueue(ctx))
}

func TestFetchTodaysJobs(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.jobs = []models.Job{{ID: 1}, {ID: 2}}
	s := newStore(t, backend, newLocal(t), true)

	assert.Empty(t, s.FetchTodaysJobs(ctx))
	require.True(t, s.LoginWithPIN(ctx, "1111").Success)
	assert.Len(t, s.FetchTodaysJobs(ctx), 2)

	backend.setDown(true)
	jobs := s.FetchTodaysJobs(ctx)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestReviewActionsNeedReviewerRole(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newFakeBackend(), newLocal(t), true)

	_, err := s.ReviewQueue(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	require.True(t, s.LoginWithPIN(ctx, "1111").Success)
	_, err = s.ReviewQueue(ctx)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.ApproveJob(ctx, 9)
	assert.ErrorIs(t, err, ErrForbidden)

	require.True(t, s.LoginWithPIN(ctx, "1234").Success)
	queue, err := s.ReviewQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
	job, err := s.ApproveJob(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, models.JobReviewed, job.Status)
}

func TestStartJobRefreshesCurrentJob(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	s := newStore(t, newFakeBackend(), local, true)
	require.True(t, s.LoginWithPIN(ctx, "1111").Success)
	yacht := &models.Yacht{ID: 2, Name: "Sea Breeze"}
	require.NoError(t, s.SetCurrentJob(ctx, &models.Job{ID: 7, Status: models.JobPending, Yacht: yacht}))

	_, err := s.StartJob(ctx, 7)
	require.NoError(t, err)
	current := s.CurrentJob()
	assert.Equal(t, models.JobInProgress, current.Status)
	assert.Equal(t, "Sea Breeze", current.Yacht.Name)

	var stored models.Job
	ok, err := local.GetJSON(ctx, localstore.KeyCurrentJob, &stored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.JobInProgress, stored.Status)
}

func TestUploadPhotoNeedsConnection(t *testing.T) {
	ctx := context.Background()
	s := signedInWithJob(t, newFakeBackend(), newLocal(t), false)

	_, err := s.UploadPhoto(ctx, "deck.png")
	assert.ErrorIs(t, err, ErrOffline)

	s.SetOnline(ctx, true)
	up, err := s.UploadPhoto(ctx, "deck.png")
	require.NoError(t, err)
	assert.Contains(t, up.ThumbnailURL, "thumb_")
}

// failingLocal stores everything except queue items.
type failingLocal struct {
	*localstore.Store
}

func (failingLocal) AppendQueueItem(context.Context, models.QueueItem) error {
	return errors.New("disk full")
}

func TestQueueFailureIsReported(t *testing.T) {
	ctx := context.Background()
	s := signedInWithJob(t, newFakeBackend(), failingLocal{newLocal(t)}, false)

	res := s.CompleteTask(ctx, "deck_scrub", nil, nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "disk full")
	res = s.ReportIssue(ctx, IssueInput{Description: "Cracked hatch"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "disk full")
	assert.Zero(t, s.PendingSyncCount())

	ok := signedInWithJob(t, newFakeBackend(), newLocal(t), false)
	assert.Error(t, ok.enqueue(ctx, models.ActionCompleteTask, func() {}))
	assert.Zero(t, ok.PendingSyncCount())
}

func TestSweepPicksUpItemsQueuedByAnotherProcess(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")
	backend := newFakeBackend()

	openStore := func(prefix string) (*Store, *localstore.Store) {
		local, err := localstore.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = local.Close() })
		ids := 0
		s, err := New(ctx, backend, local, Options{
			StoreKey: storeKey,
			NewID: func() string {
				ids++
				return fmt.Sprintf("%s-%d", prefix, ids)
			},
		})
		require.NoError(t, err)
		return s, local
	}

	// A long-running watcher, offline, holding one item.
	watcher, _ := openStore("watch")
	require.True(t, watcher.LoginWithPIN(ctx, "1111").Success)
	require.NoError(t, watcher.SetCurrentJob(ctx, &models.Job{ID: 7, Status: models.JobInProgress}))
	require.True(t, watcher.CompleteTask(ctx, "deck_scrub", nil, nil).Offline)

	// A second command on the same device queues more work.
	cmd, cmdLocal := openStore("cmd")
	require.True(t, cmd.IsAuthenticated())
	require.True(t, cmd.CompleteTask(ctx, "galley_clean", nil, nil).Offline)
	require.Equal(t, 1, watcher.PendingSyncCount())

	summary := watcher.SetOnline(ctx, true)
	assert.Equal(t, SyncSummary{Attempted: 2, Synced: 2}, summary)
	assert.Equal(t, []string{"deck_scrub", "galley_clean"}, backend.completionTasks())

	persisted, err := cmdLocal.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
	assert.Zero(t, watcher.PendingSyncCount())
}

func TestExpiredSessionSignsOut(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	local := newLocal(t)
	now := time.Now()
	clock := func() time.Time { return now }
	open := func() *Store {
		s, err := New(ctx, backend, local, Options{StoreKey: storeKey, Now: clock})
		require.NoError(t, err)
		return s
	}

	s := open()
	require.True(t, s.LoginWithPIN(ctx, "1111").Success)
	require.NoError(t, s.SetCurrentJob(ctx, &models.Job{ID: 7, Status: models.JobInProgress}))
	require.True(t, s.CompleteTask(ctx, "deck_scrub", nil, nil).Offline)
	assert.True(t, open().IsAuthenticated())

	// The fake issues tokens valid for an hour.
	now = now.Add(2 * time.Hour)
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
	assert.Empty(t, s.Token())
	assert.Equal(t, Result{Error: ErrNotSignedIn.Error()}, s.CompleteTask(ctx, "galley_clean", nil, nil))

	restored := open()
	assert.False(t, restored.IsAuthenticated())
	assert.Equal(t, 1, restored.PendingSyncCount())
	_, ok, err := local.Get(ctx, localstore.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRejectedTokenEndsSession(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	local := newLocal(t)
	s := signedInWithJob(t, backend, local, false)
	require.True(t, s.CompleteTask(ctx, "deck_scrub", nil, nil).Offline)

	backend.reject()
	summary := s.SetOnline(ctx, true)
	assert.Equal(t, SyncSummary{Attempted: 1, Failed: 1}, summary)
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, 1, s.PendingSyncCount())
	_, ok, err := local.Get(ctx, localstore.KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)

	require.True(t, s.LoginWithPIN(ctx, "1111").Success)
	assert.Equal(t, SyncSummary{Attempted: 1, Synced: 1}, s.SyncOfflineQueue(ctx))

	// A write rejected while online is kept and the user is signed out.
	require.NoError(t, s.SetCurrentJob(ctx, &models.Job{ID: 7, Status: models.JobInProgress}))
	backend.reject()
	assert.Equal(t, Result{Success: true, Offline: true}, s.CompleteTask(ctx, "bins_empty", nil, nil))
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, 1, s.PendingSyncCount())
}

func TestSweepSkipsOtherCrewMembersItems(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := signedInWithJob(t, backend, newLocal(t), false)
	require.True(t, s.CompleteTask(ctx, "deck_scrub", nil, nil).Offline)
	s.Logout(ctx)

	require.True(t, s.LoginWithPIN(ctx, "2222").Success)
	assert.Equal(t, SyncSummary{Skipped: 1}, s.SetOnline(ctx, true))
	assert.Equal(t, 1, s.PendingSyncCount())
	assert.Empty(t, backend.completionTasks())

	s.Logout(ctx)
	require.True(t, s.LoginWithPIN(ctx, "1111").Success)
	assert.Equal(t, SyncSummary{Attempted: 1, Synced: 1}, s.SyncOfflineQueue(ctx))
	assert.Equal(t, []string{"deck_scrub"}, backend.completionTasks())
}
