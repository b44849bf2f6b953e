// Package app holds the field client's application state: the signed-in
// crew member, the job being worked and the queue of writes waiting for a
// connection. A Store is built once per session and handed to every view.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ghost-crew/internal/localstore"
	"ghost-crew/internal/models"
	"ghost-crew/pkg/crypto"
	"ghost-crew/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the outcome of a user action. Offline is set when the action was
// queued instead of written.
type Result struct {
	Success bool   `json:"success"`
	Offline bool   `json:"offline,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IssueInput is what the crew member types when reporting a problem.
type IssueInput struct {
	Category    string
	Description string
	PhotoURL    *string
}

// SyncSummary counts the outcome of one queue sweep. Skipped items belong to
// another crew member and wait for them to sign in.
type SyncSummary struct {
	Attempted int
	Synced    int
	Failed    int
	Skipped   int
}

type Options struct {
	// StoreKey seals the session token at rest.
	StoreKey string
	// Online is the connectivity assumed until the first probe.
	Online bool
	Now    func() time.Time
	NewID  func() string
}

type Store struct {
	backend Backend
	local   LocalStorage
	opts    Options

	mu         sync.RWMutex
	user       *models.User
	token      string
	expiresAt  time.Time
	currentJob *models.Job
	queue      []models.QueueItem
	online     bool
	syncing    bool
}

// New restores the session, current job and offline queue from local storage.
func New(ctx context.Context, backend Backend, local LocalStorage, opts Options) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	s := &Store{backend: backend, local: local, opts: opts, online: opts.Online}

	var user models.User
	ok, err := local.GetJSON(ctx, localstore.KeyUser, &user)
	if err != nil {
		logger.ErrorLogger.Error("Discarding stored user", zap.Error(err))
	} else if ok {
		token, err := s.openToken(ctx)
		if err != nil {
			logger.SecurityLogger.Warn("Stored session token unreadable, signing out", zap.Error(err))
		} else {
			var expires time.Time
			if _, err := local.GetJSON(ctx, localstore.KeyTokenExpires, &expires); err != nil {
				logger.ErrorLogger.Error("Discarding stored token expiry", zap.Error(err))
			}
			if !expires.IsZero() && !opts.Now().Before(expires) {
				logger.SecurityLogger.Warn("Stored session expired, signing out",
					zap.Int("user_id", user.ID), zap.Time("expired_at", expires))
				s.clearStoredSession(ctx)
			} else {
				s.user, s.token, s.expiresAt = &user, token, expires
			}
		}
	}

	var job models.Job
	if ok, err := local.GetJSON(ctx, localstore.KeyCurrentJob, &job); err != nil {
		logger.ErrorLogger.Error("Discarding stored current job", zap.Error(err))
	} else if ok {
		s.currentJob = &job
	}

	queue, err := local.LoadQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("load offline queue: %w", err)
	}
	s.queue = queue

	logger.SystemLogger.Info("Application store ready",
		zap.Bool("authenticated", s.user != nil), zap.Int("queued", len(queue)), zap.Bool("online", s.online))
	return s, nil
}

func (s *Store) openToken(ctx context.Context) (string, error) {
	sealed, ok, err := s.local.Get(ctx, localstore.KeyToken)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no token stored")
	}
	return crypto.Decrypt(sealed, s.opts.StoreKey)
}

// sessionLocked returns the signed-in user and token while the session has
// not passed its expiry. Callers hold s.mu.
func (s *Store) sessionLocked() (*models.User, string, bool) {
	if s.user == nil || s.token == "" {
		return nil, "", false
	}
	if !s.expiresAt.IsZero() && !s.opts.Now().Before(s.expiresAt) {
		return nil, "", false
	}
	return s.user, s.token, true
}

// IsAuthenticated is false once the session token has expired.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, _, ok := s.sessionLocked()
	return ok
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, _, ok := s.sessionLocked()
	if !ok {
		return nil
	}
	u := *user
	return &u
}

// Role is empty when nobody is signed in.
func (s *Store) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, _, ok := s.sessionLocked()
	if !ok {
		return ""
	}
	return user.Role
}

// Token returns the bearer token of the current session.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, token, _ := s.sessionLocked()
	return token
}

func (s *Store) CurrentJob() *models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentJob == nil {
		return nil
	}
	j := *s.currentJob
	return &j
}

func (s *Store) PendingSyncCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue)
}

func (s *Store) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

func (s *Store) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncing
}

// Queue returns a snapshot of the offline queue in list order.
func (s *Store) Queue() []models.QueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.QueueItem(nil), s.queue...)
}

// LoginWithPIN signs in. A failed login leaves the current session as it was.
func (s *Store) LoginWithPIN(ctx context.Context, pin string) Result {
	session, err := s.backend.Login(ctx, pin)
	if err != nil {
		logger.SecurityLogger.Warn("Login failed", zap.Error(err))
		return Result{Error: err.Error()}
	}

	sealed, err := crypto.Encrypt(session.Token, s.opts.StoreKey)
	if err != nil {
		logger.ErrorLogger.Error("Error sealing session token", zap.Error(err))
		return Result{Error: "could not store session"}
	}

	s.mu.Lock()
	user := session.User
	s.user, s.token, s.expiresAt = &user, session.Token, session.ExpiresAt
	s.mu.Unlock()

	if err := s.local.SetJSON(ctx, localstore.KeyUser, user); err != nil {
		logger.ErrorLogger.Error("Error persisting user", zap.Error(err))
	}
	if err := s.local.Set(ctx, localstore.KeyToken, sealed); err != nil {
		logger.ErrorLogger.Error("Error persisting token", zap.Error(err))
	}
	if session.ExpiresAt.IsZero() {
		err = s.local.Delete(ctx, localstore.KeyTokenExpires)
	} else {
		err = s.local.SetJSON(ctx, localstore.KeyTokenExpires, session.ExpiresAt)
	}
	if err != nil {
		logger.ErrorLogger.Error("Error persisting token expiry", zap.Error(err))
	}
	logger.AuditLogger.Info("Signed in", zap.Int("user_id", user.ID), zap.String("role", string(user.Role)))
	return Result{Success: true}
}

// Logout forgets the session and current job. Queued writes stay queued.
func (s *Store) Logout(ctx context.Context) {
	userID := s.endSession(ctx)
	logger.AuditLogger.Info("Signed out", zap.Int("user_id", userID))
}

// endSession clears the session and current job from memory and local
// storage and returns the id of the user that was signed in.
func (s *Store) endSession(ctx context.Context) int {
	s.mu.Lock()
	userID := 0
	if s.user != nil {
		userID = s.user.ID
	}
	s.user, s.token, s.expiresAt, s.currentJob = nil, "", time.Time{}, nil
	s.mu.Unlock()

	s.clearStoredSession(ctx)
	return userID
}

func (s *Store) clearStoredSession(ctx context.Context) {
	for _, key := range []string{localstore.KeyUser, localstore.KeyToken, localstore.KeyTokenExpires, localstore.KeyCurrentJob} {
		if err := s.local.Delete(ctx, key); err != nil {
			logger.ErrorLogger.Error("Error clearing local session", zap.String("key", key), zap.Error(err))
		}
	}
}

// noteAuth signs the user out when err says the backend no longer accepts
// the token. It returns err unchanged.
func (s *Store) noteAuth(ctx context.Context, err error) error {
	if err == nil || !errors.Is(err, ErrSessionExpired) {
		return err
	}
	s.mu.RLock()
	signedIn := s.user != nil
	s.mu.RUnlock()
	if signedIn {
		userID := s.endSession(ctx)
		logger.SecurityLogger.Warn("Session rejected by backend, signing out", zap.Int("user_id", userID))
	}
	return err
}

// FetchTodaysJobs returns the signed-in user's jobs for today (UTC). Errors
// are logged and give an empty list.
func (s *Store) FetchTodaysJobs(ctx context.Context) []models.Job {
	token := s.Token()
	if token == "" {
		return []models.Job{}
	}
	today := s.opts.Now().UTC().Format("2006-01-02")
	jobs, err := s.backend.TodaysJobs(ctx, token, today)
	if err != nil {
		s.noteAuth(ctx, err)
		logger.ErrorLogger.Error("Error fetching jobs", zap.String("date", today), zap.Error(err))
		return []models.Job{}
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	return jobs
}

// SetCurrentJob selects the job being worked. nil clears it.
func (s *Store) SetCurrentJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	if job == nil {
		s.currentJob = nil
	} else {
		j := *job
		s.currentJob = &j
	}
	s.mu.Unlock()

	if job == nil {
		return s.local.Delete(ctx, localstore.KeyCurrentJob)
	}
	return s.local.SetJSON(ctx, localstore.KeyCurrentJob, job)
}

// CompleteTask records taskID on the current job. Offline, or when the
// write fails, the completion is queued and reported as success.
func (s *Store) CompleteTask(ctx context.Context, taskID string, photoURL, notes *string) Result {
	s.mu.RLock()
	user, token, signedIn := s.sessionLocked()
	job, online := s.currentJob, s.online
	s.mu.RUnlock()

	if job == nil {
		return Result{Error: "No active job"}
	}
	if !signedIn {
		return Result{Error: ErrNotSignedIn.Error()}
	}

	completion := models.TaskCompletion{
		JobID:       job.ID,
		TaskID:      taskID,
		CompletedBy: user.ID,
		CompletedAt: s.opts.Now().UTC(),
		PhotoURL:    photoURL,
		Notes:       notes,
		Synced:      online,
	}

	if online {
		err := s.backend.UpsertTaskCompletion(ctx, token, completion)
		if err == nil {
			return Result{Success: true}
		}
		s.noteAuth(ctx, err)
		logger.ErrorLogger.Error("Error completing task, queueing",
			zap.Int("job_id", job.ID), zap.String("task_id", taskID), zap.Error(err))
	}
	if err := s.enqueue(ctx, models.ActionCompleteTask, completion); err != nil {
		return Result{Error: "Could not save task: " + err.Error()}
	}
	return Result{Success: true, Offline: true}
}

// ReportIssue files an issue against the current job, if any.
func (s *Store) ReportIssue(ctx context.Context, in IssueInput) Result {
	s.mu.RLock()
	user, token, signedIn := s.sessionLocked()
	job, online := s.currentJob, s.online
	s.mu.RUnlock()

	if !signedIn {
		return Result{Error: ErrNotSignedIn.Error()}
	}

	issue := models.Issue{
		ReportedBy:  user.ID,
		Category:    in.Category,
		Description: in.Description,
		PhotoURL:    in.PhotoURL,
		CreatedAt:   s.opts.Now().UTC(),
		Synced:      online,
	}
	if job != nil {
		id := job.ID
		issue.JobID = &id
	}

	if online {
		err := s.backend.InsertIssue(ctx, token, issue)
		if err == nil {
			return Result{Success: true}
		}
		s.noteAuth(ctx, err)
		logger.ErrorLogger.Error("Error reporting issue, queueing", zap.Error(err))
	}
	if err := s.enqueue(ctx, models.ActionReportIssue, issue); err != nil {
		return Result{Error: "Could not save issue: " + err.Error()}
	}
	return Result{Success: true, Offline: true}
}

// enqueue persists the action and then adds it to the in-memory queue. An
// action that cannot be stored is not queued and the error is returned.
func (s *Store) enqueue(ctx context.Context, action models.ActionType, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding queued action", zap.String("action", string(action)), zap.Error(err))
		return fmt.Errorf("encode %s: %w", action, err)
	}
	item := models.QueueItem{
		ID:         s.opts.NewID(),
		ActionType: action,
		Payload:    raw,
		Timestamp:  s.opts.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.local.AppendQueueItem(ctx, item); err != nil {
		logger.ErrorLogger.Error("Error persisting queued action", zap.String("id", item.ID), zap.Error(err))
		return err
	}
	s.queue = append(s.queue, item)
	logger.ContextLogger.Debug("Queued offline action", zap.String("id", item.ID), zap.String("action", string(action)))
	return nil
}

// reloadQueueLocked picks up items other processes queued on the same
// device. Callers hold s.mu.
func (s *Store) reloadQueueLocked(ctx context.Context) {
	items, err := s.local.LoadQueue(ctx)
	if err != nil {
		logger.ErrorLogger.Error("Error reloading offline queue", zap.Error(err))
		return
	}
	s.queue = items
}

// queueOwner returns the crew member a queued action was recorded for.
func queueOwner(item models.QueueItem) (int, error) {
	var owner struct {
		CompletedBy int `json:"completed_by"`
		ReportedBy  int `json:"reported_by"`
	}
	if err := json.Unmarshal(item.Payload, &owner); err != nil {
		return 0, err
	}
	if item.ActionType == models.ActionReportIssue {
		return owner.ReportedBy, nil
	}
	return owner.CompletedBy, nil
}

// replayableBy reports whether user may send item. Supervisors and admins
// may record work for others; workers only send their own.
func replayableBy(item models.QueueItem, user *models.User) bool {
	if user.Role.CanReview() {
		return true
	}
	owner, err := queueOwner(item)
	if err != nil || owner == 0 {
		// Let replay surface the decode error.
		return true
	}
	return owner == user.ID
}

// SyncOfflineQueue replays every queued write once, in list order. The queue
// is first reloaded from local storage so items queued by other processes
// are sent too. Items that succeed are removed; the rest wait for the next
// sweep. It does nothing while offline, signed out or already syncing.
// A rejected session stops the sweep and signs the user out.
func (s *Store) SyncOfflineQueue(ctx context.Context) SyncSummary {
	s.mu.Lock()
	user, token, signedIn := s.sessionLocked()
	if !s.online || s.syncing || !signedIn {
		s.mu.Unlock()
		return SyncSummary{}
	}
	s.reloadQueueLocked(ctx)
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return SyncSummary{}
	}
	s.syncing = true
	snapshot := append([]models.QueueItem(nil), s.queue...)
	me := *user
	s.mu.Unlock()

	var (
		summary SyncSummary
		done    []string
		expired bool
	)
	for _, item := range snapshot {
		if !replayableBy(item, &me) {
			summary.Skipped++
			continue
		}
		summary.Attempted++
		err := s.replay(ctx, token, item)
		if err == nil {
			done = append(done, item.ID)
			summary.Synced++
			continue
		}
		summary.Failed++
		logger.ErrorLogger.Error("Sync error for item",
			zap.String("id", item.ID), zap.String("action", string(item.ActionType)), zap.Error(err))
		if errors.Is(err, ErrSessionExpired) {
			expired = true
			break
		}
	}

	if err := s.local.DeleteQueueItems(ctx, done); err != nil {
		logger.ErrorLogger.Error("Error removing synced items", zap.Int("items", len(done)), zap.Error(err))
	}

	s.mu.Lock()
	synced := make(map[string]bool, len(done))
	for _, id := range done {
		synced[id] = true
	}
	remaining := make([]models.QueueItem, 0, len(s.queue))
	for _, item := range s.queue {
		if !synced[item.ID] {
			remaining = append(remaining, item)
		}
	}
	s.queue = remaining
	s.syncing = false
	s.mu.Unlock()

	if expired {
		s.noteAuth(ctx, ErrSessionExpired)
	}
	logger.SystemLogger.Info("Offline queue swept",
		zap.Int("synced", summary.Synced), zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped), zap.Int("remaining", len(remaining)))
	return summary
}

func (s *Store) replay(ctx context.Context, token string, item models.QueueItem) error {
	switch item.ActionType {
	case models.ActionCompleteTask:
		var c models.TaskCompletion
		if err := json.Unmarshal(item.Payload, &c); err != nil {
			return fmt.Errorf("decode completion: %w", err)
		}
		return s.backend.UpsertTaskCompletion(ctx, token, c)
	case models.ActionReportIssue:
		var i models.Issue
		if err := json.Unmarshal(item.Payload, &i); err != nil {
			return fmt.Errorf("decode issue: %w", err)
		}
		return s.backend.InsertIssue(ctx, token, i)
	default:
		return fmt.Errorf("unknown action type %q", item.ActionType)
	}
}

// SetOnline records connectivity. Coming back online sweeps the queue.
func (s *Store) SetOnline(ctx context.Context, online bool) SyncSummary {
	s.mu.Lock()
	was := s.online
	s.online = online
	s.mu.Unlock()

	if was != online {
		logger.SystemLogger.Info("Connectivity changed", zap.Bool("online", online))
	}
	if online && !was {
		return s.SyncOfflineQueue(ctx)
	}
	return SyncSummary{}
}

// session returns the token for a call that needs one.
func (s *Store) session() (string, models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, token, ok := s.sessionLocked()
	if !ok {
		return "", "", ErrNotSignedIn
	}
	return token, user.Role, nil
}

func (s *Store) reviewer() (string, error) {
	token, role, err := s.session()
	if err != nil {
		return "", err
	}
	if !role.CanReview() {
		return "", ErrForbidden
	}
	return token, nil
}

func (s *Store) Checklist(ctx context.Context, jobID int) ([]models.ChecklistItem, error) {
	token, _, err := s.session()
	if err != nil {
		return nil, err
	}
	items, err := s.backend.Checklist(ctx, token, jobID)
	return items, s.noteAuth(ctx, err)
}

func (s *Store) StartJob(ctx context.Context, jobID int) (*models.Job, error) {
	token, _, err := s.session()
	if err != nil {
		return nil, err
	}
	job, err := s.backend.StartJob(ctx, token, jobID)
	if err != nil {
		return nil, s.noteAuth(ctx, err)
	}
	s.refreshCurrentJob(ctx, job)
	return job, nil
}

func (s *Store) FinishJob(ctx context.Context, jobID int) (*models.Job, error) {
	token, _, err := s.session()
	if err != nil {
		return nil, err
	}
	job, err := s.backend.FinishJob(ctx, token, jobID)
	if err != nil {
		return nil, s.noteAuth(ctx, err)
	}
	s.refreshCurrentJob(ctx, job)
	return job, nil
}

// refreshCurrentJob replaces the current job when job is the same one.
func (s *Store) refreshCurrentJob(ctx context.Context, job *models.Job) {
	current := s.CurrentJob()
	if current == nil || current.ID != job.ID {
		return
	}
	if job.Yacht == nil {
		job.Yacht = current.Yacht
	}
	if err := s.SetCurrentJob(ctx, job); err != nil {
		logger.ErrorLogger.Error("Error persisting current job", zap.Error(err))
	}
}

// UploadPhoto sends a photo file. It needs a connection.
func (s *Store) UploadPhoto(ctx context.Context, path string) (*PhotoUpload, error) {
	token, _, err := s.session()
	if err != nil {
		return nil, err
	}
	if !s.IsOnline() {
		return nil, ErrOffline
	}
	upload, err := s.backend.UploadPhoto(ctx, token, path)
	return upload, s.noteAuth(ctx, err)
}

func (s *Store) ReviewQueue(ctx context.Context) ([]models.Job, error) {
	token, err := s.reviewer()
	if err != nil {
		return nil, err
	}
	jobs, err := s.backend.ReviewQueue(ctx, token)
	return jobs, s.noteAuth(ctx, err)
}

func (s *Store) ReviewDetail(ctx context.Context, jobID int) (*models.ReviewDetail, error) {
	token, err := s.reviewer()
	if err != nil {
		return nil, err
	}
	detail, err := s.backend.ReviewDetail(ctx, token, jobID)
	return detail, s.noteAuth(ctx, err)
}

func (s *Store) ApproveJob(ctx context.Context, jobID int) (*models.Job, error) {
	token, err := s.reviewer()
	if err != nil {
		return nil, err
	}
	job, err := s.backend.ApproveJob(ctx, token, jobID)
	if err != nil {
		return nil, s.noteAuth(ctx, err)
	}
	logger.AuditLogger.Info("Job approved", zap.Int("job_id", job.ID))
	return job, nil
}
