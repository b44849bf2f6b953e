package app

import (
	"context"
	"errors"
	"time"

	"ghost-crew/internal/models"
)

var (
	ErrNotSignedIn = errors.New("not signed in")
	ErrOffline     = errors.New("backend is offline")
	ErrForbidden   = errors.New("role may not perform this action")

	// ErrSessionExpired is matched by backend errors that mean the token is
	// no longer accepted.
	ErrSessionExpired = errors.New("session expired, sign in again")
)

// Session is what a successful PIN login returns.
type Session struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type PhotoUpload struct {
	PhotoURL     string `json:"photo_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Backend is the remote data API. Every call after Login carries the
// session token.
type Backend interface {
	Ping(ctx context.Context) error
	Login(ctx context.Context, pin string) (*Session, error)

	TodaysJobs(ctx context.Context, token, date string) ([]models.Job, error)
	Checklist(ctx context.Context, token string, jobID int) ([]models.ChecklistItem, error)
	StartJob(ctx context.Context, token string, jobID int) (*models.Job, error)
	FinishJob(ctx context.Context, token string, jobID int) (*models.Job, error)

	UpsertTaskCompletion(ctx context.Context, token string, c models.TaskCompletion) error
	InsertIssue(ctx context.Context, token string, i models.Issue) error
	UploadPhoto(ctx context.Context, token, path string) (*PhotoUpload, error)

	ReviewQueue(ctx context.Context, token string) ([]models.Job, error)
	ReviewDetail(ctx context.Context, token string, jobID int) (*models.ReviewDetail, error)
	ApproveJob(ctx context.Context, token string, jobID int) (*models.Job, error)
}

// LocalStorage is the on-device persistence the store mirrors its state to.
// localstore.Store implements it.
type LocalStorage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetJSON(ctx context.Context, key string, v interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}) error
	LoadQueue(ctx context.Context) ([]models.QueueItem, error)
	AppendQueueItem(ctx context.Context, item models.QueueItem) error
	DeleteQueueItems(ctx context.Context, ids []string) error
}
