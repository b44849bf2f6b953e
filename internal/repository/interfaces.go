package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ghost-crew/internal/models"

	"github.com/lib/pq"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("already exists")
	ErrStatusConflict = errors.New("job status changed concurrently or transition not allowed")
	ErrInvalidRef     = errors.New("referenced row does not exist")
)

type UserRepository interface {
	GetByPIN(ctx context.Context, pin string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, u models.User) (*models.User, error)
}

type YachtRepository interface {
	List(ctx context.Context) ([]models.Yacht, error)
	Create(ctx context.Context, y models.Yacht) (*models.Yacht, error)
}

type JobRepository interface {
	ListForAssignee(ctx context.Context, userID int, date string) ([]models.Job, error)
	ListByStatus(ctx context.Context, status models.JobStatus) ([]models.Job, error)
	ListBetween(ctx context.Context, from, to string) ([]models.Job, error)
	Get(ctx context.Context, id int) (*models.Job, error)
	InsertBatch(ctx context.Context, jobs []models.Job) ([]models.Job, error)
	Advance(ctx context.Context, id int, from, to models.JobStatus, at time.Time, reviewer *int) (*models.Job, error)
}

type CompletionRepository interface {
	Upsert(ctx context.Context, c models.TaskCompletion) (*models.TaskCompletion, error)
	ListForJob(ctx context.Context, jobID int) ([]models.TaskCompletion, error)
}

type IssueRepository interface {
	Insert(ctx context.Context, i models.Issue) (*models.Issue, error)
	ListForJob(ctx context.Context, jobID int) ([]models.Issue, error)
}

// Store groups the table repositories handed to the HTTP layer.
type Store struct {
	Users       UserRepository
	Yachts      YachtRepository
	Jobs        JobRepository
	Completions CompletionRepository
	Issues      IssueRepository
}

func NewStore(db *sql.DB) Store {
	return Store{
		Users:       NewUserRepository(db),
		Yachts:      NewYachtRepository(db),
		Jobs:        NewJobRepository(db),
		Completions: NewCompletionRepository(db),
		Issues:      NewIssueRepository(db),
	}
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return ErrInvalidRef
		}
	}
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
