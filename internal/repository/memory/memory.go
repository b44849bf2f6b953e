// Package memory keeps every table in process memory. It backs the API in
// STORAGE=memory mode and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ghost-crew/internal/models"
	"ghost-crew/internal/repository"
)

type db struct {
	mu          sync.RWMutex
	nextID      int
	users       map[int]models.User
	yachts      map[int]models.Yacht
	jobs        map[int]models.Job
	completions map[int]models.TaskCompletion
	issues      map[int]models.Issue
	now         func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() repository.Store {
	d := &db{
		users:       map[int]models.User{},
		yachts:      map[int]models.Yacht{},
		jobs:        map[int]models.Job{},
		completions: map[int]models.TaskCompletion{},
		issues:      map[int]models.Issue{},
		now:         time.Now,
	}
	return repository.Store{
		Users:       users{d},
		Yachts:      yachts{d},
		Jobs:        jobs{d},
		Completions: completions{d},
		Issues:      issues{d},
	}
}

// id hands out increasing ids; callers hold the write lock.
func (d *db) id() int {
	d.nextID++
	return d.nextID
}

// created returns a strictly increasing timestamp so ordering by creation is stable.
func (d *db) created() time.Time {
	return d.now().UTC().Add(time.Duration(d.nextID) * time.Microsecond)
}

type users struct{ d *db }

func (r users) GetByPIN(_ context.Context, pin string) (*models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, u := range r.d.users {
		if u.PIN == pin {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r users) GetByID(_ context.Context, id int) (*models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	u, ok := r.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r users) List(context.Context) ([]models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]models.User, 0, len(r.d.users))
	for _, u := range r.d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r users) Create(_ context.Context, u models.User) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.users {
		if existing.PIN == u.PIN {
			return nil, repository.ErrDuplicate
		}
	}
	if u.Role == "" {
		u.Role = models.RoleWorker
	}
	u.ID = r.d.id()
	u.CreatedAt = r.d.created()
	r.d.users[u.ID] = u
	return &u, nil
}

type yachts struct{ d *db }

func (r yachts) List(context.Context) ([]models.Yacht, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]models.Yacht, 0, len(r.d.yachts))
	for _, y := range r.d.yachts {
		out = append(out, y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r yachts) Create(_ context.Context, y models.Yacht) (*models.Yacht, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.yachts {
		if existing.Name == y.Name {
			return nil, repository.ErrDuplicate
		}
	}
	y.ID = r.d.id()
	y.CreatedAt = r.d.created()
	r.d.yachts[y.ID] = y
	return &y, nil
}

type jobs struct{ d *db }

// withYacht joins the yacht row; callers hold a lock.
func (r jobs) withYacht(j models.Job) models.Job {
	if y, ok := r.d.yachts[j.YachtID]; ok {
		j.Yacht = &y
	}
	return j
}

func (r jobs) filter(keep func(models.Job) bool, less func(a, b models.Job) bool) []models.Job {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.Job{}
	for _, j := range r.d.jobs {
		if keep(j) {
			out = append(out, r.withYacht(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return less(out[i], out[k]) })
	return out
}

func byCreated(a, b models.Job) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func byDateThenCreated(a, b models.Job) bool {
	if a.ScheduledDate != b.ScheduledDate {
		return a.ScheduledDate < b.ScheduledDate
	}
	return byCreated(a, b)
}

func (r jobs) ListForAssignee(_ context.Context, userID int, date string) ([]models.Job, error) {
	return r.filter(func(j models.Job) bool {
		return j.AssignedToUser(userID) && j.ScheduledDate == date
	}, byCreated), nil
}

func (r jobs) ListByStatus(_ context.Context, status models.JobStatus) ([]models.Job, error) {
	return r.filter(func(j models.Job) bool { return j.Status == status }, byDateThenCreated), nil
}

func (r jobs) ListBetween(_ context.Context, from, to string) ([]models.Job, error) {
	return r.filter(func(j models.Job) bool {
		return j.ScheduledDate >= from && j.ScheduledDate <= to
	}, byDateThenCreated), nil
}

func (r jobs) Get(_ context.Context, id int) (*models.Job, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	j, ok := r.d.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	j = r.withYacht(j)
	return &j, nil
}

func (r jobs) InsertBatch(_ context.Context, batch []models.Job) ([]models.Job, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, j := range batch {
		if _, ok := r.d.yachts[j.YachtID]; !ok {
			return nil, repository.ErrInvalidRef
		}
		if j.AssignedTo != nil {
			if _, ok := r.d.users[*j.AssignedTo]; !ok {
				return nil, repository.ErrInvalidRef
			}
		}
	}
	inserted := make([]models.Job, 0, len(batch))
	for _, j := range batch {
		if j.Status == "" {
			j.Status = models.JobPending
		}
		j.ID = r.d.id()
		j.CreatedAt = r.d.created()
		j.Yacht = nil
		r.d.jobs[j.ID] = j
		inserted = append(inserted, j)
	}
	return inserted, nil
}

func (r jobs) Advance(ctx context.Context, id int, from, to models.JobStatus, at time.Time, reviewer *int) (*models.Job, error) {
	if !from.CanAdvanceTo(to) {
		return nil, repository.ErrStatusConflict
	}
	r.d.mu.Lock()
	j, ok := r.d.jobs[id]
	if !ok {
		r.d.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	if j.Status != from {
		r.d.mu.Unlock()
		return nil, repository.ErrStatusConflict
	}
	j.Status = to
	switch to {
	case models.JobInProgress:
		j.StartedAt = &at
	case models.JobCompleted:
		j.CompletedAt = &at
	case models.JobReviewed:
		j.ReviewedAt = &at
	}
	if reviewer != nil {
		rv := *reviewer
		j.ReviewedBy = &rv
	}
	r.d.jobs[id] = j
	r.d.mu.Unlock()
	return r.Get(ctx, id)
}

type completions struct{ d *db }

func (r completions) Upsert(_ context.Context, c models.TaskCompletion) (*models.TaskCompletion, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.jobs[c.JobID]; !ok {
		return nil, repository.ErrInvalidRef
	}
	for id, existing := range r.d.completions {
		if existing.JobID == c.JobID && existing.TaskID == c.TaskID {
			c.ID = id
			r.d.completions[id] = c
			return &c, nil
		}
	}
	c.ID = r.d.id()
	r.d.completions[c.ID] = c
	return &c, nil
}

func (r completions) ListForJob(_ context.Context, jobID int) ([]models.TaskCompletion, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.TaskCompletion{}
	for _, c := range r.d.completions {
		if c.JobID == jobID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

type issues struct{ d *db }

func (r issues) Insert(_ context.Context, i models.Issue) (*models.Issue, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if i.JobID != nil {
		if _, ok := r.d.jobs[*i.JobID]; !ok {
			return nil, repository.ErrInvalidRef
		}
	}
	i.ID = r.d.id()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = r.d.created()
	}
	r.d.issues[i.ID] = i
	return &i, nil
}

func (r issues) ListForJob(_ context.Context, jobID int) ([]models.Issue, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.Issue{}
	for _, i := range r.d.issues {
		if i.JobID != nil && *i.JobID == jobID {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}
