package models

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobReviewed   JobStatus = "reviewed"
)

var jobStatusOrder = map[JobStatus]int{
	JobPending:    0,
	JobInProgress: 1,
	JobCompleted:  2,
	JobReviewed:   3,
}

func (s JobStatus) Valid() bool {
	_, ok := jobStatusOrder[s]
	return ok
}

// CanAdvanceTo allows only the single forward step along
// pending -> in_progress -> completed -> reviewed.
func (s JobStatus) CanAdvanceTo(next JobStatus) bool {
	from, ok := jobStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := jobStatusOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

type Role string

const (
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleWorker, RoleSupervisor, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanReview reports whether the role may open the review screens.
func (r Role) CanReview() bool {
	return r == RoleSupervisor || r == RoleAdmin
}
