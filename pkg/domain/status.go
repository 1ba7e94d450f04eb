package domain

import "time"

// ExecutionStatus is the backend's current view of an execution.
type ExecutionStatus string

const (
	StatusPending          ExecutionStatus = "pending"
	StatusLocked           ExecutionStatus = "locked"
	StatusBlockedByJoinSet ExecutionStatus = "blocked_by_join_set"
	StatusFinished         ExecutionStatus = "finished"
)

// IsFinished reports whether the status is terminal.
func (s ExecutionStatus) IsFinished() bool {
	return s == StatusFinished
}

// FinishedStatus carries the detailed outcome sent once an execution is
// done, when the subscriber asked for it.
type FinishedStatus struct {
	ScheduledAt time.Time
	FinishedAt  time.Time
	Result      ResultDetail
}

// StatusMessage is one message of a GetStatus subscription stream.
// Exactly one of the payload fields is set.
type StatusMessage struct {
	ExecutionID ExecutionID
	Status      ExecutionStatus
	Finished    *FinishedStatus
}

// IsFinished reports whether the message makes further updates impossible.
// A detailed finished payload always does; a bare status does once it is
// terminal.
func (m StatusMessage) IsFinished() bool {
	return m.Finished != nil || m.Status.IsFinished()
}
