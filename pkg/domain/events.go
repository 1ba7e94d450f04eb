package domain

import "time"

// ExecutionEvent is one entry of an execution's append-only event log.
// The variant carries the payload; Version is the entry's position.
// BacktraceID, when present, is the version under which a backtrace was
// recorded for this event.
//
// Events are owned by the event store of their execution and are immutable
// once appended.
type ExecutionEvent struct {
	Version     Version
	CreatedAt   time.Time
	BacktraceID *Version
	Variant     EventVariant
}

// EventVariant is the tagged union over event payloads.
type EventVariant interface {
	isEventVariant()
}

// Created is the first event of every execution.
type Created struct {
	FunctionName string
	ScheduledAt  time.Time
}

// Locked records an executor acquiring the execution lock.
type Locked struct {
	LockExpiresAt time.Time
}

// Unlocked records the lock being released without progress.
type Unlocked struct {
	Reason string
}

// TemporarilyFailed records a retryable failure.
type TemporarilyFailed struct {
	Reason string
}

// TemporarilyTimedOut records a retryable lock timeout.
type TemporarilyTimedOut struct{}

// Finished is the terminal event of an execution.
type Finished struct {
	Result ResultDetail
}

// ResultDetail summarizes the outcome carried by a Finished event or a
// child execution response.
type ResultDetail struct {
	OK     bool
	Detail string
}

func (Created) isEventVariant()             {}
func (Locked) isEventVariant()              {}
func (Unlocked) isEventVariant()            {}
func (TemporarilyFailed) isEventVariant()   {}
func (TemporarilyTimedOut) isEventVariant() {}
func (Finished) isEventVariant()            {}

// HistoryVariant marks the event variants recorded by the workflow itself
// (as opposed to the executor lifecycle events above).
type HistoryVariant interface {
	EventVariant
	isHistoryVariant()
}

// JoinSetCreated records the declaration of a join set.
type JoinSetCreated struct {
	JoinSet JoinSetId
}

// JoinSetRequest records an asynchronous request submitted against a join
// set: either a child execution or a delay.
type JoinSetRequest struct {
	JoinSet JoinSetId
	Request JoinSetRequestVariant
}

// JoinSetRequestVariant is the payload union of a JoinSetRequest.
type JoinSetRequestVariant interface {
	isJoinSetRequestVariant()
}

// ChildExecutionRequest asks for a child execution within a join set.
type ChildExecutionRequest struct {
	ChildID ExecutionID
}

// DelayRequest asks for a timer within a join set.
type DelayRequest struct {
	Delay     DelayID
	ExpiresAt time.Time
}

func (ChildExecutionRequest) isJoinSetRequestVariant() {}
func (DelayRequest) isJoinSetRequestVariant()          {}

// JoinNext records the workflow blocking on the next response of a join set.
type JoinNext struct {
	JoinSet JoinSetId
}

// JoinNextTry records a non-blocking poll of a join set.
type JoinNextTry struct {
	JoinSet JoinSetId
}

// JoinNextTooMany records a JoinNext issued with no outstanding requests.
type JoinNextTooMany struct {
	JoinSet JoinSetId
}

func (JoinSetCreated) isEventVariant()  {}
func (JoinSetRequest) isEventVariant()  {}
func (JoinNext) isEventVariant()        {}
func (JoinNextTry) isEventVariant()     {}
func (JoinNextTooMany) isEventVariant() {}

func (JoinSetCreated) isHistoryVariant()  {}
func (JoinSetRequest) isHistoryVariant()  {}
func (JoinNext) isHistoryVariant()        {}
func (JoinNextTry) isHistoryVariant()     {}
func (JoinNextTooMany) isHistoryVariant() {}

// IsFinished reports whether the event is the terminal Finished event.
func (e ExecutionEvent) IsFinished() bool {
	_, ok := e.Variant.(Finished)
	return ok
}

// ChildRequest extracts the child execution id if the event is a
// JoinSetRequest carrying a ChildExecutionRequest.
func (e ExecutionEvent) ChildRequest() (ExecutionID, bool) {
	req, ok := e.Variant.(JoinSetRequest)
	if !ok {
		return ExecutionID{}, false
	}
	child, ok := req.Request.(ChildExecutionRequest)
	if !ok {
		return ExecutionID{}, false
	}
	return child.ChildID, true
}
