package domain

import "time"

// JoinSetResponse is one arrival in a join set's response collection.
// Responses are append-only and ordered by arrival; the pagination cursor
// preserves that order across pages.
type JoinSetResponse struct {
	JoinSet   JoinSetId
	CreatedAt time.Time
	Variant   ResponseVariant
}

// ResponseVariant is the tagged union over response payloads.
type ResponseVariant interface {
	isResponseVariant()
}

// ChildExecutionFinished reports a child execution reaching its terminal
// event.
type ChildExecutionFinished struct {
	ChildID ExecutionID
	Result  ResultDetail
}

// DelayFinished reports a delay timer elapsing.
type DelayFinished struct {
	Delay DelayID
}

func (ChildExecutionFinished) isResponseVariant() {}
func (DelayFinished) isResponseVariant()          {}

// ResponseWithCursor pairs a response with its positional cursor, the resume
// token for paginated response retrieval.
type ResponseWithCursor struct {
	Cursor   uint32
	Response JoinSetResponse
}
