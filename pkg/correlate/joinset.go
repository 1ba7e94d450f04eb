// Package correlate pairs JoinNext history events with the join set
// responses they were waiting for, and derives the parent-side version
// bounds of a child execution.
package correlate

import (
	"time"

	"github.com/obeli-sk/webui/pkg/domain"
)

// JoinNextToResponse assigns each JoinNext/JoinNextTry event, in version
// order, the next not-yet-consumed response of its join set. Pairing is FIFO
// per join set: the k-th join against a set matches the k-th response that
// arrived for it. Joins beyond the responses seen so far get no entry.
func JoinNextToResponse(events []domain.ExecutionEvent, responses map[domain.JoinSetId][]domain.JoinSetResponse) map[domain.Version]domain.JoinSetResponse {
	result := make(map[domain.Version]domain.JoinSetResponse)
	consumed := make(map[domain.JoinSetId]int)

	for _, event := range events {
		var joinSet domain.JoinSetId
		switch variant := event.Variant.(type) {
		case domain.JoinNext:
			joinSet = variant.JoinSet
		case domain.JoinNextTry:
			joinSet = variant.JoinSet
		default:
			continue
		}
		idx := consumed[joinSet]
		if idx < len(responses[joinSet]) {
			result[event.Version] = responses[joinSet][idx]
			consumed[joinSet] = idx + 1
		}
	}
	return result
}

// ParentExecutionBounds scans a parent's log for the child's lifetime there:
// start is the version of the JoinSetRequest that created the child, end is
// the version of the JoinNext whose correlated response reports the child
// finished. Either may be absent if not yet observed.
func ParentExecutionBounds(parentEvents []domain.ExecutionEvent, parentResponses map[domain.JoinSetId][]domain.JoinSetResponse, childID domain.ExecutionID) (start, end *domain.Version) {
	joinNextMap := JoinNextToResponse(parentEvents, parentResponses)

	for _, event := range parentEvents {
		switch event.Variant.(type) {
		case domain.JoinSetRequest:
			if id, ok := event.ChildRequest(); ok && id == childID {
				v := event.Version
				start = &v
			}
		case domain.JoinNext:
			resp, ok := joinNextMap[event.Version]
			if !ok {
				continue
			}
			if finished, ok := resp.Variant.(domain.ChildExecutionFinished); ok && finished.ChildID == childID {
				v := event.Version
				end = &v
				return start, end
			}
		}
	}
	return start, end
}

// ChildResult is the outcome of a child execution as observed through its
// parent's responses, before the child's own log is loaded.
type ChildResult struct {
	Result     domain.ResultDetail
	FinishedAt time.Time
}

// ChildResults indexes ChildExecutionFinished responses by child id. It is
// what lets the trace tree render a finished child as a summary interval
// without fetching the child's events.
func ChildResults(responses map[domain.JoinSetId][]domain.JoinSetResponse) map[domain.ExecutionID]ChildResult {
	results := make(map[domain.ExecutionID]ChildResult)
	for _, resps := range responses {
		for _, resp := range resps {
			if finished, ok := resp.Variant.(domain.ChildExecutionFinished); ok {
				results[finished.ChildID] = ChildResult{
					Result:     finished.Result,
					FinishedAt: resp.CreatedAt,
				}
			}
		}
	}
	return results
}
