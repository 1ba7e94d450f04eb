// Package trace reconstructs the execution tree shown in the timeline
// view: per-execution busy intervals plus recursively nested children,
// built from the flat per-execution event logs.
package trace

import (
	"fmt"
	"strings"
	"time"

	"github.com/obeli-sk/webui/pkg/correlate"
	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/execstream"
)

// IntervalStatus classifies a busy interval for rendering.
type IntervalStatus string

const (
	StatusSinceScheduled   IntervalStatus = "since_scheduled"
	StatusLocked           IntervalStatus = "locked"
	StatusErrorTemporary   IntervalStatus = "error_temporary"
	StatusTimeoutTemporary IntervalStatus = "timeout_temporary"
	StatusFinishedOK       IntervalStatus = "finished_ok"
	StatusFinishedError    IntervalStatus = "finished_error"
	StatusUnfinished       IntervalStatus = "unfinished"
)

func statusOfResult(result domain.ResultDetail) IntervalStatus {
	if result.OK {
		return StatusFinishedOK
	}
	return StatusFinishedError
}

// BusyInterval is one span of activity within an execution's timeline.
// FinishedAt nil means the interval is still open.
type BusyInterval struct {
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Title      string         `json:"title,omitempty"`
	Status     IntervalStatus `json:"status"`
}

// Node is one execution in the trace tree. An unloaded child (Loaded
// false) carries a single best-effort summary interval derived from the
// parent's responses instead of its own event log.
type Node struct {
	ExecutionID   domain.ExecutionID     `json:"executionId"`
	Name          string                 `json:"name"`
	FunctionName  string                 `json:"functionName,omitempty"`
	Color         string                 `json:"color"`
	ScheduledAt   time.Time              `json:"scheduledAt"`
	LastEventAt   time.Time              `json:"lastEventAt"`
	CurrentStatus domain.ExecutionStatus `json:"currentStatus,omitempty"`
	Loaded        bool                   `json:"loaded"`
	Busy          []BusyInterval         `json:"busy"`
	Children      []*Node                `json:"children,omitempty"`
}

// Options tune tree construction.
type Options struct {
	// HideFinished drops children whose finished response has already
	// arrived at the parent.
	HideFinished bool
}

// Build reconstructs the tree rooted at the given execution. It returns nil
// until at least one event of the root is loaded, which distinguishes "not
// yet fetched" from an empty log. The second result lists referenced child
// executions that are not yet tracked, for an optional autoload policy to
// request.
func Build(snap execstream.Snapshot, root domain.ExecutionID, opts Options) (*Node, []domain.ExecutionID) {
	var missing []domain.ExecutionID
	node := build(snap, root, root, opts, &missing)
	return node, missing
}

func build(snap execstream.Snapshot, id, root domain.ExecutionID, opts Options, missing *[]domain.ExecutionID) *Node {
	events := snap.Events[id]
	if len(events) == 0 {
		return nil
	}

	created, ok := events[0].Variant.(domain.Created)
	if !ok {
		// The server contract guarantees Created first; an incomplete
		// window is indistinguishable from "not loaded" here.
		return nil
	}
	scheduledAt := created.ScheduledAt

	lastEvent := events[len(events)-1]
	isFinished := lastEvent.IsFinished()
	responses := snap.Responses[id]
	lastEventAt := computeLastEventAt(lastEvent, isFinished, responses)

	childResults := correlate.ChildResults(responses)

	node := &Node{
		ExecutionID:   id,
		Name:          childName(id, root),
		FunctionName:  created.FunctionName,
		Color:         id.Color(),
		ScheduledAt:   scheduledAt,
		CurrentStatus: snap.Statuses[id],
		Loaded:        true,
	}

	for _, event := range events {
		childID, ok := event.ChildRequest()
		if !ok {
			continue
		}
		finished, isChildFinished := childResults[childID]
		if opts.HideFinished && isChildFinished {
			continue
		}
		if _, tracked := snap.FetchStates[childID]; !tracked {
			*missing = append(*missing, childID)
		}

		if child := build(snap, childID, id, opts, missing); child != nil {
			if child.LastEventAt.After(lastEventAt) {
				lastEventAt = child.LastEventAt
			}
			node.Children = append(node.Children, child)
			continue
		}

		// Child events not loaded: summarize from the responses the
		// parent already holds.
		summary := &Node{
			ExecutionID: childID,
			Name:        childName(childID, id),
			Color:       childID.Color(),
			ScheduledAt: event.CreatedAt,
			LastEventAt: event.CreatedAt,
		}
		if isChildFinished {
			finishedAt := finished.FinishedAt
			status := statusOfResult(finished.Result)
			summary.LastEventAt = finishedAt
			summary.Busy = []BusyInterval{{
				StartedAt:  event.CreatedAt,
				FinishedAt: &finishedAt,
				Title:      fmt.Sprintf("%s in %s", status, finishedAt.Sub(event.CreatedAt)),
				Status:     status,
			}}
		} else {
			summary.Busy = []BusyInterval{{
				StartedAt: event.CreatedAt,
				Title:     string(StatusUnfinished),
				Status:    StatusUnfinished,
			}}
		}
		node.Children = append(node.Children, summary)
	}

	node.LastEventAt = lastEventAt
	node.Busy = busyIntervals(events, scheduledAt, lastEventAt)
	return node
}

// busyIntervals folds the executor lifecycle events into timeline spans:
// an envelope from scheduling to the last event, one span per lock
// extension, and one span per attempt outcome.
func busyIntervals(events []domain.ExecutionEvent, scheduledAt, lastEventAt time.Time) []BusyInterval {
	intervals := []BusyInterval{{
		StartedAt:  scheduledAt,
		FinishedAt: &lastEventAt,
		Status:     StatusSinceScheduled,
	}}

	type lock struct {
		lockedAt  time.Time
		expiresAt time.Time
	}
	var current *lock

	for _, event := range events {
		switch variant := event.Variant.(type) {
		case domain.Locked:
			if current != nil {
				expiresAt := current.expiresAt
				intervals = append(intervals, BusyInterval{
					StartedAt:  current.lockedAt,
					FinishedAt: &expiresAt,
					Title:      fmt.Sprintf("Locked for %s", expiresAt.Sub(current.lockedAt)),
					Status:     StatusLocked,
				})
			}
			current = &lock{lockedAt: event.CreatedAt, expiresAt: variant.LockExpiresAt}
		case domain.TemporarilyFailed, domain.Unlocked, domain.TemporarilyTimedOut, domain.Finished:
			startedAt := scheduledAt // webhooks have no locks
			if current != nil {
				startedAt = current.lockedAt
				current = nil
			}
			finishedAt := event.CreatedAt
			status := attemptStatus(event.Variant)
			intervals = append(intervals, BusyInterval{
				StartedAt:  startedAt,
				FinishedAt: &finishedAt,
				Title:      fmt.Sprintf("%s in %s", status, finishedAt.Sub(startedAt)),
				Status:     status,
			})
		}
	}

	// A lock without a closing event leaves an open interval. The lock
	// expiry is ignored: it may be in the future or beyond the last seen
	// event.
	if current != nil {
		intervals = append(intervals, BusyInterval{
			StartedAt: current.lockedAt,
			Title:     string(StatusUnfinished),
			Status:    StatusUnfinished,
		})
	}
	return intervals
}

func attemptStatus(variant domain.EventVariant) IntervalStatus {
	switch v := variant.(type) {
	case domain.TemporarilyFailed:
		return StatusErrorTemporary
	case domain.Unlocked:
		return StatusLocked
	case domain.TemporarilyTimedOut:
		return StatusTimeoutTemporary
	case domain.Finished:
		return statusOfResult(v.Result)
	default:
		return StatusUnfinished
	}
}

// computeLastEventAt picks the latest activity timestamp: the last event,
// or for an unfinished execution the freshest response arrival if later.
func computeLastEventAt(lastEvent domain.ExecutionEvent, isFinished bool, responses map[domain.JoinSetId][]domain.JoinSetResponse) time.Time {
	candidate := lastEvent.CreatedAt
	if isFinished {
		return candidate
	}
	for _, resps := range responses {
		if len(resps) == 0 {
			continue
		}
		if last := resps[len(resps)-1].CreatedAt; last.After(candidate) {
			candidate = last
		}
	}
	return candidate
}

// childName strips the parent prefix off a child id, leaving the locally
// meaningful suffix.
func childName(id, parent domain.ExecutionID) string {
	if id == parent {
		return id.String()
	}
	if suffix, ok := strings.CutPrefix(id.ID, parent.ID+domain.ExecutionIDInfix); ok {
		return suffix
	}
	return id.String()
}
