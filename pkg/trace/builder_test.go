package trace_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/eventstore"
	"github.com/obeli-sk/webui/pkg/execstream"
	"github.com/obeli-sk/webui/pkg/trace"
)

var (
	root  = domain.ExecutionID{ID: "E"}
	child = domain.ExecutionID{ID: "E.1"}
	jsA   = domain.JoinSetId{Kind: domain.JoinSetKindGenerated, Name: "a"}
	base  = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
)

func at(seconds int) time.Time {
	return base.Add(time.Duration(seconds) * time.Second)
}

// snapshot assembles a stream snapshot by hand, marking every execution
// with events as tracked.
func snapshot(events map[domain.ExecutionID][]domain.ExecutionEvent, responses map[domain.ExecutionID]map[domain.JoinSetId][]domain.JoinSetResponse) execstream.Snapshot {
	if responses == nil {
		responses = make(map[domain.ExecutionID]map[domain.JoinSetId][]domain.JoinSetResponse)
	}
	snap := execstream.Snapshot{
		Snapshot:    eventstore.Snapshot{Events: events, Responses: responses},
		FetchStates: make(map[domain.ExecutionID]execstream.FetchState),
		Statuses:    make(map[domain.ExecutionID]domain.ExecutionStatus),
	}
	for id := range events {
		snap.FetchStates[id] = execstream.StatePending
	}
	return snap
}

func created(version domain.Version, seconds int, fn string) domain.ExecutionEvent {
	return domain.ExecutionEvent{Version: version, CreatedAt: at(seconds), Variant: domain.Created{
		FunctionName: fn,
		ScheduledAt:  at(seconds),
	}}
}

func locked(version domain.Version, seconds, expiresInSeconds int) domain.ExecutionEvent {
	return domain.ExecutionEvent{Version: version, CreatedAt: at(seconds), Variant: domain.Locked{
		LockExpiresAt: at(seconds + expiresInSeconds),
	}}
}

func finished(version domain.Version, seconds int, ok bool) domain.ExecutionEvent {
	return domain.ExecutionEvent{Version: version, CreatedAt: at(seconds), Variant: domain.Finished{
		Result: domain.ResultDetail{OK: ok},
	}}
}

func childRequest(version domain.Version, seconds int, childID domain.ExecutionID) domain.ExecutionEvent {
	return domain.ExecutionEvent{Version: version, CreatedAt: at(seconds), Variant: domain.JoinSetRequest{
		JoinSet: jsA,
		Request: domain.ChildExecutionRequest{ChildID: childID},
	}}
}

func TestBuild_NilUntilLoaded(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{}, nil)

	node, missing := trace.Build(snap, root, trace.Options{})
	assert.Nil(t, node)
	assert.Empty(t, missing)
}

func TestBuild_NilWithoutCreatedFirst(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {locked(1, 0, 30)},
	}, nil)

	node, _ := trace.Build(snap, root, trace.Options{})
	assert.Nil(t, node)
}

func TestBuild_SingleExecution(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {created(0, 0, "pkg:f/run"), locked(1, 1, 30), finished(2, 5, true)},
	}, nil)
	snap.Statuses[root] = domain.StatusFinished

	node, missing := trace.Build(snap, root, trace.Options{})
	require.NotNil(t, node)
	assert.Empty(t, missing)
	assert.Equal(t, "E", node.Name)
	assert.Equal(t, "pkg:f/run", node.FunctionName)
	assert.Equal(t, at(0), node.ScheduledAt)
	assert.Equal(t, at(5), node.LastEventAt)
	assert.Equal(t, domain.StatusFinished, node.CurrentStatus)
	assert.True(t, node.Loaded)
	assert.Empty(t, node.Children)

	// Envelope plus the finished attempt.
	require.Len(t, node.Busy, 2)
	assert.Equal(t, trace.StatusSinceScheduled, node.Busy[0].Status)
	assert.Equal(t, trace.StatusFinishedOK, node.Busy[1].Status)
	assert.Equal(t, at(1), node.Busy[1].StartedAt, "attempt starts at the lock")
	assert.Equal(t, at(5), *node.Busy[1].FinishedAt)
}

func TestBuild_LockExtensions(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {created(0, 0, "f"), locked(1, 1, 10), locked(2, 8, 10), finished(3, 12, true)},
	}, nil)

	node, _ := trace.Build(snap, root, trace.Options{})
	require.NotNil(t, node)

	// Envelope, superseded first lock, finished attempt from second lock.
	require.Len(t, node.Busy, 3)
	assert.Equal(t, trace.StatusLocked, node.Busy[1].Status)
	assert.Equal(t, at(1), node.Busy[1].StartedAt)
	assert.Equal(t, at(11), *node.Busy[1].FinishedAt, "superseded lock closes at its expiry")
	assert.Equal(t, at(8), node.Busy[2].StartedAt)
}

func TestBuild_TemporaryFailureAttempts(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {
			created(0, 0, "f"),
			locked(1, 1, 10),
			{Version: 2, CreatedAt: at(3), Variant: domain.TemporarilyFailed{Reason: "boom"}},
			locked(3, 4, 10),
			finished(4, 6, false),
		},
	}, nil)

	node, _ := trace.Build(snap, root, trace.Options{})
	require.NotNil(t, node)

	require.Len(t, node.Busy, 3)
	assert.Equal(t, trace.StatusErrorTemporary, node.Busy[1].Status)
	assert.Equal(t, trace.StatusFinishedError, node.Busy[2].Status)
}

func TestBuild_OpenLockLeavesUnfinishedInterval(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {created(0, 0, "f"), locked(1, 1, 30)},
	}, nil)

	node, _ := trace.Build(snap, root, trace.Options{})
	require.NotNil(t, node)

	last := node.Busy[len(node.Busy)-1]
	assert.Equal(t, trace.StatusUnfinished, last.Status)
	assert.Nil(t, last.FinishedAt)
}

func TestBuild_LoadedChildNested(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root:  {created(0, 0, "parent"), childRequest(1, 1, child)},
		child: {created(0, 1, "child"), finished(1, 7, true)},
	}, nil)

	node, missing := trace.Build(snap, root, trace.Options{})
	require.NotNil(t, node)
	assert.Empty(t, missing)
	require.Len(t, node.Children, 1)

	got := node.Children[0]
	assert.Equal(t, "1", got.Name, "child name strips the parent prefix")
	assert.True(t, got.Loaded)
	assert.Equal(t, at(7), node.LastEventAt, "child activity extends the parent")
}

func TestBuild_UntrackedChildReportedMissing(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {created(0, 0, "parent"), childRequest(1, 1, child)},
	}, nil)

	node, missing := trace.Build(snap, root, trace.Options{})
	require.NotNil(t, node)
	assert.Equal(t, []domain.ExecutionID{child}, missing)

	// The unloaded child still shows up as a summary node.
	require.Len(t, node.Children, 1)
	got := node.Children[0]
	assert.False(t, got.Loaded)
	require.Len(t, got.Busy, 1)
	assert.Equal(t, trace.StatusUnfinished, got.Busy[0].Status)
}

func TestBuild_UnloadedFinishedChildSummarizedFromResponses(t *testing.T) {
	finishedAt := at(9)
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {created(0, 0, "parent"), childRequest(1, 1, child)},
	}, map[domain.ExecutionID]map[domain.JoinSetId][]domain.JoinSetResponse{
		root: {jsA: {{JoinSet: jsA, CreatedAt: finishedAt, Variant: domain.ChildExecutionFinished{
			ChildID: child,
			Result:  domain.ResultDetail{OK: true},
		}}}},
	})
	snap.FetchStates[child] = execstream.StateRequested

	node, missing := trace.Build(snap, root, trace.Options{})
	require.NotNil(t, node)
	assert.Empty(t, missing, "tracked child is not reported missing")

	require.Len(t, node.Children, 1)
	got := node.Children[0]
	assert.False(t, got.Loaded)
	require.Len(t, got.Busy, 1)
	assert.Equal(t, trace.StatusFinishedOK, got.Busy[0].Status)
	assert.Equal(t, finishedAt, *got.Busy[0].FinishedAt)
	assert.Equal(t, finishedAt, got.LastEventAt)
}

func TestBuild_HideFinishedDropsFinishedChildren(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {created(0, 0, "parent"), childRequest(1, 1, child)},
	}, map[domain.ExecutionID]map[domain.JoinSetId][]domain.JoinSetResponse{
		root: {jsA: {{JoinSet: jsA, CreatedAt: at(9), Variant: domain.ChildExecutionFinished{
			ChildID: child,
			Result:  domain.ResultDetail{OK: true},
		}}}},
	})

	node, _ := trace.Build(snap, root, trace.Options{HideFinished: true})
	require.NotNil(t, node)
	assert.Empty(t, node.Children)
}

func TestBuild_ResponseArrivalExtendsUnfinishedExecution(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {created(0, 0, "parent"), childRequest(1, 1, child)},
	}, map[domain.ExecutionID]map[domain.JoinSetId][]domain.JoinSetResponse{
		root: {jsA: {{JoinSet: jsA, CreatedAt: at(20), Variant: domain.DelayFinished{
			Delay: domain.DelayID{ID: "D1"},
		}}}},
	})

	node, _ := trace.Build(snap, root, trace.Options{})
	require.NotNil(t, node)
	assert.Equal(t, at(20), node.LastEventAt)
}

func TestBuild_ColorIsDeterministic(t *testing.T) {
	snap := snapshot(map[domain.ExecutionID][]domain.ExecutionEvent{
		root: {created(0, 0, "f")},
	}, nil)

	a, _ := trace.Build(snap, root, trace.Options{})
	b, _ := trace.Build(snap, root, trace.Options{})
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, a.Color, b.Color)
}
