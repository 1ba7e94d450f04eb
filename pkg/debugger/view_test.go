package debugger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obeli-sk/webui/pkg/adapters/memory"
	"github.com/obeli-sk/webui/pkg/backtrace"
	"github.com/obeli-sk/webui/pkg/debugger"
	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/execstream"
)

var (
	root      = domain.ExecutionID{ID: "E1"}
	child     = domain.ExecutionID{ID: "E1.0"}
	component = domain.ComponentID{Name: "demo:workflow", Digest: "sha256:abc"}
)

func btID(v domain.Version) *domain.Version {
	return &v
}

// scriptWorkflow loads the fixture used across the view tests: a root that
// requests one child through a join set and already received its result.
func scriptWorkflow(client *memory.Client) {
	client.AddEvents(root,
		domain.ExecutionEvent{Version: 0, Variant: domain.Created{FunctionName: "demo:workflow/run"}, BacktraceID: btID(0)},
		domain.ExecutionEvent{Version: 1, Variant: domain.Locked{}},
		childRequestBT(2, child.ID),
		joinNextBT(3),
	)
	client.AddResponses(root, domain.JoinSetResponse{
		JoinSet: jsA,
		Variant: domain.ChildExecutionFinished{ChildID: child, Result: domain.ResultDetail{OK: true, Detail: "42"}},
	})

	client.AddEvents(child,
		domain.ExecutionEvent{Version: 0, Variant: domain.Created{FunctionName: "demo:activity/fetch"}},
		domain.ExecutionEvent{Version: 1, Variant: domain.Locked{}, BacktraceID: btID(1)},
		domain.ExecutionEvent{Version: 2, Variant: domain.Finished{Result: domain.ResultDetail{OK: true}}},
	)

	file := "src/workflow.rs"
	client.AddBacktrace(root, domain.BacktraceResponse{
		ComponentID: component,
		Backtrace: domain.WasmBacktrace{
			VersionMinIncluding: 2,
			VersionMaxExcluding: 3,
			Frames: []domain.BacktraceFrame{{
				Module:   "demo_workflow",
				FuncName: "run",
				Symbols:  []domain.FrameSymbol{{File: &file, Line: uint32Ptr(14), Col: uint32Ptr(9)}},
			}},
		},
	})
	client.AddBacktrace(child, domain.BacktraceResponse{
		ComponentID: component,
		Backtrace: domain.WasmBacktrace{
			VersionMinIncluding: 1,
			VersionMaxExcluding: 2,
			Frames:              []domain.BacktraceFrame{{Module: "demo_activity", FuncName: "fetch"}},
		},
	})
	client.AddSource(component, file, "fn run() {\n    join_set.next();\n}\n")
}

func childRequestBT(version domain.Version, childID string) domain.ExecutionEvent {
	e := childRequest(version, childID)
	e.BacktraceID = btID(version)
	return e
}

func joinNextBT(version domain.Version) domain.ExecutionEvent {
	e := joinNext(version)
	e.BacktraceID = btID(version)
	return e
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}

func newDebugger(t *testing.T) *debugger.Debugger {
	t.Helper()
	client := memory.NewClient()
	scriptWorkflow(client)

	stream := execstream.New(client, execstream.WithPollInterval(5*time.Millisecond))
	return debugger.New(stream, backtrace.NewCache(client))
}

func openAndWait(t *testing.T, d *debugger.Debugger, id domain.ExecutionID, path domain.VersionPath) *debugger.View {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var view *debugger.View
	require.Eventually(t, func() bool {
		d.Open(ctx, id, path)
		view = d.View(id, path)
		if len(view.Log) == 0 {
			return false
		}
		for _, level := range view.Levels {
			if level.BacktraceState == debugger.BacktraceLoading {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
	return view
}

func TestView_RootLevel(t *testing.T) {
	d := newDebugger(t)
	view := openAndWait(t, d, root, mustPath(t, "2"))

	require.Len(t, view.Levels, 1)
	level := view.Levels[0]
	assert.True(t, level.IsLeaf)
	assert.Equal(t, debugger.BacktraceLoaded, level.BacktraceState)
	assert.Equal(t, domain.Version(2), level.Version)

	// Created, JoinSetRequest and JoinNext survive the log filter; the
	// plain Locked event does not.
	require.Len(t, view.Log, 3)
	assert.Equal(t, "Created", view.Log[0].Kind)
	assert.Equal(t, "JoinSetRequest", view.Log[1].Kind)
	assert.True(t, view.Log[1].Selected, "covered by the displayed backtrace")
	assert.False(t, view.Log[2].Selected)
	assert.Equal(t, "received child E1.0", view.Log[2].Detail)

	assert.Equal(t, []domain.Version{0, 2, 3}, view.BacktraceVersions)
}

func TestView_StepIntoChild(t *testing.T) {
	d := newDebugger(t)
	view := openAndWait(t, d, root, mustPath(t, "2"))

	level := view.Levels[0]
	require.NotNil(t, level.StepInto)
	assert.Equal(t, child, level.StepInto.ExecutionID)
	assert.Equal(t, "2_0", level.StepInto.Path.String())
}

func TestView_ChildLevelSnapsVersionAndStepsOut(t *testing.T) {
	d := newDebugger(t)
	view := openAndWait(t, d, child, mustPath(t, "2_0"))

	require.Len(t, view.Levels, 2)

	leaf := view.Levels[0]
	assert.Equal(t, child, leaf.ExecutionID)
	assert.Equal(t, debugger.BacktraceLoaded, leaf.BacktraceState)
	assert.Equal(t, domain.Version(1), leaf.Version, "version 0 snaps up to the backtrace lower bound")

	// Request at v2 and consuming JoinNext at v3 are adjacent, so step out
	// collapses to a single target.
	require.NotNil(t, leaf.StepOut.Single)
	assert.Equal(t, root, leaf.StepOut.Single.ExecutionID)
	assert.Equal(t, "2", leaf.StepOut.Single.Path.String())

	parent := view.Levels[1]
	assert.Equal(t, root, parent.ExecutionID)
	assert.False(t, parent.IsLeaf)
	assert.Nil(t, parent.StepInto, "only the leaf offers step into")
}

func TestView_FrameCarriesSourceExcerpt(t *testing.T) {
	d := newDebugger(t)
	view := openAndWait(t, d, root, mustPath(t, "2"))

	require.Len(t, view.Levels[0].Frames, 1)
	frame := view.Levels[0].Frames[0]
	assert.Equal(t, "demo_workflow", frame.Module)
	require.Len(t, frame.Symbols, 1)

	symbol := frame.Symbols[0]
	assert.Equal(t, "src/workflow.rs:14:9", symbol.Location)
	require.NotNil(t, symbol.Source)
	assert.Equal(t, 14, symbol.Source.FocusLine)
	assert.Len(t, symbol.Source.Lines, 3)
}

func TestView_StepPrevAndNextAcrossBacktraces(t *testing.T) {
	d := newDebugger(t)
	view := openAndWait(t, d, root, mustPath(t, "2"))

	level := view.Levels[0]
	require.NotNil(t, level.StepPrev)
	assert.Equal(t, "0", level.StepPrev.Path.String())
	require.NotNil(t, level.StepNext)
	assert.Equal(t, "3", level.StepNext.Path.String())
}

func TestView_BacktraceNotFound(t *testing.T) {
	client := memory.NewClient()
	client.AddEvents(root, domain.ExecutionEvent{Version: 0, Variant: domain.Created{FunctionName: "f"}})

	stream := execstream.New(client, execstream.WithPollInterval(5*time.Millisecond))
	d := debugger.New(stream, backtrace.NewCache(client))
	view := openAndWait(t, d, root, mustPath(t, "0"))

	require.Len(t, view.Levels, 1)
	assert.Equal(t, debugger.BacktraceNotFound, view.Levels[0].BacktraceState)
}
