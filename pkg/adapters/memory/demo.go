package memory

import (
	"time"

	"github.com/obeli-sk/webui/pkg/domain"
)

// Demo builds a client populated with a small workflow fixture: a root
// workflow that spawns two child activities through a join set, one of
// them already finished. Used by the server's demo mode and by examples.
func Demo() *Client {
	c := NewClient()

	root := domain.ExecutionID{ID: "E_01J9DEMO"}
	child1 := domain.ExecutionID{ID: "E_01J9DEMO.1"}
	child2 := domain.ExecutionID{ID: "E_01J9DEMO.2"}
	joinSet := domain.JoinSetId{Kind: domain.JoinSetKindGenerated, Name: "fetch"}
	component := domain.ComponentID{Name: "demo:workflow", Digest: "sha256:0d3m0"}

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	at := func(seconds int) time.Time { return base.Add(time.Duration(seconds) * time.Second) }
	bt := func(v domain.Version) *domain.Version { return &v }

	c.AddEvents(root,
		domain.ExecutionEvent{Version: 0, CreatedAt: at(0), Variant: domain.Created{FunctionName: "demo:workflow/run", ScheduledAt: at(0)}},
		domain.ExecutionEvent{Version: 1, CreatedAt: at(1), Variant: domain.Locked{LockExpiresAt: at(61)}},
		domain.ExecutionEvent{Version: 2, CreatedAt: at(2), BacktraceID: bt(2), Variant: domain.JoinSetCreated{JoinSet: joinSet}},
		domain.ExecutionEvent{Version: 3, CreatedAt: at(2), Variant: domain.JoinSetRequest{JoinSet: joinSet, Request: domain.ChildExecutionRequest{ChildID: child1}}},
		domain.ExecutionEvent{Version: 4, CreatedAt: at(3), Variant: domain.JoinSetRequest{JoinSet: joinSet, Request: domain.ChildExecutionRequest{ChildID: child2}}},
		domain.ExecutionEvent{Version: 5, CreatedAt: at(4), BacktraceID: bt(5), Variant: domain.JoinNext{JoinSet: joinSet}},
	)
	c.AddResponses(root, domain.JoinSetResponse{
		JoinSet:   joinSet,
		CreatedAt: at(9),
		Variant:   domain.ChildExecutionFinished{ChildID: child1, Result: domain.ResultDetail{OK: true, Detail: "42"}},
	})
	c.SetStatus(root, domain.StatusBlockedByJoinSet)

	c.AddEvents(child1,
		domain.ExecutionEvent{Version: 0, CreatedAt: at(3), Variant: domain.Created{FunctionName: "demo:activity/fetch", ScheduledAt: at(3)}},
		domain.ExecutionEvent{Version: 1, CreatedAt: at(4), Variant: domain.Locked{LockExpiresAt: at(34)}},
		domain.ExecutionEvent{Version: 2, CreatedAt: at(9), Variant: domain.Finished{Result: domain.ResultDetail{OK: true, Detail: "42"}}},
	)
	c.SetStatus(child1, domain.StatusFinished)

	c.AddEvents(child2,
		domain.ExecutionEvent{Version: 0, CreatedAt: at(4), Variant: domain.Created{FunctionName: "demo:activity/fetch", ScheduledAt: at(4)}},
		domain.ExecutionEvent{Version: 1, CreatedAt: at(5), Variant: domain.Locked{LockExpiresAt: at(35)}},
	)
	c.SetStatus(child2, domain.StatusLocked)

	file := "src/workflow.rs"
	c.AddBacktrace(root, domain.BacktraceResponse{
		ComponentID: component,
		Backtrace: domain.WasmBacktrace{
			VersionMinIncluding: 2,
			VersionMaxExcluding: 5,
			Frames: []domain.BacktraceFrame{{
				Module:   "demo_workflow",
				FuncName: "run",
				Symbols:  []domain.FrameSymbol{{File: &file, Line: uint32Ptr(14), Col: uint32Ptr(9)}},
			}},
		},
	})
	c.AddSource(component, file, "fn run() {\n    let result = join_set.next();\n}\n")

	c.AddLogs(root,
		domain.LogEntry{CreatedAt: at(2), Level: domain.LogLevelInfo, Message: "spawning children", RunID: "run-1"},
		domain.LogEntry{CreatedAt: at(5), Level: domain.LogLevelDebug, Message: "awaiting join set", RunID: "run-1"},
	)
	return c
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}
