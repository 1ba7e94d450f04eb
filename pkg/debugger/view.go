package debugger

import (
	"context"
	"fmt"

	"github.com/obeli-sk/webui/pkg/backtrace"
	"github.com/obeli-sk/webui/pkg/correlate"
	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/execstream"
)

// Debugger assembles the step-through view from the event stream and the
// backtrace cache.
type Debugger struct {
	stream     *execstream.Stream
	backtraces *backtrace.Cache
}

// New wires a debugger over a running stream and a backtrace cache.
func New(stream *execstream.Stream, backtraces *backtrace.Cache) *Debugger {
	return &Debugger{stream: stream, backtraces: backtraces}
}

// Open registers the execution and its parent for tailing and requests the
// backtrace of every ancestry level at its active version. Safe to call on
// every render: all downstream operations are idempotent.
func (d *Debugger) Open(ctx context.Context, id domain.ExecutionID, path domain.VersionPath) {
	d.stream.Add(ctx, id)
	if parent, ok := id.Parent(); ok {
		d.stream.Add(ctx, parent)
	}
	for _, level := range Ancestry(id, path) {
		d.backtraces.Request(ctx, backtrace.Key{
			ExecutionID: level.ExecutionID,
			Version:     level.Path.Last(),
		})
	}
}

// BacktraceState tells the consumer how to render a level's backtrace pane.
type BacktraceState string

const (
	// BacktraceLoading means no cache entry has resolved yet.
	BacktraceLoading BacktraceState = "loading"
	// BacktraceNotFound means the backend has no backtrace recorded there.
	BacktraceNotFound BacktraceState = "not_found"
	// BacktraceFailed means loading failed; the failure was already
	// reported through the notifier.
	BacktraceFailed BacktraceState = "failed"
	// BacktraceLoaded means frames are available.
	BacktraceLoaded BacktraceState = "loaded"
)

// SourceExcerpt is a highlighted source file attached to a symbol, focused
// on the symbol's line.
type SourceExcerpt struct {
	File      string          `json:"file"`
	FocusLine int             `json:"focusLine"`
	Lines     []backtrace.Line `json:"lines"`
}

// SymbolView is one resolved symbol of a frame.
type SymbolView struct {
	Location string         `json:"location"`
	FuncName string         `json:"funcName,omitempty"`
	Source   *SourceExcerpt `json:"source,omitempty"`
}

// FrameView is one stack frame of a level's backtrace.
type FrameView struct {
	Index    int          `json:"index"`
	Module   string       `json:"module"`
	FuncName string       `json:"funcName"`
	Symbols  []SymbolView `json:"symbols"`
}

// LevelView is one ancestry level of the debugger view.
type LevelView struct {
	ExecutionID    domain.ExecutionID `json:"executionId"`
	Segment        string             `json:"segment"`
	Version        domain.Version     `json:"version"`
	IsLeaf         bool               `json:"isLeaf"`
	StepOut        StepOutTargets     `json:"stepOut"`
	StepPrev       *StepTarget        `json:"stepPrev,omitempty"`
	StepNext       *StepTarget        `json:"stepNext,omitempty"`
	StepInto       *StepTarget        `json:"stepInto,omitempty"`
	BacktraceState BacktraceState     `json:"backtraceState"`
	Frames         []FrameView        `json:"frames,omitempty"`
}

// LogRow is one entry of the leaf execution's filtered event log.
type LogRow struct {
	Version  domain.Version `json:"version"`
	Kind     string         `json:"kind"`
	Detail   string         `json:"detail,omitempty"`
	Selected bool           `json:"selected"`
}

// View is the complete debugger view of one execution at one version path.
type View struct {
	ExecutionID       domain.ExecutionID `json:"executionId"`
	Path              string             `json:"path"`
	Levels            []LevelView        `json:"levels"`
	Log               []LogRow           `json:"log"`
	BacktraceVersions []domain.Version   `json:"backtraceVersions"`
}

// View builds the current debugger view from snapshots. It performs no
// fetches; combine with Open to drive loading.
func (d *Debugger) View(id domain.ExecutionID, path domain.VersionPath) *View {
	snap := d.stream.Snapshot()
	ancestry := Ancestry(id, path)

	leafEvents := snap.Events[id]
	leafResponses := snap.Responses[id]
	leafJoinNext := correlate.JoinNextToResponse(leafEvents, leafResponses)

	view := &View{
		ExecutionID:       id,
		Path:              path.String(),
		BacktraceVersions: BacktraceVersions(leafEvents),
	}

	// Covering backtrace of the leaf level decides log row selection.
	var leafBacktrace *domain.WasmBacktrace
	if result, ok := d.backtraces.Lookup(backtrace.Key{ExecutionID: id, Version: path.Last()}); ok && result.Err == nil {
		leafBacktrace = &result.Response.Backtrace
	}
	for _, event := range leafEvents {
		if !logRowIncluded(event) {
			continue
		}
		selected := leafBacktrace != nil && leafBacktrace.Contains(event.Version)
		view.Log = append(view.Log, LogRow{
			Version:  event.Version,
			Kind:     eventKind(event),
			Detail:   eventDetail(event, leafJoinNext),
			Selected: selected,
		})
	}

	seenPositions := make(map[sourcePosition]struct{})
	for idx, level := range ancestry {
		isLeaf := idx == 0
		levelEvents := snap.Events[level.ExecutionID]

		parentEvents, parentResponses := []domain.ExecutionEvent(nil), map[domain.JoinSetId][]domain.JoinSetResponse(nil)
		if parentID, ok := level.ExecutionID.Parent(); ok {
			parentEvents = snap.Events[parentID]
			parentResponses = snap.Responses[parentID]
		}

		lv := LevelView{
			ExecutionID: level.ExecutionID,
			Segment:     level.ExecutionID.LastSegment(),
			Version:     level.Path.Last(),
			IsLeaf:      isLeaf,
			StepOut:     StepOut(level, isLeaf, parentEvents, parentResponses),
		}

		result, ok := d.backtraces.Lookup(backtrace.Key{ExecutionID: level.ExecutionID, Version: level.Path.Last()})
		switch {
		case !ok:
			lv.BacktraceState = BacktraceLoading
		case result.NotFound():
			lv.BacktraceState = BacktraceNotFound
		case result.Err != nil:
			lv.BacktraceState = BacktraceFailed
		default:
			lv.BacktraceState = BacktraceLoaded
			bt := result.Response.Backtrace
			if lv.Version < bt.VersionMinIncluding {
				// Step Into lands on version 0; snap to the covered range.
				lv.Version = bt.VersionMinIncluding
			}
			versions := BacktraceVersions(levelEvents)
			lv.StepPrev = StepPrev(level, versions, bt)
			lv.StepNext = StepNext(level, versions, bt)
			if isLeaf {
				joinNext := correlate.JoinNextToResponse(levelEvents, snap.Responses[level.ExecutionID])
				lv.StepInto = StepInto(level, levelEvents, joinNext, bt)
			}
			lv.Frames = d.renderFrames(result.Response, seenPositions)
		}
		view.Levels = append(view.Levels, lv)
	}
	return view
}

type sourcePosition struct {
	file string
	line uint32
}

// renderFrames expands backtrace frames into symbol views, attaching each
// (file, line) source excerpt only the first time it appears in the view.
func (d *Debugger) renderFrames(resp *domain.BacktraceResponse, seen map[sourcePosition]struct{}) []FrameView {
	frames := make([]FrameView, 0, len(resp.Backtrace.Frames))
	for i, frame := range resp.Backtrace.Frames {
		fv := FrameView{Index: i, Module: frame.Module, FuncName: frame.FuncName}
		for _, symbol := range frame.Symbols {
			sv := SymbolView{Location: symbolLocation(symbol)}
			if symbol.FuncName != nil && *symbol.FuncName != frame.FuncName {
				sv.FuncName = *symbol.FuncName
			}
			if symbol.File != nil && symbol.Line != nil {
				pos := sourcePosition{file: *symbol.File, line: *symbol.Line}
				if _, dup := seen[pos]; !dup {
					seen[pos] = struct{}{}
					key := backtrace.SourceKey{Component: resp.ComponentID, File: *symbol.File}
					if src, ok := d.backtraces.Sources().Lookup(key); ok && src.State == backtrace.SourceFound {
						sv.Source = &SourceExcerpt{
							File:      *symbol.File,
							FocusLine: int(*symbol.Line),
							Lines:     src.Lines,
						}
					}
				}
			}
			fv.Symbols = append(fv.Symbols, sv)
		}
		frames = append(frames, fv)
	}
	return frames
}

func symbolLocation(symbol domain.FrameSymbol) string {
	switch {
	case symbol.File != nil && symbol.Line != nil && symbol.Col != nil:
		return fmt.Sprintf("%s:%d:%d", *symbol.File, *symbol.Line, *symbol.Col)
	case symbol.File != nil && symbol.Line != nil:
		return fmt.Sprintf("%s:%d", *symbol.File, *symbol.Line)
	case symbol.File != nil:
		return *symbol.File
	default:
		return "unknown location"
	}
}

// logRowIncluded keeps Created, Finished and any event that recorded a
// backtrace; the rest is noise in the debugger's log pane.
func logRowIncluded(event domain.ExecutionEvent) bool {
	switch event.Variant.(type) {
	case domain.Created, domain.Finished:
		return true
	}
	return event.BacktraceID != nil
}

func eventKind(event domain.ExecutionEvent) string {
	switch event.Variant.(type) {
	case domain.Created:
		return "Created"
	case domain.Locked:
		return "Locked"
	case domain.Unlocked:
		return "Unlocked"
	case domain.TemporarilyFailed:
		return "TemporarilyFailed"
	case domain.TemporarilyTimedOut:
		return "TemporarilyTimedOut"
	case domain.Finished:
		return "Finished"
	case domain.JoinSetCreated:
		return "JoinSetCreated"
	case domain.JoinSetRequest:
		return "JoinSetRequest"
	case domain.JoinNext:
		return "JoinNext"
	case domain.JoinNextTry:
		return "JoinNextTry"
	case domain.JoinNextTooMany:
		return "JoinNextTooMany"
	default:
		return "Unknown"
	}
}

func eventDetail(event domain.ExecutionEvent, joinNext map[domain.Version]domain.JoinSetResponse) string {
	switch variant := event.Variant.(type) {
	case domain.Created:
		return variant.FunctionName
	case domain.Finished:
		return variant.Result.Detail
	case domain.JoinSetRequest:
		if childID, ok := event.ChildRequest(); ok {
			return "child " + childID.String()
		}
		return variant.JoinSet.String()
	case domain.JoinNext:
		resp, ok := joinNext[event.Version]
		if !ok {
			return "awaiting " + variant.JoinSet.String()
		}
		switch r := resp.Variant.(type) {
		case domain.ChildExecutionFinished:
			return "received child " + r.ChildID.String()
		case domain.DelayFinished:
			return "received " + r.Delay.String()
		}
	}
	return ""
}
