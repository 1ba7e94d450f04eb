// Package debugger reconstructs the step-through debugging view: the
// ancestry chain of an execution, the step navigation targets at every
// level, and the per-level backtrace frames with source excerpts.
package debugger

import (
	"github.com/obeli-sk/webui/pkg/correlate"
	"github.com/obeli-sk/webui/pkg/domain"
)

// Level is one entry of the ancestry chain: an execution together with the
// version path active at its depth.
type Level struct {
	ExecutionID domain.ExecutionID
	Path        domain.VersionPath
}

// Ancestry builds the chain from the leaf execution up to its root. The
// leaf comes first; the walk stops as soon as either the id has no parent
// or the path cannot step out further.
func Ancestry(leaf domain.ExecutionID, path domain.VersionPath) []Level {
	levels := []Level{{ExecutionID: leaf, Path: path}}
	currID := leaf
	currPath := path
	for {
		parent, ok := currID.Parent()
		if !ok {
			break
		}
		outPath, ok := currPath.StepOut()
		if !ok {
			break
		}
		levels = append(levels, Level{ExecutionID: parent, Path: outPath})
		currID = parent
		currPath = outPath
	}
	return levels
}

// StepTarget is a navigation destination: an execution and the version path
// to open it at.
type StepTarget struct {
	ExecutionID domain.ExecutionID
	Path        domain.VersionPath
}

// StepOutTargets describes the step-out options of one level. When the
// child occupies exactly two consecutive parent versions the start and end
// collapse into Single; otherwise Start and End are offered separately.
// All fields nil means stepping out is not possible at this level.
type StepOutTargets struct {
	Single *StepTarget
	Start  *StepTarget
	End    *StepTarget
}

// StepOut computes the step-out targets of a level. The leaf level uses the
// parent's execution bounds to aim precisely at the versions where the
// child was requested and consumed; outer levels just pop the path.
func StepOut(level Level, isLeaf bool, parentEvents []domain.ExecutionEvent, parentResponses map[domain.JoinSetId][]domain.JoinSetResponse) StepOutTargets {
	parentID, ok := level.ExecutionID.Parent()
	if !ok {
		return StepOutTargets{}
	}
	parentPath, ok := level.Path.StepOut()
	if !ok {
		if !isLeaf {
			return StepOutTargets{}
		}
		parentPath = domain.DefaultVersionPath()
	}
	if !isLeaf {
		return StepOutTargets{Single: &StepTarget{ExecutionID: parentID, Path: parentPath}}
	}

	start, end := correlate.ParentExecutionBounds(parentEvents, parentResponses, level.ExecutionID)
	switch {
	case start != nil && end != nil && *start+1 == *end:
		return StepOutTargets{Single: &StepTarget{ExecutionID: parentID, Path: parentPath.ChangeLast(*start)}}
	case start != nil:
		targets := StepOutTargets{Start: &StepTarget{ExecutionID: parentID, Path: parentPath.ChangeLast(*start)}}
		if end != nil {
			targets.End = &StepTarget{ExecutionID: parentID, Path: parentPath.ChangeLast(*end)}
		}
		return targets
	default:
		return StepOutTargets{Single: &StepTarget{ExecutionID: parentID, Path: parentPath}}
	}
}

// BacktraceVersions collects the versions of all events carrying a
// backtrace id, in log order (which is version order).
func BacktraceVersions(events []domain.ExecutionEvent) []domain.Version {
	var versions []domain.Version
	for _, event := range events {
		if event.BacktraceID != nil {
			versions = append(versions, event.Version)
		}
	}
	return versions
}

// StepPrev finds the nearest backtrace-bearing version strictly below the
// displayed backtrace's lower bound.
func StepPrev(level Level, versions []domain.Version, bt domain.WasmBacktrace) *StepTarget {
	var prev *domain.Version
	for i := range versions {
		if versions[i] < bt.VersionMinIncluding {
			prev = &versions[i]
		}
	}
	if prev == nil {
		return nil
	}
	return &StepTarget{ExecutionID: level.ExecutionID, Path: level.Path.ChangeLast(*prev)}
}

// StepNext finds the nearest backtrace-bearing version at or above the
// displayed backtrace's upper bound.
func StepNext(level Level, versions []domain.Version, bt domain.WasmBacktrace) *StepTarget {
	for _, v := range versions {
		if v >= bt.VersionMaxExcluding {
			return &StepTarget{ExecutionID: level.ExecutionID, Path: level.Path.ChangeLast(v)}
		}
	}
	return nil
}

// StepInto computes the step-into target of the leaf level. The inspected
// "child request" version is normally the backtrace's lower bound; a
// backtrace spanning exactly 3 versions is the one-off join set encoding,
// where the request sits one version higher. A ChildExecutionRequest at
// that version targets its child directly; a JoinNext targets the child of
// its correlated ChildExecutionFinished response.
func StepInto(level Level, events []domain.ExecutionEvent, joinNextToResponse map[domain.Version]domain.JoinSetResponse, bt domain.WasmBacktrace) *StepTarget {
	childRequestVersion := bt.VersionMinIncluding
	if bt.VersionMaxExcluding-bt.VersionMinIncluding == 3 {
		childRequestVersion = bt.VersionMinIncluding + 1
	}

	event, ok := eventAtVersion(events, childRequestVersion)
	if !ok {
		return nil
	}
	switch event.Variant.(type) {
	case domain.JoinSetRequest:
		if childID, ok := event.ChildRequest(); ok {
			return &StepTarget{ExecutionID: childID, Path: level.Path.StepInto()}
		}
	case domain.JoinNext:
		resp, ok := joinNextToResponse[event.Version]
		if !ok {
			return nil
		}
		if finished, ok := resp.Variant.(domain.ChildExecutionFinished); ok {
			return &StepTarget{ExecutionID: finished.ChildID, Path: level.Path.StepInto()}
		}
	}
	return nil
}

// eventAtVersion looks the event up by its Version field rather than by
// slice index, so a partially loaded log cannot alias positions.
func eventAtVersion(events []domain.ExecutionEvent, v domain.Version) (domain.ExecutionEvent, bool) {
	for _, event := range events {
		if event.Version == v {
			return event, true
		}
		if event.Version > v {
			break
		}
	}
	return domain.ExecutionEvent{}, false
}
