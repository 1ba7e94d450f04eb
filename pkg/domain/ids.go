package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExecutionIDInfix separates the segments of a derived execution id.
// A child execution generated inside a join set gets its parent's id plus
// one extra segment, so the hierarchy is recoverable from the id alone.
const ExecutionIDInfix = "."

// ExecutionID identifies one run of a workflow, activity or webhook
// component. The id is opaque except for the dotted hierarchy.
type ExecutionID struct {
	ID string
}

func (e ExecutionID) String() string {
	return e.ID
}

// IsZero reports whether the id is unset.
func (e ExecutionID) IsZero() bool {
	return e.ID == ""
}

// MarshalJSON encodes the id as a plain string.
func (e ExecutionID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ID)
}

func (e *ExecutionID) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &e.ID)
}

// Parent returns the id with the last segment stripped.
// A top-level id has no parent.
func (e ExecutionID) Parent() (ExecutionID, bool) {
	idx := strings.LastIndex(e.ID, ExecutionIDInfix)
	if idx < 0 {
		return ExecutionID{}, false
	}
	return ExecutionID{ID: e.ID[:idx]}, true
}

// HierarchyPart is one level of an execution id hierarchy: the bare segment
// plus the cumulative id up to and including that segment.
type HierarchyPart struct {
	Segment string
	ID      ExecutionID
}

// AsHierarchy splits the id into cumulative prefixes.
// For a top-level id the result is a single part equal to the id itself;
// for a derived id each part appends one more segment.
func (e ExecutionID) AsHierarchy() []HierarchyPart {
	var (
		parts   []HierarchyPart
		current string
	)
	for _, segment := range strings.Split(e.ID, ExecutionIDInfix) {
		if current == "" {
			current = segment
		} else {
			current = current + ExecutionIDInfix + segment
		}
		parts = append(parts, HierarchyPart{Segment: segment, ID: ExecutionID{ID: current}})
	}
	return parts
}

// LastSegment returns the final segment of the id.
func (e ExecutionID) LastSegment() string {
	parts := e.AsHierarchy()
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1].Segment
}

// Color returns the deterministic display color for this id.
func (e ExecutionID) Color() string {
	return GenerateColor(e.ID)
}

// JoinSetKind distinguishes how a join set was declared.
type JoinSetKind int

const (
	JoinSetKindOneOff JoinSetKind = iota
	JoinSetKindNamed
	JoinSetKindGenerated
)

func (k JoinSetKind) code() string {
	switch k {
	case JoinSetKindOneOff:
		return "o"
	case JoinSetKindNamed:
		return "n"
	case JoinSetKindGenerated:
		return "g"
	default:
		return "?"
	}
}

const joinSetIDInfix = ":"

// JoinSetId identifies a join set scoped to one execution. It is the
// secondary key for response correlation.
type JoinSetId struct {
	Kind JoinSetKind
	Name string
}

func (j JoinSetId) String() string {
	return j.Kind.code() + joinSetIDInfix + j.Name
}

// Color returns the deterministic display color for this join set.
func (j JoinSetId) Color() string {
	return GenerateColor(j.String())
}

// ComponentID identifies a deployed component, used to scope source files.
type ComponentID struct {
	Name   string
	Digest string
}

func (c ComponentID) String() string {
	return fmt.Sprintf("%s:%s", c.Name, c.Digest)
}

// DelayID identifies a delay request within a join set.
type DelayID struct {
	ID string
}

func (d DelayID) String() string {
	return "Delay_" + d.ID
}
