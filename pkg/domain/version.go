package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Version is a monotonic position index within one execution's event log.
// Versions are assigned by the backend and strictly increase per execution.
type Version = uint32

// versionPathSeparator joins path elements in the string form, which is what
// the URL/query layer persists.
const versionPathSeparator = "_"

// VersionPath is an ordered sequence of versions, one per ancestry level
// from the root execution down to the current one. It encodes the debugger's
// navigation position across the whole ancestry chain.
//
// A valid path is never empty. The zero value is not valid; use
// DefaultVersionPath or ParseVersionPath.
type VersionPath struct {
	versions []Version
}

// DefaultVersionPath is the path for a freshly opened root execution.
func DefaultVersionPath() VersionPath {
	return VersionPath{versions: []Version{0}}
}

// VersionPathFrom builds a single-level path at the given version.
func VersionPathFrom(v Version) VersionPath {
	return VersionPath{versions: []Version{v}}
}

// ParseVersionPath parses the underscore-separated string form.
func ParseVersionPath(s string) (VersionPath, error) {
	var versions []Version
	for _, part := range strings.Split(s, versionPathSeparator) {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return VersionPath{}, fmt.Errorf("invalid version path %q: %w", s, err)
		}
		versions = append(versions, Version(n))
	}
	return VersionPath{versions: versions}, nil
}

func (p VersionPath) String() string {
	parts := make([]string, len(p.versions))
	for i, v := range p.versions {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, versionPathSeparator)
}

// MarshalJSON encodes the path in its underscore-separated string form.
func (p VersionPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *VersionPath) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseVersionPath(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IsZero reports whether the path is the invalid zero value.
func (p VersionPath) IsZero() bool {
	return len(p.versions) == 0
}

// Len returns the number of ancestry levels the path spans.
func (p VersionPath) Len() int {
	return len(p.versions)
}

// Last returns the version at the deepest level.
func (p VersionPath) Last() Version {
	return p.versions[len(p.versions)-1]
}

// ChangeLast returns a copy with the deepest level set to v.
func (p VersionPath) ChangeLast(v Version) VersionPath {
	versions := append([]Version(nil), p.versions...)
	versions[len(versions)-1] = v
	return VersionPath{versions: versions}
}

// StepInto returns a copy with a new deepest level at version 0, entering a
// child execution.
func (p VersionPath) StepInto() VersionPath {
	versions := append([]Version(nil), p.versions...)
	return VersionPath{versions: append(versions, 0)}
}

// StepOut returns a copy with the deepest level removed. Stepping out of a
// single-level path yields no path.
func (p VersionPath) StepOut() (VersionPath, bool) {
	if len(p.versions) <= 1 {
		return VersionPath{}, false
	}
	return VersionPath{versions: append([]Version(nil), p.versions[:len(p.versions)-1]...)}, true
}
