package domain

// BacktraceResponse is a recorded call stack snapshot together with the
// component whose sources it references.
type BacktraceResponse struct {
	ComponentID ComponentID
	Backtrace   WasmBacktrace
}

// WasmBacktrace is a snapshot of the WASM call stack captured while the
// execution log advanced from VersionMinIncluding to VersionMaxExcluding.
type WasmBacktrace struct {
	VersionMinIncluding Version
	VersionMaxExcluding Version
	Frames              []BacktraceFrame
}

// BacktraceFrame is one stack frame of a backtrace.
type BacktraceFrame struct {
	Module   string
	FuncName string
	Symbols  []FrameSymbol
}

// FrameSymbol is a resolved symbol within a frame. Source location fields
// are optional; a symbol without a file cannot be mapped to source code.
type FrameSymbol struct {
	File     *string
	Line     *uint32
	Col      *uint32
	FuncName *string
}

// Contains reports whether the backtrace covers the given log version.
func (b WasmBacktrace) Contains(v Version) bool {
	return b.VersionMinIncluding <= v && v < b.VersionMaxExcluding
}
