// Package codegen is the core translation engine (spec §2): Expression
// Lowerer, Control-Flow Reconstructor, Function Table Manager glue, Call
// Dispatcher, and Module Emitter, built around the same per-emitter /
// per-function split the teacher's internal/backend/llvm uses (an Emitter
// for module-wide state, a funcEmitter for per-function scratch).
package codegen

// Module-level prologue identifiers every emitted module references.
// Supplements spec §4.4 (Alloca, Bitcast-via-scratch) which names these
// without specifying their declaration site.
const (
	identStackTop     = "STACKTOP"
	identStackMax     = "STACK_MAX"
	identTempDoublePtr = "tempDoublePtr"
	identTempInt      = "tempInt"
	identTempRet0     = "tempRet0"
)
