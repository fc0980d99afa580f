// Package intrinsics implements the Call Dispatcher's pluggable handler
// table (spec §4.6, §9 "Dynamic dispatch via call handlers"). The actual
// intrinsic/runtime-call policy (which callee names are special, and what
// they lower to) is an injected lookup per spec §1/§6 — this package
// defines the handler shape and a small default table of the
// near-universal runtime builtins (memcpy/memset/abort), not a
// comprehensive policy.
package intrinsics

// Tag is the closed sum type over handler behaviors named in §9.
type Tag uint8

const (
	TagDefault Tag = iota
	TagIntrinsic
	TagInline
	TagRedirect
)

// CallSite is the information a handler needs to emit a call expression.
type CallSite struct {
	Args       []string // already-lowered, already-coerced argument text
	ResultType string   // "i32" | "double" | "float" | "void" style hint
}

// Emit renders the full JS call expression (including trailing
// coercion, if any) for a call site.
type Emit func(site CallSite) string

// Handler is one entry in the dispatch table.
type Handler struct {
	Tag      Tag
	Redirect string // TagRedirect: the actual callee name to invoke instead
	Emit     Emit   // TagIntrinsic: custom emission
	Body     string // TagInline: the inline-JS block body text (§4.6, §9)
}

// Table maps a canonical callee name to its Handler.
type Table map[string]Handler

// Default builds the small built-in runtime table every emitted module can
// rely on existing in the consumer's runtime support code.
func Default() Table {
	return Table{
		"memcpy": {Tag: TagRedirect, Redirect: "_memcpy"},
		"memset": {Tag: TagRedirect, Redirect: "_memset"},
		"memmove": {Tag: TagRedirect, Redirect: "_memmove"},
		"abort": {
			Tag: TagIntrinsic,
			Emit: func(CallSite) string { return "abort()" },
		},
		"llvm.trap": {
			Tag: TagIntrinsic,
			Emit: func(CallSite) string { return "abort()" },
		},
	}
}

// Lookup resolves name against t, returning the zero Handler (TagDefault)
// if not found.
func (t Table) Lookup(name string) Handler {
	if h, ok := t[name]; ok {
		return h
	}
	return Handler{Tag: TagDefault}
}
