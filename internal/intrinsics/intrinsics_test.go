package intrinsics

import "testing"

func TestDefault_MemcpyRedirectsToUnderscorePrefixed(t *testing.T) {
	tbl := Default()
	h := tbl.Lookup("memcpy")
	if h.Tag != TagRedirect {
		t.Fatalf("memcpy Tag = %v, want TagRedirect", h.Tag)
	}
	if h.Redirect != "_memcpy" {
		t.Errorf("memcpy Redirect = %q, want %q", h.Redirect, "_memcpy")
	}
}

func TestDefault_AbortIsIntrinsic(t *testing.T) {
	tbl := Default()
	h := tbl.Lookup("abort")
	if h.Tag != TagIntrinsic {
		t.Fatalf("abort Tag = %v, want TagIntrinsic", h.Tag)
	}
	if h.Emit == nil {
		t.Fatalf("abort handler has no Emit function")
	}
	if got := h.Emit(CallSite{}); got != "abort()" {
		t.Errorf("abort Emit() = %q, want %q", got, "abort()")
	}
}

func TestDefault_LLVMTrapMapsToAbort(t *testing.T) {
	tbl := Default()
	h := tbl.Lookup("llvm.trap")
	if h.Tag != TagIntrinsic {
		t.Fatalf("llvm.trap Tag = %v, want TagIntrinsic", h.Tag)
	}
	if got := h.Emit(CallSite{}); got != "abort()" {
		t.Errorf("llvm.trap Emit() = %q, want %q", got, "abort()")
	}
}

func TestLookup_UnknownNameIsTagDefault(t *testing.T) {
	tbl := Default()
	h := tbl.Lookup("not_a_known_symbol")
	if h.Tag != TagDefault {
		t.Errorf("unknown symbol Tag = %v, want TagDefault", h.Tag)
	}
}

func TestTable_TagInlineCarriesBody(t *testing.T) {
	tbl := Table{
		"my_inline": {Tag: TagInline, Body: "console.log(1)"},
	}
	h := tbl.Lookup("my_inline")
	if h.Tag != TagInline {
		t.Fatalf("Tag = %v, want TagInline", h.Tag)
	}
	if h.Body != "console.log(1)" {
		t.Errorf("Body = %q, want %q", h.Body, "console.log(1)")
	}
}
