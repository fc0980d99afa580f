package mangle

import "testing"

func TestLocal_InjectivityExamples(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"x.a", "$x$a2e"},
		{"x..a", "$x$$a2e2e"},
	}
	for _, c := range cases {
		got := Local(c.name)
		if got != c.want {
			t.Errorf("Local(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestLocal_DistinctPreimagesStayDistinct(t *testing.T) {
	seen := map[string]string{}
	for _, name := range []string{"x.a", "x..a", "x.b", "x$a", "x_a"} {
		m := Local(name)
		if prev, ok := seen[m]; ok && prev != name {
			t.Fatalf("Local(%q) and Local(%q) collide on %q", name, prev, m)
		}
		seen[m] = name
	}
}

func TestGlobal_Prefix(t *testing.T) {
	if got := Global("foo"); got != "_foo" {
		t.Errorf("Global(%q) = %q, want %q", "foo", got, "_foo")
	}
	if got := Global("foo.bar"); got != "_foo_bar" {
		t.Errorf("Global(%q) = %q, want %q", "foo.bar", got, "_foo_bar")
	}
}

func TestUnnamed_MonotonicIDs(t *testing.T) {
	if got := Unnamed(0); got != "$0" {
		t.Errorf("Unnamed(0) = %q, want %q", got, "$0")
	}
	if got := Unnamed(42); got != "$42" {
		t.Errorf("Unnamed(42) = %q, want %q", got, "$42")
	}
}

func TestMangler_StableAcrossCalls(t *testing.T) {
	m := New(false)
	first := m.LocalName("x.a")
	second := m.LocalName("x.a")
	if first != second {
		t.Errorf("LocalName not stable: %q != %q", first, second)
	}
}

func TestMangler_DebugModeCollisionDetection(t *testing.T) {
	m := New(true)
	out := m.LocalName("a")
	if m.Collides(out) {
		t.Fatalf("single use should not collide")
	}
	m.checkCollision(out)
	if !m.Collides(out) {
		t.Fatalf("two uses of the same mangled name should collide in debug mode")
	}
}

func TestMangler_ReleaseModeSkipsCollisionTracking(t *testing.T) {
	m := New(false)
	out := m.LocalName("a")
	m.checkCollision(out)
	if m.Collides(out) {
		t.Fatalf("collision tracking must be a no-op outside debug mode")
	}
}

func TestMangler_Alias(t *testing.T) {
	m := New(false)
	rep := m.LocalName("alloca.rep")
	m.Alias("alloca.coalesced", "alloca.rep")
	if got := m.LocalName("alloca.coalesced"); got != rep {
		t.Errorf("aliased name = %q, want representative's name %q", got, rep)
	}
}

func TestMangler_NextUnnamedIDAdvancesPastAssignedIDs(t *testing.T) {
	m := New(false)
	m.UnnamedLocalName(5)
	if got := m.NextUnnamedID(); got != 6 {
		t.Errorf("NextUnnamedID() = %d, want 6", got)
	}
}

func TestGlobal_NormalizesUnicodeBeforeMangling(t *testing.T) {
	// "e" + combining acute (U+0301) vs precomposed e-acute (U+00E9) must
	// mangle identically once both are NFC-normalized.
	decomposed := "cafe\u0301"
	precomposed := "caf\u00e9"
	if Global(decomposed) != Global(precomposed) {
		t.Errorf("Global should NFC-normalize before mangling: %q vs %q",
			Global(decomposed), Global(precomposed))
	}
}
