package functable

import "testing"

func TestFunctionIndexFor_ReservedPrefix(t *testing.T) {
	m := New(Config{ReservedFunctionPointers: 3})
	idx, err := m.FunctionIndexFor("f", "ii")
	if err != nil {
		t.Fatalf("FunctionIndexFor: %v", err)
	}
	wantPrefix := 2 * (3 + 1)
	if idx != wantPrefix {
		t.Errorf("first slot = %d, want reserved prefix %d", idx, wantPrefix)
	}
}

func TestFunctionIndexFor_StableAcrossCalls(t *testing.T) {
	m := New(Config{})
	first, err := m.FunctionIndexFor("f", "ii")
	if err != nil {
		t.Fatalf("FunctionIndexFor: %v", err)
	}
	second, err := m.FunctionIndexFor("f", "ii")
	if err != nil {
		t.Fatalf("FunctionIndexFor: %v", err)
	}
	if first != second {
		t.Errorf("index not stable across calls: %d != %d", first, second)
	}
}

func TestFunctionIndexFor_NoAliasingAcrossTables(t *testing.T) {
	m := New(Config{NoAliasingFunctionPointers: true})
	a, err := m.FunctionIndexFor("a", "ii")
	if err != nil {
		t.Fatalf("FunctionIndexFor: %v", err)
	}
	b, err := m.FunctionIndexFor("b", "v")
	if err != nil {
		t.Fatalf("FunctionIndexFor: %v", err)
	}
	if a == b {
		t.Errorf("functions in different tables must not share a slot under NoAliasingFunctionPointers: both got %d", a)
	}
}

func TestFinalizeTables_PadsToPowerOfTwo(t *testing.T) {
	m := New(Config{})
	for _, name := range []string{"f1", "f2", "f3"} {
		if _, err := m.FunctionIndexFor(name, "v"); err != nil {
			t.Fatalf("FunctionIndexFor: %v", err)
		}
	}
	m.FinalizeTables()
	table := m.Table("v")
	n := len(table)
	if n&(n-1) != 0 {
		t.Errorf("table length %d is not a power of two", n)
	}
}

func TestFinalizeTables_PaddingSlotsAreZero(t *testing.T) {
	m := New(Config{})
	if _, err := m.FunctionIndexFor("only", "v"); err != nil {
		t.Fatalf("FunctionIndexFor: %v", err)
	}
	m.FinalizeTables()
	table := m.Table("v")
	found := false
	for _, slot := range table {
		if slot == "only" {
			found = true
			continue
		}
		if slot != "0" {
			t.Errorf("padding slot = %q, want %q", slot, "0")
		}
	}
	if !found {
		t.Errorf("registered function missing from its finalized table")
	}
}

func TestFunctionIndex_UnregisteredNameIsFatal(t *testing.T) {
	m := New(Config{})
	if _, err := m.FunctionIndex("never-registered"); err == nil {
		t.Errorf("expected an error for a name never assigned a slot")
	}
}

func TestSignatures_SortedDeterministic(t *testing.T) {
	m := New(Config{})
	for _, sig := range []string{"v", "ii", "d"} {
		if _, err := m.FunctionIndexFor("f_"+sig, sig); err != nil {
			t.Fatalf("FunctionIndexFor: %v", err)
		}
	}
	sigs := m.Signatures()
	for i := 1; i < len(sigs); i++ {
		if sigs[i-1] > sigs[i] {
			t.Errorf("Signatures() not sorted: %v", sigs)
			break
		}
	}
}

func TestMask_ValidAfterFinalize(t *testing.T) {
	m := New(Config{})
	for _, name := range []string{"a", "b", "c"} {
		if _, err := m.FunctionIndexFor(name, "v"); err != nil {
			t.Fatalf("FunctionIndexFor: %v", err)
		}
	}
	m.FinalizeTables()
	mask := m.Mask("v")
	table := m.Table("v")
	if mask != len(table)-1 {
		t.Errorf("Mask() = %d, want %d", mask, len(table)-1)
	}
}
