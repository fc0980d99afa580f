package relooper

import "testing"

func TestChain_StraightLineFunction(t *testing.T) {
	s := New()
	a := s.AddBlock("stmt_a();\n", "", false)
	b := s.AddBlock("stmt_b();\n", "", false)
	c := s.AddBlock("return;\n", "", false)
	s.AddEdge(a, b, Selector{Kind: SelectorNone}, "")
	s.AddEdge(b, c, Selector{Kind: SelectorNone}, "")
	if err := s.Calculate(a); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	out, err := s.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !contains(out, "stmt_a();") || !contains(out, "stmt_b();") || !contains(out, "return;") {
		t.Errorf("chain output missing expected statements: %q", out)
	}
	if contains(out, "while") || contains(out, "switch") {
		t.Errorf("a pure chain must not need loop/dispatch scaffolding: %q", out)
	}
}

func TestLoop_BackEdgeRequiresLabelDispatch(t *testing.T) {
	s := New()
	head := s.AddBlock("check();\n", "", false)
	body := s.AddBlock("work();\n", "", false)
	exit := s.AddBlock("return;\n", "", false)
	s.AddEdge(head, body, Selector{Kind: SelectorCond, Cond: "(cond|0)"}, "")
	s.AddEdge(head, exit, Selector{Kind: SelectorNone}, "")
	s.AddEdge(body, head, Selector{Kind: SelectorNone}, "")
	if err := s.Calculate(head); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	out, err := s.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !contains(out, "while (1)") || !contains(out, "switch (label|0)") {
		t.Errorf("a back-edge must produce label-dispatch loop scaffolding: %q", out)
	}
	if !contains(out, "label = ") {
		t.Errorf("expected label assignments in dispatch loop: %q", out)
	}
}

func TestSwitch_MultiWayDispatch(t *testing.T) {
	s := New()
	head := s.AddBlock("", "tag|0", true)
	one := s.AddBlock("one();\n", "", false)
	two := s.AddBlock("two();\n", "", false)
	def := s.AddBlock("default_case();\n", "", false)
	s.AddEdge(head, one, Selector{Kind: SelectorCases, Cases: []int64{1}}, "")
	s.AddEdge(head, two, Selector{Kind: SelectorCases, Cases: []int64{2}}, "")
	s.AddEdge(head, def, Selector{Kind: SelectorNone}, "")
	// Force a loop shape: give one() a back edge to head.
	s.AddEdge(one, head, Selector{Kind: SelectorNone}, "")
	if err := s.Calculate(head); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	out, err := s.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !contains(out, "switch (tag|0)") {
		t.Errorf("expected the switch condition to be spliced in: %q", out)
	}
	if !contains(out, "case 1:") || !contains(out, "case 2:") {
		t.Errorf("expected case labels for each SelectorCases edge: %q", out)
	}
}

func TestRender_WithoutCalculateFails(t *testing.T) {
	s := New()
	s.AddBlock("x();\n", "", false)
	if _, err := s.Render(); err == nil {
		t.Errorf("expected Render before Calculate to fail")
	}
}

func TestCalculate_OutOfRangeEntryFails(t *testing.T) {
	s := New()
	s.AddBlock("x();\n", "", false)
	if err := s.Calculate(BlockHandle(5)); err == nil {
		t.Errorf("expected Calculate with an out-of-range entry to fail")
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
