// Package relooper implements the Control-Flow Reconstructor's structured
// control-flow recovery service (spec §4.3, §9 "Structured-CF recovery as a
// service"). Spec §1 treats the recovery *algorithm* itself as an external,
// black-box collaborator; this package supplies the documented interface
// (new_session / add_block / add_edge / calculate / render) with a concrete
// implementation behind it so the module can actually emit code.
//
// Two shapes are produced, chosen per connected region of the block graph:
//
//   - A linear chain: a maximal run of blocks connected by a single
//     unconditional edge to a successor with no other predecessor. Chains
//     need no loop or dispatch scaffolding at all — this is what makes a
//     straight-line function (spec §8 scenarios 1 and 2) emit as plain
//     sequential statements ending in `return`, exactly as documented.
//   - A label-dispatch loop: `while(1){ switch(label){ case n: ...
//     } }` covering any block reachable through a conditional branch,
//     switch, indirect branch, or loop back-edge. Every outgoing edge
//     lowers uniformly to "set label, continue", and a block with no
//     outgoing edges ends its case with its own text, which keeps the
//     output within the if/while/switch/break/continue vocabulary the spec
//     requires regardless of how irregular the input CFG is (reducible or
//     not). This is a deliberate simplification relative to Binaryen's
//     shape-optimizing Relooper — it does not reconstruct nested natural
//     loops or minimal-entry Multiples — but it is correct for arbitrary
//     graphs, which matters more here than optimality of an
//     external-collaborator component (see DESIGN.md).
package relooper

import (
	"fmt"
	"sort"
	"strings"
)

// BlockHandle identifies a block registered with a Session.
type BlockHandle int

// SelectorKind distinguishes how an edge is guarded when a block has more
// than one outgoing edge.
type SelectorKind uint8

const (
	// SelectorNone marks the default / fallthrough edge.
	SelectorNone SelectorKind = iota
	// SelectorCond marks an edge guarded by a boolean JS expression.
	SelectorCond
	// SelectorOrCond marks an edge guarded by an OR-joined boolean
	// expression built from multiple switch case values (§4.3 "Switch").
	SelectorOrCond
	// SelectorCases marks an edge selected by one or more `case v:` labels
	// against the block's switch condition variable.
	SelectorCases
)

// Selector describes how to reach a given successor from a block with
// multiple outgoing edges.
type Selector struct {
	Kind  SelectorKind
	Cond  string  // SelectorCond / SelectorOrCond
	Cases []int64 // SelectorCases
}

type edge struct {
	to       BlockHandle
	selector Selector
	phiText  string
}

type block struct {
	handle    BlockHandle
	text      string
	switchCond string // non-empty iff this block dispatches via switch(cond)
	hasSwitch bool
	out       []edge
}

// Session accumulates blocks and edges for one function, then renders
// structured code for it. Usage mirrors §9's documented service contract.
type Session struct {
	blocks   []*block
	entry    BlockHandle
	hasEntry bool

	preds map[BlockHandle]int
}

// New creates a new structured-CF recovery session (spec's `new_session`).
func New() *Session {
	return &Session{preds: make(map[BlockHandle]int)}
}

// AddBlock registers a block's already-lowered instruction text, and,
// for blocks terminated by a switch or indirect branch, the condition
// expression used to dispatch its outgoing edges (§4.3 step 2).
func (s *Session) AddBlock(text string, switchCond string, hasSwitch bool) BlockHandle {
	h := BlockHandle(len(s.blocks))
	s.blocks = append(s.blocks, &block{handle: h, text: text, switchCond: switchCond, hasSwitch: hasSwitch})
	return h
}

// AddEdge registers an outgoing edge from one block to another, with an
// optional selector and φ-resolution text to run immediately before the
// jump (§4.3 step 3).
func (s *Session) AddEdge(from, to BlockHandle, sel Selector, phiText string) {
	if int(from) < 0 || int(from) >= len(s.blocks) {
		return
	}
	s.blocks[from].out = append(s.blocks[from].out, edge{to: to, selector: sel, phiText: phiText})
	s.preds[to]++
}

// Calculate records the entry block. The real analysis work happens lazily
// in Render, matching the two-step shape of the documented interface while
// keeping the session a pure accumulator until rendering is requested.
func (s *Session) Calculate(entry BlockHandle) error {
	if int(entry) < 0 || int(entry) >= len(s.blocks) {
		return fmt.Errorf("relooper: entry block %d out of range", entry)
	}
	s.entry = entry
	s.hasEntry = true
	return nil
}

// Render produces the structured JS text for the whole function body.
func (s *Session) Render() (string, error) {
	if !s.hasEntry {
		return "", fmt.Errorf("relooper: Calculate must be called before Render")
	}
	r := &renderer{s: s, visited: make(map[BlockHandle]bool)}
	return r.renderFrom(s.entry)
}

// renderer performs the single top-down pass that classifies each reachable
// region as either a linear chain or a label-dispatch loop.
type renderer struct {
	s       *Session
	visited map[BlockHandle]bool
}

func (r *renderer) block(h BlockHandle) *block { return r.s.blocks[h] }

// renderFrom renders the region starting at h, choosing between a plain
// chain and a label-dispatch loop per the classification in classify.
func (r *renderer) renderFrom(h BlockHandle) (string, error) {
	needsLoop, region := r.classify(h)
	if !needsLoop {
		return r.renderChain(h)
	}
	return r.renderDispatch(region)
}

// classify walks forward from h along a chain of unconditional,
// single-predecessor edges. It returns needsLoop=false and stops as soon as
// it would have to leave the chain — i.e. hits a block with more than one
// outgoing edge, a block with more than one predecessor, or a block already
// visited (a back-edge, meaning a loop is required). In that case
// needsLoop=true and region is the full set of blocks reachable from h that
// aren't already-rendered chain prefixes, to be handed to the dispatch
// renderer.
func (r *renderer) classify(h BlockHandle) (needsLoop bool, region []BlockHandle) {
	cur := h
	for {
		b := r.block(cur)
		if len(b.out) == 0 {
			return false, nil
		}
		if len(b.out) > 1 || b.hasSwitch {
			return true, r.reachableSet(h)
		}
		next := b.out[0].to
		if r.s.preds[next] != 1 {
			return true, r.reachableSet(h)
		}
		if next == h {
			return true, r.reachableSet(h)
		}
		cur = next
	}
}

// reachableSet computes every block reachable from h (inclusive), in
// ascending handle order, for a dispatch-loop region.
func (r *renderer) reachableSet(h BlockHandle) []BlockHandle {
	seen := map[BlockHandle]bool{}
	var order []BlockHandle
	var stack []BlockHandle
	stack = append(stack, h)
	seen[h] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, cur)
		for _, e := range r.block(cur).out {
			if !seen[e.to] {
				seen[e.to] = true
				stack = append(stack, e.to)
			}
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return order
}

// renderChain emits a maximal straight-line run with no wrapper at all.
func (r *renderer) renderChain(h BlockHandle) (string, error) {
	var buf strings.Builder
	cur := h
	for {
		if r.visited[cur] {
			return "", fmt.Errorf("relooper: chain revisited block %d", cur)
		}
		r.visited[cur] = true
		b := r.block(cur)
		buf.WriteString(b.text)
		if len(b.out) == 0 {
			return buf.String(), nil
		}
		e := b.out[0]
		if e.phiText != "" {
			buf.WriteString(e.phiText)
		}
		cur = e.to
	}
}

// renderDispatch emits `while(1){ switch(label){ ... } }` covering region,
// with every outgoing edge lowered to setting `label` and `continue`
// (falls back into the switch). A block with no outgoing edges (Return and
// Unreachable terminators carry none per §4.3 step 3) gets nothing after
// its own text; no `break` is emitted.
func (r *renderer) renderDispatch(region []BlockHandle) (string, error) {
	var buf strings.Builder
	entryIdx := int(region[0])
	buf.WriteString(fmt.Sprintf("var label = %d;\n", entryIdx))
	buf.WriteString("while (1) {\n switch (label|0) {\n")
	for _, h := range region {
		if r.visited[h] {
			continue
		}
		r.visited[h] = true
		b := r.block(h)
		fmt.Fprintf(&buf, " case %d: {\n", int(h))
		buf.WriteString(indent(b.text))
		if err := r.renderOutEdges(&buf, b); err != nil {
			return "", err
		}
		buf.WriteString(" }\n")
	}
	buf.WriteString(" }\n}\n")
	return buf.String(), nil
}

func (r *renderer) renderOutEdges(buf *strings.Builder, b *block) error {
	switch len(b.out) {
	case 0:
		return nil
	case 1:
		e := b.out[0]
		if e.phiText != "" {
			buf.WriteString(indent(e.phiText))
		}
		fmt.Fprintf(buf, "  label = %d; continue;\n", int(e.to))
		return nil
	default:
		if b.hasSwitch {
			fmt.Fprintf(buf, "  switch (%s) {\n", b.switchCond)
			var def *edge
			for i := range b.out {
				e := &b.out[i]
				if e.selector.Kind == SelectorCases {
					for _, v := range e.selector.Cases {
						fmt.Fprintf(buf, "   case %d:\n", v)
					}
					if e.phiText != "" {
						buf.WriteString(indent(indent(e.phiText)))
					}
					fmt.Fprintf(buf, "    label = %d; continue;\n", int(e.to))
				} else {
					def = e
				}
			}
			buf.WriteString("   default:\n")
			if def != nil {
				if def.phiText != "" {
					buf.WriteString(indent(indent(def.phiText)))
				}
				fmt.Fprintf(buf, "    label = %d; continue;\n", int(def.to))
			}
			buf.WriteString("  }\n")
			return nil
		}
		// Conditional branch: exactly two edges, first carries the
		// condition, second is the unconditional fallthrough (§4.3 step 3
		// "Branch (conditional)").
		if len(b.out) != 2 {
			return fmt.Errorf("relooper: unsupported branch arity %d without switch condition", len(b.out))
		}
		thenE, elseE := b.out[0], b.out[1]
		fmt.Fprintf(buf, "  if (%s) {\n", thenE.selector.Cond)
		if thenE.phiText != "" {
			buf.WriteString(indent(indent(thenE.phiText)))
		}
		fmt.Fprintf(buf, "   label = %d; continue;\n", int(thenE.to))
		buf.WriteString("  } else {\n")
		if elseE.phiText != "" {
			buf.WriteString(indent(indent(elseE.phiText)))
		}
		fmt.Fprintf(buf, "   label = %d; continue;\n", int(elseE.to))
		buf.WriteString("  }\n")
		return nil
	}
}

func indent(s string) string {
	if s == "" {
		return s
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
