package codegen

import (
	"fmt"
	"strings"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/mangle"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/relooper"
)

// stackRestoreSentinel marks where a `return` statement needs the saved
// stack pointer restored, once the function's total frame size — only
// known after every alloca in the function has been visited — is final.
const stackRestoreSentinel = "\x00STACK_RESTORE\x00"

// funcEmitter holds the per-function scratch state the Expression Lowerer
// accumulates while walking one function: the frame-slot packing for
// static allocas, the set of locals that need a `var` declaration, and a
// counter for synthesized temporaries (§4.4's alloca/GEP walk, φ
// resolution).
type funcEmitter struct {
	e *Emitter
	f *ir.Func

	frameOffsets    map[*ir.Instr]int
	nextFrameOffset int

	declOrder []string
	declType  map[string]*ir.Type
	declSeen  map[string]bool

	// nativized maps a nativized alloca's mangled result name to its
	// allocated type, so lowerLoad/lowerStore can recognize an address
	// operand that is really a plain JS var in disguise.
	nativized map[string]*ir.Type

	tempCounter int
}

func newFuncEmitter(e *Emitter, f *ir.Func) *funcEmitter {
	calculateNativizedVars(f)
	return &funcEmitter{
		e:            e,
		f:            f,
		frameOffsets: make(map[*ir.Instr]int),
		declType:     make(map[string]*ir.Type),
		declSeen:     make(map[string]bool),
		nativized:    make(map[string]*ir.Type),
	}
}

// declareNativized records ins as a nativized alloca: a plain JS local that
// holds the allocation's value directly instead of an address into the
// simulated heap. It has no statement text of its own — the declaration
// happens through the usual `var` preamble, initialized to its zero value.
func (fe *funcEmitter) declareNativized(ins *ir.Instr) string {
	name := resultVarName(ins)
	fe.declareVar(name, ins.Alloca.AllocType)
	fe.nativized[name] = ins.Alloca.AllocType
	return ""
}

// calculateNativizedVars marks every alloca in f whose address is never
// taken — every use is the address operand of a Load or a Store, nothing
// else — as eligible for nativization: §4.4's promotion of a stack slot to
// a plain JS variable, grounded on the original's JSWriter::
// calculateNativizedVars (non-array, non-dynamic, non-aggregate scalar
// allocas only; any other use, including appearing as the value operand of
// a Store, disqualifies it).
func calculateNativizedVars(f *ir.Func) {
	eligible := make(map[*ir.Instr]bool)
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			ins := &f.Blocks[bi].Instrs[ii]
			if ins.Kind != ir.InstrAlloca {
				continue
			}
			if ins.Alloca.IsArray || ins.Alloca.Dynamic {
				continue
			}
			t := ins.Alloca.AllocType
			if t == nil || t.Kind == ir.TypeArray || t.Kind == ir.TypeStruct || t.Kind == ir.TypeVector {
				continue
			}
			eligible[ins] = true
		}
	}
	if len(eligible) == 0 {
		return
	}

	isTarget := func(v ir.Value, ins *ir.Instr) bool {
		if v.Kind != ir.ValueInstr {
			return false
		}
		if ins.ResultName != "" {
			return v.Name == ins.ResultName
		}
		return v.Name == "" && v.UnnamedID == ins.ResultUnnamed
	}
	use := func(v ir.Value, allowed bool) {
		if v.Kind != ir.ValueInstr || len(eligible) == 0 {
			return
		}
		for cand := range eligible {
			if !allowed && isTarget(v, cand) {
				delete(eligible, cand)
			}
		}
	}

	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for ii := range b.Instrs {
			ins := &b.Instrs[ii]
			switch ins.Kind {
			case ir.InstrBinary:
				use(ins.Binary.LHS, false)
				use(ins.Binary.RHS, false)
			case ir.InstrICmp:
				use(ins.ICmp.LHS, false)
				use(ins.ICmp.RHS, false)
			case ir.InstrFCmp:
				use(ins.FCmp.LHS, false)
				use(ins.FCmp.RHS, false)
			case ir.InstrCast:
				use(ins.Cast.Src, false)
			case ir.InstrLoad:
				use(ins.Load.Addr, true)
			case ir.InstrStore:
				use(ins.Store.Addr, true)
				use(ins.Store.Val, false)
			case ir.InstrAlloca:
				if ins.Alloca.IsArray {
					use(ins.Alloca.ArraySize, false)
				}
			case ir.InstrGEP:
				use(ins.GEP.Base, false)
				for _, idx := range ins.GEP.Indices {
					if !idx.IsStructIdx && !idx.IsConstant {
						use(idx.Index, false)
					}
				}
			case ir.InstrAtomicRMW:
				use(ins.AtomicRMW.Addr, false)
				use(ins.AtomicRMW.Val, false)
			case ir.InstrPhi:
				for _, in := range ins.Phi.Incoming {
					use(in.Value, false)
				}
			case ir.InstrSelect:
				use(ins.Select.Cond, false)
				use(ins.Select.True, false)
				use(ins.Select.False, false)
			case ir.InstrCall:
				use(ins.Call.Callee, false)
				for _, a := range ins.Call.Args {
					use(a, false)
				}
			case ir.InstrSIMD:
				for _, op := range ins.SIMD.Operands {
					use(op, false)
				}
			}
		}
		switch b.Term.Kind {
		case ir.TermCondBr:
			use(b.Term.CondBr.Cond, false)
		case ir.TermSwitch:
			use(b.Term.Switch.Cond, false)
		case ir.TermIndirectBr:
			use(b.Term.IndirectBr.Addr, false)
		case ir.TermRet:
			if b.Term.Ret.HasValue {
				use(b.Term.Ret.Value, false)
			}
		}
	}

	for ins := range eligible {
		ins.Alloca.Nativized = true
	}
}

func (fe *funcEmitter) declareVar(name string, t *ir.Type) {
	if fe.declSeen[name] {
		return
	}
	fe.declSeen[name] = true
	fe.declOrder = append(fe.declOrder, name)
	fe.declType[name] = t
}

func (fe *funcEmitter) newTemp() string {
	fe.tempCounter++
	return fmt.Sprintf("$tmp%d", fe.tempCounter)
}

// frameOffsetFor packs a static alloca into the function's frame in
// encounter order, 8-byte aligning every slot — a conservative
// simplification of the coalescing analysis spec §4.4 describes for the
// "static alloca folding" scenario (§8).
func (fe *funcEmitter) frameOffsetFor(ins *ir.Instr) int {
	if off, ok := fe.frameOffsets[ins]; ok {
		return off
	}
	size := fe.e.mod.DataLayout.AllocSize(ins.Alloca.AllocType)
	if ins.Alloca.IsArray && ins.Alloca.ArraySize.Kind == ir.ValueConstant && ins.Alloca.ArraySize.Const != nil {
		size *= int(ins.Alloca.ArraySize.Const.Int)
	}
	size = (size + 7) &^ 7
	if size == 0 {
		size = 8
	}
	off := fe.nextFrameOffset
	fe.frameOffsets[ins] = off
	fe.nextFrameOffset += size
	return off
}

func initLiteralFor(t *ir.Type) string {
	if t == nil {
		return "0"
	}
	switch t.Kind {
	case ir.TypeDouble:
		return "0.0"
	case ir.TypeFloat:
		return "Math_fround(0)"
	default:
		return "0"
	}
}

// emitFunction lowers one function to its complete JS text, driving the
// Control-Flow Reconstructor via internal/relooper (§4.3/§4.4).
func (e *Emitter) emitFunction(f *ir.Func) (string, error) {
	fe := newFuncEmitter(e, f)
	sess := relooper.New()
	handles := make([]relooper.BlockHandle, len(f.Blocks))

	for i := range f.Blocks {
		text, switchCond, hasSwitch, err := fe.buildBlockText(&f.Blocks[i])
		if err != nil {
			return "", err
		}
		handles[i] = sess.AddBlock(text, switchCond, hasSwitch)
	}
	for i := range f.Blocks {
		if err := fe.addEdges(sess, handles, i); err != nil {
			return "", err
		}
	}
	if err := sess.Calculate(handles[0]); err != nil {
		return "", err
	}
	body, err := sess.Render()
	if err != nil {
		return "", err
	}

	restore := ""
	if fe.nextFrameOffset > 0 {
		restore = "STACKTOP = sp;\n"
	}
	body = strings.ReplaceAll(body, stackRestoreSentinel, restore)

	return fe.renderFunction(body), nil
}

// buildBlockText lowers every non-terminator instruction in b, then the
// terminator's own textual effect (a `return` statement, or nothing for
// the branch/switch/indirect-br kinds whose effect is entirely encoded as
// relooper edges).
func (fe *funcEmitter) buildBlockText(b *ir.BasicBlock) (text string, switchCond string, hasSwitch bool, err error) {
	var buf strings.Builder
	for i := range b.Instrs {
		ins := &b.Instrs[i]
		if ins.Kind == ir.InstrPhi {
			continue
		}
		stmt, err := fe.lowerInstr(ins)
		if err != nil {
			return "", "", false, err
		}
		buf.WriteString(stmt)
	}

	switch b.Term.Kind {
	case ir.TermRet:
		if fe.nextFrameOffset > 0 {
			buf.WriteString(stackRestoreSentinel)
		}
		if b.Term.Ret.HasValue {
			val, err := fe.e.valueText(b.Term.Ret.Value)
			if err != nil {
				return "", "", false, err
			}
			fmt.Fprintf(&buf, "return %s;\n", coerce(val, fe.f.RetType))
		} else {
			buf.WriteString("return;\n")
		}
	case ir.TermUnreachable:
		buf.WriteString("// unreachable\n")
	case ir.TermSwitch:
		cond, err := fe.e.valueText(b.Term.Switch.Cond)
		if err != nil {
			return "", "", false, err
		}
		return buf.String(), cond, true, nil
	case ir.TermIndirectBr:
		addr, err := fe.e.valueText(b.Term.IndirectBr.Addr)
		if err != nil {
			return "", "", false, err
		}
		return buf.String(), addr, true, nil
	}
	return buf.String(), "", false, nil
}

// lowerInstr dispatches one non-terminator, non-phi instruction to its
// per-kind lowering, then applies the result assignment / coercion
// uniformly (§4.4).
func (fe *funcEmitter) lowerInstr(ins *ir.Instr) (string, error) {
	e := fe.e
	switch ins.Kind {
	case ir.InstrStore:
		return e.lowerStore(fe, ins)
	case ir.InstrFence:
		return e.lowerFence(fe), nil
	case ir.InstrPhi:
		return "", nil
	case ir.InstrAlloca:
		if ins.Alloca.Nativized {
			return fe.declareNativized(ins), nil
		}
	}

	var raw string
	var err error
	switch ins.Kind {
	case ir.InstrBinary:
		raw, err = e.lowerBinary(ins)
	case ir.InstrICmp:
		raw, err = e.lowerICmp(ins)
	case ir.InstrFCmp:
		raw, err = e.lowerFCmp(ins)
	case ir.InstrCast:
		raw, err = e.lowerCast(ins)
	case ir.InstrSelect:
		raw, err = e.lowerSelect(ins)
	case ir.InstrLoad:
		raw, err = e.lowerLoad(fe, ins)
	case ir.InstrGEP:
		raw, err = e.lowerGEP(ins)
	case ir.InstrAlloca:
		raw, err = e.lowerAlloca(fe, ins)
	case ir.InstrAtomicRMW:
		raw, err = e.lowerAtomicRMW(fe, ins)
	case ir.InstrSIMD:
		raw, err = e.lowerSIMD(ins)
	case ir.InstrCall:
		raw, err = e.lowerCall(ins)
	}
	if err != nil {
		return "", err
	}
	if !ins.HasResult {
		if raw == "" {
			return "", nil
		}
		return raw + ";\n", nil
	}
	name := resultVarName(ins)
	fe.declareVar(name, ins.ResultType)
	return name + " = " + coerce(raw, ins.ResultType) + ";\n", nil
}

// addEdges registers the relooper edges implied by a block's terminator
// (§4.3 step 3): the selector each successor is reached under, plus the
// φ-resolution text that must run immediately before the jump.
func (fe *funcEmitter) addEdges(sess *relooper.Session, handles []relooper.BlockHandle, blockIdx int) error {
	b := &fe.f.Blocks[blockIdx]
	from := handles[blockIdx]
	switch b.Term.Kind {
	case ir.TermBr:
		phi, err := fe.phiTextForEdge(blockIdx, b.Term.Br.Target)
		if err != nil {
			return err
		}
		sess.AddEdge(from, handles[b.Term.Br.Target], relooper.Selector{}, phi)
	case ir.TermCondBr:
		cond, err := fe.e.valueText(b.Term.CondBr.Cond)
		if err != nil {
			return err
		}
		phiThen, err := fe.phiTextForEdge(blockIdx, b.Term.CondBr.Then)
		if err != nil {
			return err
		}
		phiElse, err := fe.phiTextForEdge(blockIdx, b.Term.CondBr.Else)
		if err != nil {
			return err
		}
		sess.AddEdge(from, handles[b.Term.CondBr.Then], relooper.Selector{Kind: relooper.SelectorCond, Cond: cond}, phiThen)
		sess.AddEdge(from, handles[b.Term.CondBr.Else], relooper.Selector{Kind: relooper.SelectorNone}, phiElse)
	case ir.TermSwitch:
		for _, c := range b.Term.Switch.Cases {
			phi, err := fe.phiTextForEdge(blockIdx, c.Target)
			if err != nil {
				return err
			}
			sess.AddEdge(from, handles[c.Target], relooper.Selector{Kind: relooper.SelectorCases, Cases: []int64{c.Value}}, phi)
		}
		phiDef, err := fe.phiTextForEdge(blockIdx, b.Term.Switch.Default)
		if err != nil {
			return err
		}
		sess.AddEdge(from, handles[b.Term.Switch.Default], relooper.Selector{Kind: relooper.SelectorNone}, phiDef)
	case ir.TermIndirectBr:
		for i, dest := range b.Term.IndirectBr.Destinations {
			phi, err := fe.phiTextForEdge(blockIdx, dest)
			if err != nil {
				return err
			}
			if i == 0 {
				sess.AddEdge(from, handles[dest], relooper.Selector{Kind: relooper.SelectorNone}, phi)
				continue
			}
			sess.AddEdge(from, handles[dest], relooper.Selector{Kind: relooper.SelectorCases, Cases: []int64{int64(i)}}, phi)
		}
	}
	return nil
}

// renderFunction wraps a rendered structured-CF body in its function
// signature, parameter coercions, and local `var` declarations, following
// the standard asm.js function shape.
func (fe *funcEmitter) renderFunction(body string) string {
	var buf strings.Builder
	name := mangle.Global(fe.f.Name)
	paramNames := make([]string, len(fe.f.Params))
	for i, p := range fe.f.Params {
		paramNames[i] = mangle.Local(p.Name)
	}
	fmt.Fprintf(&buf, "function %s(%s) {\n", name, strings.Join(paramNames, ", "))
	for i, p := range fe.f.Params {
		fmt.Fprintf(&buf, " %s = %s;\n", paramNames[i], coerce(paramNames[i], p.Type))
	}

	var decls []string
	if fe.nextFrameOffset > 0 {
		decls = append(decls, "sp = 0")
	}
	for _, n := range fe.declOrder {
		decls = append(decls, n+" = "+initLiteralFor(fe.declType[n]))
	}
	if len(decls) > 0 {
		fmt.Fprintf(&buf, " var %s;\n", strings.Join(decls, ", "))
	}
	if fe.nextFrameOffset > 0 {
		fmt.Fprintf(&buf, " sp = STACKTOP;\n STACKTOP = (STACKTOP + %d)|0;\n", fe.nextFrameOffset)
	}

	buf.WriteString(indentLines(body))
	buf.WriteString("}\n\n")
	return buf.String()
}

func indentLines(s string) string {
	if s == "" {
		return s
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = " " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
