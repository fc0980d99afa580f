package codegen

import (
	"fmt"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
)

// lowerAtomicRMW renders a read-modify-write atomic. The ops the Atomics
// object exposes natively (add/sub/and/or/xor/exchange) map straight
// through; max/min/umax/umin/nand fall back to a compare-and-swap loop,
// since asm.js's Atomics surface (spec §9 "Threads/atomics as an
// enrichment, not core") never grew those as intrinsics.
func (e *Emitter) lowerAtomicRMW(fe *funcEmitter, ins *ir.Instr) (string, error) {
	addr, err := e.valueText(ins.AtomicRMW.Addr)
	if err != nil {
		return "", err
	}
	val, err := e.valueText(ins.AtomicRMW.Val)
	if err != nil {
		return "", err
	}
	idx := fmt.Sprintf("(%s)>>2", addr)
	switch ins.AtomicRMW.Op {
	case ir.AtomicXchg:
		return fmt.Sprintf("Atomics.exchange(HEAP32, %s, %s)", idx, val), nil
	case ir.AtomicAdd:
		return fmt.Sprintf("Atomics.add(HEAP32, %s, %s)", idx, val), nil
	case ir.AtomicSub:
		return fmt.Sprintf("Atomics.sub(HEAP32, %s, %s)", idx, val), nil
	case ir.AtomicAnd:
		return fmt.Sprintf("Atomics.and(HEAP32, %s, %s)", idx, val), nil
	case ir.AtomicOr:
		return fmt.Sprintf("Atomics.or(HEAP32, %s, %s)", idx, val), nil
	case ir.AtomicXor:
		return fmt.Sprintf("Atomics.xor(HEAP32, %s, %s)", idx, val), nil
	case ir.AtomicMax, ir.AtomicMin, ir.AtomicUMax, ir.AtomicUMin, ir.AtomicNand:
		return e.casLoopRMW(fe, idx, val, ins.AtomicRMW.Op)
	default:
		return "", diag.NewFatal(diag.FatalUnsupportedOpcode, diag.Location{},
			"unsupported atomic rmw opcode %d", ins.AtomicRMW.Op)
	}
}

// casLoopRMW synthesizes the ops Atomics never got natively as an IIFE
// running Atomics.compareExchange in a loop until it wins.
func (e *Emitter) casLoopRMW(fe *funcEmitter, idx, val string, op ir.AtomicOp) (string, error) {
	tmp := fe.newTemp()
	var combine string
	switch op {
	case ir.AtomicMax:
		combine = fmt.Sprintf("(((%s|0) > (%s|0)) ? (%s|0) : (%s))", tmp, val, tmp, val)
	case ir.AtomicMin:
		combine = fmt.Sprintf("(((%s|0) < (%s|0)) ? (%s|0) : (%s))", tmp, val, tmp, val)
	case ir.AtomicUMax:
		combine = fmt.Sprintf("(((%s>>>0) > (%s>>>0)) ? (%s>>>0) : (%s))", tmp, val, tmp, val)
	case ir.AtomicUMin:
		combine = fmt.Sprintf("(((%s>>>0) < (%s>>>0)) ? (%s>>>0) : (%s))", tmp, val, tmp, val)
	case ir.AtomicNand:
		combine = fmt.Sprintf("(~((%s) & (%s)))", tmp, val)
	}
	return fmt.Sprintf("(function(){ var %s = 0; do { %s = Atomics.load(HEAP32, %s)|0; } "+
		"while ((Atomics.compareExchange(HEAP32, %s, %s, %s)|0) != (%s|0)); return %s; })()",
		tmp, tmp, idx, idx, tmp, combine, tmp, tmp), nil
}

// lowerFence renders a fence as a full statement. asm.js has no fence
// intrinsic outside Atomics; a fence over the SharedArrayBuffer memory is
// expressed as a zero-effect Atomics.add, matching how Emscripten's actual
// runtime support code represents `__sync_synchronize`.
func (e *Emitter) lowerFence(fe *funcEmitter) string {
	if !fe.e.cfg.EnablePthreads {
		return ""
	}
	return "Atomics.add(HEAP32, 0, 0)|0;\n"
}
