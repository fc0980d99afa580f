package codegen

import (
	"fmt"
	"strings"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/intrinsics"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/mangle"
)

// resultTypeHint maps a legalized return type to the coarse hint the Call
// Dispatcher's Handler.Emit sees (§4.6).
func resultTypeHint(t *ir.Type) string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case ir.TypeVoid:
		return "void"
	case ir.TypeDouble:
		return "double"
	case ir.TypeFloat:
		return "float"
	default:
		return "i32"
	}
}

// lowerCall renders a call expression, direct or indirect, running direct
// calls through the Call Dispatcher's handler table first (§4.6 "Dynamic
// dispatch via call handlers").
func (e *Emitter) lowerCall(ins *ir.Instr) (string, error) {
	// Per-argument FFI coercions (§4.6): every argument crossing a call
	// boundary is cast to int|0, +double, or Math_fround(float) per its
	// type, regardless of how the callee is dispatched.
	args := make([]string, len(ins.Call.Args))
	for i, a := range ins.Call.Args {
		t, err := e.valueText(a)
		if err != nil {
			return "", err
		}
		args[i] = coerce(t, a.Type)
	}
	argList := strings.Join(args, ", ")

	if ins.Call.Callee.Kind == ir.ValueGlobal {
		name := ins.Call.Callee.Global
		h := e.intr.Lookup(name)
		switch h.Tag {
		case intrinsics.TagIntrinsic:
			return h.Emit(intrinsics.CallSite{Args: args, ResultType: resultTypeHint(ins.Call.RetType)}), nil
		case intrinsics.TagInline:
			id := e.registerInlineJS(h.Body, len(args))
			return fmt.Sprintf("_emscripten_asm_const_%d(%s)", id, argList), nil
		case intrinsics.TagRedirect:
			e.recordRedirect(name, h.Redirect)
			return fmt.Sprintf("%s(%s)", h.Redirect, argList), nil
		default:
			return fmt.Sprintf("%s(%s)", mangle.Global(name), argList), nil
		}
	}

	idx, err := e.valueText(ins.Call.Callee)
	if err != nil {
		return "", err
	}
	mask := e.funcs.Mask(ins.Call.Sig)
	return fmt.Sprintf("FUNCTION_TABLE_%s[(%s) & %d](%s)", ins.Call.Sig, idx, mask, argList), nil
}
