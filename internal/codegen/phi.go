package codegen

import (
	"fmt"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/mangle"
)

// resultVarName returns the mangled destination-variable name of an
// instruction with a result.
func resultVarName(ins *ir.Instr) string {
	if ins.ResultName != "" {
		return mangle.Local(ins.ResultName)
	}
	return mangle.Unnamed(ins.ResultUnnamed)
}

// phiTextForEdge computes the assignment text that must run on the edge
// from predIdx into succIdx, resolving every φ node at the head of the
// successor block (§4.3 step 3, §4.4 "φ resolution"). More than one φ in
// the same successor is always routed through `$phi<succ>_<i>` temporaries
// first, which sidesteps the classic simultaneous-assignment / cycle
// problem (`%a = phi [%b, ...]`, `%b = phi [%a, ...]`) without needing to
// detect which particular pairs actually cycle.
func (fe *funcEmitter) phiTextForEdge(predIdx, succIdx int) (string, error) {
	succ := &fe.f.Blocks[succIdx]
	type assignment struct {
		dst, val string
		typ      *ir.Type
	}
	var assigns []assignment
	for i := range succ.Instrs {
		ins := &succ.Instrs[i]
		if ins.Kind != ir.InstrPhi {
			continue
		}
		for _, inc := range ins.Phi.Incoming {
			if inc.Pred != predIdx {
				continue
			}
			val, err := fe.e.valueText(inc.Value)
			if err != nil {
				return "", err
			}
			assigns = append(assigns, assignment{dst: resultVarName(ins), val: val, typ: ins.ResultType})
			fe.declareVar(resultVarName(ins), ins.ResultType)
			break
		}
	}
	if len(assigns) == 0 {
		return "", nil
	}
	if len(assigns) == 1 {
		return assigns[0].dst + " = " + assigns[0].val + ";\n", nil
	}
	var buf string
	temps := make([]string, len(assigns))
	for i, a := range assigns {
		temps[i] = fmt.Sprintf("$phi%d_%d", succIdx, i)
		fe.declareVar(temps[i], a.typ)
		buf += temps[i] + " = " + a.val + ";\n"
	}
	for i, a := range assigns {
		buf += a.dst + " = " + temps[i] + ";\n"
	}
	return buf, nil
}
