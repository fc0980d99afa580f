package codegen

import (
	"fmt"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
)

// lowerBinary renders a BinaryInstr's RHS expression (spec §4.4 "Binary
// operators"), including the integer-multiply Math_imul peephole and the
// signed/unsigned split for division, remainder, and shifts.
func (e *Emitter) lowerBinary(ins *ir.Instr) (string, error) {
	lhs, err := e.valueText(ins.Binary.LHS)
	if err != nil {
		return "", err
	}
	rhs, err := e.valueText(ins.Binary.RHS)
	if err != nil {
		return "", err
	}
	t := ins.ResultType
	isFloat := t.IsFloatingPoint()

	switch ins.Binary.Op {
	case ir.OpAdd:
		return fmt.Sprintf("(%s + %s)", lhs, rhs), nil
	case ir.OpSub:
		return fmt.Sprintf("(%s - %s)", lhs, rhs), nil
	case ir.OpMul:
		if isFloat {
			return fmt.Sprintf("(%s * %s)", lhs, rhs), nil
		}
		if t.IntWidth() == 32 || t.Kind == ir.TypePointer {
			if c := ins.Binary.RHS.Const; ins.Binary.RHS.Kind == ir.ValueConstant && c != nil && c.Kind == ir.ConstInt {
				switch k := c.Int; {
				case k == 0:
					return "0", nil
				case k == 1:
					return lhs, nil
				case k > 0 && k&(k-1) == 0:
					shift := 0
					for v := k; v > 1; v >>= 1 {
						shift++
					}
					return fmt.Sprintf("(%s << %d)", lhs, shift), nil
				case k > 0 && k < 1<<20:
					return fmt.Sprintf("((%s * %d)|0)", lhs, k), nil
				}
			}
			return fmt.Sprintf("Math_imul(%s, %s)", lhs, rhs), nil
		}
		return fmt.Sprintf("(%s * %s)", lhs, rhs), nil
	case ir.OpUDiv:
		return fmt.Sprintf("((%s>>>0) / (%s>>>0))", lhs, rhs), nil
	case ir.OpSDiv:
		return fmt.Sprintf("((%s|0) / (%s|0))", lhs, rhs), nil
	case ir.OpURem:
		return fmt.Sprintf("((%s>>>0) %% (%s>>>0))", lhs, rhs), nil
	case ir.OpSRem:
		return fmt.Sprintf("((%s|0) %% (%s|0))", lhs, rhs), nil
	case ir.OpAnd:
		return fmt.Sprintf("(%s & %s)", lhs, rhs), nil
	case ir.OpOr:
		return fmt.Sprintf("(%s | %s)", lhs, rhs), nil
	case ir.OpXor:
		return fmt.Sprintf("(%s ^ %s)", lhs, rhs), nil
	case ir.OpShl:
		return fmt.Sprintf("(%s << %s)", lhs, rhs), nil
	case ir.OpLShr:
		return fmt.Sprintf("(%s >>> %s)", lhs, rhs), nil
	case ir.OpAShr:
		return fmt.Sprintf("(%s >> %s)", lhs, rhs), nil
	case ir.OpFAdd:
		return fmt.Sprintf("(%s + %s)", lhs, rhs), nil
	case ir.OpFSub:
		return fmt.Sprintf("(%s - %s)", lhs, rhs), nil
	case ir.OpFMul:
		return fmt.Sprintf("(%s * %s)", lhs, rhs), nil
	case ir.OpFDiv:
		return fmt.Sprintf("(%s / %s)", lhs, rhs), nil
	case ir.OpFRem:
		return fmt.Sprintf("(%s %% %s)", lhs, rhs), nil
	default:
		return "", diag.NewFatal(diag.FatalUnsupportedOpcode, diag.Location{},
			"unsupported binary opcode %d", ins.Binary.Op)
	}
}

// lowerICmp renders an integer comparison as a JS boolean expression, with
// the operand pair widened via the matching signed/unsigned coercion
// before comparing (§4.4 "Comparisons").
func (e *Emitter) lowerICmp(ins *ir.Instr) (string, error) {
	lhs, err := e.valueText(ins.ICmp.LHS)
	if err != nil {
		return "", err
	}
	rhs, err := e.valueText(ins.ICmp.RHS)
	if err != nil {
		return "", err
	}
	switch ins.ICmp.Pred {
	case ir.CmpEQ:
		return fmt.Sprintf("((%s|0) == (%s|0))", lhs, rhs), nil
	case ir.CmpNE:
		return fmt.Sprintf("((%s|0) != (%s|0))", lhs, rhs), nil
	case ir.CmpSLT:
		return fmt.Sprintf("((%s|0) < (%s|0))", lhs, rhs), nil
	case ir.CmpSLE:
		return fmt.Sprintf("((%s|0) <= (%s|0))", lhs, rhs), nil
	case ir.CmpSGT:
		return fmt.Sprintf("((%s|0) > (%s|0))", lhs, rhs), nil
	case ir.CmpSGE:
		return fmt.Sprintf("((%s|0) >= (%s|0))", lhs, rhs), nil
	case ir.CmpULT:
		return fmt.Sprintf("((%s>>>0) < (%s>>>0))", lhs, rhs), nil
	case ir.CmpULE:
		return fmt.Sprintf("((%s>>>0) <= (%s>>>0))", lhs, rhs), nil
	case ir.CmpUGT:
		return fmt.Sprintf("((%s>>>0) > (%s>>>0))", lhs, rhs), nil
	case ir.CmpUGE:
		return fmt.Sprintf("((%s>>>0) >= (%s>>>0))", lhs, rhs), nil
	default:
		return "", diag.NewFatal(diag.FatalUnsupportedOpcode, diag.Location{},
			"predicate %d is not an integer predicate", ins.ICmp.Pred)
	}
}

// lowerFCmp renders a floating-point comparison. Unordered predicates are
// synthesized from the JS "!=" self-equality NaN check the way the spec's
// worked note on unordered predicates describes.
func (e *Emitter) lowerFCmp(ins *ir.Instr) (string, error) {
	lhs, err := e.valueText(ins.FCmp.LHS)
	if err != nil {
		return "", err
	}
	rhs, err := e.valueText(ins.FCmp.RHS)
	if err != nil {
		return "", err
	}
	unordered := fmt.Sprintf("(%s != %s || %s != %s)", lhs, lhs, rhs, rhs)
	switch ins.FCmp.Pred {
	case ir.CmpOEQ:
		return fmt.Sprintf("(%s == %s)", lhs, rhs), nil
	case ir.CmpONE:
		return fmt.Sprintf("(%s != %s && !%s)", lhs, rhs, unordered), nil
	case ir.CmpOLT:
		return fmt.Sprintf("(%s < %s)", lhs, rhs), nil
	case ir.CmpOLE:
		return fmt.Sprintf("(%s <= %s)", lhs, rhs), nil
	case ir.CmpOGT:
		return fmt.Sprintf("(%s > %s)", lhs, rhs), nil
	case ir.CmpOGE:
		return fmt.Sprintf("(%s >= %s)", lhs, rhs), nil
	case ir.CmpORD:
		return "!(" + unordered + ")", nil
	case ir.CmpUNO:
		return unordered, nil
	case ir.CmpUEQ:
		return fmt.Sprintf("(%s == %s || %s)", lhs, rhs, unordered), nil
	case ir.CmpUNE:
		return fmt.Sprintf("(%s != %s || %s)", lhs, rhs, unordered), nil
	default:
		return "", diag.NewFatal(diag.FatalUnsupportedOpcode, diag.Location{},
			"predicate %d is not a float predicate", ins.FCmp.Pred)
	}
}

// lowerSelect renders a select as a JS ternary (§4.4 "Select").
func (e *Emitter) lowerSelect(ins *ir.Instr) (string, error) {
	cond, err := e.valueText(ins.Select.Cond)
	if err != nil {
		return "", err
	}
	t, err := e.valueText(ins.Select.True)
	if err != nil {
		return "", err
	}
	f, err := e.valueText(ins.Select.False)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s ? %s : %s)", cond, t, f), nil
}

// lowerCast renders a cast (§4.4 "Casts"). Truncation and sign extension
// of 8- and 16-bit widths use the shift-pair idiom, while zero extension
// masks (& 1 / & 255 / & 65535) or applies >>>0; float<->int conversions
// use the ~~ / + / Math_fround idioms.
func (e *Emitter) lowerCast(ins *ir.Instr) (string, error) {
	src, err := e.valueText(ins.Cast.Src)
	if err != nil {
		return "", err
	}
	switch ins.Cast.Op {
	case ir.CastTrunc:
		switch ins.Cast.DestType.IntWidth() {
		case 1:
			return fmt.Sprintf("(%s & 1)", src), nil
		case 8:
			return fmt.Sprintf("((%s << 24) >> 24)", src), nil
		case 16:
			return fmt.Sprintf("((%s << 16) >> 16)", src), nil
		default:
			return src, nil
		}
	case ir.CastZExt:
		switch ins.Cast.Src.Type.IntWidth() {
		case 1:
			return fmt.Sprintf("(%s & 1)", src), nil
		case 8:
			return fmt.Sprintf("(%s & 255)", src), nil
		case 16:
			return fmt.Sprintf("(%s & 65535)", src), nil
		default:
			return coerceUnsigned(src), nil
		}
	case ir.CastSExt:
		switch ins.Cast.Src.Type.IntWidth() {
		case 8:
			return fmt.Sprintf("((%s << 24) >> 24)", src), nil
		case 16:
			return fmt.Sprintf("((%s << 16) >> 16)", src), nil
		default:
			return src, nil
		}
	case ir.CastFPExt:
		return fmt.Sprintf("(+%s)", src), nil
	case ir.CastFPTrunc:
		return fmt.Sprintf("Math_fround(%s)", src), nil
	case ir.CastSIToFP:
		if ins.Cast.DestType.Kind == ir.TypeFloat {
			return fmt.Sprintf("Math_fround(%s|0)", src), nil
		}
		return fmt.Sprintf("(+(%s|0))", src), nil
	case ir.CastUIToFP:
		if ins.Cast.DestType.Kind == ir.TypeFloat {
			return fmt.Sprintf("Math_fround(%s>>>0)", src), nil
		}
		return fmt.Sprintf("(+(%s>>>0))", src), nil
	case ir.CastFPToSI:
		return fmt.Sprintf("(~~(%s))", src), nil
	case ir.CastFPToUI:
		return fmt.Sprintf("(~~(%s)>>>0)", src), nil
	case ir.CastPtrToInt, ir.CastIntToPtr:
		return src, nil
	case ir.CastBitCast:
		return e.lowerBitCast(src, ins.Cast.Src.Type, ins.Cast.DestType)
	default:
		return "", diag.NewFatal(diag.FatalUnsupportedOpcode, diag.Location{},
			"unsupported cast opcode %d", ins.Cast.Op)
	}
}

// lowerBitCast reinterprets bits across the int/float divide through the
// tempDoublePtr scratch slot (spec §3's tempDoublePtr, §4.4 "Bitcast via
// scratch"); same-domain bitcasts (int<->int, ptr<->int) are a no-op in
// asm.js's untyped-int representation.
func (e *Emitter) lowerBitCast(src string, from, to *ir.Type) (string, error) {
	switch {
	case from.Kind == ir.TypeFloat && to.IsInteger():
		return fmt.Sprintf("(HEAPF32[%s>>2]=%s,HEAP32[%s>>2])", identTempDoublePtr, src, identTempDoublePtr), nil
	case from.IsInteger() && to.Kind == ir.TypeFloat:
		return fmt.Sprintf("(HEAP32[%s>>2]=%s,HEAPF32[%s>>2])", identTempDoublePtr, src, identTempDoublePtr), nil
	case from.Kind == ir.TypeDouble && to.IsInteger():
		return fmt.Sprintf("(HEAPF64[%s>>3]=%s,HEAP32[%s>>2])", identTempDoublePtr, src, identTempDoublePtr), nil
	case from.IsInteger() && to.Kind == ir.TypeDouble:
		return fmt.Sprintf("(HEAP32[%s>>2]=%s,HEAPF64[%s>>3])", identTempDoublePtr, src, identTempDoublePtr), nil
	default:
		return src, nil
	}
}
