package codegen

import (
	"fmt"
	"strings"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
)

// simdTypeName maps a legalized vector type to its SIMD.js type name by
// (integer?, element_bits, lane_count), per spec §4.4 "SIMD": vector types
// are padded to 128 bits, so lane count is always 128/element_bits.
func simdTypeName(t *ir.Type) string {
	if t == nil || t.Elem == nil {
		return "Int32x4"
	}
	if t.Elem.Kind == ir.TypeDouble {
		return "Float64x2"
	}
	if t.Elem.Kind == ir.TypeFloat {
		return "Float32x4"
	}
	switch t.Elem.IntWidth() {
	case 8:
		return "Int8x16"
	case 16:
		return "Int16x8"
	default:
		return "Int32x4"
	}
}

// simdCtor names the SIMD.js constructor for a legalized vector type
// (spec §4.4 "SIMD" enrichment).
func simdCtor(t *ir.Type) string {
	return "SIMD." + simdTypeName(t)
}

var simdBinOp = map[ir.BinOp]string{
	ir.OpAdd: "add", ir.OpFAdd: "add",
	ir.OpSub: "sub", ir.OpFSub: "sub",
	ir.OpMul: "mul", ir.OpFMul: "mul",
	ir.OpFDiv: "div",
	ir.OpAnd: "and", ir.OpOr: "or", ir.OpXor: "xor",
}

var simdCmpOp = map[ir.CmpPred]string{
	ir.CmpEQ: "equal", ir.CmpOEQ: "equal",
	ir.CmpNE: "notEqual", ir.CmpONE: "notEqual",
	ir.CmpSLT: "lessThan", ir.CmpOLT: "lessThan",
	ir.CmpSGT: "greaterThan", ir.CmpOGT: "greaterThan",
}

// lowerSIMD renders a vector instruction against the SIMD.js surface named
// in spec §4.4's enrichment note. This is deliberately the thinnest slice
// of the lowerer: full SIMD.js has far more lane-count/type combinations
// than this backend's legalized IR ever needs to express (§9).
func (e *Emitter) lowerSIMD(ins *ir.Instr) (string, error) {
	e.markSIMDUsed(ins.SIMD.DestType)
	ops := make([]string, len(ins.SIMD.Operands))
	for i, v := range ins.SIMD.Operands {
		t, err := e.valueText(v)
		if err != nil {
			return "", err
		}
		ops[i] = t
	}
	ctor := simdCtor(ins.SIMD.DestType)
	switch ins.SIMD.Op {
	case ir.SIMDSplat:
		return fmt.Sprintf("%s.splat(%s)", ctor, ops[0]), nil
	case ir.SIMDExtractLane:
		return fmt.Sprintf("%s.extractLane(%s, %d)", ctor, ops[0], ins.SIMD.Lane), nil
	case ir.SIMDInsertLane:
		return fmt.Sprintf("%s.replaceLane(%s, %d, %s)", ctor, ops[0], ins.SIMD.Lane, ops[1]), nil
	case ir.SIMDSwizzle:
		return fmt.Sprintf("%s.swizzle(%s, %s)", ctor, ops[0], laneList(ins.SIMD.Shuffle)), nil
	case ir.SIMDShuffle:
		return fmt.Sprintf("%s.shuffle(%s, %s, %s)", ctor, ops[0], ops[1], laneList(ins.SIMD.Shuffle)), nil
	case ir.SIMDBinary:
		name, ok := simdBinOp[ins.SIMD.Bin]
		if !ok {
			return "", diag.NewFatal(diag.FatalUnsupportedVector, diag.Location{},
				"no SIMD binary op for %d", ins.SIMD.Bin)
		}
		return fmt.Sprintf("%s.%s(%s, %s)", ctor, name, ops[0], ops[1]), nil
	case ir.SIMDCmp:
		name, ok := simdCmpOp[ins.SIMD.Pred]
		if !ok {
			return "", diag.NewFatal(diag.FatalUnsupportedVector, diag.Location{},
				"no SIMD comparison for predicate %d", ins.SIMD.Pred)
		}
		return fmt.Sprintf("%s.%s(%s, %s)", ctor, name, ops[0], ops[1]), nil
	case ir.SIMDBitCast:
		srcName := "Int32x4"
		if len(ins.SIMD.Operands) > 0 {
			srcName = simdTypeName(ins.SIMD.Operands[0].Type)
		}
		return fmt.Sprintf("%s.from%sBits(%s)", ctor, srcName, ops[0]), nil
	case ir.SIMDShiftBySplat, ir.SIMDShiftUnrolled:
		return fmt.Sprintf("%s.shiftLeftByScalar(%s, %s)", ctor, ops[0], ops[1]), nil
	default:
		return "", diag.NewFatal(diag.FatalUnsupportedVector, diag.Location{},
			"unsupported SIMD opcode %d", ins.SIMD.Op)
	}
}

func laneList(lanes []int) string {
	parts := make([]string, len(lanes))
	for i, l := range lanes {
		parts[i] = fmt.Sprintf("%d", l)
	}
	return strings.Join(parts, ", ")
}
