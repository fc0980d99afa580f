package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/mangle"
)

// valueText renders a Value as a JS expression: a mangled local/param
// reference, a heap address or table index for a global, or an inline
// constant literal (spec §4.1 "Value-to-name mapping", §4.4).
func (e *Emitter) valueText(v ir.Value) (string, error) {
	switch v.Kind {
	case ir.ValueInstr, ir.ValueParam:
		if v.Name != "" {
			return mangle.Local(v.Name), nil
		}
		return mangle.Unnamed(v.UnnamedID), nil
	case ir.ValueConstant:
		return e.constText(v.Const, v.Type)
	case ir.ValueGlobal:
		return e.globalRefText(v.Global)
	default:
		return "0", nil
	}
}

// globalRefText resolves a bare global-symbol reference to its inline
// numeric form: a heap address for a data global, or a function-table
// slot index for a function symbol used as a value.
func (e *Emitter) globalRefText(name string) (string, error) {
	if addr, ok := e.heap.GlobalAddress(name); ok {
		return strconv.Itoa(addr), nil
	}
	if idx, err := e.funcs.FunctionIndex(name); err == nil {
		return strconv.Itoa(idx), nil
	}
	return "", diag.NewFatal(diag.FatalMissingGlobalAddress, diag.Location{},
		"no address or table slot recorded for global %q", name)
}

// constText renders a Constant as an inline JS literal, per spec §4.2's
// materialization rules reused here for operand position instead of byte
// position.
func (e *Emitter) constText(c *ir.Constant, t *ir.Type) (string, error) {
	if c == nil {
		return "0", nil
	}
	switch c.Kind {
	case ir.ConstInt:
		return strconv.FormatInt(c.Int, 10), nil
	case ir.ConstFloat:
		if t != nil && t.Kind == ir.TypeFloat {
			return fmt.Sprintf("Math_fround(%s)", formatFloatLiteral(c.Float)), nil
		}
		return formatFloatLiteral(c.Float), nil
	case ir.ConstNull, ir.ConstUndef, ir.ConstZeroAggregate:
		return "0", nil
	case ir.ConstFuncRef:
		idx, err := e.funcs.FunctionIndex(c.FuncName)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(idx), nil
	case ir.ConstGlobalRef, ir.ConstAlias:
		return e.globalRefText(c.GlobalName)
	case ir.ConstBlockAddress:
		return strconv.Itoa(c.BlockIndex), nil
	case ir.ConstExpr:
		base, extra := ir.GetPointerBaseWithConstantOffset(c)
		baseText, err := e.constText(base, t)
		if err != nil {
			return "", err
		}
		if extra == 0 {
			return baseText, nil
		}
		return fmt.Sprintf("(%s + %d)|0", baseText, extra), nil
	case ir.ConstDataSequential:
		// A raw-byte constant can't appear as an inline scalar operand; it
		// only ever shows up as a global initializer, handled by heapimage.
		return "", diag.NewFatal(diag.FatalUnsupportedConstant, diag.Location{},
			"data-sequential constant used as inline operand")
	default:
		return "", diag.NewFatal(diag.FatalUnsupportedConstant, diag.Location{},
			"constant kind %d not valid as an inline operand", c.Kind)
	}
}

// formatFloatLiteral renders f as a JS numeric literal that always carries
// a decimal point, so the asm.js validator sees a double literal rather
// than an integer one.
func formatFloatLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// coerce wraps expr in the type-appropriate asm.js coercion annotation
// (spec §4.4's `|0` / `>>>0` / `+x` / `Math_fround` idioms).
func coerce(expr string, t *ir.Type) string {
	if t == nil {
		return expr
	}
	switch t.Kind {
	case ir.TypeDouble:
		return "(+" + expr + ")"
	case ir.TypeFloat:
		return "Math_fround(" + expr + ")"
	case ir.TypeVoid:
		return expr
	default:
		return "(" + expr + "|0)"
	}
}

func coerceUnsigned(expr string) string {
	return "(" + expr + ">>>0)"
}
