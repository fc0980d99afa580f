package codegen

import (
	"fmt"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
)

// lowerLoad renders a HeapView-indexed read (§4.4 "Loads and stores"). A
// misaligned load (Alignment less than the natural alignment of Type) is
// gathered byte-by-byte instead of indexing the naturally-aligned view; a
// warning is recorded on the diagnostics channel when WarnOnUnaligned is set.
func (e *Emitter) lowerLoad(fe *funcEmitter, ins *ir.Instr) (string, error) {
	addr, err := e.valueText(ins.Load.Addr)
	if err != nil {
		return "", err
	}
	if _, ok := fe.nativized[addr]; ok {
		return addr, nil
	}
	width := e.mod.DataLayout.AllocSize(ins.Load.Type)
	natural := e.mod.DataLayout.Align(ins.Load.Type)
	if ins.Load.Alignment > 0 && ins.Load.Alignment < natural && width > 1 {
		if e.cfg.WarnOnUnaligned {
			e.bag.Warn(diag.WarnMisalignedAccess, diag.Location{Func: fe.f.Name, Line: ins.Line, File: ins.File},
				fmt.Sprintf("misaligned load of width %d, alignment %d", width, ins.Load.Alignment))
		}
		return e.gatherUnalignedLoad(addr, width, ins.Load.Type.IsFloatingPoint())
	}
	view := HeapView(width, ins.Load.Type.IsFloatingPoint(), true)
	return fmt.Sprintf("%s[(%s)>>%d]", view, addr, log2(width)), nil
}

// gatherUnalignedLoad reads a multi-byte value one HEAP8 byte at a time
// and reassembles it, the byte-gather scheme spec §8's misaligned-load
// scenario exercises. Float results are reassembled through the same
// tempDoublePtr scratch the bitcast lowering uses.
func (e *Emitter) gatherUnalignedLoad(addr string, width int, float bool) (string, error) {
	terms := make([]string, width)
	for i := 0; i < width; i++ {
		shift := i * 8
		if shift == 0 {
			terms[i] = fmt.Sprintf("(HEAP8[(%s)+%d>>0]&255)", addr, i)
		} else {
			terms[i] = fmt.Sprintf("((HEAP8[(%s)+%d>>0]&255)<<%d)", addr, i, shift)
		}
	}
	joined := terms[0]
	for _, t := range terms[1:] {
		joined = joined + "|" + t
	}
	intExpr := "(" + joined + ")"
	if !float {
		return intExpr, nil
	}
	if width == 4 {
		return fmt.Sprintf("(HEAP32[%s>>2]=%s,HEAPF32[%s>>2])", identTempDoublePtr, intExpr, identTempDoublePtr), nil
	}
	if width == 8 {
		copies := ""
		for i := 0; i < width; i++ {
			copies += fmt.Sprintf("HEAP8[%s+%d>>0]=HEAP8[(%s)+%d>>0],", identTempDoublePtr, i, addr, i)
		}
		return "(" + copies + fmt.Sprintf("HEAPF64[%s>>3])", identTempDoublePtr), nil
	}
	return intExpr, nil
}

// lowerStore renders a full store statement (§4.4). Stores have no result,
// so unlike other instructions this returns the complete statement text.
func (e *Emitter) lowerStore(fe *funcEmitter, ins *ir.Instr) (string, error) {
	addr, err := e.valueText(ins.Store.Addr)
	if err != nil {
		return "", err
	}
	val, err := e.valueText(ins.Store.Val)
	if err != nil {
		return "", err
	}
	t := ins.Store.Val.Type
	if _, ok := fe.nativized[addr]; ok {
		return fmt.Sprintf("%s = %s;\n", addr, coerce(val, t)), nil
	}
	width := e.mod.DataLayout.AllocSize(t)
	natural := e.mod.DataLayout.Align(t)
	if ins.Store.Alignment > 0 && ins.Store.Alignment < natural && width > 1 {
		if e.cfg.WarnOnUnaligned {
			e.bag.Warn(diag.WarnMisalignedAccess, diag.Location{Func: fe.f.Name, Line: ins.Line, File: ins.File},
				fmt.Sprintf("misaligned store of width %d, alignment %d", width, ins.Store.Alignment))
		}
		return e.scatterUnalignedStore(addr, val, width, t.IsFloatingPoint())
	}
	view := HeapView(width, t.IsFloatingPoint(), true)
	return fmt.Sprintf("%s[(%s)>>%d] = %s;\n", view, addr, log2(width), coerce(val, t)), nil
}

func (e *Emitter) scatterUnalignedStore(addr, val string, width int, float bool) (string, error) {
	intVal := val
	if float && width == 4 {
		intVal = fmt.Sprintf("(HEAPF32[%s>>2]=%s,HEAP32[%s>>2])", identTempDoublePtr, val, identTempDoublePtr)
	}
	var buf string
	for i := 0; i < width; i++ {
		shift := i * 8
		buf += fmt.Sprintf("HEAP8[(%s)+%d>>0] = (%s>>%d)&255;\n", addr, i, intVal, shift)
	}
	return buf, nil
}

// lowerAlloca renders a stack-slot address for an alloca whose address may
// escape. A nativized alloca (calculateNativizedVars, §4.4) never reaches
// here — lowerInstr declares it a plain var instead. What remains is a
// dynamic alloca (non-constant array size), which bumps STACKTOP at run
// time, or a static one, packed into the function's frame in encounter
// order by funcEmitter.frameOffsetFor.
func (e *Emitter) lowerAlloca(fe *funcEmitter, ins *ir.Instr) (string, error) {
	if ins.Alloca.Dynamic || (ins.Alloca.IsArray && ins.Alloca.ArraySize.Kind != ir.ValueConstant) {
		sizeExpr, err := e.dynamicAllocaSize(ins)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(STACKTOP = (STACKTOP + %s)|0, (STACKTOP - %s)|0)", sizeExpr, sizeExpr), nil
	}
	off := fe.frameOffsetFor(ins)
	return fmt.Sprintf("(sp + %d)", off), nil
}

func (e *Emitter) dynamicAllocaSize(ins *ir.Instr) (string, error) {
	elemSize := e.mod.DataLayout.AllocSize(ins.Alloca.AllocType)
	countExpr, err := e.valueText(ins.Alloca.ArraySize)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("((Math_imul(%s, %d) + 7) & ~7)", countExpr, elemSize), nil
}

// lowerGEP walks the index list computing a constant-plus-dynamic byte
// offset from Base, per spec §4.4 "GEP" and the alloca/GEP walk it
// describes.
func (e *Emitter) lowerGEP(ins *ir.Instr) (string, error) {
	base, err := e.valueText(ins.GEP.Base)
	if err != nil {
		return "", err
	}
	dl := e.mod.DataLayout
	curType := ins.GEP.BaseTy
	constOff := int64(0)
	var dynTerms []string

	for i, idx := range ins.GEP.Indices {
		if idx.IsStructIdx {
			constOff += int64(dl.GetElementOffset(curType, idx.StructIdx))
			if curType != nil && idx.StructIdx < len(curType.Fields) {
				curType = &curType.Fields[idx.StructIdx]
			}
			continue
		}
		var elemTy *ir.Type
		if i == 0 {
			elemTy = curType
		} else if curType != nil {
			elemTy = curType.Elem
		}
		stride := dl.GetTypeAllocSize(elemTy)
		if idx.IsConstant {
			constOff += idx.ConstIndex * int64(stride)
		} else {
			idxText, err := e.valueText(idx.Index)
			if err != nil {
				return "", err
			}
			dynTerms = append(dynTerms, fmt.Sprintf("Math_imul(%s, %d)", idxText, stride))
		}
		if elemTy != nil {
			curType = elemTy
		}
	}

	expr := base
	if constOff != 0 {
		expr = fmt.Sprintf("(%s + %d)", expr, constOff)
	}
	for _, d := range dynTerms {
		expr = fmt.Sprintf("(%s + %s)", expr, d)
	}
	return expr, nil
}
