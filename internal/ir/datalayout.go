package ir

// DataLayout describes target-specific sizes and alignments, exactly the
// "data layout descriptor" the input IR module carries per spec §3. It is
// grounded on the shape of the teacher's internal/layout engine, simplified
// because ir.Type is a plain tree (no aliasing, no interning) rather than an
// interned, potentially cyclic type graph.
type DataLayout struct {
	PointerSize  int // bytes
	PointerAlign int
	MaxGlobalAlign int // default alignment class ceiling when a global omits one
}

// DefaultDataLayout matches the asm.js target: 32-bit pointers, 8-byte
// default global alignment ceiling.
func DefaultDataLayout() DataLayout {
	return DataLayout{PointerSize: 4, PointerAlign: 4, MaxGlobalAlign: 8}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		return n + (align - r)
	}
	return n
}

// AllocSize returns the number of bytes a value of type t occupies,
// including trailing struct padding, per the type's own alignment.
func (dl DataLayout) AllocSize(t *Type) int {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case TypeVoid:
		return 0
	case TypeInt1, TypeInt8:
		return 1
	case TypeInt16:
		return 2
	case TypeInt32, TypeFloat:
		return 4
	case TypeDouble:
		return 8
	case TypePointer:
		return dl.PointerSize
	case TypeArray:
		return dl.AllocSize(t.Elem) * t.NumElts
	case TypeVector:
		return dl.AllocSize(t.Elem) * t.NumElts
	case TypeStruct:
		_, size := dl.structOffsets(t)
		return size
	}
	return 0
}

// Align returns the natural alignment, in bytes, of t.
func (dl DataLayout) Align(t *Type) int {
	if t == nil {
		return 1
	}
	switch t.Kind {
	case TypeVoid:
		return 1
	case TypeInt1, TypeInt8:
		return 1
	case TypeInt16:
		return 2
	case TypeInt32, TypeFloat:
		return 4
	case TypeDouble:
		return 8
	case TypePointer:
		return dl.PointerAlign
	case TypeArray, TypeVector:
		return dl.Align(t.Elem)
	case TypeStruct:
		if t.Packed {
			return 1
		}
		max := 1
		for i := range t.Fields {
			if a := dl.Align(&t.Fields[i]); a > max {
				max = a
			}
		}
		return max
	}
	return 1
}

// structOffsets computes the byte offset of every field and the total,
// padded, struct size.
func (dl DataLayout) structOffsets(t *Type) ([]int, int) {
	offsets := make([]int, len(t.Fields))
	size := 0
	for i := range t.Fields {
		fieldAlign := 1
		if !t.Packed {
			fieldAlign = dl.Align(&t.Fields[i])
		}
		size = roundUp(size, fieldAlign)
		offsets[i] = size
		size += dl.AllocSize(&t.Fields[i])
	}
	size = roundUp(size, dl.Align(t))
	return offsets, size
}

// GetElementOffset returns the byte offset of struct field index idx.
func (dl DataLayout) GetElementOffset(t *Type, idx int) int {
	if t == nil || t.Kind != TypeStruct || idx < 0 || idx >= len(t.Fields) {
		return 0
	}
	offsets, _ := dl.structOffsets(t)
	return offsets[idx]
}

// GetTypeAllocSize is an alias for AllocSize kept under the name used by
// §4.4's GEP walk, matching the vocabulary of the spec text.
func (dl DataLayout) GetTypeAllocSize(t *Type) int {
	return dl.AllocSize(t)
}

// GetPointerBaseWithConstantOffset peels constant-offset GEP expressions
// wrapped around a global reference, accumulating the offset. Used by the
// Global Layout Builder's deconstruction of `add(ptrtoint(base), K)`
// constant expressions (§4.2).
func GetPointerBaseWithConstantOffset(c *Constant) (base *Constant, offset int64) {
	offset = 0
	for c != nil && c.Kind == ConstExpr {
		switch c.Expr.Op {
		case ExprGEP:
			if len(c.Expr.Operands) == 0 {
				return c, offset
			}
			base := c.Expr.Operands[0]
			acc := int64(0)
			for _, idx := range c.Expr.GEPIndices {
				if idx.IsConstant {
					acc += idx.ConstOffset
				} else {
					return c, offset
				}
			}
			offset += acc
			c = base
		case ExprAdd:
			if len(c.Expr.Operands) != 2 {
				return c, offset
			}
			lhs, rhs := c.Expr.Operands[0], c.Expr.Operands[1]
			if rhs.Kind == ConstInt {
				offset += rhs.Int
				c = lhs
				continue
			}
			if lhs.Kind == ConstInt {
				offset += lhs.Int
				c = rhs
				continue
			}
			return c, offset
		case ExprBitCast, ExprPtrToInt, ExprIntToPtr:
			if len(c.Expr.Operands) != 1 {
				return c, offset
			}
			c = c.Expr.Operands[0]
		default:
			return c, offset
		}
	}
	return c, offset
}
