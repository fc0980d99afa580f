package ir

// ValueKind distinguishes the provenance of an SSA operand.
type ValueKind uint8

const (
	ValueInstr ValueKind = iota
	ValueParam
	ValueConstant
	ValueGlobal
)

// Value is an SSA operand: either a reference to another instruction's
// result, a function parameter, a constant, or a global symbol. Name is the
// front-end-supplied identifier (possibly empty, in which case the Name
// Mangler assigns a monotonic id, §4.1).
type Value struct {
	Kind     ValueKind
	Type     *Type
	Name     string // ValueInstr / ValueParam
	Const    *Constant
	Global   string
	UnnamedID int64 // valid when Name == "" and Kind == ValueInstr
}
