package ir

// InstrKind is the closed sum type over legalized instruction opcodes the
// Expression Lowerer (§4.4) knows how to translate. Every Instr carries
// exactly one populated sub-struct, selected by Kind — the same
// tagged-struct discipline the teacher's MIR uses instead of an interface
// hierarchy, so lowering stays an exhaustive switch rather than open-ended
// dispatch.
type InstrKind uint8

const (
	InstrBinary InstrKind = iota
	InstrICmp
	InstrFCmp
	InstrCast
	InstrLoad
	InstrStore
	InstrAlloca
	InstrGEP
	InstrFence
	InstrAtomicRMW
	InstrPhi
	InstrSelect
	InstrCall
	InstrSIMD
)

// BinOp enumerates integer and floating-point binary opcodes.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFRem
)

// CmpPred enumerates integer and float comparison predicates.
type CmpPred uint8

const (
	CmpEQ CmpPred = iota
	CmpNE
	CmpSLT
	CmpSLE
	CmpSGT
	CmpSGE
	CmpULT
	CmpULE
	CmpUGT
	CmpUGE
	// Float-only predicates; ordered ones use plain JS operators, the
	// unordered/weird ones are synthesized from self-equality per §4.4.
	CmpOEQ
	CmpONE
	CmpOLT
	CmpOLE
	CmpOGT
	CmpOGE
	CmpUEQ
	CmpUNE
	CmpORD
	CmpUNO
)

// CastOp enumerates the cast opcodes named in §4.4.
type CastOp uint8

const (
	CastTrunc CastOp = iota
	CastZExt
	CastSExt
	CastFPExt
	CastFPTrunc
	CastSIToFP
	CastUIToFP
	CastFPToSI
	CastFPToUI
	CastPtrToInt
	CastIntToPtr
	CastBitCast
)

// AtomicOp enumerates read-modify-write atomic opcodes.
type AtomicOp uint8

const (
	AtomicXchg AtomicOp = iota
	AtomicAdd
	AtomicSub
	AtomicAnd
	AtomicNand
	AtomicOr
	AtomicXor
	AtomicMax
	AtomicMin
	AtomicUMax
	AtomicUMin
)

// SIMDOp enumerates vector opcodes (§4.4 "SIMD").
type SIMDOp uint8

const (
	SIMDSplat SIMDOp = iota
	SIMDExtractLane
	SIMDInsertLane
	SIMDSwizzle // same-vector shuffle
	SIMDShuffle // two-vector shuffle
	SIMDBinary  // lane-wise arithmetic, reuses BinOp in SIMDInstr.Bin
	SIMDCmp     // lane-wise comparison, reuses CmpPred in SIMDInstr.Pred
	SIMDBitCast // fromXxxBits reinterpretation
	SIMDShiftBySplat
	SIMDShiftUnrolled
)

type BinaryInstr struct {
	Op  BinOp
	LHS Value
	RHS Value
}

type ICmpInstr struct {
	Pred CmpPred
	LHS  Value
	RHS  Value
}

type FCmpInstr struct {
	Pred CmpPred
	LHS  Value
	RHS  Value
}

type CastInstr struct {
	Op       CastOp
	Src      Value
	DestType *Type
}

type LoadInstr struct {
	Addr       Value
	Type       *Type
	Alignment  int
	Volatile   bool
	FromAbsoluteConstant bool // segfault marker per §4.4
	PartialLanes int         // 0 = full width; else masked SIMD load width in lanes
}

type StoreInstr struct {
	Addr      Value
	Val       Value
	Alignment int
	Volatile  bool
	PartialLanes int
}

// AllocaInstr is a stack allocation. StaticEntryBlock and FrameOffset are
// filled in by the stack-slot analysis described in §4.4; Nativized marks
// an address-never-taken slot promoted to a plain JS var.
type AllocaInstr struct {
	AllocType        *Type
	ArraySize        Value // zero Value{} when not an array alloca
	IsArray          bool
	StaticEntryBlock bool
	FrameOffset      int
	Nativized        bool
	Dynamic          bool
}

type GEPIndexOperand struct {
	IsConstant  bool
	ConstIndex  int64
	Index       Value // non-constant index
	IsStructIdx bool
	StructIdx   int
}

type GEPInstr struct {
	Base    Value
	BaseTy  *Type // pointee type of Base
	Indices []GEPIndexOperand
}

type FenceInstr struct{}

type AtomicRMWInstr struct {
	Op   AtomicOp
	Addr Value
	Val  Value
}

// PhiIncoming is one (predecessor block, value) pair.
type PhiIncoming struct {
	Pred  int // predecessor block's dense index
	Value Value
}

type PhiInstr struct {
	Type     *Type
	Incoming []PhiIncoming
}

type SelectInstr struct {
	Cond Value
	True Value
	False Value
}

// CallInstr covers both direct and indirect calls (§4.6). Indirect calls
// have Callee.Kind == ValueInstr/ValueParam with a pointer type; direct
// calls have Callee.Kind == ValueGlobal.
type CallInstr struct {
	Callee  Value
	Args    []Value
	RetType *Type
	Sig     string // signature string, computed once at call site
}

type SIMDInstr struct {
	Op       SIMDOp
	Operands []Value
	Lane     int // ExtractLane/InsertLane
	Shuffle  []int
	Bin      BinOp
	Pred     CmpPred
	DestType *Type
}

// Instr is one non-terminator instruction. Name/Unnamed identify the
// destination SSA value (empty Name + no users means the RHS is emitted for
// its side effect only, per §4.4).
type Instr struct {
	Kind InstrKind

	// Destination naming; HasResult is false for instructions with no
	// result (stores, fences, void calls).
	HasResult bool
	ResultName string
	ResultUnnamed int64
	ResultType *Type

	Binary   BinaryInstr
	ICmp     ICmpInstr
	FCmp     FCmpInstr
	Cast     CastInstr
	Load     LoadInstr
	Store    StoreInstr
	Alloca   AllocaInstr
	GEP      GEPInstr
	Fence    FenceInstr
	AtomicRMW AtomicRMWInstr
	Phi      PhiInstr
	Select   SelectInstr
	Call     CallInstr
	SIMD     SIMDInstr

	Line int    // debug annotation, 0 = none
	File string
}
