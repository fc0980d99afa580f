package heapimage

import (
	"encoding/binary"
	"testing"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
)

type stubFuncIndexer map[string]int

func (s stubFuncIndexer) FunctionIndex(name string) (int, error) {
	if idx, ok := s[name]; ok {
		return idx, nil
	}
	return 0, &diag.Fatal{Code: diag.FatalMissingGlobalAddress, Message: "no slot for " + name}
}

func TestBuilder_AllocateThenCloseOrdersLargerAlignmentFirst(t *testing.T) {
	dl := ir.DefaultDataLayout()
	globals := []ir.Global{
		{Name: "small", Type: ir.Int8, Alignment: 1, Init: &ir.Constant{Kind: ir.ConstInt, Int: 7}},
		{Name: "big", Type: ir.Float64, Alignment: 8, Init: &ir.Constant{Kind: ir.ConstFloat, Float: 3.5}},
	}
	b := New(Config{GlobalBase: 8}, dl, stubFuncIndexer{})
	if err := b.Allocate(globals); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	bigAddr, ok := b.GlobalAddress("big")
	if !ok {
		t.Fatalf("expected address for big")
	}
	smallAddr, ok := b.GlobalAddress("small")
	if !ok {
		t.Fatalf("expected address for small")
	}
	if bigAddr >= smallAddr {
		t.Errorf("larger alignment class must be placed before smaller: big=%d small=%d", bigAddr, smallAddr)
	}
	if b.MaxGlobalAlign() != 8 {
		t.Errorf("MaxGlobalAlign() = %d, want 8", b.MaxGlobalAlign())
	}
}

func TestBuilder_EmitWritesMaterializedBytes(t *testing.T) {
	dl := ir.DefaultDataLayout()
	globals := []ir.Global{
		{Name: "x", Type: ir.Int32, Alignment: 4, Init: &ir.Constant{Kind: ir.ConstInt, Int: 42}},
	}
	b := New(Config{GlobalBase: 8}, dl, stubFuncIndexer{})
	if err := b.Allocate(globals); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	bag := diag.NewBag(0)
	if err := b.Emit(globals, bag); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	addr, ok := b.GlobalAddress("x")
	if !ok {
		t.Fatalf("expected address for x")
	}
	bytes := b.Bytes()
	off := addr - b.cfg.GlobalBase
	got := binary.LittleEndian.Uint32(bytes[off : off+4])
	if got != 42 {
		t.Errorf("emitted bytes = %d, want 42", got)
	}
}

func TestBuilder_FuncRefWritesTableIndex(t *testing.T) {
	dl := ir.DefaultDataLayout()
	globals := []ir.Global{
		{Name: "fp", Type: ir.Int32, Alignment: 4,
			Init: &ir.Constant{Kind: ir.ConstFuncRef, FuncName: "callee"}},
	}
	b := New(Config{GlobalBase: 8}, dl, stubFuncIndexer{"callee": 5})
	if err := b.Allocate(globals); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	bag := diag.NewBag(0)
	if err := b.Emit(globals, bag); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	addr, _ := b.GlobalAddress("fp")
	off := addr - b.cfg.GlobalBase
	got := binary.LittleEndian.Uint32(b.Bytes()[off : off+4])
	if got != 5 {
		t.Errorf("func ref bytes = %d, want function table index 5", got)
	}
}

func TestBuilder_RelocatableGlobalRefProducesPostSet(t *testing.T) {
	dl := ir.DefaultDataLayout()
	globals := []ir.Global{
		{Name: "base", Type: ir.Int32, Alignment: 4, Init: &ir.Constant{Kind: ir.ConstInt, Int: 1}},
		{Name: "ptr", Type: ir.Ptr, Alignment: 4,
			Init: &ir.Constant{Kind: ir.ConstGlobalRef, GlobalName: "base"}},
	}
	b := New(Config{GlobalBase: 0, Relocatable: true}, dl, stubFuncIndexer{})
	if err := b.Allocate(globals); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	bag := diag.NewBag(0)
	if err := b.Emit(globals, bag); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(b.PostSets()) == 0 {
		t.Errorf("expected at least one post-set for a relocatable global reference")
	}
}

func TestBuilder_AllocateAfterCloseFails(t *testing.T) {
	dl := ir.DefaultDataLayout()
	b := New(Config{}, dl, stubFuncIndexer{})
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Allocate(nil); err == nil {
		t.Errorf("expected Allocate after Close to fail")
	}
}

func TestBuilder_NamedGlobalsSubset(t *testing.T) {
	dl := ir.DefaultDataLayout()
	globals := []ir.Global{
		{Name: "exported", Type: ir.Int32, Alignment: 4, Named: true,
			Init: &ir.Constant{Kind: ir.ConstInt, Int: 1}},
		{Name: "internal", Type: ir.Int32, Alignment: 4,
			Init: &ir.Constant{Kind: ir.ConstInt, Int: 2}},
	}
	b := New(Config{}, dl, stubFuncIndexer{})
	if err := b.Allocate(globals); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	named := b.NamedGlobals()
	if len(named) != 1 || named[0] != "exported" {
		t.Errorf("NamedGlobals() = %v, want [exported]", named)
	}
}
