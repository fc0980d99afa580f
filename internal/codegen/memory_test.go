package codegen

import (
	"strings"
	"testing"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/config"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/intrinsics"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
)

// TestEmitModule_NativizedAllocaSkipsFrame exercises calculateNativizedVars
// (§4.4, grounded on JSWriter::calculateNativizedVars): an alloca whose
// address is only ever the operand of a Load or a Store becomes a plain
// JS var instead of an sp-relative frame slot.
func TestEmitModule_NativizedAllocaSkipsFrame(t *testing.T) {
	mod := &ir.Module{
		TargetTriple: expectedTargetTriple,
		DataLayout:   ir.DefaultDataLayout(),
		Funcs: []ir.Func{
			{
				Name:    "roundtrip",
				Params:  []ir.Param{{Name: "v", Type: ir.Int32}},
				RetType: ir.Int32,
				Blocks: []ir.BasicBlock{
					{
						Instrs: []ir.Instr{
							{
								Kind: ir.InstrAlloca, HasResult: true,
								ResultName: "slot", ResultType: ir.Ptr,
								Alloca: ir.AllocaInstr{AllocType: ir.Int32},
							},
							{
								Kind: ir.InstrStore,
								Store: ir.StoreInstr{
									Addr: ir.Value{Kind: ir.ValueInstr, Name: "slot"},
									Val:  ir.Value{Kind: ir.ValueParam, Name: "v", Type: ir.Int32},
								},
							},
							{
								Kind: ir.InstrLoad, HasResult: true,
								ResultName: "r", ResultType: ir.Int32,
								Load: ir.LoadInstr{
									Addr: ir.Value{Kind: ir.ValueInstr, Name: "slot"},
									Type: ir.Int32,
								},
							},
						},
						Term: ir.Terminator{
							Kind: ir.TermRet,
							Ret:  ir.RetTerm{HasValue: true, Value: ir.Value{Kind: ir.ValueInstr, Name: "r"}},
						},
					},
				},
			},
		},
	}

	res, err := EmitModule(mod, config.Default(), intrinsics.Default())
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	out := res.Output
	if !strings.Contains(out, "$slot = ($v|0);") {
		t.Errorf("expected a direct store into the nativized var:\n%s", out)
	}
	if strings.Contains(out, "STACKTOP") {
		t.Errorf("a fully nativized alloca must not touch STACKTOP:\n%s", out)
	}
	if !strings.Contains(out, "$r = ($slot|0);") {
		t.Errorf("expected the load to read the nativized var directly:\n%s", out)
	}
}

// TestEmitModule_AddressTakenAllocaUsesFrame is the negative case: once an
// alloca's address escapes through anything but a Load/Store operand
// (here, a GEP base), it keeps its sp-relative frame slot.
func TestEmitModule_AddressTakenAllocaUsesFrame(t *testing.T) {
	mod := &ir.Module{
		TargetTriple: expectedTargetTriple,
		DataLayout:   ir.DefaultDataLayout(),
		Funcs: []ir.Func{
			{
				Name:    "escapes",
				RetType: ir.Int32,
				Blocks: []ir.BasicBlock{
					{
						Instrs: []ir.Instr{
							{
								Kind: ir.InstrAlloca, HasResult: true,
								ResultName: "slot", ResultType: ir.Ptr,
								Alloca: ir.AllocaInstr{AllocType: ir.Int32},
							},
							{
								Kind: ir.InstrGEP, HasResult: true,
								ResultName: "p", ResultType: ir.Ptr,
								GEP: ir.GEPInstr{
									Base:   ir.Value{Kind: ir.ValueInstr, Name: "slot"},
									BaseTy: ir.Int32,
									Indices: []ir.GEPIndexOperand{
										{IsConstant: true, ConstIndex: 0},
									},
								},
							},
						},
						Term: ir.Terminator{
							Kind: ir.TermRet,
							Ret:  ir.RetTerm{HasValue: true, Value: ir.Value{Kind: ir.ValueInstr, Name: "p"}},
						},
					},
				},
			},
		},
	}

	res, err := EmitModule(mod, config.Default(), intrinsics.Default())
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	out := res.Output
	if !strings.Contains(out, "STACKTOP") {
		t.Errorf("an address-taken alloca must keep its frame slot:\n%s", out)
	}
}
