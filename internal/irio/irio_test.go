package irio

import (
	"path/filepath"
	"testing"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	mod := &ir.Module{
		TargetTriple: "asmjs-unknown-emscripten",
		DataLayout:   ir.DefaultDataLayout(),
		Globals: []ir.Global{
			{Name: "g", Type: ir.Int32, Alignment: 4,
				Init: &ir.Constant{Kind: ir.ConstInt, Int: 7}},
		},
		Funcs: []ir.Func{
			{
				Name:    "main",
				RetType: ir.Int32,
				Blocks: []ir.BasicBlock{
					{
						Term: ir.Terminator{
							Kind: ir.TermRet,
							Ret:  ir.RetTerm{HasValue: true, Value: ir.Value{Kind: ir.ValueConstant, Const: &ir.Constant{Kind: ir.ConstInt, Int: 0}}},
						},
					},
				},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "fixture.ir")
	if err := SaveModule(path, mod); err != nil {
		t.Fatalf("SaveModule: %v", err)
	}

	got, err := LoadModule(path)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}

	if got.TargetTriple != mod.TargetTriple {
		t.Errorf("TargetTriple = %q, want %q", got.TargetTriple, mod.TargetTriple)
	}
	if len(got.Globals) != 1 || got.Globals[0].Name != "g" {
		t.Fatalf("Globals round-trip mismatch: %+v", got.Globals)
	}
	if got.Globals[0].Init == nil || got.Globals[0].Init.Int != 7 {
		t.Errorf("global initializer round-trip mismatch: %+v", got.Globals[0].Init)
	}
	if len(got.Funcs) != 1 || got.Funcs[0].Name != "main" {
		t.Fatalf("Funcs round-trip mismatch: %+v", got.Funcs)
	}
	if len(got.Funcs[0].Blocks) != 1 || got.Funcs[0].Blocks[0].Term.Kind != ir.TermRet {
		t.Errorf("function body round-trip mismatch: %+v", got.Funcs[0].Blocks)
	}
}

func TestLoadModule_MissingFileErrors(t *testing.T) {
	if _, err := LoadModule(filepath.Join(t.TempDir(), "does-not-exist.ir")); err == nil {
		t.Errorf("expected an error loading a nonexistent fixture")
	}
}
