package codegen

import (
	"path/filepath"
	"testing"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/config"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/intrinsics"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/irio"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/trace"
)

func minimalFanoutModule(name string) *ir.Module {
	return &ir.Module{
		TargetTriple: expectedTargetTriple,
		DataLayout:   ir.DefaultDataLayout(),
		Funcs: []ir.Func{
			{
				Name:    name,
				RetType: ir.Int32,
				Blocks: []ir.BasicBlock{
					{
						Term: ir.Terminator{
							Kind: ir.TermRet,
							Ret: ir.RetTerm{HasValue: true,
								Value: ir.Value{Kind: ir.ValueConstant, Const: &ir.Constant{Kind: ir.ConstInt, Int: 0}}},
						},
					},
				},
			},
		},
	}
}

func writeFanoutFixture(t *testing.T, name string, mod *ir.Module) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".ir")
	if err := irio.SaveModule(path, mod); err != nil {
		t.Fatalf("SaveModule: %v", err)
	}
	return path
}

func TestRunAsmjsModules_PreservesJobOrder(t *testing.T) {
	pathA := writeFanoutFixture(t, "a", minimalFanoutModule("fn_a"))
	pathB := writeFanoutFixture(t, "b", minimalFanoutModule("fn_b"))

	jobs := []AsmjsJob{{Path: pathA}, {Path: pathB}}
	results, err := RunAsmjsModules(jobs, config.Default(), intrinsics.Default(), trace.Nop)
	if err != nil {
		t.Fatalf("RunAsmjsModules: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Job.Path != pathA || results[1].Job.Path != pathB {
		t.Errorf("results out of order: %+v", results)
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("results[%d].Err = %v, want nil", i, r.Err)
		}
		if r.Result == nil {
			t.Errorf("results[%d].Result is nil", i)
		}
	}
}

func TestRunAsmjsModules_MissingFixtureReportsPerJobError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.ir")
	jobs := []AsmjsJob{{Path: missing}}
	results, err := RunAsmjsModules(jobs, config.Default(), intrinsics.Default(), trace.Nop)
	if err != nil {
		t.Fatalf("RunAsmjsModules should not fail the whole run for one bad job: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Err == nil {
		t.Errorf("expected a per-job error for a missing fixture")
	}
}
