package codegen

import (
	"golang.org/x/sync/errgroup"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/config"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/intrinsics"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/irio"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/trace"
)

// AsmjsJob is one IR fixture the asm.js backend should emit.
type AsmjsJob struct {
	Path string // source of the ir.Module, via internal/irio
}

// AsmjsJobResult pairs a job with its outcome. Exactly one of Result/Err is
// set.
type AsmjsJobResult struct {
	Job    AsmjsJob
	Result *Result
	Err    error
}

// RunAsmjsModules loads and emits each job's IR module. Per spec §5, a
// single EmitModule call is single-threaded and serial; this fan-out
// parallelizes only *across* wholly independent emission contexts, using
// golang.org/x/sync/errgroup the same way the teacher's driver package
// fans out independent diagnose jobs. Results are returned in job order
// regardless of completion order.
func RunAsmjsModules(jobs []AsmjsJob, cfg config.Config, intr intrinsics.Table, tracer trace.Tracer) ([]AsmjsJobResult, error) {
	results := make([]AsmjsJobResult, len(jobs))
	var g errgroup.Group
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			mod, err := irio.LoadModule(job.Path)
			if err != nil {
				results[i] = AsmjsJobResult{Job: job, Err: err}
				return nil
			}
			res, err := EmitModuleTraced(mod, cfg, intr, tracer)
			results[i] = AsmjsJobResult{Job: job, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
