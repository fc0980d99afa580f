package codegen

import (
	"fmt"
	"strings"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/config"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/functable"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/heapimage"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/intrinsics"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/mangle"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/trace"
)

const expectedTargetTriple = "asmjs-unknown-emscripten"

// Emitter owns all module-wide derived state described in spec §3 (value
// naming, function tables, heap image, inline-JS registry) for the
// duration of a single module emission.
type Emitter struct {
	mod  *ir.Module
	cfg  config.Config
	intr intrinsics.Table
	bag  *diag.Bag

	mangler *mangle.Mangler
	funcs   *functable.Manager
	heap    *heapimage.Builder

	inlineJS      map[string]int // body text -> id
	inlineArities map[int]map[int]bool
	nextInlineID  int

	simdUsed  map[string]bool  // SIMD.js type name -> seen at least once
	redirects map[string]string // original callee name -> redirect target, first seen

	funcBodies []string // rendered function text, in module order
}

// registerInlineJS deduplicates an inline-JS body by its text (§3
// "Inline-JS registry") and records the argument arity observed at this
// call site, returning the stable id used in the emitted call expression.
func (e *Emitter) registerInlineJS(body string, arity int) int {
	if id, ok := e.inlineJS[body]; ok {
		if e.inlineArities[id] == nil {
			e.inlineArities[id] = make(map[int]bool)
		}
		e.inlineArities[id][arity] = true
		return id
	}
	id := e.nextInlineID
	e.nextInlineID++
	e.inlineJS[body] = id
	e.inlineArities[id] = map[int]bool{arity: true}
	return id
}

func (e *Emitter) recordRedirect(name, target string) {
	if e.redirects == nil {
		e.redirects = make(map[string]string)
	}
	e.redirects[name] = target
}

// markSIMDUsed records that a vector type was touched by some SIMD
// instruction, for the `simd*` metadata manifest keys (§6).
func (e *Emitter) markSIMDUsed(t *ir.Type) {
	if e.simdUsed == nil {
		e.simdUsed = make(map[string]bool)
	}
	e.simdUsed[simdTypeName(t)] = true
}

// Result is everything the Module Emitter (§4/§6) produces.
type Result struct {
	Output   string
	Manifest Manifest

	diags []diag.Diagnostic
}

// EmitModule runs the whole pipeline over mod: name mangling, global
// layout, per-function control-flow reconstruction and expression
// lowering, function-table finalization, and manifest assembly.
func EmitModule(mod *ir.Module, cfg config.Config, intr intrinsics.Table) (*Result, error) {
	return EmitModuleTraced(mod, cfg, intr, trace.Nop)
}

// EmitModuleTraced is EmitModule with a Tracer attached: module emission
// stays single-threaded and serial per spec §5, but a host embedding the
// core can observe per-function emission cost as trace.ScopeModule spans
// without the core depending on any particular logging backend.
func EmitModuleTraced(mod *ir.Module, cfg config.Config, intr intrinsics.Table, tracer trace.Tracer) (*Result, error) {
	return EmitModuleObserved(mod, cfg, intr, tracer, nil)
}

// ProgressFunc is called after each function body is lowered, letting a CLI
// driver render per-function emission progress (internal/ui's Bubble Tea
// model) without the core importing any UI package itself.
type ProgressFunc func(name string, index, total int, err error)

// EmitModuleObserved is EmitModule with both a Tracer and a ProgressFunc
// attached. progress may be nil.
func EmitModuleObserved(mod *ir.Module, cfg config.Config, intr intrinsics.Table, tracer trace.Tracer, progress ProgressFunc) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tracer == nil {
		tracer = trace.Nop
	}
	moduleSpan := trace.Begin(tracer, trace.ScopeDriver, "asmjs.emit_module", 0)
	defer moduleSpan.End("")
	bag := diag.NewBag(0)
	if mod.TargetTriple != "" && mod.TargetTriple != expectedTargetTriple {
		bag.Warn(diag.WarnTargetTripleMismatch, diag.Location{},
			fmt.Sprintf("target triple %q does not match expected %q", mod.TargetTriple, expectedTargetTriple))
	}

	e := &Emitter{
		mod:  mod,
		cfg:  cfg,
		intr: intr,
		bag:  bag,
		mangler: mangle.New(cfg.Assertions > 0),
		funcs: functable.New(functable.Config{
			ReservedFunctionPointers:   cfg.ReservedFunctionPointers,
			NoAliasingFunctionPointers: cfg.NoAliasingFunctionPointers,
		}),
		inlineJS:      make(map[string]int),
		inlineArities: make(map[int]map[int]bool),
	}
	e.heap = heapimage.New(heapimage.Config{GlobalBase: cfg.GlobalBase, Relocatable: cfg.Relocatable}, mod.DataLayout, e.funcs)

	// Every address-taken function must have a stable slot before any
	// global initializer or call site can reference it (§4.5).
	for i := range mod.Funcs {
		f := &mod.Funcs[i]
		if f.Attrs.AddressTaken || f.IsDeclaration() {
			sig := ir.Signature(f, cfg.PreciseF32)
			if _, err := e.funcs.FunctionIndexFor(f.Name, sig); err != nil {
				return nil, err
			}
		}
	}

	if err := e.heap.Allocate(mod.Globals); err != nil {
		return nil, err
	}
	if err := e.heap.Close(); err != nil {
		return nil, err
	}
	if err := e.heap.Emit(mod.Globals, bag); err != nil {
		return nil, err
	}

	// Every table an indirect call site can index into must be at its
	// final, power-of-two size before any function body computes a mask
	// against it.
	e.funcs.FinalizeTables()

	total := 0
	for i := range mod.Funcs {
		if !mod.Funcs[i].IsDeclaration() {
			total++
		}
	}
	done := 0
	for i := range mod.Funcs {
		f := &mod.Funcs[i]
		if f.IsDeclaration() {
			continue
		}
		fnSpan := trace.Begin(tracer, trace.ScopeModule, "asmjs.emit_func:"+f.Name, moduleSpan.ID())
		body, err := e.emitFunction(f)
		fnSpan.End("")
		done++
		if progress != nil {
			progress(f.Name, done, total, err)
		}
		if err != nil {
			return nil, err
		}
		e.funcBodies = append(e.funcBodies, body)
	}

	out := e.render()
	manifest := e.buildManifest()
	return &Result{Output: out, Manifest: manifest, diags: bag.Items()}, nil
}

// Diagnostics exposes the accumulated warning-channel diagnostics (§7).
func (r *Result) Diagnostics() []diag.Diagnostic {
	if r == nil {
		return nil
	}
	return r.diags
}

func (e *Emitter) render() string {
	var b strings.Builder
	b.WriteString("// EMSCRIPTEN_START_FUNCTIONS\n")
	for _, fn := range e.funcBodies {
		b.WriteString(fn)
	}
	b.WriteString("// EMSCRIPTEN_END_FUNCTIONS\n\n")

	b.WriteString(e.renderFunctionTables())
	b.WriteString("\n")
	b.WriteString(e.renderPostSets())
	b.WriteString("\n")
	b.WriteString(e.renderMemoryInitializer())
	b.WriteString("\n")
	b.WriteString("// EMSCRIPTEN_METADATA\n")
	b.WriteString(e.Manifest_JSON())
	b.WriteString("\n")
	return b.String()
}

func (e *Emitter) renderFunctionTables() string {
	var b strings.Builder
	sigs := e.funcs.Signatures()
	for _, sig := range sigs {
		table := e.funcs.Table(sig)
		names := make([]string, len(table))
		for i, n := range table {
			if n == "0" {
				names[i] = "0"
			} else {
				names[i] = mangle.Global(n)
			}
		}
		fmt.Fprintf(&b, "var FUNCTION_TABLE_%s = [%s];\n", sig, strings.Join(names, ","))
	}
	return b.String()
}

func (e *Emitter) renderMemoryInitializer() string {
	bytes := e.heap.Bytes()
	nums := make([]string, len(bytes))
	for i, by := range bytes {
		nums[i] = fmt.Sprintf("%d", by)
	}
	body := fmt.Sprintf("allocate([%s], \"i8\", ALLOC_NONE, Runtime.GLOBAL_BASE);\n", strings.Join(nums, ","))
	if e.cfg.EnablePthreads {
		return "if (!ENVIRONMENT_IS_PTHREAD) {\n" + body + "}\n"
	}
	return body
}
