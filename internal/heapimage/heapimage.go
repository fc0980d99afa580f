// Package heapimage implements the Global Layout Builder (spec §4.2): the
// two-phase build of the initialized byte image for every global with an
// initializer. Phase 1 allocates addresses by alignment class; phase 2
// writes bytes and records deferred "post-set" assignments for values not
// knowable until all globals are laid out.
package heapimage

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"fortio.org/safecast"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
)

const defaultAlignClass = 8

// FuncIndexer resolves a function name to its stable function-table slot
// index — supplied by the Function Table Manager (kept as a narrow
// interface so heapimage never imports functable directly).
type FuncIndexer interface {
	FunctionIndex(name string) (int, error)
}

// Config mirrors the subset of spec §6's configuration record the Global
// Layout Builder consults.
type Config struct {
	GlobalBase  int
	Relocatable bool
}

// Builder owns the alignment-partitioned heap image and the derived address
// maps described in spec §3.
type Builder struct {
	cfg    Config
	dl     ir.DataLayout
	funcs  FuncIndexer

	// phase 1 state
	classVecLen   map[int]int // class bits -> current vector length (bytes)
	globalAddr    map[string]addrEntry
	order         []string // globals in encounter order, for deterministic phase 2

	// closed after phase 1
	closed       bool
	maxAlign     int
	padding      int
	classStart   map[int]int // class -> absolute start address

	// phase 2 state
	classBytes map[int][]byte
	postSets   []string
	namedGlobals []string
}

type addrEntry struct {
	offset int
	class  int
}

// New creates a Builder for the given configuration and data layout.
func New(cfg Config, dl ir.DataLayout, funcs FuncIndexer) *Builder {
	return &Builder{
		cfg:         cfg,
		dl:          dl,
		funcs:       funcs,
		classVecLen: make(map[int]int),
		globalAddr:  make(map[string]addrEntry),
		classBytes:  make(map[int][]byte),
	}
}

// alignClass rounds align up to a power of two, defaulting to 8 (§4.2).
func alignClass(align int) int {
	if align <= 0 {
		return defaultAlignClass
	}
	if align&(align-1) == 0 {
		return align
	}
	return 1 << bits.Len(uint(align))
}

// Allocate runs phase 1 over every global with a materialized initializer,
// recording its offset inside its alignment-class byte vector.
func (b *Builder) Allocate(globals []ir.Global) error {
	if b.closed {
		return fmt.Errorf("heapimage: Allocate called after Close")
	}
	for i := range globals {
		g := &globals[i]
		if g.Init == nil {
			continue
		}
		class := alignClass(g.Alignment)
		curLen := b.classVecLen[class]
		curLen = roundUp(curLen, class)
		b.globalAddr[g.Name] = addrEntry{offset: curLen, class: class}
		size := b.dl.AllocSize(g.Type)
		b.classVecLen[class] = curLen + size
		b.order = append(b.order, g.Name)
		if g.Named {
			b.namedGlobals = append(b.namedGlobals, g.Name)
		}
	}
	return nil
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

// Close finalizes phase 1: computes MaxGlobalAlign and the absolute start of
// every alignment class, placing larger classes first. Must be called
// exactly once before GlobalAddress or Close-dependent queries are used.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	classes := make([]int, 0, len(b.classVecLen))
	for c := range b.classVecLen {
		classes = append(classes, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(classes)))

	maxAlign := defaultAlignClass
	for _, c := range classes {
		if c > maxAlign {
			maxAlign = c
		}
	}
	b.maxAlign = maxAlign

	padding := 0
	if !b.cfg.Relocatable {
		base := b.cfg.GlobalBase
		if r := base % maxAlign; r != 0 {
			padding = maxAlign - r
		}
	}
	b.padding = padding

	start := map[int]int{}
	running := b.cfg.GlobalBase + padding
	for _, c := range classes {
		start[c] = running
		size, err := safecast.Conv[int](b.classVecLen[c])
		if err != nil {
			return fmt.Errorf("heapimage: class %d length overflow: %w", c, err)
		}
		running += size
	}
	b.classStart = start

	for _, c := range classes {
		b.classBytes[c] = make([]byte, b.classVecLen[c])
	}
	b.closed = true
	return nil
}

// GlobalAddress returns the absolute address of a laid-out global. Valid
// only after Close.
func (b *Builder) GlobalAddress(name string) (int, bool) {
	e, ok := b.globalAddr[name]
	if !ok {
		return 0, false
	}
	start, ok := b.classStart[e.class]
	if !ok {
		return 0, false
	}
	return start + e.offset, true
}

// MaxGlobalAlign returns the maximum alignment class observed, valid after
// Close.
func (b *Builder) MaxGlobalAlign() int { return b.maxAlign }

// NamedGlobals returns the subset of globals exposed by symbolic name under
// relocation (§3 "Named-globals export").
func (b *Builder) NamedGlobals() []string { return b.namedGlobals }

// PostSets returns the ordered list of deferred JS assignment strings
// accumulated during phase 2.
func (b *Builder) PostSets() []string { return b.postSets }

// Emit runs phase 2 over the same globals passed to Allocate, writing
// materialized bytes little-endian into the class vectors and pushing
// post-sets for constant expressions that can't be resolved yet.
func (b *Builder) Emit(globals []ir.Global, bag *diag.Bag) error {
	if !b.closed {
		if err := b.Close(); err != nil {
			return err
		}
	}
	byName := make(map[string]*ir.Global, len(globals))
	for i := range globals {
		byName[globals[i].Name] = &globals[i]
	}
	for _, name := range b.order {
		g := byName[name]
		if g == nil || g.Init == nil {
			continue
		}
		entry := b.globalAddr[name]
		vec := b.classBytes[entry.class]
		if err := b.writeConstant(vec, entry.offset, g.Init, g.Type); err != nil {
			return err
		}
	}
	return nil
}

// writeConstant writes c's materialized bytes at off within vec, or, for a
// constant expression, writes a zero placeholder and pushes a post-set
// (§4.2 phase 2).
func (b *Builder) writeConstant(vec []byte, off int, c *ir.Constant, t *ir.Type) error {
	switch c.Kind {
	case ir.ConstInt:
		return writeIntBytes(vec, off, c.Int, b.dl.AllocSize(t))
	case ir.ConstFloat:
		if t != nil && t.Kind == ir.TypeFloat {
			binary.LittleEndian.PutUint32(vec[off:], math.Float32bits(float32(c.Float)))
		} else {
			binary.LittleEndian.PutUint64(vec[off:], math.Float64bits(c.Float))
		}
		return nil
	case ir.ConstDataSequential:
		copy(vec[off:], c.Bytes)
		return nil
	case ir.ConstZeroAggregate, ir.ConstNull, ir.ConstUndef:
		return nil // already zero
	case ir.ConstArray, ir.ConstVector, ir.ConstStruct:
		return b.writeAggregate(vec, off, c, t)
	case ir.ConstExpr:
		return b.writeExpr(vec, off, c, t)
	case ir.ConstFuncRef:
		return b.writeFuncRef(vec, off, c, t)
	case ir.ConstGlobalRef, ir.ConstAlias:
		return b.writeGlobalRef(vec, off, c, t)
	case ir.ConstBlockAddress:
		return writeIntBytes(vec, off, int64(c.BlockIndex), b.dl.AllocSize(t))
	default:
		return fmt.Errorf("heapimage: %w", &diag.Fatal{
			Code: diag.FatalUnsupportedConstant, Message: "unexpected constant kind"})
	}
}

func (b *Builder) writeAggregate(vec []byte, off int, c *ir.Constant, t *ir.Type) error {
	elemOffset := off
	for i, e := range c.Elements {
		var elemTy *ir.Type
		switch {
		case t != nil && t.Kind == ir.TypeStruct && i < len(t.Fields):
			elemTy = &t.Fields[i]
			elemOffset = off + b.dl.GetElementOffset(t, i)
		case t != nil && (t.Kind == ir.TypeArray || t.Kind == ir.TypeVector):
			elemTy = t.Elem
		}
		if err := b.writeConstant(vec, elemOffset, e, elemTy); err != nil {
			return err
		}
		if t == nil || t.Kind != ir.TypeStruct {
			elemOffset += b.dl.AllocSize(elemTy)
		}
	}
	return nil
}

// writeExpr handles the deconstruction of a constant expression: a
// function reference, external global, internal global under relocation,
// or a lowered GEP of the form add(ptrtoint(base), K) (§4.2).
func (b *Builder) writeExpr(vec []byte, off int, c *ir.Constant, t *ir.Type) error {
	base, extra := ir.GetPointerBaseWithConstantOffset(c)
	switch base.Kind {
	case ir.ConstFuncRef:
		return b.writeFuncRefAt(vec, off, base, extra, t)
	case ir.ConstGlobalRef:
		return b.writeGlobalRefAt(vec, off, base, extra, t)
	default:
		// Best effort: the base resolved to something materializable once
		// the constant offset is folded in.
		return b.writeConstant(vec, off, base, t)
	}
}

func (b *Builder) writeFuncRef(vec []byte, off int, c *ir.Constant, t *ir.Type) error {
	return b.writeFuncRefAt(vec, off, c, 0, t)
}

func (b *Builder) writeFuncRefAt(vec []byte, off int, c *ir.Constant, extra int64, t *ir.Type) error {
	if c.Relocatable {
		idx, err := b.funcs.FunctionIndex(c.FuncName)
		if err != nil {
			return err
		}
		b.postSets = append(b.postSets,
			fmt.Sprintf("HEAP32[(%d+%d)>>2]=(%d+%d)|0;", off, extra, idx, 0))
		return nil
	}
	idx, err := b.funcs.FunctionIndex(c.FuncName)
	if err != nil {
		return err
	}
	return writeIntBytes(vec, off, int64(idx)+extra, b.dl.AllocSize(t))
}

func (b *Builder) writeGlobalRef(vec []byte, off int, c *ir.Constant, t *ir.Type) error {
	return b.writeGlobalRefAt(vec, off, c, 0, t)
}

func (b *Builder) writeGlobalRefAt(vec []byte, off int, c *ir.Constant, extra int64, t *ir.Type) error {
	if c.ExternalUndefined {
		b.postSets = append(b.postSets,
			fmt.Sprintf("HEAP32[(%d)>>2]=(HEAP32[(%d)>>2]|0)+_%s()|0;", off, off, c.GlobalName))
		return nil
	}
	addr, ok := b.GlobalAddress(c.GlobalName)
	if !ok {
		return &diag.Fatal{Code: diag.FatalMissingGlobalAddress,
			Message: fmt.Sprintf("no recorded address for global %q", c.GlobalName)}
	}
	total := int64(addr) + extra
	if !b.cfg.Relocatable {
		return writeIntBytes(vec, off, total, b.dl.AllocSize(t))
	}
	b.postSets = append(b.postSets,
		fmt.Sprintf("HEAP32[(%d)>>2]=(HEAP32[(%d)>>2]|0)+%d|0;", off, off, total))
	return nil
}

func writeIntBytes(vec []byte, off int, v int64, size int) error {
	if off < 0 || off+size > len(vec) {
		return fmt.Errorf("heapimage: write out of range at offset %d size %d", off, size)
	}
	u := uint64(v)
	for i := 0; i < size; i++ {
		vec[off+i] = byte(u >> (8 * uint(i)))
	}
	return nil
}

// Bytes returns the concatenated memory image, ordered from largest
// alignment class to smallest, prefixed by the padding computed in Close,
// ready to splice into `allocate([...], "i8", ALLOC_NONE,
// Runtime.GLOBAL_BASE)` (§6).
func (b *Builder) Bytes() []byte {
	classes := make([]int, 0, len(b.classBytes))
	for c := range b.classBytes {
		classes = append(classes, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(classes)))
	out := make([]byte, b.padding)
	for _, c := range classes {
		out = append(out, b.classBytes[c]...)
	}
	return out
}
