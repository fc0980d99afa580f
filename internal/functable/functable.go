// Package functable implements the Function Table Manager (spec §4.5):
// per-signature function tables and stable slot indices for indirect calls.
package functable

import (
	"fmt"
	"sort"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
)

// Config mirrors the subset of spec §6 the manager consults.
type Config struct {
	ReservedFunctionPointers int  // R
	NoAliasingFunctionPointers bool
}

// Manager owns the per-signature slot tables and the indexed-functions map
// (spec §3).
type Manager struct {
	cfg Config

	tables      map[string][]string // signature -> ordered slots ("0" = empty)
	indexed     map[string]int       // function name -> slot index
	sigOf       map[string]string    // function name -> its table's signature
	nextGlobal  int                  // NextFunctionIndex, used under NoAliasing
}

// New creates a Manager. Every table is pre-padded to at least
// 2*(R+1) slots (reserved runtime prefix, slots must be 2-aligned).
func New(cfg Config) *Manager {
	return &Manager{
		cfg:     cfg,
		tables:  make(map[string][]string),
		indexed: make(map[string]int),
		sigOf:   make(map[string]string),
	}
}

func (m *Manager) reservedPrefix() int {
	return 2 * (m.cfg.ReservedFunctionPointers + 1)
}

func (m *Manager) ensureTable(sig string) []string {
	t, ok := m.tables[sig]
	if ok {
		return t
	}
	t = make([]string, m.reservedPrefix())
	for i := range t {
		t[i] = "0"
	}
	m.tables[sig] = t
	return t
}

// FunctionIndex assigns (on first use) and returns the stable slot index of
// name within its sig table. If NoAliasingFunctionPointers is set, padding
// for every table advances a single module-wide high-watermark so no two
// functions, even across tables, ever share a slot.
func (m *Manager) FunctionIndexFor(name, sig string) (int, error) {
	if idx, ok := m.indexed[name]; ok {
		return idx, nil
	}
	t := m.ensureTable(sig)

	idx := len(t)
	if m.cfg.NoAliasingFunctionPointers {
		if m.nextGlobal < m.reservedPrefix() {
			m.nextGlobal = m.reservedPrefix()
		}
		if m.nextGlobal > len(t) {
			for len(t) < m.nextGlobal {
				t = append(t, "0")
			}
		}
		idx = len(t)
		m.nextGlobal = idx + 1
	}
	t = append(t, name)
	m.tables[sig] = t
	m.indexed[name] = idx
	m.sigOf[name] = sig
	return idx, nil
}

// FunctionIndex satisfies heapimage.FuncIndexer for names whose signature
// was already established via FunctionIndexFor; it is a fatal error to ask
// for the index of a function never registered.
func (m *Manager) FunctionIndex(name string) (int, error) {
	idx, ok := m.indexed[name]
	if !ok {
		return 0, &diag.Fatal{Code: diag.FatalMissingGlobalAddress,
			Message: fmt.Sprintf("function %q was never assigned a table slot", name)}
	}
	return idx, nil
}

// Signatures returns every signature with a non-empty table, sorted for
// deterministic emission order.
func (m *Manager) Signatures() []string {
	sigs := make([]string, 0, len(m.tables))
	for s := range m.tables {
		sigs = append(sigs, s)
	}
	sort.Strings(sigs)
	return sigs
}

// nextPowerOfTwo rounds n up to the next power of two, minimum 1.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// FinalizeTables rounds every table up to the next power of two (padding
// with "0" sentinels), per spec §4.5's module-epilogue step. Must be called
// once, after every call has been registered via FunctionIndexFor.
func (m *Manager) FinalizeTables() {
	for sig, t := range m.tables {
		n := nextPowerOfTwo(len(t))
		for len(t) < n {
			t = append(t, "0")
		}
		m.tables[sig] = t
	}
}

// Table returns the finalized slot list for a signature.
func (m *Manager) Table(sig string) []string {
	return m.tables[sig]
}

// Mask returns the table's indexing mask (table.length-1), valid after
// FinalizeTables.
func (m *Manager) Mask(sig string) int {
	return len(m.tables[sig]) - 1
}
