// Package mangle implements the Name Mangler (spec §4.1): stable,
// collision-free JS identifiers for every IR value, distinguishing globals
// (`_name`) from locals (`$name`), hex-escaping illegal characters.
package mangle

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

func isLegal(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z')
}

// Global mangles a global symbol name to `_name`, with every illegal
// character (outside [0-9A-Za-z_]) replaced by `_`. Collision resolution is
// nominal (documented as a debug-mode-only check, §4.1) — a Mangler tracks
// collisions via Collides.
func Global(name string) string {
	name = norm.NFC.String(name)
	var b strings.Builder
	b.WriteByte('_')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isLegal(c) {
			b.WriteByte(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Local mangles a local value name to `$name`. Illegal characters become
// `$` inline, and at the end of the string every replaced byte is appended
// as a 2-hex-digit code, in encounter order — this keeps the scheme
// injective: "x.a" -> "$x$a2e", "x..a" -> "$x$$a2e2e".
func Local(name string) string {
	name = norm.NFC.String(name)
	var b strings.Builder
	var codes strings.Builder
	b.WriteByte('$')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isLegal(c) {
			b.WriteByte(c)
		} else {
			b.WriteByte('$')
			fmt.Fprintf(&codes, "%02x", c)
		}
	}
	b.WriteString(codes.String())
	return b.String()
}

// Unnamed returns the mangled name for an unnamed local value, identified
// only by its monotonically increasing id.
func Unnamed(id int64) string {
	return "$" + strconv.FormatInt(id, 10)
}

// Mangler owns the per-module value-to-name mapping (§3 "Value-to-name
// mapping"): populated lazily, stable for the lifetime of module emission.
type Mangler struct {
	locals    map[string]string
	globals   map[string]string
	nextID    int64
	nameUses  map[string]int // debug-mode collision detector
	debugMode bool
}

// New creates a Mangler. debugMode enables the nominal collision check
// documented in §4.1; it is off by default (release builds skip it).
func New(debugMode bool) *Mangler {
	return &Mangler{
		locals:   make(map[string]string),
		globals:  make(map[string]string),
		nameUses: make(map[string]int),
		debugMode: debugMode,
	}
}

// GlobalName returns the stable mangled name for a global symbol, computing
// and caching it on first use.
func (m *Mangler) GlobalName(sym string) string {
	if out, ok := m.globals[sym]; ok {
		return out
	}
	out := Global(sym)
	m.globals[sym] = out
	m.checkCollision(out)
	return out
}

// LocalName returns the stable mangled name for a named local value, or —
// for the representative of a coalesced static alloca — the name recorded
// for it by Alias.
func (m *Mangler) LocalName(name string) string {
	if out, ok := m.locals[name]; ok {
		return out
	}
	out := Local(name)
	m.locals[name] = out
	m.checkCollision(out)
	return out
}

// UnnamedLocalName returns the stable mangled name for an unnamed local
// value carrying an already-assigned unnamed id.
func (m *Mangler) UnnamedLocalName(id int64) string {
	if id >= m.nextID {
		m.nextID = id + 1
	}
	return Unnamed(id)
}

// NextUnnamedID allocates a fresh unnamed id for a value the front end left
// nameless.
func (m *Mangler) NextUnnamedID() int64 {
	id := m.nextID
	m.nextID++
	return id
}

// Alias records that fromName resolves to the same mangled identifier as
// toName — used when a static alloca is coalesced into a representative
// alloca by the allocation analysis (§4.1).
func (m *Mangler) Alias(fromName, toName string) {
	m.locals[fromName] = m.LocalName(toName)
}

func (m *Mangler) checkCollision(mangled string) {
	if !m.debugMode {
		return
	}
	m.nameUses[mangled]++
}

// Collides reports whether mangled was produced by more than one distinct
// pre-image — only meaningful when the Mangler was created with
// debugMode true.
func (m *Mangler) Collides(mangled string) bool {
	return m.nameUses[mangled] > 1
}
