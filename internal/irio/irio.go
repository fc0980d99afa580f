// Package irio loads a serialized IR module fixture from disk. Spec §1
// treats the front-end IR parser as an external collaborator, out of
// scope for the core: this package is the stand-in wire format used by
// tests and the IR file arguments of the CLI's emit command, exactly as internal/driver's DiskCache
// round-trips module metadata through github.com/vmihailenco/msgpack/v5.
package irio

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/ir"
)

// LoadModule decodes a msgpack-encoded ir.Module fixture from path.
func LoadModule(path string) (*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("irio: open %s: %w", path, err)
	}
	defer f.Close()

	var mod ir.Module
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&mod); err != nil {
		return nil, fmt.Errorf("irio: decode %s: %w", path, err)
	}
	return &mod, nil
}

// SaveModule encodes mod as msgpack to path, overwriting any existing
// file. Used by tests to build fixtures and by tooling that captures an
// in-memory module for later replay.
func SaveModule(path string, mod *ir.Module) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("irio: create %s: %w", path, err)
	}
	defer f.Close()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(mod); err != nil {
		return fmt.Errorf("irio: encode %s: %w", path, err)
	}
	return f.Close()
}
