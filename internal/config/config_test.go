package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_AppliesDocumentedDefaults(t *testing.T) {
	c := Default()
	if !c.WarnOnNoncanonicalNaNs {
		t.Errorf("WarnOnNoncanonicalNaNs default = false, want true")
	}
	if c.GlobalBase != 8 {
		t.Errorf("GlobalBase default = %d, want 8", c.GlobalBase)
	}
}

func TestValidate_RelocatableRequiresZeroGlobalBase(t *testing.T) {
	c := Default()
	c.Relocatable = true
	c.EmulatedFunctionPointers = true
	if err := c.Validate(); err == nil {
		t.Errorf("expected an error: relocatable with nonzero global_base")
	}
	c.GlobalBase = 0
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_RelocatableRequiresEmulatedFunctionPointers(t *testing.T) {
	c := Config{Relocatable: true, GlobalBase: 0}
	if err := c.Validate(); err == nil {
		t.Errorf("expected an error: relocatable without emulated_function_pointers")
	}
}

func TestValidate_NonRelocatableAcceptsAnyGlobalBase(t *testing.T) {
	c := Default()
	c.GlobalBase = 1024
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_FileOverridesKeepUnsetFieldsAtDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	if err := os.WriteFile(path, []byte("precise_f32 = true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.PreciseF32 {
		t.Errorf("PreciseF32 = false, want true from file")
	}
	if !c.WarnOnNoncanonicalNaNs {
		t.Errorf("WarnOnNoncanonicalNaNs = false, want the default true preserved")
	}
	if c.GlobalBase != 8 {
		t.Errorf("GlobalBase = %d, want default 8 preserved", c.GlobalBase)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("expected an error loading a nonexistent config file")
	}
}
