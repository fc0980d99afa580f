// Package config implements the backend's configuration record (spec §6),
// loadable from a TOML file the way the teacher's cmd/surge loads
// surge.toml via github.com/BurntSushi/toml, with the same
// flags-override-file layering used by cmd/surge/build.go.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
)

// Config is the enumerated configuration record from spec §6.
type Config struct {
	PreciseF32               bool `toml:"precise_f32"`
	EnablePthreads           bool `toml:"enable_pthreads"`
	WarnOnUnaligned          bool `toml:"warn_on_unaligned"`
	WarnOnNoncanonicalNaNs   bool `toml:"warn_on_noncanonical_nans"`
	ReservedFunctionPointers int  `toml:"reserved_function_pointers"`
	EmulatedFunctionPointers bool `toml:"emulated_function_pointers"`
	Assertions               int  `toml:"assertions"`
	NoAliasingFunctionPointers bool `toml:"no_aliasing_function_pointers"`
	GlobalBase               int  `toml:"global_base"`
	Relocatable              bool `toml:"relocatable"`
}

// Default returns the configuration record with every documented default
// applied.
func Default() Config {
	return Config{
		WarnOnNoncanonicalNaNs: true,
		GlobalBase:             8,
	}
}

// Load reads a TOML configuration file, starting from Default() so any
// field the file omits keeps its documented default.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the invalid-combination rules named in spec §6/§7:
// relocatable requires global_base == 0 and emulated_function_pointers.
func (c Config) Validate() error {
	if c.Relocatable {
		if c.GlobalBase != 0 {
			return &diag.Fatal{Code: diag.FatalInvalidConfig,
				Message: "relocatable requires global_base == 0"}
		}
		if !c.EmulatedFunctionPointers {
			return &diag.Fatal{Code: diag.FatalInvalidConfig,
				Message: "relocatable requires emulated_function_pointers"}
		}
	}
	return nil
}
