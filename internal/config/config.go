// Package config centralizes the environment variables the interposer
// and its companion tools read, so that init paths do not scatter
// os.Getenv calls and tests can stub the process environment instead of
// mutating it globally.
package config

import "os"

const (
	// EnvOutfile overrides the sampler's trace output path.
	EnvOutfile = "MEMSCOPETRACK_OUTFILE"
	// EnvLogfile selects the diagnostic logger's destination.
	EnvLogfile = "MEMSCOPETRACK_LOGFILE"
	// EnvPreload is the dynamic linker's own preload variable. The
	// interposer clears it once resolved so that child processes spawned
	// by the target are not themselves instrumented.
	EnvPreload = "LD_PRELOAD"
)

// Environment is the subset of process environment the library and its
// tools consume. Construct one with Default (the real process
// environment) or ForTest (an in-memory map).
type Environment struct {
	getenv func(string) string
	setenv func(string, string) error
	unset  func(string) error
}

// Default returns an Environment backed by the real process environment.
func Default() *Environment {
	return &Environment{
		getenv: os.Getenv,
		setenv: os.Setenv,
		unset:  os.Unsetenv,
	}
}

// newFake returns an Environment backed by an in-memory map, for tests
// that exercise config logic without touching the real process
// environment.
func newFake(vars map[string]string) *Environment {
	return &Environment{
		getenv: func(k string) string { return vars[k] },
		setenv: func(k, v string) error { vars[k] = v; return nil },
		unset:  func(k string) error { delete(vars, k); return nil },
	}
}

// ForTest returns an Environment backed by an in-memory map, for other
// packages' tests that need to drive config-dependent logic (sampler's
// OutputPath, the logger's destination selection) without mutating the
// real process environment.
func ForTest(vars map[string]string) *Environment {
	return newFake(vars)
}

// Outfile returns the configured sampler output path, and whether it was
// set at all (an unset value means the sampler should generate a random
// name instead).
func (e *Environment) Outfile() (path string, set bool) {
	v := e.getenv(EnvOutfile)
	return v, v != ""
}

// Logfile returns the raw MEMSCOPETRACK_LOGFILE value: "", "stdout",
// "stderr", or a file path.
func (e *Environment) Logfile() string {
	return e.getenv(EnvLogfile)
}

// Preload returns the current LD_PRELOAD value.
func (e *Environment) Preload() string {
	return e.getenv(EnvPreload)
}

// ClearPreload unsets LD_PRELOAD so that children the target process
// spawns are not themselves instrumented unless they reinstate it.
func (e *Environment) ClearPreload() error {
	return e.unset(EnvPreload)
}

// SetOutfile and SetLogfile set MEMSCOPETRACK_OUTFILE and
// MEMSCOPETRACK_LOGFILE in the environment e is backed by: the real
// process environment for Default, the in-memory map for ForTest.
func (e *Environment) SetOutfile(path string) error { return e.setenv(EnvOutfile, path) }
func (e *Environment) SetLogfile(dest string) error { return e.setenv(EnvLogfile, dest) }
