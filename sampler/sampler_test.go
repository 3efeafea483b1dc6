package sampler

import (
	"path/filepath"
	"testing"

	"github.com/memscopetrack/memscopetrack/internal/config"
	"github.com/memscopetrack/memscopetrack/memory"
	"github.com/memscopetrack/memscopetrack/trace"
)

type fakeExtents struct {
	calls int
	seq   []map[string]uint64
}

func (f *fakeExtents) GetExtents() map[string]uint64 {
	i := f.calls
	if i >= len(f.seq) {
		i = len(f.seq) - 1
	}
	f.calls++
	return f.seq[i]
}

func TestSamplerWritesInitialAndFinalRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.txt")
	w, err := trace.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	table := &fakeExtents{seq: []map[string]uint64{{"A": 10}}}
	s := New(table, w, memory.NewGuard(), path, "/opt/memscopetrack/python")

	go s.Run()
	s.Stop()

	if table.calls < 2 {
		t.Errorf("GetExtents called %d times, want at least 2 (initial + final)", table.calls)
	}
}

func TestOutputPathRandomWhenUnset(t *testing.T) {
	p1 := OutputPath(testEnv(nil))
	p2 := OutputPath(testEnv(nil))
	if p1 == p2 {
		t.Errorf("two unset-env OutputPath() calls returned the same path %q, want distinct random suffixes", p1)
	}
	if filepath.Ext(p1) != ".gz" {
		t.Errorf("generated path %q does not end in .gz", p1)
	}
}

func TestOutputPathHonorsOverride(t *testing.T) {
	got := OutputPath(testEnv(map[string]string{config.EnvOutfile: "custom.trace"}))
	if got != "custom.trace" {
		t.Errorf("OutputPath() = %q, want %q", got, "custom.trace")
	}
}

func TestPlotterCommand(t *testing.T) {
	got := PlotterCommand("/opt/memscopetrack/python", "mem-scope-track.abc.gz")
	want := "python3 /opt/memscopetrack/python/timeline.py mem-scope-track.abc.gz"
	if got != want {
		t.Errorf("PlotterCommand() = %q, want %q", got, want)
	}
}

// testEnv builds a *config.Environment backed by an in-memory map, via
// the package's exported test-construction path used across the
// module's own tests (see internal/config's newFake, mirrored here
// since config.Environment's fields are unexported by design).
func testEnv(vars map[string]string) *config.Environment {
	if vars == nil {
		vars = map[string]string{}
	}
	return config.ForTest(vars)
}
