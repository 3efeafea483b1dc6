// Package sampler implements the background thread that periodically
// snapshots live per-scope totals and appends a timestamped record to
// the trace file, and the on-exit leak report derived from the same
// snapshot.
package sampler

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"time"

	"github.com/memscopetrack/memscopetrack/internal/config"
	"github.com/memscopetrack/memscopetrack/memory"
	"github.com/memscopetrack/memscopetrack/trace"
)

// Interval is the sampler's fixed wait between snapshots.
const Interval = 100 * time.Millisecond

// Extents is the read path the sampler needs from the allocation
// table. *memory.Table satisfies it; tests can pass a stub so a
// sampled record can be checked against a known-good snapshot without
// driving a real Table through concurrent allocations.
type Extents interface {
	GetExtents() map[string]uint64
}

// Sampler owns the dedicated background thread that periodically
// snapshots the allocation table. It must be constructed with New and
// run on its own goroutine via Run.
type Sampler struct {
	table  Extents
	writer *trace.Writer
	guard  *memory.Guard
	start  time.Time

	// tracefile and scriptDir feed PlotterCommand, printed once on Stop.
	tracefile string
	scriptDir string

	stop chan struct{}
	done chan struct{}
}

// New returns a Sampler that will snapshot table and write records to
// writer, which was opened at tracefile. guard is entered for the
// sampler's entire lifetime so that any allocations the sampling loop
// itself performs (string formatting, gzip buffer growth, the snapshot
// copy) are never re-entered into the tracker's own accounting.
// scriptDir is the directory containing the companion timeline.py
// plotter, used only to print the suggested plotter command on Stop.
func New(table Extents, writer *trace.Writer, guard *memory.Guard, tracefile, scriptDir string) *Sampler {
	return &Sampler{
		table:     table,
		writer:    writer,
		guard:     guard,
		tracefile: tracefile,
		scriptDir: scriptDir,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run executes the sampling loop until Stop is called. It is meant to
// be launched with `go s.Run()` exactly once; it locks the calling
// goroutine to its OS thread for its entire lifetime, dedicating one
// OS thread to this one long-lived responsibility.
func (s *Sampler) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	leave, ok := s.guard.Enter()
	if !ok {
		// Another frame on this thread already holds the guard; this
		// should not happen for a freshly locked OS thread, but if it
		// does there is nothing safe to do except decline to run.
		close(s.done)
		return
	}
	defer leave()

	s.start = time.Now()
	s.snapshot()

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.snapshot()
			close(s.done)
			return
		case <-ticker.C:
			s.snapshot()
		}
	}
}

func (s *Sampler) snapshot() {
	micros := time.Since(s.start).Microseconds()
	extents := s.table.GetExtents()
	if err := s.writer.WriteRecord(micros, extents); err != nil {
		// Best-effort observability: a write error here must not take
		// down the sampler loop, let alone the host process.
		fmt.Println("memscopetrack: trace write error:", err)
	}
}

// Stop signals the sampling loop to take one final snapshot, flush and
// close the trace writer, and exit, then blocks until it has done so.
// It then prints the fully resolved plotter command line to standard
// output; actually launching the plotter is deliberately left to the
// operator (or to `memscopectl plot`).
func (s *Sampler) Stop() {
	close(s.stop)
	<-s.done
	s.writer.Close()
	fmt.Println(PlotterCommand(s.scriptDir, s.tracefile))
}

// OutputPath resolves the sampler's trace file path: the verbatim value
// of MEMSCOPETRACK_OUTFILE if set, otherwise mem-scope-track.<10 random
// alphanumeric characters>.gz in the current directory.
func OutputPath(env *config.Environment) string {
	if path, set := env.Outfile(); set {
		return path
	}
	return fmt.Sprintf("mem-scope-track.%s.gz", randomSuffix(10))
}

const alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable on any
		// platform this library targets; fall back to a fixed suffix
		// rather than crash a tracker that is meant to be best-effort.
		for i := range buf {
			buf[i] = alphanumeric[0]
		}
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphanumeric[int(b)%len(alphanumeric)]
	}
	return string(out)
}

// PlotterCommand returns the fully resolved command line that would
// invoke the external timeline plotter on tracefile, given the
// directory the companion python/timeline.py script lives in.
func PlotterCommand(scriptDir, tracefile string) string {
	return fmt.Sprintf("python3 %s/timeline.py %s", scriptDir, tracefile)
}
