// Command libmemscopetrack is not run directly; it is built with
//
//	go build -buildmode=c-shared -o libmemscopetrack.so ./cmd/libmemscopetrack
//
// and injected into a target process via LD_PRELOAD. Its malloc, free,
// and calloc exports shadow the host allocator; see package memory for
// the accounting they drive and package sampler for the background
// thread that turns that accounting into a trace file.
package main

/*
#include <stddef.h>
#include <stdlib.h>

extern void goTeardown(void);

static void register_atexit(void) {
	atexit(goTeardown);
}
*/
import "C"

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/memscopetrack/memscopetrack/internal/bootstrap"
	"github.com/memscopetrack/memscopetrack/internal/config"
	"github.com/memscopetrack/memscopetrack/internal/fatalerr"
	"github.com/memscopetrack/memscopetrack/memory"
	"github.com/memscopetrack/memscopetrack/sampler"
	"github.com/memscopetrack/memscopetrack/trace"
)

const (
	stateIdle = int32(0)
	stateBusy = int32(1)
	stateDone = int32(2)
)

var (
	env   = config.Default()
	table = memory.NewTable()
	guard = memory.NewGuard()

	initState atomic.Int32
	tracking  atomic.Bool

	smplr  *sampler.Sampler
	logger *trace.Logger
)

// ensureInit runs the one-time initialization sequence: seed the dummy
// calloc (done by package bootstrap at load time), resolve the real
// allocator symbols, build the table, start the sampler, clear
// LD_PRELOAD, and register the exit hook. Any of the three intercepted
// entry points may be the one to trigger it, from any thread; the first
// caller does the work, everyone else either sees it already done or
// spins until it is. The caller already holds guard for the duration of
// its own malloc/free/calloc frame, which is what keeps the nested
// calloc that dlsym's symbol lookup triggers (inside bootstrap.Ensure)
// routed straight to the dummy allocator instead of back in here.
func ensureInit() {
	if initState.Load() == stateDone {
		return
	}
	if !initState.CompareAndSwap(stateIdle, stateBusy) {
		for initState.Load() != stateDone {
			spinWait()
		}
		return
	}

	if env.Preload() == "" {
		fatalerr.Abort(fatalerr.New("LD_PRELOAD is not set; this library must be loaded via LD_PRELOAD, not linked directly"))
	}

	bootstrap.Ensure()

	logger = mustLogger(env.Logfile())
	table.Logger = logger

	tracefile := sampler.OutputPath(env)
	writer, err := trace.NewWriter(tracefile)
	if err != nil {
		// The sampler cannot start, but the interposer must keep
		// working as a passive tracker: this is not a fatal condition.
		fmt.Fprintln(os.Stderr, "memscopetrack: sampler disabled:", err)
	} else {
		smplr = sampler.New(table, writer, guard, tracefile, scriptDir())
		go smplr.Run()
	}

	tracking.Store(true)

	if err := env.ClearPreload(); err != nil {
		logger.Warnf("could not clear LD_PRELOAD: %v", err)
	}

	C.register_atexit()

	initState.Store(stateDone)
}

func mustLogger(dest string) *trace.Logger {
	l, err := trace.NewLogger(dest)
	if err != nil {
		fmt.Fprintln(os.Stderr, "memscopetrack: falling back to discard logger:", err)
		l, _ = trace.NewLogger("")
	}
	return l
}

// scriptDir locates the companion python/timeline.py relative to the
// library's own path, recorded in LD_PRELOAD before it was cleared.
func scriptDir() string {
	preload := env.Preload()
	if preload == "" {
		return "."
	}
	return filepath.Join(filepath.Dir(preload), "python")
}

func spinWait() {
	// A tight Gosched loop is adequate here: this path is only hit by
	// the thread(s) that lose the init race, once, ever, for a
	// resolution that completes in microseconds.
	runtime.Gosched()
}

// set_scope is the one user-facing operation besides the three
// intercepted allocator entry points: the instrumented program calls it
// to label the allocations that follow. It takes the scope label as a
// plain C string rather than a Go string at the boundary because the
// callers are the target program's own C/C++/cgo code, not Go.
//
//export set_scope
func set_scope(label *C.char) {
	memory.SetScope(C.GoString(label))
}

//export malloc
func malloc(size C.size_t) unsafe.Pointer {
	leave, ok := guard.Enter()
	if !ok {
		return bootstrap.Malloc(uintptr(size))
	}
	defer leave()

	ensureInit()
	scope := memory.CurrentScope()
	ptr := bootstrap.Malloc(uintptr(size))
	if ptr != nil && tracking.Load() {
		table.Track(uintptr(ptr), scope, uintptr(size))
	}
	return ptr
}

//export free
func free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	leave, ok := guard.Enter()
	if !ok {
		bootstrap.Free(ptr)
		return
	}
	defer leave()

	ensureInit()
	if tracking.Load() {
		table.Release(uintptr(ptr))
	}
	bootstrap.Free(ptr)
}

//export calloc
func calloc(nmemb, size C.size_t) unsafe.Pointer {
	leave, ok := guard.Enter()
	if !ok {
		// Either a nested allocation from our own bookkeeping, or the
		// dynamic linker's TLS setup calling calloc while ensureInit
		// (on this same thread) is still resolving the real symbols.
		// Both cases want the same thing: forward without tracking,
		// served from the dummy allocator if resolution is incomplete.
		return bootstrap.Calloc(uintptr(nmemb), uintptr(size))
	}
	defer leave()

	ensureInit()
	scope := memory.CurrentScope()
	ptr := bootstrap.Calloc(uintptr(nmemb), uintptr(size))
	if ptr != nil && tracking.Load() {
		table.Track(uintptr(ptr), scope, uintptr(nmemb)*uintptr(size))
	}
	return ptr
}

//export goTeardown
func goTeardown() {
	if !tracking.CompareAndSwap(true, false) {
		return // never initialized, or teardown already ran
	}
	if smplr != nil {
		smplr.Stop()
	}
	sampler.ReportLeaks(table.GetExtents(), logger)
	if logger != nil {
		logger.Close()
	}
}

func main() {
	// Required by -buildmode=c-shared; the library is never executed as
	// a standalone program. All real work happens via the exported C
	// entry points above.
}
