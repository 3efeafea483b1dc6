// Package bootstrap resolves the host allocator's real malloc, free,
// and calloc entry points - the ones the dynamic linker would have
// called had this library not interposed them - and provides the
// bump-pointer dummy allocator used to seed calloc before that
// resolution can complete.
//
// This is the one package in the module that must use cgo: asking the
// dynamic linker "what's the next definition of this symbol after me"
// is not something the Go runtime can do on its own.
package bootstrap

/*
#define _GNU_SOURCE
#include <dlfcn.h>
#include <stdlib.h>
#include <stdio.h>

typedef void* (*malloc_fn)(size_t);
typedef void  (*free_fn)(void*);
typedef void* (*calloc_fn)(size_t, size_t);

static malloc_fn  real_malloc_ptr = NULL;
static free_fn    real_free_ptr   = NULL;
static calloc_fn  real_calloc_ptr = NULL;

static void* call_real_malloc(size_t size) {
	return real_malloc_ptr(size);
}

static void call_real_free(void* p) {
	real_free_ptr(p);
}

static void* call_real_calloc(size_t nmemb, size_t size) {
	return real_calloc_ptr(nmemb, size);
}

// real_calloc_ptr is never pointed at Go code. Instead the Go side never
// calls through real_calloc_ptr while it is unresolved - see Calloc in
// bootstrap.go, which serves straight from the Go dummy allocator
// whenever resolved_calloc is still 0.
static int resolved_malloc = 0;
static int resolved_free   = 0;
static int resolved_calloc = 0;

static int resolve_malloc(void) {
	void* sym = dlsym(RTLD_NEXT, "malloc");
	if (!sym) {
		return 0;
	}
	real_malloc_ptr = (malloc_fn)sym;
	resolved_malloc = 1;
	return 1;
}

static int resolve_free(void) {
	void* sym = dlsym(RTLD_NEXT, "free");
	if (!sym) {
		return 0;
	}
	real_free_ptr = (free_fn)sym;
	resolved_free = 1;
	return 1;
}

static int resolve_calloc(void) {
	void* sym = dlsym(RTLD_NEXT, "calloc");
	if (!sym) {
		return 0;
	}
	real_calloc_ptr = (calloc_fn)sym;
	resolved_calloc = 1;
	return 1;
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/memscopetrack/memscopetrack/internal/fatalerr"
)

// dummy is the process-wide bump allocator that serves calloc requests
// which arrive - on the thread currently resolving symbols - before the
// real calloc pointer is installed. It is a package-level var, not
// per-Allocator state, because the host's own libc only ever needs one:
// this is strictly a load-time bootstrap device.
var dummy dummyAllocator

// state tracks one-time initialization. 0 = not started, 1 = in
// progress, 2 = complete. Exactly one caller transitions 0->1 via CAS;
// everyone else either proceeds immediately (state==2) or spins until
// it does.
var state atomic.Int32

const (
	stateIdle = 0
	stateBusy = 1
	stateDone = 2
)

// Resolved reports whether real allocator resolution has completed.
func Resolved() bool {
	return state.Load() == stateDone
}

// Ensure resolves the real malloc/free/calloc symbols if that has not
// already happened, blocking the caller until some goroutine's
// resolution attempt completes. It is idempotent and safe to call from
// any number of concurrent threads; the first intercepted allocation
// from any thread in the process may be the one that triggers it.
//
// Ensure itself never calls calloc, but the dynamic linker's own
// dlsym(RTLD_NEXT, "calloc") lookup below may - some platforms' TLS
// setup does. That nested calloc call reenters this package's exported
// Calloc on the very same OS thread that is running Ensure; it must be
// served from the dummy allocator, which is why calloc is resolved last:
// the real calloc pointer stays unresolved (and Calloc routes to the
// dummy) until that final dlsym lookup has returned.
func Ensure() {
	if state.Load() == stateDone {
		return
	}
	if !state.CompareAndSwap(stateIdle, stateBusy) {
		for state.Load() != stateDone {
			runtime.Gosched()
		}
		return
	}

	if C.resolve_malloc() == 0 {
		fatal("could not resolve real malloc")
	}
	if C.resolve_free() == 0 {
		fatal("could not resolve real free")
	}
	if C.resolve_calloc() == 0 {
		fatal("could not resolve real calloc")
	}

	state.Store(stateDone)
}

// fatal reports an unrecoverable bootstrap failure and aborts the
// process: the interposer cannot function at all without its real
// allocator handles, so there is no graceful degradation.
func fatal(msg string) {
	fatalerr.Abort(fatalerr.New("%s", msg))
}

// Malloc forwards to the real malloc once resolved. Before resolution
// it has nothing sane to forward to and is not expected to be called:
// only calloc has a documented pre-resolution reentrancy path.
func Malloc(size uintptr) unsafe.Pointer {
	return unsafe.Pointer(C.call_real_malloc(C.size_t(size)))
}

// Free forwards to the real free once resolved. Addresses handed out by
// the dummy allocator are ignored: they never came from the real
// allocator.
func Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	base := uintptr(unsafe.Pointer(&dummy.buf[0]))
	if p := uintptr(ptr); p >= base && p < base+dummyBufSize {
		return
	}
	C.call_real_free(ptr)
}

// Calloc forwards to the real calloc if it has been resolved, or serves
// the request from the bump-pointer dummy allocator otherwise. A dummy
// allocation is always zeroed (its backing buffer starts zeroed and is
// never reused) and is never handed to the real free: addresses inside
// it are absent from the tracking table, and Free recognizes them and
// returns without forwarding, so a stray free of one is silently
// ignored.
func Calloc(nmemb, size uintptr) unsafe.Pointer {
	if bool(C.resolved_calloc != 0) {
		return unsafe.Pointer(C.call_real_calloc(C.size_t(nmemb), C.size_t(size)))
	}
	ptr, ok := dummy.reserve(nmemb * size)
	if !ok {
		fatal(fmt.Sprintf("dummy calloc buffer exhausted: %d requested, %d available", nmemb*size, dummyBufSize))
	}
	return ptr
}
