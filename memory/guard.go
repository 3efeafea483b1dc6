package memory

import (
	"sync"

	"golang.org/x/sys/unix"
)

// Guard is the per-thread reentrancy flag described by the reentrancy
// guard component. Every tracker path that might itself allocate -
// the table insert, the sampler's snapshot copy, the trace write, any
// diagnostic logging - enters the guard first. A cgo entry point that
// is invoked by the host program runs on the calling OS thread for the
// duration of the call, so keying the guard by OS thread id (rather
// than goroutine id, which Go does not expose) is sound: a nested
// allocation made by the tracker's own bookkeeping happens on the same
// OS thread, inside the same guarded call.
//
// entered is a sync.Map rather than a mutex-guarded map on purpose: the
// whole point of the guard is to keep the fast path off any lock shared
// with the allocation table, and sync.Map's read-mostly fast path suits
// a thread that enters and leaves the same key over and over.
type Guard struct {
	entered sync.Map // int (tid) -> struct{}
}

// NewGuard returns a ready-to-use Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Enter reports whether the calling thread is already inside the
// guard. If it is not, Enter marks it as entered and returns a Leave
// function the caller must invoke before returning - typically via
// defer. If the thread was already inside the guard (this call is a
// nested allocation triggered by the tracker itself), Enter returns
// ok=false and a no-op Leave; the caller must skip tracking and forward
// straight to the real allocator.
func (g *Guard) Enter() (leave func(), ok bool) {
	tid := unix.Gettid()
	if _, already := g.entered.LoadOrStore(tid, struct{}{}); already {
		return func() {}, false
	}
	return func() { g.entered.Delete(tid) }, true
}

// Held reports whether the calling thread currently holds the guard,
// without acquiring it.
func (g *Guard) Held() bool {
	_, held := g.entered.Load(unix.Gettid())
	return held
}
