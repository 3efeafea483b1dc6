package bootstrap

import (
	"sync"
	"unsafe"
)

// dummyBufSize mirrors the fixed 1024-byte bootstrap buffer from the
// reference implementation: just enough to survive whatever calloc
// calls the dynamic linker's thread-local-storage setup makes while
// resolving the real calloc, never enough to be mistaken for a real
// allocator.
const dummyBufSize = 1024

// dummyAllocator is the bump allocator used to seed calloc before the
// real symbol has been resolved. It never frees: memory it hands out
// leaks by design, for the life of the process, out of a static buffer
// that lives in this package's .bss.
//
// It is deliberately tiny and defensive rather than clever: it exists
// to break exactly one bootstrap cycle (dlsym(calloc) calling calloc),
// not to serve as a general-purpose allocator.
type dummyAllocator struct {
	mu     sync.Mutex
	buf    [dummyBufSize]byte
	offset int
}

// alloc reserves n zeroed bytes from the bump buffer and returns their
// offset, or ok=false if the buffer is exhausted.
func (d *dummyAllocator) alloc(n int) (offset int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 0 || d.offset+n > dummyBufSize {
		return 0, false
	}
	offset = d.offset
	d.offset += n
	return offset, true
}

// reserve is alloc plus the unsafe.Pointer conversion into buf. It
// returns ok=false, rather than aborting itself, so the cgo-aware
// caller in bootstrap.go can produce the fatal diagnostic the way every
// other unrecoverable init failure in this package does.
func (d *dummyAllocator) reserve(n uintptr) (unsafe.Pointer, bool) {
	if n == 0 {
		return unsafe.Pointer(&d.buf[0]), true
	}
	offset, ok := d.alloc(int(n))
	if !ok {
		return nil, false
	}
	return unsafe.Pointer(&d.buf[offset]), true
}
