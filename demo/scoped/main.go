// Command scoped is the E1 end-to-end scenario: a target program that
// labels its allocations with set_scope and frees everything cleanly,
// for exercising the tracker under
//
//	LD_PRELOAD=./libmemscopetrack.so ./scoped
//
// and checking that the final trace record retains all three scope
// keys at zero with no leak report.
package main

/*
#include <stdlib.h>

// set_scope is not defined anywhere in this program. When run under
// LD_PRELOAD with libmemscopetrack.so, the dynamic linker resolves it
// from the preloaded library's exported symbol table; run without the
// preload, this binary fails to link.
extern void set_scope(const char* label);
*/
import "C"
import "unsafe"

func setScope(label string) {
	cs := C.CString(label)
	defer C.free(unsafe.Pointer(cs))
	C.set_scope(cs)
}

func main() {
	setScope("main")
	p := C.malloc(4)

	setScope("two")
	q := C.malloc(40)
	C.free(p)

	setScope("none")
	C.free(q)
}
