// Command leaky is the E2 end-to-end scenario: a target program that
// allocates under a scope and exits without freeing, for checking that
// the tracker's on-exit report names exactly the leaked scope and size.
package main

/*
#include <stdlib.h>

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
	setScope("A")
	C.malloc(100)
	// Deliberately never freed.
}
