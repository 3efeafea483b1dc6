package bootstrap

import "testing"

func TestDummyAllocatorReservesDisjointRanges(t *testing.T) {
	var d dummyAllocator
	o1, ok1 := d.alloc(10)
	o2, ok2 := d.alloc(20)
	if !ok1 || !ok2 {
		t.Fatalf("alloc failed unexpectedly: ok1=%v ok2=%v", ok1, ok2)
	}
	if o2 != o1+10 {
		t.Errorf("second offset = %d, want %d (immediately after first)", o2, o1+10)
	}
}

func TestDummyAllocatorExhaustion(t *testing.T) {
	var d dummyAllocator
	if _, ok := d.alloc(dummyBufSize); !ok {
		t.Fatal("alloc of exactly the buffer size failed, want success")
	}
	if _, ok := d.alloc(1); ok {
		t.Error("alloc past the buffer size succeeded, want failure")
	}
}

func TestDummyAllocatorRejectsNegativeSize(t *testing.T) {
	var d dummyAllocator
	if _, ok := d.alloc(-1); ok {
		t.Error("alloc(-1) succeeded, want failure")
	}
}

func TestDummyAllocatorZeroSizeReserve(t *testing.T) {
	var d dummyAllocator
	ptr, ok := d.reserve(0)
	if !ok || ptr == nil {
		t.Errorf("reserve(0) = (%v,%v), want a valid zero-length reservation", ptr, ok)
	}
}

func TestDummyAllocatorReserveIsZeroed(t *testing.T) {
	var d dummyAllocator
	d.buf[5] = 0xFF // poison a byte outside the first reservation
	ptr, ok := d.reserve(4)
	if !ok {
		t.Fatal("reserve(4) failed unexpectedly")
	}
	bytes := (*[4]byte)(ptr)
	for i, b := range bytes {
		if b != 0 {
			t.Errorf("byte %d of fresh reservation = %#x, want 0", i, b)
		}
	}
}
