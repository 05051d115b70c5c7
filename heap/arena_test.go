package heap

import "testing"

func TestArena_AllocReturnsStableHandlesAcrossGrowth(t *testing.T) {
	a := NewArena[int]()

	var handles []Handle
	for i := 0; i < 512; i++ {
		handles = append(handles, a.Alloc(i))
	}
	for i, h := range handles {
		if got := *a.Get(h); got != i {
			t.Fatalf("handle %d: Get = %d, want %d", h, got, i)
		}
	}
}

func TestArena_GetOfNilHandleReturnsNil(t *testing.T) {
	a := NewArena[int]()
	if got := a.Get(NilHandle); got != nil {
		t.Fatalf("Get(NilHandle) = %v, want nil", got)
	}
}

func TestArena_GetOfUnknownHandleReturnsNil(t *testing.T) {
	a := NewArena[int]()
	a.Alloc(1)
	if got := a.Get(Handle(99)); got != nil {
		t.Fatalf("Get(99) = %v, want nil", got)
	}
}

func TestHeap_ReserveFailsPastCapacity(t *testing.T) {
	h := NewHeap(16)
	if err := h.Reserve(10); err != nil {
		t.Fatalf("Reserve(10) = %v, want nil", err)
	}
	if err := h.Reserve(10); err != ErrOutOfSpace {
		t.Fatalf("Reserve(10) second call = %v, want ErrOutOfSpace", err)
	}
	h.Release(10)
	if err := h.Reserve(10); err != nil {
		t.Fatalf("Reserve(10) after Release = %v, want nil", err)
	}
}

func TestHeap_AllocReleasesReservationOnFailure(t *testing.T) {
	h := NewHeap(8)

	_, err := h.Alloc(8, func(c *Chunk) (Handle, error) {
		return NilHandle, ErrOutOfSpace
	})
	if err != ErrOutOfSpace {
		t.Fatalf("Alloc = %v, want ErrOutOfSpace", err)
	}

	// The failed allocation must not have left bytes reserved.
	if err := h.Reserve(8); err != nil {
		t.Fatalf("Reserve(8) after failed Alloc = %v, want nil (reservation should have been released)", err)
	}
}

func TestHeap_LockModuleIsExclusivePerHandle(t *testing.T) {
	h := NewHeap(0)

	tok := h.LockModule(Handle(1))
	done := make(chan struct{})
	go func() {
		other := h.LockModule(Handle(1))
		other.Unlock()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second LockModule on the same handle returned before the first Unlock")
	default:
	}
	tok.Unlock()
	<-done
}
