package palloc

import "unsafe"

// TypedPool hands out fixed-size slots holding values of one element
// type T. Capacity, growth and thread-safety are fixed by the PoolConfig
// at construction. All slots live in one contiguous mapping, so bulk
// traversal is cache-friendly and a slot claim never touches the Go
// heap.
type TypedPool[T any] struct {
	p *pool
}

// NewTypedPool builds a pool whose slots are sized and aligned for T.
func NewTypedPool[T any](cfg PoolConfig) (*TypedPool[T], error) {
	var zero T
	p, err := newPool(uint64(unsafe.Sizeof(zero)), uint64(unsafe.Alignof(zero)), cfg)
	if err != nil {
		return nil, err
	}
	return &TypedPool[T]{p: p}, nil
}

// Allocate claims the lowest free slot, zero-initializes it and returns
// a handle to it. When the pool is full it either grows (doubling, with
// the OnGrow callback run before Allocate returns) or, with growth
// disabled, returns the zero handle and no error; callers must check
// IsValid. The error return is reserved for the memory provider
// failing, which is not retried.
func (t *TypedPool[T]) Allocate() (Handle[T], error) {
	idx, gen, ok, err := t.p.allocate()
	if err != nil || !ok {
		return Handle[T]{}, err
	}
	return Handle[T]{p: t.p, idx: idx, gen: gen}, nil
}

// Release frees the slot h refers to, scrubs its content and
// invalidates h. A handle from another pool is rejected with
// ErrAddrOutOfRange, a handle outliving its slot with ErrStaleHandle,
// and a release of an already-free slot with ErrSlotNotLive. None of
// the failure paths touch any other slot.
func (t *TypedPool[T]) Release(h *Handle[T]) error {
	if h == nil || h.p != t.p {
		return ErrAddrOutOfRange
	}
	if err := t.p.release(h.idx, h.gen); err != nil {
		return err
	}
	h.Zero()
	return nil
}

// ForAll runs fn over the slot range in one pass, holding the pool lock
// for the entire traversal when the pool is thread-safe. IterActive
// visits live slots only; IterFast trades that filter for raw speed and
// visits all capacity slots, dead ones reading as zero values.
func (t *TypedPool[T]) ForAll(fn func(*T), mode IterMode) {
	t.p.forAll(func(ptr unsafe.Pointer) {
		fn((*T)(ptr))
	}, mode)
}

// Find returns a handle to some live slot accepted by match. The scan
// runs in parallel across the slot range; when several slots qualify,
// which one wins is unspecified.
func (t *TypedPool[T]) Find(match func(*T) bool) (Handle[T], bool) {
	idx, gen, ok := t.p.find(func(ptr unsafe.Pointer) bool {
		return match((*T)(ptr))
	})
	if !ok {
		return Handle[T]{}, false
	}
	return Handle[T]{p: t.p, idx: idx, gen: gen}, true
}

// OnGrow registers fn to run synchronously after every growth, before
// the triggering Allocate returns. fn runs with the pool lock held and
// must not call back into the pool.
func (t *TypedPool[T]) OnGrow(fn func()) {
	t.p.setOnGrow(fn)
}

// Len returns the number of live slots.
func (t *TypedPool[T]) Len() uint64 {
	return t.p.live()
}

// Cap returns the current slot capacity.
func (t *TypedPool[T]) Cap() uint64 {
	return t.p.cap()
}

// Close unmaps the pool's backing memory in one call. Live slots are
// not individually destroyed and outstanding handles become invalid.
func (t *TypedPool[T]) Close() error {
	return t.p.close()
}
