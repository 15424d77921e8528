package palloc

// Handle is a relocation-safe reference to one pool slot: the owning
// pool's identity, the slot index and the generation the slot had when
// the handle was issued. It denotes a location, not a value, and stays
// resolvable across pool growth because it never caches an address.
//
// The zero Handle is the invalid sentinel; a valid handle always
// carries a non-nil pool reference.
type Handle[T any] struct {
	p   *pool
	idx uint64
	gen uint32
}

// Resolve returns a pointer to the live object, computed from the
// pool's current base on every call. It returns nil for the invalid
// handle and for handles whose slot has been released (and possibly
// reused) since they were issued.
//
// The returned pointer is only good until the next operation that may
// grow the pool; keep the handle, not the pointer.
func (h Handle[T]) Resolve() *T {
	if h.p == nil {
		return nil
	}
	gen, ok := h.p.generation(h.idx)
	if !ok || gen != h.gen {
		return nil
	}
	return (*T)(h.p.slot(h.idx))
}

// IsValid reports whether the handle references a slot at all. A valid
// handle can still be stale; Resolve is the authoritative check.
func (h Handle[T]) IsValid() bool {
	return h.p != nil
}

// Zero resets the handle to the invalid sentinel.
func (h *Handle[T]) Zero() {
	*h = Handle[T]{}
}

// Index reports the slot index the handle refers to. Only meaningful
// while the handle is valid.
func (h Handle[T]) Index() uint64 {
	return h.idx
}
