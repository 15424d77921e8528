package palloc

import (
	"fmt"
	"unsafe"
)

// blockAlign is the slot alignment of size-class sub-pools. 8 covers
// the strictest alignment any Go type asks for on 64-bit targets.
const blockAlign = 8

// GeneralPurposeAllocator routes allocations of arbitrary types to the
// smallest declared size class that fits, one opaque byte-block
// sub-pool per class. All sub-pools are built eagerly at construction
// and share the same capacity, growth and thread-safety settings.
type GeneralPurposeAllocator struct {
	classes []uint64
	pools   map[uint64]*pool
}

// NewGeneralPurposeAllocator validates the class list and builds every
// sub-pool up front, so the first allocation never pays a setup cost.
func NewGeneralPurposeAllocator(cfg AllocatorConfig) (*GeneralPurposeAllocator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &GeneralPurposeAllocator{
		classes: append([]uint64(nil), cfg.SizeClasses...),
		pools:   make(map[uint64]*pool, len(cfg.SizeClasses)),
	}
	for _, class := range a.classes {
		p, err := newPool(class, blockAlign, cfg.Pool)
		if err != nil {
			// tear down the sub-pools built so far
			_ = a.Close()
			return nil, err
		}
		a.pools[class] = p
	}
	return a, nil
}

// resolveClass picks the first class that can hold n bytes. The class
// list is ascending, so first fit is smallest fit.
func (a *GeneralPurposeAllocator) resolveClass(n uint64) (uint64, error) {
	for _, class := range a.classes {
		if n <= class {
			return class, nil
		}
	}
	return 0, fmt.Errorf("%w: need %d bytes, largest class is %d",
		ErrSizeClassOverflow, n, a.classes[len(a.classes)-1])
}

// New allocates a slot for a T from the allocator's size-classed
// sub-pools. The byte block backing the slot is reinterpreted as T only
// here and in Delete; callers just see a typed handle. Sub-pool errors
// are forwarded unchanged, and a full non-growing sub-pool yields an
// invalid handle exactly like TypedPool.Allocate does.
//
// New is a package-level function because Go methods cannot introduce
// type parameters.
func New[T any](a *GeneralPurposeAllocator) (Handle[T], error) {
	class, err := a.resolveClass(sizeOf[T]())
	if err != nil {
		return Handle[T]{}, err
	}

	idx, gen, ok, err := a.pools[class].allocate()
	if err != nil || !ok {
		return Handle[T]{}, err
	}
	return Handle[T]{p: a.pools[class], idx: idx, gen: gen}, nil
}

// Delete releases a handle obtained from New, routing it back through
// the same class resolution. The handle is zeroed on success.
func Delete[T any](a *GeneralPurposeAllocator, h *Handle[T]) error {
	if h == nil || h.p == nil {
		return ErrAddrOutOfRange
	}

	class, err := a.resolveClass(sizeOf[T]())
	if err != nil {
		return err
	}
	if h.p != a.pools[class] {
		return ErrAddrOutOfRange
	}
	if err := h.p.release(h.idx, h.gen); err != nil {
		return err
	}
	h.Zero()
	return nil
}

// sizeOf reports the slot footprint of T, clamped so zero-size types
// still occupy a class.
func sizeOf[T any]() uint64 {
	var zero T
	n := uint64(unsafe.Sizeof(zero))
	if n == 0 {
		n = 1
	}
	return n
}

// SizeClassStats is a point-in-time snapshot of one sub-pool.
type SizeClassStats struct {
	Class    uint64 `json:"class"`
	Capacity uint64 `json:"capacity"`
	Live     uint64 `json:"live"`
	Bytes    uint64 `json:"bytes"`
}

// Stats snapshots every sub-pool in class order.
func (a *GeneralPurposeAllocator) Stats() []SizeClassStats {
	out := make([]SizeClassStats, 0, len(a.classes))
	for _, class := range a.classes {
		p := a.pools[class]
		c := p.cap()
		out = append(out, SizeClassStats{
			Class:    class,
			Capacity: c,
			Live:     p.live(),
			Bytes:    poolBytes(c, class),
		})
	}
	return out
}

// Close unmaps every sub-pool's backing buffer. Destructors are not run
// for still-occupied slots; the allocator does no shutdown leak
// tracking.
func (a *GeneralPurposeAllocator) Close() error {
	var first error
	for _, class := range a.classes {
		p, ok := a.pools[class]
		if !ok {
			continue
		}
		if err := p.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
