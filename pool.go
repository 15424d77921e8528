package palloc

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/willf/bitset"
	"golang.org/x/sync/errgroup"
)

// IterMode selects how a bulk traversal walks the slot range.
type IterMode uint8

const (
	// IterActive consults the occupancy LUT per slot and visits live
	// slots only.
	IterActive IterMode = iota

	// IterFast visits every slot in [0, capacity) unconditionally.
	// Released slots read as zero values; the visitor has to tolerate
	// them. Only worth it for branchless bulk passes where touching a
	// dead slot makes no observable difference.
	IterFast
)

// pool is the raw arena behind a TypedPool and behind each size-class
// sub-pool of a GeneralPurposeAllocator. It owns one anonymous mapping
// laid out as
//
//	[occupancy LUT words | slot generations | element slots]
//
// The LUT has bit i set iff slot i holds a live object. A BitSet is
// overlaid directly onto the mapped LUT words, so marking and scanning
// never allocate. Generations are bumped on release; handles snapshot
// them so a released-then-reused slot is distinguishable from the
// object the handle originally referenced.
//
// The pool grows by doubling: map a new block, copy the LUT bytes, the
// generation bytes and the slot bytes verbatim, unmap the old block.
// The base address changes but the pool value's identity does not,
// which is what keeps outstanding handles resolvable.
type pool struct {
	mu       sync.Mutex
	locking  bool
	growable bool
	onGrow   func()

	buf      []byte         // whole mapping, nil once closed
	lut      *bitset.BitSet // overlaid on the LUT region of buf
	gens     []uint32       // overlaid on the generation region of buf
	capacity uint64
	size     uint64
	elemSize uint64
	align    uint64
	slotsOff uintptr
}

// lutWords returns how many uint64 words the LUT needs for capacity
// slots. Capacity is a multiple of 8, the region is padded up to whole
// words so the BitSet can sit on it.
func lutWords(capacity uint64) uint64 {
	return (capacity + 63) / 64
}

// poolBytes is the size of the whole mapping for a given geometry.
func poolBytes(capacity, elemSize uint64) uint64 {
	return lutWords(capacity)*8 + capacity*4 + capacity*elemSize
}

func newPool(elemSize, align uint64, cfg PoolConfig) (*pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if elemSize == 0 {
		// zero-size types still get addressable slots
		elemSize = 1
	}
	if align == 0 {
		align = 1
	}

	buf, err := allocAligned(poolBytes(cfg.InitialCapacity, elemSize), align)
	if err != nil {
		return nil, err
	}

	p := &pool{
		locking:  cfg.ThreadSafe,
		growable: cfg.Grow,
		buf:      buf,
		capacity: cfg.InitialCapacity,
		elemSize: elemSize,
		align:    align,
	}
	p.overlay()
	return p, nil
}

// overlay points the LUT bitset and the generation slice at their
// regions of the current mapping. Must be called after every remap.
func (p *pool) overlay() {
	lb := lutWords(p.capacity) * 8
	words := unsafe.Slice((*uint64)(unsafe.Pointer(&p.buf[0])), lutWords(p.capacity))
	p.lut = bitset.From(words)
	p.gens = unsafe.Slice((*uint32)(unsafe.Pointer(&p.buf[lb])), p.capacity)
	p.slotsOff = uintptr(lb + p.capacity*4)
}

// slot returns the address of slot idx, computed fresh from the current
// base. Never cache the result across operations that may grow the pool.
func (p *pool) slot(idx uint64) unsafe.Pointer {
	return unsafe.Pointer(&p.buf[p.slotsOff+uintptr(idx)*uintptr(p.elemSize)])
}

// scrub zeroes the slot's bytes.
func (p *pool) scrub(idx uint64) {
	clear(unsafe.Slice((*byte)(p.slot(idx)), p.elemSize))
}

// grow doubles the capacity. Live slots keep identical byte content at
// identical indices; only the base address moves. Caller holds the lock.
func (p *pool) grow() error {
	newCap := p.capacity * 2
	newBuf, err := allocAligned(poolBytes(newCap, p.elemSize), p.align)
	if err != nil {
		return err
	}

	// verbatim prefix copies: LUT words, then generations, then slots
	copy(newBuf, p.buf[:lutWords(p.capacity)*8])
	copy(newBuf[lutWords(newCap)*8:], p.buf[lutWords(p.capacity)*8:p.slotsOff])
	copy(newBuf[lutWords(newCap)*8+newCap*4:], p.buf[p.slotsOff:p.slotsOff+uintptr(p.capacity*p.elemSize)])

	old := p.buf
	p.buf = newBuf
	p.capacity = newCap
	p.overlay()
	return freeAligned(old)
}

// allocate claims the lowest free slot, first-fit. The slot is zeroed
// before it is handed out, and the whole claim including that
// initialization happens under the lock. A full pool grows when growth
// is enabled; otherwise ok is false and no slot is claimed.
func (p *pool) allocate() (idx uint64, gen uint32, ok bool, err error) {
	if p.locking {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	if p.buf == nil {
		return 0, 0, false, ErrPoolClosed
	}

	if p.size == p.capacity {
		if !p.growable {
			return 0, 0, false, nil
		}
		if err := p.grow(); err != nil {
			return 0, 0, false, err
		}
		if p.onGrow != nil {
			p.onGrow()
		}
	}

	free, found := p.lut.NextClear(0)
	if !found || uint64(free) >= p.capacity {
		// size < capacity guarantees a clear bit below capacity
		panic("palloc: no free slot in a pool that is not full")
	}

	p.lut.Set(free)
	p.size++
	idx = uint64(free)
	p.scrub(idx)
	return idx, p.gens[idx], true, nil
}

// release frees the slot the handle (idx, gen) refers to. The slot is
// scrubbed and its generation bumped under the lock, so stale handles
// issued before this release can never alias the slot's next occupant.
func (p *pool) release(idx uint64, gen uint32) error {
	if p.locking {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	if p.buf == nil {
		return ErrPoolClosed
	}
	if idx >= p.capacity {
		return fmt.Errorf("%w: slot %d, capacity %d", ErrAddrOutOfRange, idx, p.capacity)
	}
	if !p.lut.Test(uint(idx)) {
		return ErrSlotNotLive
	}
	if p.gens[idx] != gen {
		// the slot is live again, but for a later occupant
		return ErrStaleHandle
	}

	p.lut.Clear(uint(idx))
	p.size--
	p.scrub(idx)
	p.gens[idx]++
	return nil
}

// forAll walks the slot range under the lock. See IterMode for the two
// traversal contracts.
func (p *pool) forAll(fn func(unsafe.Pointer), mode IterMode) {
	if p.locking {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	if p.buf == nil {
		return
	}

	if mode == IterFast {
		for i := uint64(0); i < p.capacity; i++ {
			fn(p.slot(i))
		}
		return
	}

	for i, ok := p.lut.NextSet(0); ok && uint64(i) < p.capacity; i, ok = p.lut.NextSet(i + 1) {
		fn(p.slot(uint64(i)))
	}
}

// find scans the live slots for the first one match accepts, sharding
// the slot range across GOMAXPROCS goroutines. Which match wins is
// unspecified when several slots qualify. The lock is held for the
// whole scan.
func (p *pool) find(match func(unsafe.Pointer) bool) (idx uint64, gen uint32, ok bool) {
	if p.locking {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	if p.buf == nil || p.size == 0 {
		return 0, 0, false
	}

	shards := uint64(runtime.GOMAXPROCS(0))
	if shards > p.capacity {
		shards = 1
	}

	var hit atomic.Int64
	hit.Store(-1)

	var g errgroup.Group
	for s := uint64(0); s < shards; s++ {
		s := s
		g.Go(func() error {
			for i := s; i < p.capacity; i += shards {
				if hit.Load() >= 0 {
					return nil
				}
				if p.lut.Test(uint(i)) && match(p.slot(i)) {
					hit.CompareAndSwap(-1, int64(i))
					return nil
				}
			}
			return nil
		})
	}
	// workers never return errors, Wait is only a join point
	_ = g.Wait()

	v := hit.Load()
	if v < 0 {
		return 0, 0, false
	}
	return uint64(v), p.gens[uint64(v)], true
}

// generation reports the current generation of slot idx. ok is false
// once the pool is closed or if idx was never a valid slot.
func (p *pool) generation(idx uint64) (uint32, bool) {
	if p.gens == nil || idx >= uint64(len(p.gens)) {
		return 0, false
	}
	return p.gens[idx], true
}

func (p *pool) setOnGrow(fn func()) {
	if p.locking {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	p.onGrow = fn
}

func (p *pool) live() uint64 {
	if p.locking {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	return p.size
}

func (p *pool) cap() uint64 {
	if p.locking {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	return p.capacity
}

// close unmaps the backing block in one call. Still-live slots are not
// individually destroyed; outstanding handles become invalid.
func (p *pool) close() error {
	if p.locking {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	if p.buf == nil {
		return nil
	}
	buf := p.buf
	p.buf = nil
	p.lut = nil
	p.gens = nil
	p.size = 0
	return freeAligned(buf)
}
