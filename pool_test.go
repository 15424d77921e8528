package palloc

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCapacityValidation(t *testing.T) {
	Convey("When creating pools with bad capacities", t, func() {
		for _, capacity := range []uint64{0, 1, 7, 12, 100} {
			_, err := NewTypedPool[uint64](PoolConfig{InitialCapacity: capacity})
			So(err, ShouldWrap, ErrInvalidCapacity)
		}

		Convey("a multiple of 8 should be accepted", func() {
			tp, err := NewTypedPool[uint64](PoolConfig{InitialCapacity: 8})
			So(err, ShouldBeNil)
			So(tp.Cap(), ShouldEqual, 8)
			So(tp.Len(), ShouldEqual, 0)
			So(tp.Close(), ShouldBeNil)
		})
	})
}

func TestCapacityStaysMultipleOfEight(t *testing.T) {
	tp, err := NewTypedPool[uint64](PoolConfig{InitialCapacity: 8, Grow: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Close()

	Convey("When forcing several doubling growths", t, func() {
		for i := 0; i < 100; i++ {
			h, err := tp.Allocate()
			So(err, ShouldBeNil)
			So(h.IsValid(), ShouldBeTrue)
			So(tp.p.capacity%8, ShouldEqual, 0)
			So(tp.p.size, ShouldBeLessThanOrEqualTo, tp.p.capacity)
		}

		Convey("the pool should have doubled up to the next fit", func() {
			So(tp.Cap(), ShouldEqual, 128)
			So(tp.Len(), ShouldEqual, 100)
		})
	})
}

func TestBitmapMatchesLiveHandles(t *testing.T) {
	tp, err := NewTypedPool[uint64](PoolConfig{InitialCapacity: 64, Grow: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Close()

	Convey("When interleaving allocations and releases", t, func() {
		live := make(map[uint64]Handle[uint64])

		for i := 0; i < 48; i++ {
			h, err := tp.Allocate()
			So(err, ShouldBeNil)
			live[h.Index()] = h
		}

		// drop every third live slot
		for idx, h := range live {
			if idx%3 == 0 {
				So(tp.Release(&h), ShouldBeNil)
				delete(live, idx)
			}
		}

		Convey("the LUT bits should be exactly the live handle indices", func() {
			So(tp.p.lut.Count(), ShouldEqual, uint(len(live)))
			So(tp.Len(), ShouldEqual, uint64(len(live)))

			for i := uint64(0); i < tp.p.capacity; i++ {
				_, isLive := live[i]
				So(tp.p.lut.Test(uint(i)), ShouldEqual, isLive)
			}
		})
	})
}

func TestGrowthPreservesContent(t *testing.T) {
	type payload struct {
		ID    uint64
		Score uint64
	}

	tp, err := NewTypedPool[payload](PoolConfig{InitialCapacity: 8, Grow: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Close()

	Convey("When filling the pool with known values", t, func() {
		handles := make([]Handle[payload], 0, 8)
		for i := uint64(0); i < 8; i++ {
			h, err := tp.Allocate()
			So(err, ShouldBeNil)
			v := h.Resolve()
			So(v, ShouldNotBeNil)
			v.ID = i
			v.Score = i * 100
			handles = append(handles, h)
		}
		So(tp.Len(), ShouldEqual, 8)

		Convey("then the 9th allocation forces a growth", func() {
			h9, err := tp.Allocate()
			So(err, ShouldBeNil)
			So(h9.IsValid(), ShouldBeTrue)
			So(tp.Cap(), ShouldEqual, 16)
			So(tp.Len(), ShouldEqual, 9)

			Convey("and every original element still resolves unchanged", func() {
				for i, h := range handles {
					v := h.Resolve()
					So(v, ShouldNotBeNil)
					So(v.ID, ShouldEqual, uint64(i))
					So(v.Score, ShouldEqual, uint64(i*100))
				}
			})
		})
	})
}

func TestIdempotentAllocateReleaseCycle(t *testing.T) {
	tp, err := NewTypedPool[uint64](PoolConfig{InitialCapacity: 32})
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Close()

	Convey("Given a pool with some resident objects", t, func() {
		for i := 0; i < 5; i++ {
			h, err := tp.Allocate()
			So(err, ShouldBeNil)
			*h.Resolve() = uint64(i) + 1
		}
		before := tp.Len()
		lutBefore := append([]uint64(nil), tp.p.lut.Bytes()...)

		Convey("N allocate-then-release cycles should leave it untouched", func() {
			for i := 0; i < 100; i++ {
				h, err := tp.Allocate()
				So(err, ShouldBeNil)
				So(tp.Release(&h), ShouldBeNil)
			}

			So(tp.Len(), ShouldEqual, before)
			So(fmt.Sprint(tp.p.lut.Bytes()), ShouldEqual, fmt.Sprint(lutBefore))
		})
	})
}

func TestDoubleReleaseIsSideEffectFree(t *testing.T) {
	Convey("Given three live objects", t, func() {
		tp, err := NewTypedPool[uint64](PoolConfig{InitialCapacity: 16})
		if err != nil {
			t.Fatal(err)
		}
		defer tp.Close()

		var handles []Handle[uint64]
		for i := uint64(0); i < 3; i++ {
			h, err := tp.Allocate()
			So(err, ShouldBeNil)
			*h.Resolve() = i + 42
			handles = append(handles, h)
		}

		Convey("releasing the middle one twice reports the second as an error", func() {
			stale := handles[1]
			So(tp.Release(&handles[1]), ShouldBeNil)
			So(tp.Release(&stale), ShouldWrap, ErrSlotNotLive)

			Convey("without touching the other slots", func() {
				So(tp.Len(), ShouldEqual, 2)
				So(*handles[0].Resolve(), ShouldEqual, 42)
				So(*handles[2].Resolve(), ShouldEqual, 44)
			})
		})

		Convey("releasing a slot index outside the region is rejected", func() {
			So(tp.p.release(tp.p.capacity, 0), ShouldWrap, ErrAddrOutOfRange)
			So(tp.Len(), ShouldEqual, 3)
		})

		Convey("releasing a handle from a different pool is rejected", func() {
			other, err := NewTypedPool[uint64](PoolConfig{InitialCapacity: 8})
			So(err, ShouldBeNil)
			defer other.Close()

			foreign, err := other.Allocate()
			So(err, ShouldBeNil)
			So(tp.Release(&foreign), ShouldWrap, ErrAddrOutOfRange)
			So(foreign.IsValid(), ShouldBeTrue)
		})
	})
}

func TestClosedPool(t *testing.T) {
	Convey("Operations on a closed pool should fail cleanly", t, func() {
		tp, err := NewTypedPool[uint64](PoolConfig{InitialCapacity: 8})
		So(err, ShouldBeNil)

		h, err := tp.Allocate()
		So(err, ShouldBeNil)

		So(tp.Close(), ShouldBeNil)
		So(tp.Close(), ShouldBeNil) // idempotent

		_, err = tp.Allocate()
		So(err, ShouldWrap, ErrPoolClosed)
		So(tp.Release(&h), ShouldWrap, ErrPoolClosed)
		So(h.Resolve(), ShouldBeNil)
	})
}
