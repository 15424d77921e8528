package palloc

import "errors"

var (
	// ErrInvalidCapacity indicates a pool capacity that is zero or not a
	// multiple of 8. The occupancy LUT tracks slots in whole bytes, so
	// capacities must stay byte-aligned.
	ErrInvalidCapacity = errors.New("palloc: initial capacity must be a non-zero multiple of 8")

	// ErrInvalidAlignment indicates an alignment request the memory
	// provider cannot satisfy.
	ErrInvalidAlignment = errors.New("palloc: alignment must be a power of two no larger than a page")

	// ErrInvalidSizeClasses indicates a size class list that is empty,
	// contains a zero, or is not strictly ascending.
	ErrInvalidSizeClasses = errors.New("palloc: size classes must be non-zero, ascending and free of duplicates")

	// ErrAddrOutOfRange indicates a handle that does not address a slot
	// of the pool it was released into. This is a caller bug.
	ErrAddrOutOfRange = errors.New("palloc: handle does not address this pool's slot region")

	// ErrSlotNotLive indicates a release of a slot that holds no live
	// object, typically a double release.
	ErrSlotNotLive = errors.New("palloc: release of a slot that is not live")

	// ErrStaleHandle indicates a handle whose slot has been released and
	// possibly reused since the handle was issued.
	ErrStaleHandle = errors.New("palloc: handle generation does not match slot")

	// ErrSizeClassOverflow indicates a type larger than every declared
	// size class.
	ErrSizeClassOverflow = errors.New("palloc: no size class large enough for type")

	// ErrPoolClosed indicates an operation on a pool whose backing
	// memory has already been unmapped.
	ErrPoolClosed = errors.New("palloc: pool has been closed")
)
