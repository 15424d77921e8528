// Package palloc provides fixed-capacity object pools with
// relocation-safe handles and a general-purpose allocator that routes
// arbitrary types to size-classed sub-pools.
//
// Pools keep their elements in one contiguous anonymous mapping next to
// a bit-per-slot occupancy LUT, claim slots first-fit, and grow by
// doubling without invalidating outstanding handles. Handles carry
// (pool, index, generation) instead of raw addresses, so storage
// relocation on growth and slot reuse after release are both safe to
// observe: a stale handle resolves to nil instead of aliasing an
// unrelated object.
package palloc
