package palloc

import "fmt"

// PoolConfig fixes a pool's policies at construction time. None of the
// fields are mutable after the pool exists.
type PoolConfig struct {
	// InitialCapacity is the number of slots the pool starts with.
	// It must be a non-zero multiple of 8.
	InitialCapacity uint64

	// Grow enables doubling growth when a full pool is asked for a slot.
	// With Grow disabled a full pool hands out invalid handles instead.
	Grow bool

	// ThreadSafe puts a mutex around every pool operation. Without it,
	// concurrent use from multiple goroutines is a caller bug with
	// undefined outcome.
	ThreadSafe bool
}

// DefaultPoolConfig mirrors the defaults of the typed allocator: 1024
// slots, growth on, no locking.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{InitialCapacity: 1024, Grow: true}
}

func (c PoolConfig) validate() error {
	if c.InitialCapacity == 0 || c.InitialCapacity%8 != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, c.InitialCapacity)
	}
	return nil
}

// AllocatorConfig configures a GeneralPurposeAllocator. Every declared
// size class gets its own sub-pool built with the shared Pool settings.
type AllocatorConfig struct {
	// Pool is applied to each sub-pool.
	Pool PoolConfig

	// SizeClasses are the byte thresholds used to bucket allocations,
	// strictly ascending and free of duplicates.
	SizeClasses []uint64
}

// DefaultAllocatorConfig uses 128-slot growable sub-pools over the
// classic power-of-two class ladder.
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		Pool:        PoolConfig{InitialCapacity: 128, Grow: true},
		SizeClasses: []uint64{8, 16, 32, 64, 128, 256},
	}
}

func (c AllocatorConfig) validate() error {
	if err := c.Pool.validate(); err != nil {
		return err
	}
	if len(c.SizeClasses) == 0 {
		return fmt.Errorf("%w: empty list", ErrInvalidSizeClasses)
	}
	prev := uint64(0)
	for _, class := range c.SizeClasses {
		if class == 0 || class <= prev {
			return fmt.Errorf("%w: class %d after %d", ErrInvalidSizeClasses, class, prev)
		}
		prev = class
	}
	return nil
}
