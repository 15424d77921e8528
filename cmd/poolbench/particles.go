package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/palloc/palloc"
)

type particle struct {
	X, Y float32
}

func (p *particle) update(dt float32) {
	p.Y -= 9.81 * dt
	p.X += dt
}

func newParticlesCmd() *cobra.Command {
	var (
		count  uint64
		passes int
	)

	cmd := &cobra.Command{
		Use:   "particles",
		Short: "compare active and fast bulk traversal over a particle pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParticles(count, passes)
		},
	}
	cmd.Flags().Uint64Var(&count, "count", 128*1024, "particles to allocate (multiple of 8)")
	cmd.Flags().IntVar(&passes, "passes", 60, "update passes per traversal mode")
	return cmd
}

func runParticles(count uint64, passes int) error {
	pool, err := palloc.NewTypedPool[particle](palloc.PoolConfig{
		InitialCapacity: count,
		Grow:            true,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	for i := uint64(0); i < count; i++ {
		h, err := pool.Allocate()
		if err != nil {
			return err
		}
		h.Resolve().X = float32(i)
	}
	fmt.Printf("capacity: %d, live: %d\n", pool.Cap(), pool.Len())

	const dt = float32(1.0 / 60.0)

	start := time.Now()
	for i := 0; i < passes; i++ {
		pool.ForAll(func(p *particle) { p.update(dt) }, palloc.IterActive)
	}
	fmt.Printf("active: %v\n", time.Since(start))

	start = time.Now()
	for i := 0; i < passes; i++ {
		pool.ForAll(func(p *particle) { p.update(dt) }, palloc.IterFast)
	}
	fmt.Printf("fast:   %v\n", time.Since(start))

	return nil
}
