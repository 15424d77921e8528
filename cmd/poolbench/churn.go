package main

import (
	"fmt"
	"os"
	"time"

	"github.com/eapache/queue"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/palloc/palloc"
)

type churnReport struct {
	Workers   int           `json:"workers"`
	Allocs    uint64        `json:"allocs"`
	Window    int           `json:"window"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	FinalLive uint64        `json:"final_live"`
	FinalCap  uint64        `json:"final_capacity"`
}

func newChurnCmd() *cobra.Command {
	var (
		count   uint64
		window  int
		workers int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "churn",
		Short: "allocate/release FIFO workload against a thread-safe pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChurn(count, window, workers, asJSON)
		},
	}
	cmd.Flags().Uint64Var(&count, "count", 1<<20, "total allocations across all workers")
	cmd.Flags().IntVar(&window, "window", 1024, "live handles each worker keeps in flight")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent workers")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON")
	return cmd
}

func runChurn(count uint64, window, workers int, asJSON bool) error {
	if workers < 1 {
		workers = 1
	}

	pool, err := palloc.NewTypedPool[particle](palloc.PoolConfig{
		InitialCapacity: 8192,
		Grow:            true,
		ThreadSafe:      true,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	perWorker := count / uint64(workers)
	start := time.Now()

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			// oldest-first release window, local to the worker
			inFlight := queue.New()

			for i := uint64(0); i < perWorker; i++ {
				h, err := pool.Allocate()
				if err != nil {
					return err
				}
				inFlight.Add(h)

				if inFlight.Length() > window {
					old := inFlight.Remove().(palloc.Handle[particle])
					if err := pool.Release(&old); err != nil {
						return err
					}
				}
			}

			for inFlight.Length() > 0 {
				old := inFlight.Remove().(palloc.Handle[particle])
				if err := pool.Release(&old); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report := churnReport{
		Workers:   workers,
		Allocs:    perWorker * uint64(workers),
		Window:    window,
		Elapsed:   time.Since(start),
		FinalLive: pool.Len(),
		FinalCap:  pool.Cap(),
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(report)
	}
	fmt.Printf("%d workers x %d allocs, window %d: %v (live %d, capacity %d)\n",
		report.Workers, perWorker, report.Window, report.Elapsed, report.FinalLive, report.FinalCap)
	return nil
}
