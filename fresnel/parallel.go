package fresnel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// bandsPerWorker splits the rows finer than the worker count so a slow band does not leave
// the other workers idle.
const bandsPerWorker = 4

// forEachBand splits rows [0, n) into contiguous bands and runs fn on each band, with at
// most workers bands in flight (workers <= 0 means one per CPU). Bands never overlap, so
// fn may write the rows it is given without locking. The first error returned by fn is
// returned once every band has finished.
func forEachBand(n, workers int, fn func(first, last int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	bands := min(n, workers*bandsPerWorker)
	band := (n + bands - 1) / bands

	var g errgroup.Group
	g.SetLimit(workers)
	for first := 0; first < n; first += band {
		last := min(first+band, n)
		g.Go(func() error {
			return fn(first, last)
		})
	}
	return g.Wait()
}
