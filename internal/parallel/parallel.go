// Package parallel runs data-parallel passes over index ranges. Every call
// to For is a barrier: it returns only after every band has finished, so a
// pass can read anything the previous pass wrote.
package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minBand is the smallest number of indices handed to one goroutine.
// Smaller ranges run inline on the caller.
const minBand = 4

// Scheduler splits index ranges into contiguous bands and runs them on a
// bounded number of goroutines. The zero value runs everything inline.
type Scheduler struct {
	workers int
}

// New returns a Scheduler using up to workers goroutines per pass.
// workers <= 0 selects runtime.GOMAXPROCS(0).
func New(workers int) *Scheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scheduler{workers: workers}
}

// Workers returns the goroutine limit of s.
func (s *Scheduler) Workers() int {
	if s == nil || s.workers < 1 {
		return 1
	}
	return s.workers
}

// PanicError reports a panic recovered from a band.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: panic in worker: %v", e.Value)
}

// For calls fn over [0, n) split into disjoint bands [lo, hi) that together
// cover the range exactly once. It returns after all bands complete. A
// panic inside fn is recovered and returned as a *PanicError.
func (s *Scheduler) For(ctx context.Context, n int, fn func(lo, hi int)) error {
	if n <= 0 {
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	bands := s.Workers()
	if maxBands := (n + minBand - 1) / minBand; bands > maxBands {
		bands = maxBands
	}
	if bands <= 1 {
		return run(fn, 0, n)
	}

	g := new(errgroup.Group)
	g.SetLimit(bands)
	for b := 0; b < bands; b++ {
		lo := b * n / bands
		hi := (b + 1) * n / bands
		g.Go(func() error { return run(fn, lo, hi) })
	}
	return g.Wait()
}

// Go runs each task concurrently and waits for all of them. The first error
// is returned; a cancelled ctx is passed to every task.
func Go(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r}
				}
			}()
			return task(gctx)
		})
	}
	return g.Wait()
}

func run(fn func(lo, hi int), lo, hi int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	fn(lo, hi)
	return nil
}
