package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrInterrupted is returned when a batch is cancelled before every job has
// run. Callers never receive partially computed output alongside it.
var ErrInterrupted = errors.New("parallel: batch interrupted")

// NumThreads resolves a configured thread count, falling back to GOMAXPROCS.
func NumThreads(threads int) int {
	if threads <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return threads
}

// For runs fn(thread, i) for every i in [0, n) on a fixed set of workers and
// blocks until all of them are done.
//
// A dispatcher goroutine deals the indices round-robin onto one buffered
// channel per worker. The first error returned by fn stops the batch and is
// returned as is; cancellation of ctx is reported as ErrInterrupted.
func For(ctx context.Context, n, threads int, fn func(thread, i int) error) error {
	if n <= 0 {
		return nil
	}

	nproc := NumThreads(threads)
	if nproc > n {
		nproc = n
	}

	g, gctx := errgroup.WithContext(ctx)

	jobChannels := make([]chan int, nproc)
	for i := range jobChannels {
		jobChannels[i] = make(chan int, 32)
	}

	// Dispatcher
	g.Go(func() error {
		defer func() {
			for _, c := range jobChannels {
				close(c)
			}
		}()
		for i := 0; i < n; i++ {
			select {
			case jobChannels[i%nproc] <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	// Workers
	for thread := 0; thread < nproc; thread++ {
		thread := thread
		g.Go(func() error {
			for i := range jobChannels[thread] {
				if gctx.Err() != nil {
					continue
				}
				if err := fn(thread, i); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInterrupted, err)
	}
	return nil
}

// Ranges splits [0, n) into at most parts contiguous ranges whose sizes
// differ by at most one. Empty ranges are never returned.
func Ranges(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	out := make([][2]int, parts)
	start := 0
	for i := 0; i < parts; i++ {
		end := (i + 1) * n / parts
		out[i] = [2]int{start, end}
		start = end
	}
	return out
}
