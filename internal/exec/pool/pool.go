// Package pool wraps golang.org/x/sync/errgroup and
// golang.org/x/sync/semaphore into the worker pool parallel operators
// (hash join, hash aggregate, sort) drive internally over the chunks from
// their children. Go's runtime scheduler already steals work between
// goroutines backed by a bounded semaphore, so this package supplies the
// bound and the first-error/cancel propagation rather than reimplementing
// a scheduler.
package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool runs bounded-concurrency work items, cancelling remaining work on
// the first error.
type Pool struct {
	sem *semaphore.Weighted
	n   int64
}

// DefaultSize returns the available hardware parallelism.
func DefaultSize() int {
	return runtime.GOMAXPROCS(0)
}

// New builds a Pool with the given worker budget. size <= 0 defaults to
// DefaultSize().
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), n: int64(size)}
}

// Size reports the pool's worker budget.
func (p *Pool) Size() int { return int(p.n) }

// Run executes fn once per item in items, with at most p.Size() running
// concurrently, returning the first error encountered (if any) after
// cancelling the remaining work via ctx.
func Run[T any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		if err := p.sem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			return fn(gctx, item)
		})
	}
	return g.Wait()
}

// Partition splits n units of work into up to parts contiguous ranges
// ([start, end)) for range-partitioned parallel work such as the
// hash-aggregate local phase or per-segment sorting.
func Partition(n, parts int) [][2]int {
	if parts <= 0 {
		parts = 1
	}
	if parts > n && n > 0 {
		parts = n
	}
	if n == 0 {
		return nil
	}
	base := n / parts
	rem := n % parts
	ranges := make([][2]int, 0, parts)
	start := 0
	for i := 0; i < parts; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		ranges = append(ranges, [2]int{start, start + size})
		start += size
	}
	return ranges
}
