// Package pool keeps a fixed set of model instances that are not safe for
// concurrent use and hands them out one caller at a time.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultSize           = 4
	DefaultAcquireTimeout = 5 * time.Second
)

// ErrClosed is returned by Acquire after Destroy.
var ErrClosed = errors.New("pool is closed")

// ErrAcquireTimeout is returned when no instance became free in time.
var ErrAcquireTimeout = errors.New("timeout waiting for available instance")

// Pool is a bounded pool of T.
type Pool[T any] struct {
	items          chan T
	size           int
	destroy        func(T)
	acquireTimeout time.Duration

	mu      sync.Mutex
	closed  bool
	metrics Metrics
}

// Metrics describes pool usage.
type Metrics struct {
	InUse           int
	TotalAcquired   int64
	TotalReleased   int64
	AcquireFailures int64
	WaitTime        time.Duration
}

// New fills a pool with size instances built by create. If any of them fails,
// the ones already built are destroyed.
func New[T any](size int, create func(i int) (T, error), destroy func(T)) (*Pool[T], error) {
	if size <= 0 {
		size = DefaultSize
	}

	p := &Pool[T]{
		items:          make(chan T, size),
		size:           size,
		destroy:        destroy,
		acquireTimeout: DefaultAcquireTimeout,
	}

	for i := 0; i < size; i++ {
		item, err := create(i)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("failed to initialize instance %d: %w", i, err)
		}
		p.items <- item
	}

	return p, nil
}

// SetAcquireTimeout changes how long Acquire waits. Zero waits for ctx only.
func (p *Pool[T]) SetAcquireTimeout(d time.Duration) {
	p.mu.Lock()
	p.acquireTimeout = d
	p.mu.Unlock()
}

// Size returns the number of instances the pool was built with.
func (p *Pool[T]) Size() int {
	return p.size
}

// Acquire takes an instance out of the pool. It must be handed back with Release.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, ErrClosed
	}
	timeout := p.acquireTimeout
	p.mu.Unlock()

	start := time.Now()
	defer func() {
		p.mu.Lock()
		p.metrics.WaitTime += time.Since(start)
		p.mu.Unlock()
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case item, ok := <-p.items:
		if !ok {
			return zero, ErrClosed
		}
		p.mu.Lock()
		p.metrics.InUse++
		p.metrics.TotalAcquired++
		p.mu.Unlock()
		return item, nil
	case <-expired:
		p.mu.Lock()
		p.metrics.AcquireFailures++
		p.mu.Unlock()
		return zero, ErrAcquireTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Release returns an instance to the pool, or destroys it if the pool is closed.
func (p *Pool[T]) Release(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.destroy(item)
		return
	}

	p.metrics.InUse--
	p.metrics.TotalReleased++
	p.items <- item
}

// Destroy closes the pool and destroys every idle instance. Instances still
// acquired are destroyed when released.
func (p *Pool[T]) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.items)

	for item := range p.items {
		p.destroy(item)
	}
}

// Metrics returns a snapshot of the pool usage.
func (p *Pool[T]) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}
