// Package admission bounds the number of concurrently served device
// sessions. The accept loop takes a permit before every Accept, so an
// exhausted pool stalls new connections in the kernel backlog instead of
// rejecting them.
package admission

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Controller is a fixed-capacity permit pool.
type Controller struct {
	sem      *semaphore.Weighted
	capacity int64
	active   atomic.Int64
}

func New(capacity int) *Controller {
	if capacity < 1 {
		capacity = 1
	}
	return &Controller{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a permit is free or ctx is done.
func (c *Controller) Acquire(ctx context.Context) (*Permit, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("admission: acquire permit: %w", err)
	}
	c.active.Add(1)
	return &Permit{c: c}, nil
}

// Active returns the number of permits currently held.
func (c *Controller) Active() int64 {
	return c.active.Load()
}

func (c *Controller) Capacity() int64 {
	return c.capacity
}

// Permit is one admitted session. Release may be called any number of
// times from any goroutine; only the first call returns the permit.
type Permit struct {
	c    *Controller
	once sync.Once
}

func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.c.active.Add(-1)
		p.c.sem.Release(1)
	})
}
