package notedata

import "sync"

// Cached is a single-shot memo cell: the producer runs on the first Get and
// every later Get returns the same value. There is no setter.
type Cached[T any] struct {
	mu      sync.Mutex
	done    bool
	value   T
	produce func() T
}

// NewCached returns a cell that computes its value with produce on first use.
func NewCached[T any](produce func() T) *Cached[T] {
	return &Cached[T]{produce: produce}
}

// Get returns the cached value, computing it first if needed.
func (c *Cached[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		c.value = c.produce()
		c.done = true
		c.produce = nil
	}
	return c.value
}

// Computed reports whether the value has been produced.
func (c *Cached[T]) Computed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
