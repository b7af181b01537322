package media

import (
	"context"
	"sync"
)

// Job acquires one media item.
type Job func(ctx context.Context) error

// Pool runs media jobs on a fixed number of goroutines and collects the
// errors they return.
type Pool struct {
	jobs    chan Job
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	workers int

	closeMu sync.RWMutex
	closed  bool

	errMu sync.Mutex
	errs  []error
}

// NewPool creates a pool with the given number of workers and queue
// capacity.
func NewPool(workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &Pool{
		jobs:    make(chan Job, queue),
		done:    make(chan struct{}),
		workers: workers,
	}
}

// Start launches the workers. They run until Close drains the queue or ctx
// is done.
func (p *Pool) Start(ctx context.Context) {
	for range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					if err := job(ctx); err != nil {
						p.errMu.Lock()
						p.errs = append(p.errs, err)
						p.errMu.Unlock()
					}
				}
			}
		}()
	}
}

// Submit enqueues a job. It blocks while the queue is full and returns
// ErrPoolClosed once Close has been called.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, waits for queued jobs to finish and returns
// the job errors in completion order.
func (p *Pool) Close() []error {
	p.once.Do(func() {
		close(p.done)
		p.closeMu.Lock()
		p.closed = true
		close(p.jobs)
		p.closeMu.Unlock()
	})
	p.wg.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return append([]error(nil), p.errs...)
}

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = &PoolError{"media pool closed"}

// PoolError is a typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
