// Package dispatch serializes work per key. Every key is owned by one
// worker goroutine, so all functions submitted for the same key run one
// at a time in submission order, while different keys spread across
// workers and run in parallel.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"
)

// ErrStopped is returned by Do after Stop has been called.
var ErrStopped = errors.New("dispatcher_stopped")

type job struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

func (j *job) run() {
	if err := j.ctx.Err(); err != nil {
		j.result <- err
		return
	}
	defer func() {
		if r := recover(); r != nil {
			j.result <- fmt.Errorf("dispatch: panic: %v", r)
		}
	}()
	j.result <- j.fn()
}

// Dispatcher routes functions to a fixed set of workers by key.
type Dispatcher struct {
	workers []chan *job
	quit    chan struct{}
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// New starts a dispatcher with n workers, each with a queue of queueSize
// pending jobs. n <= 0 uses one worker per CPU.
func New(n, queueSize int) *Dispatcher {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		workers: make([]chan *job, n),
		quit:    make(chan struct{}),
	}
	for i := range d.workers {
		in := make(chan *job, queueSize)
		d.workers[i] = in
		d.wg.Add(1)
		go d.loop(in)
	}
	return d
}

func (d *Dispatcher) loop(in chan *job) {
	defer d.wg.Done()
	for {
		select {
		case j := <-in:
			j.run()
		case <-d.quit:
			// Finish whatever was queued before Stop.
			for {
				select {
				case j := <-in:
					j.run()
				default:
					return
				}
			}
		}
	}
}

// Workers returns the number of workers.
func (d *Dispatcher) Workers() int {
	return len(d.workers)
}

func (d *Dispatcher) route(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

// Do runs fn on the worker owning key and returns its error. It waits for
// a queue slot until ctx is done. A queued fn whose ctx is done by the time
// the worker reaches it is skipped; once started, fn runs to completion and
// Do waits for it.
func (d *Dispatcher) Do(ctx context.Context, key string, fn func() error) error {
	j := &job{ctx: ctx, fn: fn, result: make(chan error, 1)}

	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		return ErrStopped
	}
	select {
	case d.workers[d.route(key)] <- j:
	case <-ctx.Done():
		d.mu.RUnlock()
		return ctx.Err()
	}
	d.mu.RUnlock()

	return <-j.result
}

// Stop rejects new work, lets workers finish their queues and waits for
// them to exit. It is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.quit)
	d.wg.Wait()
}
