// Package worker bounds how much ingestion work (extraction, embedding,
// index builds) runs at once, independent of the HTTP server's own
// concurrency.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when the job queue is full and the pool is already at
// its maximum size.
var ErrBusy = errors.New("ingest queue full")

// Task is one unit of ingestion work.
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	run  Task
	done chan error
}

const defaultWorkerIdle = 30 * time.Second

// Pool keeps min resident workers alive, grows on demand up to max, and
// retires surplus workers that sit idle past the expiry.
type Pool struct {
	mu      sync.Mutex
	running int

	jobs   chan job
	min    int
	max    int
	expiry time.Duration
	quit   chan struct{}
}

// NewPool builds the pool and warms up the resident workers.
func NewPool(minWorkers, maxWorkers, queueSize int, idle time.Duration) *Pool {
	if minWorkers < 1 {
		minWorkers = 1
	}
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if idle <= 0 {
		idle = defaultWorkerIdle
	}
	p := &Pool{
		jobs:   make(chan job, queueSize),
		min:    minWorkers,
		max:    maxWorkers,
		expiry: idle,
		quit:   make(chan struct{}),
	}
	for i := 0; i < minWorkers; i++ {
		p.spawn(true)
	}
	return p
}

// Do queues fn and waits for a worker to finish it. A full queue grows the
// pool once before giving up with ErrBusy. If ctx ends first, Do returns the
// context error and the queued job is discarded by its worker.
func (p *Pool) Do(ctx context.Context, fn Task) error {
	j := job{ctx: ctx, run: fn, done: make(chan error, 1)}
	select {
	case p.jobs <- j:
	default:
		p.spawn(false)
		select {
		case p.jobs <- j:
		default:
			return ErrBusy
		}
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running returns the current worker count.
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stop terminates all workers. Queued jobs are abandoned.
func (p *Pool) Stop() {
	close(p.quit)
}

// spawn adds a worker unless the pool is already at max.
func (p *Pool) spawn(resident bool) bool {
	p.mu.Lock()
	if p.running >= p.max {
		p.mu.Unlock()
		return false
	}
	p.running++
	p.mu.Unlock()
	go p.work(resident)
	return true
}

func (p *Pool) work(resident bool) {
	defer func() {
		p.mu.Lock()
		p.running--
		p.mu.Unlock()
	}()

	for {
		if resident {
			select {
			case j := <-p.jobs:
				j.done <- p.execute(j)
			case <-p.quit:
				return
			}
			continue
		}
		idle := time.NewTimer(p.expiry)
		select {
		case j := <-p.jobs:
			idle.Stop()
			j.done <- p.execute(j)
		case <-idle.C:
			return
		case <-p.quit:
			idle.Stop()
			return
		}
	}
}

// execute runs a job unless its caller has already gone away.
func (p *Pool) execute(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	return j.run(j.ctx)
}
