package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueFull is returned by Submit when the pool's backlog is saturated.
// Handlers surface it to the caller instead of blocking the request.
var ErrQueueFull = errors.New("pipeline: queue full")

// Pool runs pipeline jobs with bounded concurrency. Submission is
// non-blocking; on shutdown it stops accepting work and lets in-flight jobs
// finish.
type Pool struct {
	runner      *Runner
	concurrency int
	jobs        chan Job
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool

	wg   sync.WaitGroup
	done chan struct{}
}

// NewPool creates a pool with the given worker count and backlog size.
func NewPool(runner *Runner, concurrency, backlog int, logger *slog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if backlog <= 0 {
		backlog = 64
	}
	return &Pool{
		runner:      runner,
		concurrency: concurrency,
		jobs:        make(chan Job, backlog),
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Run starts the workers and blocks until the context is cancelled and all
// in-flight jobs have finished.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("pipeline pool starting", "concurrency", p.concurrency)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	<-ctx.Done()

	p.mu.Lock()
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.logger.Info("pipeline pool draining")
	p.wg.Wait()
	close(p.done)
	return ctx.Err()
}

// Done returns a channel closed once the pool has fully drained.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// Submit enqueues a job without blocking. ErrQueueFull when the backlog is
// saturated or the pool is shutting down.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrQueueFull
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the current backlog depth, for metrics.
func (p *Pool) Pending() int {
	return len(p.jobs)
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobs {
		// Jobs run on a background context: cancellation stops intake,
		// not work already claimed.
		p.runner.Run(context.WithoutCancel(ctx), job)
	}
}
