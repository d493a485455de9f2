// Package worker runs queued jobs on a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrStopped = errors.New("worker pool stopped")

type ProcessFunc[J any] func(ctx context.Context, job J) error

// Pool processes jobs of type J. Errors returned by the process function are
// logged and do not stop the worker.
type Pool[J any] struct {
	name       string
	numWorkers int
	jobs       chan J
	process    ProcessFunc[J]
	logger     *slog.Logger

	mu       sync.RWMutex
	stopped  bool
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

func NewPool[J any](name string, numWorkers, bufferSize int, process ProcessFunc[J], logger *slog.Logger) *Pool[J] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[J]{
		name:       name,
		numWorkers: numWorkers,
		jobs:       make(chan J, bufferSize),
		quit:       make(chan struct{}),
		process:    process,
		logger:     logger,
	}
}

func (p *Pool[J]) Start(ctx context.Context) {
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *Pool[J]) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.process(ctx, job); err != nil {
				p.logger.Warn("job failed", "pool", p.name, "worker", id, "error", err)
			}
		}
	}
}

// Submit queues job, blocking while the buffer is full. A blocked Submit
// returns ErrStopped as soon as Stop is called.
func (p *Pool[J]) Submit(ctx context.Context, job J) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues job only if there is room. It reports whether the job was
// accepted.
func (p *Pool[J]) TrySubmit(job J) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for the workers to drain it or for their
// context to end.
func (p *Pool[J]) Stop() {
	// Release blocked submitters before taking the write lock they hold off.
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
