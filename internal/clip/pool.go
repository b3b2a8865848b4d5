package clip

import (
	"context"
	"fmt"
	"sync"
)

// Pool is a bounded FIFO worker pool. It is created once at startup,
// lives as long as the process, and is the only object shared across
// requests.
type Pool struct {
	size  int
	tasks chan func()

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool sizes the pool; callers normally pass the number of available
// processing units.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:  size,
		tasks: make(chan func(), size*4),
	}
}

func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return fmt.Errorf("pool already started")
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	return nil
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
		}
	}
}

// Submit queues a task for a worker. It blocks when the queue is full and
// fails only when ctx is cancelled first.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the workers and waits for in-flight tasks to finish.
// Queued tasks that no worker has picked up are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()
}
