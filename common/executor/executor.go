package executor

import (
	"context"

	"github.com/zeromicro/go-zero/core/threading"
)

// Executor runs handler for committed tasks on a fixed number of workers.
type Executor[P interface{}] struct {
	ctx     context.Context
	tasks   chan P
	handler func(task P)
	workers int
	cancel  context.CancelFunc
}

func NewExecutor[P interface{}](ctx context.Context, workers int, queueSize int, handler func(task P)) *Executor[P] {
	ret := &Executor[P]{
		tasks:   make(chan P, queueSize),
		handler: handler,
		workers: workers,
	}
	ret.ctx, ret.cancel = context.WithCancel(ctx)
	return ret
}

func (e *Executor[P]) Start() {
	for i := 0; i < e.workers; i++ {
		go func() {
			for {
				select {
				case <-e.ctx.Done():
					return
				case task := <-e.tasks:
					threading.RunSafe(func() {
						e.handler(task)
					})
				}
			}
		}()
	}
}

func (e *Executor[P]) Stop() {
	e.cancel()
}

func (e *Executor[P]) QueueSize() int {
	return len(e.tasks)
}

// Commit blocks until the task is queued or the executor is stopped.
func (e *Executor[P]) Commit(task P) {
	select {
	case e.tasks <- task:
	case <-e.ctx.Done():
	}
}

// TryCommit queues the task only if there is room and reports whether it did.
func (e *Executor[P]) TryCommit(task P) bool {
	select {
	case e.tasks <- task:
		return true
	default:
		return false
	}
}
