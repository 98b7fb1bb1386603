package scheduler

import (
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/logger"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrExecutorStopped is returned by Submit after Stop.
var ErrExecutorStopped = errors.New("executor stopped")

// Task is a unit of background work.
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	run  Task
}

// Executor runs tasks on a fixed set of workers fed by a bounded queue.
// A task submitted while the queue is full runs on its own goroutine, so
// accepted work is never dropped.
type Executor struct {
	tasks   chan namedTask
	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	mu       sync.RWMutex
	closed   bool
	detached sync.WaitGroup
}

// NewExecutor starts workers goroutines. timeout bounds each task; 0 means none.
func NewExecutor(workers, queueSize int, timeout time.Duration) *Executor {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		tasks:   make(chan namedTask, queueSize),
		group:   new(errgroup.Group),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		e.group.Go(func() error {
			for t := range e.tasks {
				e.execute(t)
			}
			return nil
		})
	}
	return e
}

// Submit queues task. It reports ErrExecutorStopped once Stop was called.
func (e *Executor) Submit(name string, task Task) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrExecutorStopped
	}
	t := namedTask{name: name, run: task}
	select {
	case e.tasks <- t:
	default:
		logger.Warn("executor queue full, running task detached", zap.String("task", name))
		e.detached.Add(1)
		go func() {
			defer e.detached.Done()
			e.execute(t)
		}()
	}
	return nil
}

// Pending is the number of queued tasks not yet picked up by a worker.
func (e *Executor) Pending() int { return len(e.tasks) }

func (e *Executor) execute(t namedTask) {
	ctx := e.ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", zap.String("task", t.name), zap.Any("panic", r))
		}
	}()
	if err := t.run(ctx); err != nil {
		logger.Warn("task failed", zap.String("task", t.name), zap.Error(err))
	}
}

// Stop refuses new tasks and waits until the queue is drained. If ctx expires
// first the running tasks are cancelled and ctx's error is returned.
func (e *Executor) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.tasks)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = e.group.Wait()
		e.detached.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		return ctx.Err()
	}
}
