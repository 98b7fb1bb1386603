package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorRunsAllTasks(t *testing.T) {
	e := NewExecutor(2, 4, time.Second)
	var n atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, e.Submit("count", func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			n.Add(1)
			return nil
		}))
	}
	require.NoError(t, e.Stop(context.Background()))
	assert.EqualValues(t, 20, n.Load())
}

func TestExecutorOverflowRunsDetached(t *testing.T) {
	e := NewExecutor(1, 0, 0)
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	require.NoError(t, e.Submit("blocker", func(ctx context.Context) error {
		defer wg.Done()
		<-release
		return nil
	}))
	// with an unbuffered queue the second task goes to the idle worker or runs detached
	ran := make(chan struct{})
	require.NoError(t, e.Submit("second", func(ctx context.Context) error {
		defer wg.Done()
		close(ran)
		return nil
	}))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("second task did not run while the worker was busy")
	}
	close(release)
	wg.Wait()
	require.NoError(t, e.Stop(context.Background()))
}

func TestExecutorRejectsAfterStop(t *testing.T) {
	e := NewExecutor(1, 1, 0)
	require.NoError(t, e.Stop(context.Background()))
	assert.ErrorIs(t, e.Submit("late", func(context.Context) error { return nil }), ErrExecutorStopped)
	require.NoError(t, e.Stop(context.Background()))
}

func TestExecutorRecoversPanics(t *testing.T) {
	e := NewExecutor(1, 2, 0)
	done := make(chan struct{})
	require.NoError(t, e.Submit("panic", func(context.Context) error { panic("boom") }))
	require.NoError(t, e.Submit("after", func(context.Context) error { close(done); return nil }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after panic")
	}
	require.NoError(t, e.Stop(context.Background()))
}

func TestExecutorTaskTimeout(t *testing.T) {
	e := NewExecutor(1, 1, 20*time.Millisecond)
	errCh := make(chan error, 1)
	require.NoError(t, e.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	}))
	assert.ErrorIs(t, <-errCh, context.DeadlineExceeded)
	require.NoError(t, e.Stop(context.Background()))
}

func TestExecutorStopDeadlineCancelsTasks(t *testing.T) {
	e := NewExecutor(1, 1, 0)
	started := make(chan struct{})
	require.NoError(t, e.Submit("stuck", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Stop(ctx), context.DeadlineExceeded)
}

func TestSchedulerEveryRunsImmediately(t *testing.T) {
	s := New()
	defer s.Stop()
	ran := make(chan struct{}, 1)
	s.Every("tick", time.Hour, FuncJob(func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}

func TestCronAdd(t *testing.T) {
	c := NewCron(nil)
	_, err := c.AddWithCtx("@every 1h", func(context.Context) {})
	require.NoError(t, err)
	_, err = c.Add("not a schedule", FuncJob(func(context.Context) {}))
	assert.Error(t, err)
	assert.Len(t, c.Entries(), 1)
	c.Start()
	c.Stop()
}
