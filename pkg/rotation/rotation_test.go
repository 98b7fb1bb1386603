package rotation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatorCyclesByDisplayOrder(t *testing.T) {
	r := NewRotator()
	assert.Equal(t, StateLoading, r.State())

	r.Load([]Message{{ID: 1, Text: "B", Order: 2}, {ID: 2, Text: "A", Order: 1}})

	var seen []string
	for i := 0; i < 3; i++ {
		f := r.Frame()
		require.Equal(t, "showing", f.State)
		assert.True(t, f.Visible)
		seen = append(seen, f.Text)

		require.True(t, r.BeginFade())
		assert.False(t, r.Frame().Visible)
		r.Advance()
	}
	assert.Equal(t, []string{"A", "B", "A"}, seen)
}

func TestRotatorEmpty(t *testing.T) {
	r := NewRotator()
	r.Load(nil)
	assert.Equal(t, StateEmpty, r.State())
	assert.False(t, r.BeginFade())
	f := r.Frame()
	assert.Equal(t, "empty", f.State)
	assert.Equal(t, 0, f.Total)
	assert.Empty(t, f.Text)
}

func TestRotatorSingleMessageNeverFades(t *testing.T) {
	r := NewRotator()
	r.Load([]Message{{ID: 1, Text: "only"}})
	assert.False(t, r.BeginFade())
	assert.Equal(t, "only", r.Frame().Text)
}

func TestRotatorRefreshKeepsCurrentMessage(t *testing.T) {
	r := NewRotator()
	r.Load([]Message{{ID: 1, Text: "A", Order: 1}, {ID: 2, Text: "B", Order: 2}})
	require.True(t, r.BeginFade())
	r.Advance()
	require.Equal(t, "B", r.Frame().Text)

	r.Refresh([]Message{{ID: 3, Text: "Z", Order: 0}, {ID: 1, Text: "A", Order: 1}, {ID: 2, Text: "B", Order: 2}})
	assert.Equal(t, "B", r.Frame().Text)
	assert.Equal(t, 2, r.Frame().Index)
}

func TestRotatorRefreshClampsWhenCurrentRemoved(t *testing.T) {
	r := NewRotator()
	r.Load([]Message{{ID: 1, Text: "A", Order: 1}, {ID: 2, Text: "B", Order: 2}, {ID: 3, Text: "C", Order: 3}})
	for i := 0; i < 2; i++ {
		require.True(t, r.BeginFade())
		r.Advance()
	}
	require.Equal(t, "C", r.Frame().Text)

	r.Refresh([]Message{{ID: 1, Text: "A", Order: 1}})
	assert.Equal(t, "A", r.Frame().Text)
	assert.Equal(t, StateShowing, r.State())

	r.Refresh(nil)
	assert.Equal(t, StateEmpty, r.State())

	r.Refresh([]Message{{ID: 9, Text: "new"}})
	assert.Equal(t, "new", r.Frame().Text)
}

func TestRotatorRefreshDoesNotInterruptFade(t *testing.T) {
	r := NewRotator()
	r.Load([]Message{{ID: 1, Text: "A", Order: 1}, {ID: 2, Text: "B", Order: 2}})
	require.True(t, r.BeginFade())

	r.Refresh([]Message{{ID: 1, Text: "A", Order: 1}, {ID: 2, Text: "B", Order: 2}, {ID: 3, Text: "C", Order: 3}})
	assert.Equal(t, StateFading, r.State())

	r.Advance()
	assert.Equal(t, "B", r.Frame().Text)
}

type recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *recorder) emit(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recorder) shown() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, f := range r.frames {
		if f.State == "showing" {
			out = append(out, f.Text)
		}
	}
	return out
}

func TestRunnerRotatesUntilCancelled(t *testing.T) {
	rec := &recorder{}
	fetch := func(context.Context) ([]Message, error) {
		return []Message{{ID: 1, Text: "B", Order: 2}, {ID: 2, Text: "A", Order: 1}}, nil
	}
	runner := &Runner{
		Fetch:        fetch,
		Emit:         rec.emit,
		Interval:     20 * time.Millisecond,
		Fade:         2 * time.Millisecond,
		RefreshEvery: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.shown()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []string{"A", "B", "A"}, rec.shown()[:3])
	assert.Equal(t, "loading", rec.frames[0].State)
}

func TestRunnerShowsPlaceholderOnFetchError(t *testing.T) {
	rec := &recorder{}
	runner := &Runner{
		Fetch:        func(context.Context) ([]Message, error) { return nil, errors.New("db down") },
		Emit:         rec.emit,
		Interval:     time.Hour,
		Fade:         time.Millisecond,
		RefreshEvery: time.Hour,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.frames) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, "empty", rec.frames[1].State)
}

func TestRunnerRefetchesOnChange(t *testing.T) {
	rec := &recorder{}
	var mu sync.Mutex
	msgs := []Message{{ID: 1, Text: "A"}}
	changed := make(chan struct{}, 1)
	runner := &Runner{
		Fetch: func(context.Context) ([]Message, error) {
			mu.Lock()
			defer mu.Unlock()
			return msgs, nil
		},
		Emit:         rec.emit,
		Interval:     time.Hour,
		Fade:         time.Millisecond,
		RefreshEvery: time.Hour,
		Changed:      changed,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.shown()) == 1 }, time.Second, 5*time.Millisecond)

	mu.Lock()
	msgs = []Message{{ID: 2, Text: "C"}}
	mu.Unlock()
	changed <- struct{}{}

	require.Eventually(t, func() bool { return len(rec.shown()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []string{"A", "C"}, rec.shown())
}
