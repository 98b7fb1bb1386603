package rotation

import (
	"VoiceBoard/pkg/logger"
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultInterval     = 5 * time.Second
	DefaultFade         = 500 * time.Millisecond
	DefaultRefreshEvery = 30 * time.Second
)

// FetchFunc loads the active messages.
type FetchFunc func(ctx context.Context) ([]Message, error)

// Runner drives a Rotator on a single goroutine: it advances every Interval,
// fades for Fade, and refetches every RefreshEvery or whenever Changed fires.
type Runner struct {
	Fetch        FetchFunc
	Emit         func(Frame)
	Interval     time.Duration
	Fade         time.Duration
	RefreshEvery time.Duration
	// Changed is optional; a receive triggers an immediate refetch.
	Changed <-chan struct{}
}

func NewRunner(fetch FetchFunc, emit func(Frame)) *Runner {
	return &Runner{
		Fetch:        fetch,
		Emit:         emit,
		Interval:     DefaultInterval,
		Fade:         DefaultFade,
		RefreshEvery: DefaultRefreshEvery,
	}
}

// Run blocks until ctx is cancelled and returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	rot := NewRotator()
	r.Emit(rot.Frame())

	msgs, err := r.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("display fetch failed", zap.Error(err))
	}
	rot.Load(msgs)
	r.Emit(rot.Frame())

	advance := time.NewTicker(r.Interval)
	defer advance.Stop()
	refresh := time.NewTicker(r.RefreshEvery)
	defer refresh.Stop()

	var fade *time.Timer
	var fadeC <-chan time.Time
	defer func() {
		if fade != nil {
			fade.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-advance.C:
			if rot.BeginFade() {
				r.Emit(rot.Frame())
				fade = time.NewTimer(r.Fade)
				fadeC = fade.C
			}
		case <-fadeC:
			fadeC = nil
			rot.Advance()
			r.Emit(rot.Frame())
		case <-refresh.C:
			if err := r.refresh(ctx, rot); err != nil {
				return err
			}
		case <-r.Changed:
			if err := r.refresh(ctx, rot); err != nil {
				return err
			}
		}
	}
}

// refresh only fails when ctx is done; fetch errors keep the current set.
func (r *Runner) refresh(ctx context.Context, rot *Rotator) error {
	msgs, err := r.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("display refresh failed", zap.Error(err))
		return nil
	}
	before := rot.Frame()
	rot.Refresh(msgs)
	if after := rot.Frame(); after != before {
		r.Emit(after)
	}
	return nil
}
