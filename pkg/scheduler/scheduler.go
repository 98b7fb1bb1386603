package scheduler

import (
	"VoiceBoard/pkg/logger"
	"context"
	"time"

	"go.uber.org/zap"
)

type Job interface{ Run(ctx context.Context) }

type FuncJob func(ctx context.Context)

func (f FuncJob) Run(ctx context.Context) { f(ctx) }

// Scheduler runs in-process interval jobs until Stop.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

func (s *Scheduler) Stop() { s.cancel() }

// Every runs job now and then every d.
func (s *Scheduler) Every(name string, d time.Duration, job Job) { go s.loopEvery(name, d, job) }

func (s *Scheduler) OnceAfter(name string, d time.Duration, job Job) { go s.onceAfter(name, d, job) }

func (s *Scheduler) loopEvery(name string, d time.Duration, job Job) {
	t := time.NewTicker(d)
	defer t.Stop()
	s.run(name, job)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			s.run(name, job)
		}
	}
}

func (s *Scheduler) onceAfter(name string, d time.Duration, job Job) {
	select {
	case <-s.ctx.Done():
		return
	case <-time.After(d):
		s.run(name, job)
	}
}

func (s *Scheduler) run(name string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduled job panicked", zap.String("job", name), zap.Any("panic", r))
		}
	}()
	job.Run(s.ctx)
}
