package internal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/isso/pkg/logger"
)

// Scheduler runs periodic maintenance tasks in the background.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	mu     sync.RWMutex
}

// NewScheduler creates an idle scheduler.
func NewScheduler(l *slog.Logger) *Scheduler {
	if l == nil {
		l = logger.NewNope()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		logger: l,
		ctx:    context.Background(),
	}
}

// Every registers fn to run at the given interval. Failures are logged and
// the task keeps its schedule.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		s.mu.RLock()
		ctx := s.ctx
		s.mu.RUnlock()

		start := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.ErrorContext(ctx, "scheduled task failed",
				slog.String("task", name),
				logger.Error(err),
			)
			return
		}
		s.logger.DebugContext(ctx, "scheduled task completed",
			slog.String("task", name),
			slog.Duration("took", time.Since(start)),
		)
	}))
}

// Len returns the number of registered tasks.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Run starts the scheduler and blocks until ctx is done and running tasks
// have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
