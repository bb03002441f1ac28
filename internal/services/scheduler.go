package services

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs recurring generation for the current month on a fixed
// interval.
type Scheduler struct {
	generator *GenerationCoordinator
	interval  time.Duration
	now       func() time.Time
}

func NewScheduler(generator *GenerationCoordinator, interval time.Duration) *Scheduler {
	return &Scheduler{
		generator: generator,
		interval:  interval,
		now:       time.Now,
	}
}

// RunOnce generates the month containing now.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) GenerationResult {
	result := s.generator.GenerateForMonth(ctx, now.Year(), int(now.Month()))
	if !result.Success {
		slog.WarnContext(ctx, "Scheduled generation finished with errors",
			"month", now.Format("2006-01"),
			"generated", result.GeneratedCount,
			"errors", result.Errors)
	}
	return result
}

// Run processes immediately and then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Recurring scheduler started", "interval", s.interval)

	s.RunOnce(ctx, s.now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Recurring scheduler stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			now := s.now()
			result := s.RunOnce(ctx, now)
			slog.InfoContext(ctx, "Periodic generation complete",
				"generated", result.GeneratedCount,
				"next_check", now.Add(s.interval).Format("15:04:05"))
		}
	}
}
