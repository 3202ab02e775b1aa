// Package scheduler activates scheduled workflows once their start date has passed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSpec polls for due workflows every minute.
const DefaultSpec = "@every 1m"

var ErrAlreadyStarted = errors.New("scheduler already started")

// Activator starts every scheduled workflow that is due.
type Activator interface {
	ActivateDue(ctx context.Context) (int, error)
}

type Scheduler struct {
	spec      string
	activator Activator
	logger    *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	entry  cron.EntryID
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates spec, a standard five-field cron expression or a descriptor
// such as "@every 30s", and returns a stopped scheduler.
func New(spec string, activator Activator, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}

	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule '%s': %w", spec, err)
	}

	return &Scheduler{
		spec:      spec,
		activator: activator,
		logger:    logger.With("module", "scheduler"),
	}, nil
}

// Start registers the activation job and returns immediately. Runs never
// overlap; a run that is still busy when the next one is due is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	cronLogger := &slogAdapter{logger: s.logger}
	s.cron = cron.New(cron.WithLogger(cronLogger), cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	entry, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(s.ctx) })
	if err != nil {
		s.cancel()
		s.cron = nil

		return fmt.Errorf("failed to add activation job: %w", err)
	}

	s.entry = entry
	s.cron.Start()

	s.logger.InfoContext(ctx, "scheduler started", "schedule", s.spec)

	return nil
}

// RunOnce activates the workflows that are due right now.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	activated, err := s.activator.ActivateDue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to activate due workflows", "activated", activated, "error", err)

		return
	}

	if activated > 0 {
		s.logger.InfoContext(ctx, "activated due workflows", "count", activated)
	} else {
		s.logger.DebugContext(ctx, "no due workflows")
	}
}

// Stop cancels the schedule and waits for a running activation to finish
// or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	cancel := s.cancel
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	done := c.Stop()
	cancel()

	select {
	case <-done.Done():
		s.logger.InfoContext(ctx, "scheduler stopped")

		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler did not stop in time: %w", ctx.Err())
	}
}

// slogAdapter routes cron's own log lines through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.logger.Error(msg, append(keysAndValues, "error", err)...)
}
