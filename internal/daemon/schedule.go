package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/model"
	"github.com/jmylchreest/stackbox/internal/notify"
)

// Scheduler raises the configured [[schedule]] widgets and prunes the
// history on its cron spec.
type Scheduler struct {
	mu     sync.Mutex
	c      *cron.Cron
	logger *slog.Logger

	show    func(req notify.Request) error
	prune   func() (int, error)
	onError func(name string, err error)
}

// NewScheduler creates a Scheduler that hands widgets to show.
func NewScheduler(show func(req notify.Request) error, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		c:      cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		logger: logger,
		show:   show,
	}
}

// SetPrune sets the history pruning job. Without it the prune spec is
// ignored.
func (s *Scheduler) SetPrune(fn func() (int, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune = fn
}

// SetErrorHandler sets the function told about failed schedule runs.
func (s *Scheduler) SetErrorHandler(fn func(name string, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// Apply replaces every job with the ones configured in cfg. Entries that
// fail to register are skipped and reported together.
func (s *Scheduler) Apply(cfg *config.DaemonConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.c.Entries() {
		s.c.Remove(e.ID)
	}

	var errs []error
	for _, entry := range cfg.Schedule {
		req, err := entry.Request()
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", entry.Name, err))
			continue
		}
		req.Origin = notify.Origin{Source: model.SourceSchedule, App: entry.Name}

		name := entry.Name
		if _, err := s.c.AddFunc(entry.Spec, func() { s.fire(name, req) }); err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", name, err))
			continue
		}
		s.logger.Debug("schedule registered", "name", name, "spec", entry.Spec, "kind", req.Kind.String())
	}

	if s.prune != nil && cfg.History.Enabled && cfg.History.Prune != "" {
		if _, err := s.c.AddFunc(cfg.History.Prune, s.runPrune); err != nil {
			errs = append(errs, fmt.Errorf("history prune: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) fire(name string, req notify.Request) {
	s.logger.Debug("schedule fired", "name", name)
	if err := s.show(req); err != nil {
		s.logger.Warn("scheduled widget failed", "name", name, "error", err)
		s.mu.Lock()
		onError := s.onError
		s.mu.Unlock()
		if onError != nil {
			onError(name, err)
		}
	}
}

func (s *Scheduler) runPrune() {
	s.mu.Lock()
	prune := s.prune
	s.mu.Unlock()
	if prune == nil {
		return
	}
	n, err := prune()
	if err != nil {
		s.logger.Warn("history prune failed", "error", err)
		return
	}
	s.logger.Info("history pruned", "removed", n)
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.c.Entries())
}

// Run starts the cron loop and stops it, waiting for running jobs, once
// ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.c.Start()
	s.logger.Info("scheduler started", "jobs", s.Entries())
	<-ctx.Done()
	<-s.c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// cronLogger routes cron's logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
