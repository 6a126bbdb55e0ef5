package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler owns the cron loop that fires the engine's ticks. All state
// lives in the database; the ticks themselves are short-lived and stateless,
// so a missed or failed run is simply retried on the next tick.
type Scheduler struct {
	cron      *cron.Cron
	logger    *logrus.Logger
	mu        sync.Mutex
	isRunning bool
}

func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddTick schedules a named tick. Failures are logged and swallowed;
// correctness relies on idempotent re-runs, not in-process retries.
func (s *Scheduler) AddTick(spec string, name string, tick func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := tick(context.Background()); err != nil {
			s.logger.WithFields(logrus.Fields{
				"tick": name,
			}).WithError(err).Error("Scheduled tick failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Start begins firing scheduled ticks
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("Scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for in-flight ticks
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}
