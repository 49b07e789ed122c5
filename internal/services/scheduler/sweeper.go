package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Evictor removes idle entries and reports how many were evicted.
type Evictor interface {
	EvictIdle(maxIdle time.Duration) int
}

// Sweeper periodically evicts idle profile assignments from the ledger.
// Without it the session -> profile ledger grows without bound.
type Sweeper struct {
	cron    *cron.Cron
	evictor Evictor
	maxIdle time.Duration
	logger  arbor.ILogger
	running bool
}

// NewSweeper creates a sweeper over the given evictor.
func NewSweeper(evictor Evictor, maxIdle time.Duration, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		evictor: evictor,
		maxIdle: maxIdle,
		logger:  logger,
	}
}

// Start schedules the sweep on the given cron expression and starts the cron
// runner.
func (s *Sweeper) Start(schedule string) error {
	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Dur("max_idle", s.maxIdle).
		Msg("Assignment sweeper started")
	return nil
}

// Stop halts the cron runner and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Assignment sweeper stopped")
}

func (s *Sweeper) sweep() {
	evicted := s.evictor.EvictIdle(s.maxIdle)
	s.logger.Debug().Int("evicted", evicted).Msg("Sweep complete")
}
