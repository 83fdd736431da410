package coordinator

import (
	"context"
	"errors"
	"io"
	"log"
	"time"
)

// TickSource delivers scheduler ticks.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

type tickerSource struct {
	t *time.Ticker
}

// NewTickerSource returns a TickSource backed by time.Ticker.
func NewTickerSource(interval time.Duration) TickSource {
	return &tickerSource{t: time.NewTicker(interval)}
}

func (s *tickerSource) C() <-chan time.Time { return s.t.C }
func (s *tickerSource) Stop()               { s.t.Stop() }

// Ticker is what the scheduler drives. *Coordinator satisfies it.
type Ticker interface {
	Tick(ctx context.Context) error
}

// SchedulerOptions configures Scheduler.
type SchedulerOptions struct {
	Target       Ticker
	Source       TickSource
	InitialDelay time.Duration
	Logger       *log.Logger
}

// Scheduler runs Tick once after InitialDelay and then on every source tick.
type Scheduler struct {
	target       Ticker
	source       TickSource
	initialDelay time.Duration
	logger       *log.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Scheduler{
		target:       opts.Target,
		source:       opts.Source,
		initialDelay: opts.InitialDelay,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled and returns ctx.Err().
// A tick rejected with ErrBusy is dropped, never queued.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.source.Stop()

	if s.initialDelay > 0 {
		s.logger.Printf("First run in %v", s.initialDelay)
		timer := time.NewTimer(s.initialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.source.C():
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	err := s.target.Tick(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		s.logger.Println("Scheduled tick dropped: previous run still in progress")
	default:
		s.logger.Printf("Scheduled tick failed: %v", err)
	}
}
