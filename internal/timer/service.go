package timer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service runs the countdown for the active poll. At most one countdown is
// live at a time: Start cancels any prior countdown before arming the next,
// and every callback is generation-guarded so a stale countdown can never
// tick or expire into a newer poll.
//
// Ticks are best-effort wall clock with no catch-up correction; the
// application is human-interactive, not real-time-precise.
type Service struct {
	mu         sync.Mutex
	interval   time.Duration
	generation int
	cancel     context.CancelFunc
	logger     *zap.Logger
}

// New creates a timer service ticking once per second.
func New(logger *zap.Logger) *Service {
	return NewWithInterval(time.Second, logger)
}

// NewWithInterval creates a timer service with a custom tick interval.
// Used by tests to run countdowns at compressed timescales.
func NewWithInterval(interval time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		interval: interval,
		logger:   logger,
	}
}

// Start arms a countdown of the given number of seconds. onTick is invoked
// once per interval with the remaining count, from seconds-1 down to 0;
// onExpire is invoked once after the final tick, after which the countdown
// deregisters itself. Any prior countdown is cancelled first.
func (s *Service) Start(seconds int, onTick func(remaining int), onExpire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.generation++

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.run(ctx, s.generation, seconds, onTick, onExpire)
}

// Cancel stops the live countdown, if any. Safe to call on an
// already-stopped timer.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.generation++
}

func (s *Service) cancelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Running reports whether a countdown is currently armed.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Service) run(ctx context.Context, generation, seconds int, onTick func(int), onExpire func()) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	remaining := seconds
	for {
		select {
		case <-ticker.C:
			remaining--
			if !s.isCurrent(generation) {
				return
			}
			onTick(remaining)
			if remaining <= 0 {
				s.expire(generation, onExpire)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// expire fires the terminal callback and deregisters the countdown, but only
// if this goroutine is still the live generation.
func (s *Service) expire(generation int, onExpire func()) {
	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.mu.Unlock()

	s.logger.Debug("countdown expired")
	onExpire()
}

func (s *Service) isCurrent(generation int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == generation
}
