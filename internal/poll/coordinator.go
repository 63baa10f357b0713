// Package poll implements the poll session coordinator: the state machine
// owning poll lifecycle, the answer ledger, the countdown, and the
// broadcast-consistency rules between them.
package poll

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"livepoll/internal/chat"
	"livepoll/internal/common/clock"
	"livepoll/internal/ledger"
	"livepoll/internal/registry"
	"livepoll/internal/results"
	"livepoll/internal/timer"
	"livepoll/pkg/interfaces"
	"livepoll/pkg/types"
)

// Coordinator serializes every state mutation (poll creation, answer
// submission, disconnect, kick, timer expiry) onto a single event timeline:
// one goroutine drains the channels below and processes each event to
// completion, broadcasts included, before the next. Timer callbacks and
// read-only queries re-enter the same loop, so no observer ever sees a
// half-applied transition.
type Coordinator struct {
	gateway interfaces.Gateway
	history interfaces.HistoryStore
	timer   *timer.Service
	clock   clock.Clock
	logger  *zap.Logger

	defaultDuration int
	kickGrace       time.Duration

	// State owned exclusively by the run goroutine.
	registry      *registry.Registry
	ledger        *ledger.Ledger
	chat          *chat.Log
	current       *types.Poll
	timeRemaining int

	events      chan *eventContext
	disconnects chan string
	timerEvents chan timerEvent
	queries     chan func()
	shutdownCh  chan struct{}

	running bool
	mu      sync.RWMutex
}

// eventContext wraps an inbound envelope with its sender.
type eventContext struct {
	connectionID string
	envelope     *types.Envelope
	receivedAt   time.Time
}

// timerEvent is a countdown callback re-entering the event loop.
type timerEvent struct {
	expired   bool
	remaining int
}

// Options configures a Coordinator. Gateway and History are required; the
// rest default sensibly.
type Options struct {
	Gateway interfaces.Gateway
	History interfaces.HistoryStore

	// Timer overrides the countdown service, letting tests run compressed
	// timescales. Defaults to a one-second-tick service.
	Timer *timer.Service

	Clock  clock.Clock
	Logger *zap.Logger

	// DefaultDuration is applied when createPoll omits the timer field.
	DefaultDuration int

	// KickGrace is how long a kicked student's connection stays open so the
	// kicked notification can flush. The registry and ledger changes are
	// effective immediately regardless.
	KickGrace time.Duration
}

// New creates a coordinator. Call Start before dispatching events.
func New(opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = &clock.DefaultClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timer == nil {
		opts.Timer = timer.New(opts.Logger)
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = types.DefaultPollDuration
	}
	if opts.KickGrace <= 0 {
		opts.KickGrace = 100 * time.Millisecond
	}

	return &Coordinator{
		gateway:         opts.Gateway,
		history:         opts.History,
		timer:           opts.Timer,
		clock:           opts.Clock,
		logger:          opts.Logger,
		defaultDuration: opts.DefaultDuration,
		kickGrace:       opts.KickGrace,
		registry:        registry.New(opts.Clock),
		ledger:          ledger.New(opts.Clock),
		chat:            chat.NewLog(),
		events:          make(chan *eventContext, 256),
		disconnects:     make(chan string, 64),
		timerEvents:     make(chan timerEvent, 16),
		queries:         make(chan func(), 16),
		shutdownCh:      make(chan struct{}),
	}
}

// Start begins event processing.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()

	c.logger.Info("poll coordinator starting")
	go c.run(ctx)

	return nil
}

// Stop shuts down event processing. In-flight events may be dropped; the
// process is exiting anyway.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotRunning
	}
	c.running = false

	c.timer.Cancel()
	select {
	case <-c.shutdownCh:
		// already closed
	default:
		close(c.shutdownCh)
	}

	c.logger.Info("poll coordinator stopped")
	return nil
}

// HandleEvent queues an inbound event for processing. Implements the
// websocket handler's EventSink.
func (c *Coordinator) HandleEvent(connectionID string, envelope *types.Envelope) error {
	c.mu.RLock()
	if !c.running {
		c.mu.RUnlock()
		return ErrNotRunning
	}
	c.mu.RUnlock()

	ev := &eventContext{
		connectionID: connectionID,
		envelope:     envelope,
		receivedAt:   c.clock.Now(),
	}

	select {
	case c.events <- ev:
		return nil
	default:
		return ErrEventChannelFull
	}
}

// HandleDisconnect queues a disconnect for processing. Disconnects mutate
// the completion-check denominator, so they must not be dropped; this blocks
// until the loop accepts the notice or shuts down.
func (c *Coordinator) HandleDisconnect(connectionID string) {
	select {
	case c.disconnects <- connectionID:
	case <-c.shutdownCh:
	}
}

// run is the single event-sequencing loop.
func (c *Coordinator) run(ctx context.Context) {
	defer c.logger.Info("poll coordinator loop exited")

	for {
		select {
		case ev := <-c.events:
			c.dispatch(ev)

		case connectionID := <-c.disconnects:
			c.handleDisconnect(connectionID)

		case te := <-c.timerEvents:
			if te.expired {
				c.endPoll("Poll ended")
			} else {
				c.handleTick(te.remaining)
			}

		case q := <-c.queries:
			q()

		case <-c.shutdownCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

// onTick re-enters the loop from the timer goroutine.
func (c *Coordinator) onTick(remaining int) {
	select {
	case c.timerEvents <- timerEvent{remaining: remaining}:
	case <-c.shutdownCh:
	}
}

// onExpire re-enters the loop from the timer goroutine. The Ended transition
// itself happens on the event timeline, where it races fairly against
// completion by submission.
func (c *Coordinator) onExpire() {
	select {
	case c.timerEvents <- timerEvent{expired: true}:
	case <-c.shutdownCh:
	}
}

// Results returns the current snapshot through the serialization point.
func (c *Coordinator) Results() (types.ResultsSnapshot, error) {
	var snapshot types.ResultsSnapshot
	err := c.query(func() {
		snapshot = c.snapshot()
	})
	return snapshot, err
}

// Participants returns the presence list through the serialization point.
func (c *Coordinator) Participants() ([]types.ParticipantInfo, error) {
	var participants []types.ParticipantInfo
	err := c.query(func() {
		participants = c.registry.Snapshot()
	})
	return participants, err
}

// History returns all ended polls, oldest first, through the serialization
// point.
func (c *Coordinator) History() ([]*types.HistoryRecord, error) {
	var records []*types.HistoryRecord
	var historyErr error
	err := c.query(func() {
		records, historyErr = c.history.All(context.Background())
	})
	if err != nil {
		return nil, err
	}
	return records, historyErr
}

// ChatTranscript returns the chat log, oldest first.
func (c *Coordinator) ChatTranscript() []types.ChatMessage {
	return c.chat.All()
}

// query runs fn on the event loop and waits for it. Read-only callers get a
// consistent snapshot without ever observing a half-applied transition.
func (c *Coordinator) query(fn func()) error {
	c.mu.RLock()
	if !c.running {
		c.mu.RUnlock()
		return ErrNotRunning
	}
	c.mu.RUnlock()

	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}

	select {
	case c.queries <- wrapped:
	case <-c.shutdownCh:
		return ErrNotRunning
	}

	select {
	case <-done:
		return nil
	case <-c.shutdownCh:
		return ErrNotRunning
	}
}

// snapshot recomputes the results for the current poll. TotalStudents is the
// registry's current count, which may lag the completion-check denominator
// if students disconnected after answering; accepted approximation.
func (c *Coordinator) snapshot() types.ResultsSnapshot {
	return results.Compute(c.current, c.ledger.Answers(), c.registry.StudentCount())
}
