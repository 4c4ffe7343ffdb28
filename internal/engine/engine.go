package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/treasury/internal/custody"
	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// DefaultMaxRetries is how many times an operation is retried after an
// optimistic-concurrency conflict before the conflict is returned.
const DefaultMaxRetries = 3

// Engine is the single-writer treasury governance engine.
//
// Every public operation runs as one store transaction. The engine
// serializes writers with a mutex; the SQLite pool is limited to a single
// connection anyway, and versioned rows catch writers from other
// processes sharing the database file.
//
// Thread-safety model:
//   - governance operations: safe from any goroutine, serialized
//   - queries: safe from any goroutine
//   - RunDispatcher: must be called from exactly one goroutine
type Engine struct {
	store     *store.Store
	custodian custody.Custodian
	clock     Clock
	seq       *Sequencer
	ids       RequestIDGenerator
	fees      FeeSchedule
	logger    *slog.Logger

	maxRetries int

	sink  EventSink
	queue *eventQueue

	// mu serializes writers.
	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRequestIDs sets the request ID generator. Default: UUIDv7Generator.
func WithRequestIDs(g RequestIDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithSink sets where committed events are published. Without a sink,
// events are only persisted.
func WithSink(s EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithFees sets the protocol fee charged on recurring-payment claims.
func WithFees(f FeeSchedule) Option {
	return func(e *Engine) { e.fees = f }
}

// WithMaxRetries sets the conflict retry budget. Negative values are
// treated as 0.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n < 0 {
			n = 0
		}
		e.maxRetries = n
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// DiscardLogger returns a logger that drops everything. Tests use it.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New creates an Engine over s, moving funds through c.
//
// The event sequencer resumes from the highest seq already stored so a
// restarted engine keeps appending in order.
func New(ctx context.Context, s *store.Store, c custody.Custodian, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("engine: nil store")
	}
	if c == nil {
		return nil, fmt.Errorf("engine: nil custodian")
	}

	last, err := s.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: resume sequencer: %w", err)
	}

	e := &Engine{
		store:      s,
		custodian:  c,
		clock:      SystemClock{},
		seq:        NewSequencerAt(last),
		ids:        UUIDv7Generator{},
		logger:     slog.Default(),
		maxRetries: DefaultMaxRetries,
		queue:      newEventQueue(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Now returns the engine's current time.
func (e *Engine) Now() int64 {
	return e.clock.Now()
}

// Fees returns the configured protocol fee.
func (e *Engine) Fees() FeeSchedule {
	return e.fees
}

// RunDispatcher delivers committed events to the sink in seq order.
// Blocks until ctx is cancelled or Stop is called.
//
// Must be called from exactly one goroutine. A panicking sink is
// recovered and logged; delivery continues with the next event.
func (e *Engine) RunDispatcher(ctx context.Context) error {
	e.logger.Info("dispatcher starting")

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.publish(ev)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("dispatcher stopping: context cancelled")
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue, so this also
			// fires on Stop.
			if e.queue.Len() == 0 && e.stopped() {
				e.logger.Info("dispatcher stopping: queue closed")
				return nil
			}
		}
	}
}

// DispatchPending synchronously delivers every queued event and returns
// how many were delivered. The CLI uses it instead of a dispatcher
// goroutine.
func (e *Engine) DispatchPending() int {
	n := 0
	for {
		ev, ok := e.queue.TryDequeue()
		if !ok {
			return n
		}
		e.publish(ev)
		n++
	}
}

// Stop closes the event queue, which makes RunDispatcher return once
// drained. Operations after Stop still commit but are not published.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) stopped() bool {
	return e.queue.Closed()
}

func (e *Engine) publish(ev dao.Event) {
	if e.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event sink panicked",
				"seq", ev.Seq,
				"dao", ev.DaoID,
				"kind", string(ev.Kind),
				"panic", r,
			)
		}
	}()
	e.sink.Publish(ev)
}
