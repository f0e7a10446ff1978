// Package dispatcher routes recording commands from the simulation driver
// to their handlers, synchronously or through per-command queues.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrUnknownCommand is returned when no handler is registered.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrDrained is returned for events dispatched to a buffered handler after Drain.
	ErrDrained = errors.New("dispatcher drained")
)

// Event is a recording command raised by the simulation driver.
type Event struct {
	Command   string
	Tick      uint64
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered runs the handler on its own goroutine behind a queue of size
// events. Dispatch returns "queued" once the event is accepted.
func Buffered(size int) Option {
	return func(o *options) { o.bufferSize = size }
}

// Blocking makes Dispatch wait for queue space instead of dropping.
func Blocking() Option {
	return func(o *options) { o.blocking = true }
}

// Logged logs every event at debug level and failures at error level.
func Logged() Option {
	return func(o *options) { o.logged = true }
}

// Dispatcher routes events to registered handlers. Register all handlers
// before the first Dispatch.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger
	metrics  *instruments

	mu      sync.RWMutex
	buffers map[string]chan Event
	drained bool
	workers sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}
	in, err := newInstruments(d.queueDepths)
	if err != nil {
		return nil, err
	}
	d.metrics = in
	return d, nil
}

func (d *Dispatcher) queueDepths(observe func(command string, depth int)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, buf := range d.buffers {
		observe(cmd, len(buf))
	}
}

// Register adds the handler for command, replacing any previous one.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.logged {
		h = d.withLogging(command, h)
	}
	if o.bufferSize > 0 {
		h = d.withBuffer(command, o.bufferSize, o.blocking, h)
	} else {
		h = d.counted(command, h)
	}
	d.handlers[command] = h
}

// Dispatch stamps e if needed and hands it to its handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler reports whether command has a handler.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Drain stops accepting buffered events and waits until every queued event
// has been handled or ctx is done. Synchronous handlers keep working.
func (d *Dispatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	if !d.drained {
		d.drained = true
		for _, buf := range d.buffers {
			close(buf)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining dispatcher: %w", ctx.Err())
	}
}

func (d *Dispatcher) counted(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		result, err := h(e)
		d.metrics.record(command, "sync", err)
		return result, err
	}
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range buffer {
			_, err := h(e)
			d.metrics.record(command, "buffered", err)
		}
	}()

	dropped := metric.WithAttributes(commandAttr(command))
	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.drained {
			return nil, ErrDrained
		}

		if blocking {
			buffer <- e
			return "queued", nil
		}
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.metrics.dropped.Add(context.Background(), 1, dropped)
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "tick", e.Tick)

		result, err := h(e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "tick", e.Tick, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}
		return result, err
	}
}
