package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/intersim/intersim/internal/dispatcher"

// instruments are created on the global meter, a no-op until a provider
// is installed.
type instruments struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
}

func newInstruments(queues func(func(command string, depth int))) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	in := &instruments{}

	var err error
	if in.queueSize, err = m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered handler queue")); err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	if _, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		queues(func(command string, depth int) {
			o.ObserveInt64(in.queueSize, int64(depth), metric.WithAttributes(commandAttr(command)))
		})
		return nil
	}, in.queueSize); err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	if in.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Events handled, by command and mode")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if in.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events dropped because the queue was full")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if in.failed, err = m.Int64Counter("dispatcher.events.failed",
		metric.WithDescription("Events whose handler returned an error")); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	return in, nil
}

func commandAttr(command string) attribute.KeyValue {
	return attribute.String("command", command)
}

// record counts one handled event.
func (in *instruments) record(command, mode string, err error) {
	attrs := metric.WithAttributes(commandAttr(command), attribute.String("mode", mode))
	in.processed.Add(context.Background(), 1, attrs)
	if err != nil {
		in.failed.Add(context.Background(), 1, attrs)
	}
}
