package driver

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/intersim/intersim/internal/driver"

type metrics struct {
	ticks       metric.Int64Counter
	spawned     metric.Int64Counter
	exited      metric.Int64Counter
	travelTicks metric.Int64Histogram

	active  atomic.Int64
	braking atomic.Int64
	backlog atomic.Int64
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.ticks, err = m.Int64Counter("sim.ticks", metric.WithDescription("Simulation ticks processed"))
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	out.spawned, err = m.Int64Counter("sim.vehicles.spawned", metric.WithDescription("Vehicles that entered the simulation"))
	if err != nil {
		return nil, fmt.Errorf("creating spawned counter: %w", err)
	}
	out.exited, err = m.Int64Counter("sim.vehicles.exited", metric.WithDescription("Vehicles reaped after leaving the area"))
	if err != nil {
		return nil, fmt.Errorf("creating exited counter: %w", err)
	}
	out.travelTicks, err = m.Int64Histogram("sim.vehicle.travel_ticks",
		metric.WithDescription("Ticks between spawn and exit"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating travel histogram: %w", err)
	}

	vehicles, err := m.Int64ObservableGauge("sim.vehicles", metric.WithDescription("Live vehicles by state"))
	if err != nil {
		return nil, fmt.Errorf("creating vehicles gauge: %w", err)
	}
	backlog, err := m.Int64ObservableGauge("feed.backlog", metric.WithDescription("Arrivals waiting in lane feeds"))
	if err != nil {
		return nil, fmt.Errorf("creating backlog gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(vehicles, out.active.Load(), metric.WithAttributes(attribute.String("state", "active")))
			o.ObserveInt64(vehicles, out.braking.Load(), metric.WithAttributes(attribute.String("state", "brake")))
			o.ObserveInt64(backlog, out.backlog.Load())
			return nil
		},
		vehicles, backlog,
	)
	if err != nil {
		return nil, fmt.Errorf("registering gauge callback: %w", err)
	}
	return out, nil
}
