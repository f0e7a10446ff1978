// Package driver runs a simulation in real time: it owns the tick loop,
// feeds lane arrivals into the engine and turns engine events into
// recording commands.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/intersim/intersim/internal/channel"
	"github.com/intersim/intersim/internal/config"
	"github.com/intersim/intersim/internal/dispatcher"
	"github.com/intersim/intersim/internal/feed"
	"github.com/intersim/intersim/internal/monitor"
	"github.com/intersim/intersim/internal/run"
	"github.com/intersim/intersim/internal/sim"
	"github.com/intersim/intersim/internal/worker"
	"github.com/intersim/intersim/pkg/core"
)

// Dependencies holds everything the driver talks to. Only Dispatcher is
// required.
type Dependencies struct {
	Dispatcher *dispatcher.Dispatcher
	RunContext *run.Context
	Logger     *slog.Logger

	// Scheduler replaces random spawning with lane feed arrivals.
	Scheduler *feed.Scheduler
	Arrivals  channel.Receiver[feed.Batch]

	// Samples receives lane counts every MonitorInterval.
	Samples         channel.Sender[monitor.Sample]
	MonitorInterval time.Duration
}

// Driver steps one simulation.
type Driver struct {
	cfg  config.DriverConfig
	deps Dependencies
	log  *slog.Logger
	rng  *rand.Rand
	sim  *sim.Simulation
	m    *metrics
}

// New builds the simulation for p. With a scheduler the engine's own random
// spawning is turned off.
func New(cfg config.DriverConfig, p sim.Params, deps Dependencies) (*Driver, error) {
	if deps.Dispatcher == nil {
		return nil, errors.New("driver: dispatcher is required")
	}
	if deps.RunContext == nil {
		deps.RunContext = run.NewContext()
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.Scheduler != nil {
		p.SpawnInterval = 0
	}
	if cfg.ServeEvery == 0 {
		cfg.ServeEvery = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:  cfg,
		deps: deps,
		log:  log.With("component", "driver"),
		rng:  rand.New(rand.NewSource(cfg.Seed)),
		m:    m,
	}
	d.sim, err = sim.New(p, d.rng, sim.WithObserver(d.observe))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Sim exposes the engine for read access between ticks.
func (d *Driver) Sim() *sim.Simulation {
	return d.sim
}

// NewRun describes a run of this driver.
func (d *Driver) NewRun(name string, anchor core.Anchor) (*core.Run, error) {
	params, err := json.Marshal(d.sim.Params())
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return &core.Run{
		ID:        uuid.New(),
		Name:      name,
		Seed:      d.cfg.Seed,
		StartTime: time.Now(),
		TickRate:  d.cfg.TickRate,
		Params:    params,
		Anchor:    anchor,
	}, nil
}

// Run records r and ticks until MaxTicks is reached or ctx is done. It
// returns the number of ticks processed. Call Finish afterwards.
func (d *Driver) Run(ctx context.Context, r *core.Run) (uint64, error) {
	if _, err := d.deps.Dispatcher.Dispatch(dispatcher.Event{Command: worker.CmdRunStart, Payload: r}); err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}

	ns, ew := d.sim.Lights()
	d.dispatch(worker.CmdLightState, sim.Event{Kind: sim.EventLightsChanged, Phase: d.sim.Phase(), NS: ns, EW: ew})

	var tickC <-chan time.Time
	if d.cfg.TickRate > 0 {
		t := time.NewTicker(d.cfg.TickRate)
		defer t.Stop()
		tickC = t.C
	}
	var monC <-chan time.Time
	if d.deps.Samples != nil && d.deps.MonitorInterval > 0 {
		t := time.NewTicker(d.deps.MonitorInterval)
		defer t.Stop()
		monC = t.C
	}
	var arrivals <-chan feed.Batch
	if d.deps.Arrivals != nil && d.deps.Scheduler != nil {
		arrivals = d.deps.Arrivals.Receive()
	}

	d.log.Info("Simulation started", "run", r.ID, "tickRate", d.cfg.TickRate, "maxTicks", d.cfg.MaxTicks, "feed", d.deps.Scheduler != nil)

	for d.cfg.MaxTicks == 0 || d.sim.Clock() < d.cfg.MaxTicks {
		if tickC != nil {
			select {
			case <-ctx.Done():
				return d.stopped()
			case b, ok := <-arrivals:
				d.enqueue(b, ok, &arrivals)
				continue
			case <-monC:
				d.sample()
				continue
			case <-tickC:
			}
		} else {
			select {
			case <-ctx.Done():
				return d.stopped()
			case b, ok := <-arrivals:
				d.enqueue(b, ok, &arrivals)
				continue
			case <-monC:
				d.sample()
				continue
			default:
			}
		}
		d.step()
	}

	d.log.Info("Simulation reached tick limit", "ticks", d.sim.Clock())
	return d.sim.Clock(), nil
}

func (d *Driver) stopped() (uint64, error) {
	d.log.Info("Simulation stopped", "ticks", d.sim.Clock())
	return d.sim.Clock(), nil
}

func (d *Driver) enqueue(b feed.Batch, ok bool, arrivals *<-chan feed.Batch) {
	if !ok {
		*arrivals = nil
		return
	}
	d.deps.Scheduler.Enqueue(b)
}

// step runs one tick: feed service, engine, state sampling.
func (d *Driver) step() {
	clock := d.sim.Clock()

	if s := d.deps.Scheduler; s != nil && clock%d.cfg.ServeEvery == 0 {
		d.serve(s)
	}

	d.sim.Tick()
	d.deps.RunContext.SetTick(d.sim.Clock())
	d.m.ticks.Add(context.Background(), 1)

	if d.cfg.RecordEvery > 0 && d.sim.Clock()%d.cfg.RecordEvery == 0 {
		d.record(d.sim.Snapshot())
	}

	counts := d.sim.CountByState()
	d.m.active.Store(int64(d.sim.Active()))
	d.m.braking.Store(int64(counts[sim.StateBrake]))
}

// record samples every vehicle of f, stamped with the tick the frame shows.
func (d *Driver) record(f sim.Frame) {
	for _, v := range f.Vehicles {
		d.dispatchAt(worker.CmdVehicleState, f.Tick, sim.Event{Kind: sim.EventStateChanged, Tick: f.Tick, Vehicle: v, From: v.State, To: v.State})
	}
}

// serve releases scheduled arrivals into free slots. Arrivals whose entry is
// blocked go back to the front of their lane.
func (d *Driver) serve(s *feed.Scheduler) {
	defer func() { d.m.backlog.Store(int64(s.Total())) }()

	arrivals := s.Serve(d.sim.FreeSlots())
	if len(arrivals) == 0 {
		return
	}

	var blocked []feed.Arrival
	for _, a := range arrivals {
		lane := d.rng.Intn(sim.LaneCount)
		if !d.sim.EntryClear(a.Origin, lane) || !d.sim.SpawnFrom(a.Origin, lane) {
			blocked = append(blocked, a)
			continue
		}
		d.log.Debug("Arrival entered", "arrival", a.ID, "origin", a.Origin, "lane", lane)
	}
	if len(blocked) > 0 {
		s.Requeue(blocked)
	}
}

// LaneCounts reports waiting vehicles per approach: braking vehicles in the
// engine plus the feed backlog.
func (d *Driver) LaneCounts() core.LaneCounts {
	var waiting [len(sim.Origins)]int
	braking := 0
	for _, v := range d.sim.Snapshot().Vehicles {
		if v.State == sim.StateBrake {
			waiting[v.Origin]++
			braking++
		}
	}
	if s := d.deps.Scheduler; s != nil {
		for i, n := range s.Backlog() {
			waiting[i] += n
		}
	}
	return core.LaneCounts{
		Tick:    d.sim.Clock(),
		Time:    time.Now(),
		North:   waiting[sim.North],
		South:   waiting[sim.South],
		East:    waiting[sim.East],
		West:    waiting[sim.West],
		Active:  d.sim.Active(),
		Braking: braking,
	}
}

func (d *Driver) sample() {
	ns, ew := d.sim.Lights()
	if !d.deps.Samples.TrySend(monitor.Sample{Counts: d.LaneCounts(), NS: ns.String(), EW: ew.String()}) {
		d.log.Debug("Monitor busy, dropping lane count sample")
	}
}

// observe bridges engine events to recording commands. It runs inside Tick.
func (d *Driver) observe(e sim.Event) {
	switch e.Kind {
	case sim.EventSpawned:
		d.m.spawned.Add(context.Background(), 1)
		d.dispatch(worker.CmdVehicleSpawn, e)
	case sim.EventStateChanged:
		d.dispatch(worker.CmdVehicleState, e)
	case sim.EventReaped:
		d.m.exited.Add(context.Background(), 1)
		d.m.travelTicks.Record(context.Background(), int64(e.Tick-e.Vehicle.SpawnTick))
		d.dispatch(worker.CmdVehicleExit, e)
	case sim.EventLightsChanged:
		d.log.Debug("Lights changed", "tick", e.Tick, "phase", e.Phase, "ns", e.NS, "ew", e.EW)
		d.dispatch(worker.CmdLightState, e)
	}
}

func (d *Driver) dispatch(cmd string, e sim.Event) {
	d.dispatchAt(cmd, e.Tick, e)
}

func (d *Driver) dispatchAt(cmd string, tick uint64, payload any) {
	if _, err := d.deps.Dispatcher.Dispatch(dispatcher.Event{Command: cmd, Tick: tick, Payload: payload}); err != nil {
		d.log.Debug("Recording command failed", "command", cmd, "tick", tick, "error", err)
	}
}

// Finish drains buffered recording commands and closes the run at the last
// processed tick.
func (d *Driver) Finish(ctx context.Context) error {
	if err := d.deps.Dispatcher.Drain(ctx); err != nil {
		d.log.Warn("Dispatcher did not drain", "error", err)
	}
	if _, err := d.deps.Dispatcher.Dispatch(dispatcher.Event{Command: worker.CmdRunEnd, Tick: d.sim.Clock()}); err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	return nil
}
