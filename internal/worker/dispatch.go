package worker

import (
	"fmt"
	"time"

	"github.com/intersim/intersim/internal/dispatcher"
	"github.com/intersim/intersim/internal/sim"
	"github.com/intersim/intersim/pkg/core"
)

// Recording commands.
const (
	CmdRunStart     = ":RUN:START:"
	CmdRunEnd       = ":RUN:END:"
	CmdVehicleSpawn = ":VEHICLE:SPAWN:"
	CmdVehicleState = ":VEHICLE:STATE:"
	CmdVehicleExit  = ":VEHICLE:EXIT:"
	CmdLightState   = ":LIGHT:STATE:"
	CmdLaneCounts   = ":LANE:COUNTS:"
)

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Run lifecycle - sync
	d.Register(CmdRunStart, m.handleRunStart, dispatcher.Logged())
	d.Register(CmdRunEnd, m.handleRunEnd, dispatcher.Logged())

	// Vehicle lifecycle - sync so a state never trails its exit
	d.Register(CmdVehicleSpawn, m.handleVehicleSpawn, dispatcher.Logged())
	d.Register(CmdVehicleState, m.handleVehicleState)
	d.Register(CmdVehicleExit, m.handleVehicleExit, dispatcher.Logged())

	// Intersection state - buffered
	d.Register(CmdLightState, m.handleLightState, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(CmdLaneCounts, m.handleLaneCounts, dispatcher.Buffered(100), dispatcher.Logged())
}

func (m *Manager) handleRunStart(e dispatcher.Event) (any, error) {
	run, ok := e.Payload.(*core.Run)
	if !ok {
		return nil, payloadError(e.Command, e.Payload)
	}

	m.deps.Cache.Reset()
	if err := m.backend.StartRun(run); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	m.deps.RunContext.SetRun(run)

	m.log.Info("Run started", "run", run.ID, "name", run.Name, "seed", run.Seed)
	return run.ID.String(), nil
}

func (m *Manager) handleRunEnd(e dispatcher.Event) (any, error) {
	run := m.deps.RunContext.Run()
	m.deps.RunContext.SetRun(nil)

	if err := m.backend.EndRun(e.Tick); err != nil {
		return nil, fmt.Errorf("failed to end run: %w", err)
	}

	if live := m.deps.Cache.Len(); live > 0 {
		m.log.Debug("Vehicles still live at run end", "count", live)
	}
	m.deps.Cache.Reset()

	if run != nil {
		m.log.Info("Run ended", "run", run.ID, "endTick", e.Tick)
	}
	return nil, nil
}

func (m *Manager) handleVehicleSpawn(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(sim.Event)
	if !ok {
		return nil, payloadError(e.Command, e.Payload)
	}

	v := vehicleToCore(ev.Vehicle, e.Tick, e.Timestamp)
	m.deps.Cache.Add(v)

	if err := m.backend.AddVehicle(&v); err != nil {
		return nil, fmt.Errorf("failed to record vehicle %d: %w", v.ID, err)
	}
	return nil, nil
}

func (m *Manager) handleVehicleState(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(sim.Event)
	if !ok {
		return nil, payloadError(e.Command, e.Payload)
	}

	s := vehicleStateToCore(ev.Vehicle, e.Tick, e.Timestamp)
	if !m.deps.Cache.Sample(s.VehicleID, s.Position) {
		return nil, fmt.Errorf("vehicle %d: %w", s.VehicleID, ErrUnknownVehicle)
	}

	if err := m.backend.RecordVehicleState(&s); err != nil {
		return nil, fmt.Errorf("failed to record vehicle state: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleVehicleExit(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(sim.Event)
	if !ok {
		return nil, payloadError(e.Command, e.Payload)
	}

	entry, ok := m.deps.Cache.Remove(ev.Vehicle.ID)
	if !ok {
		return nil, fmt.Errorf("vehicle %d: %w", ev.Vehicle.ID, ErrUnknownVehicle)
	}

	pos := positionToCore(ev.Vehicle.Position)
	exit := core.VehicleExit{
		VehicleID: ev.Vehicle.ID,
		Tick:      e.Tick,
		Time:      e.Timestamp,
		Position:  pos,
		Track:     append(entry.Track, pos),
	}
	if e.Tick > entry.Vehicle.SpawnTick {
		exit.TravelTicks = e.Tick - entry.Vehicle.SpawnTick
	}

	if err := m.backend.RecordVehicleExit(&exit); err != nil {
		return nil, fmt.Errorf("failed to record vehicle exit: %w", err)
	}
	return exit.TravelTicks, nil
}

func (m *Manager) handleLightState(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(sim.Event)
	if !ok {
		return nil, payloadError(e.Command, e.Payload)
	}

	l := core.LightState{
		Tick:  e.Tick,
		Time:  e.Timestamp,
		Phase: ev.Phase.String(),
		NS:    ev.NS.String(),
		EW:    ev.EW.String(),
	}
	if err := m.backend.RecordLightState(&l); err != nil {
		return nil, fmt.Errorf("failed to record light state: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleLaneCounts(e dispatcher.Event) (any, error) {
	c, ok := e.Payload.(core.LaneCounts)
	if !ok {
		return nil, payloadError(e.Command, e.Payload)
	}
	if c.Time.IsZero() {
		c.Time = e.Timestamp
	}

	if err := m.backend.RecordLaneCounts(&c); err != nil {
		return nil, fmt.Errorf("failed to record lane counts: %w", err)
	}
	return nil, nil
}

func positionToCore(p sim.Vec2) core.Position {
	return core.Position{X: p.X, Y: p.Y}
}

func vehicleToCore(v sim.VehicleView, tick uint64, ts time.Time) core.Vehicle {
	return core.Vehicle{
		ID:        v.ID,
		Origin:    v.Origin.String(),
		Lane:      v.Lane,
		Intent:    v.Intent.String(),
		SpawnTick: tick,
		SpawnTime: ts,
		Position:  positionToCore(v.Position),
		Heading:   v.Heading,
	}
}

func vehicleStateToCore(v sim.VehicleView, tick uint64, ts time.Time) core.VehicleState {
	return core.VehicleState{
		VehicleID: v.ID,
		Tick:      tick,
		Time:      ts,
		State:     v.State.String(),
		Position:  positionToCore(v.Position),
		Heading:   v.Heading,
	}
}
