package v1

import (
	"sort"
	"time"

	"github.com/intersim/intersim/pkg/core"
)

// Projection maps a simulation position to longitude and latitude.
type Projection func(core.Position) (lon, lat float64)

// RunData contains all the data needed to build an export
type RunData struct {
	Run        *core.Run
	Vehicles   map[uint64]*VehicleRecord
	Lights     []core.LightState
	LaneCounts []core.LaneCounts

	// Project is optional; without it exports carry no geographic path.
	Project Projection
}

// VehicleRecord groups a vehicle with all its time-series data
type VehicleRecord struct {
	Vehicle core.Vehicle
	States  []core.VehicleState
	Exit    *core.VehicleExit
}

// Build creates an Export from the run data
func Build(data *RunData) Export {
	export := Export{
		Version:    Version,
		RunID:      data.Run.ID.String(),
		Name:       data.Run.Name,
		Seed:       data.Run.Seed,
		StartTime:  data.Run.StartTime.UTC().Format(time.RFC3339),
		EndTick:    data.Run.EndTick,
		Params:     data.Run.Params,
		Vehicles:   make([]Vehicle, 0, len(data.Vehicles)),
		Lights:     make([][]any, 0, len(data.Lights)),
		LaneCounts: make([][]any, 0, len(data.LaneCounts)),
	}
	if data.Project != nil {
		anchor := data.Run.Anchor
		export.Anchor = &anchor
	}

	ids := make([]uint64, 0, len(data.Vehicles))
	for id := range data.Vehicles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		export.Vehicles = append(export.Vehicles, buildVehicle(data.Vehicles[id], data.Project))
	}

	for _, l := range data.Lights {
		export.Lights = append(export.Lights, []any{l.Tick, l.NS, l.EW, l.Phase})
	}

	for _, c := range data.LaneCounts {
		export.LaneCounts = append(export.LaneCounts, []any{
			c.Tick, c.North, c.South, c.East, c.West, c.Active, c.Braking,
		})
	}

	return export
}

func buildVehicle(record *VehicleRecord, project Projection) Vehicle {
	v := record.Vehicle
	out := Vehicle{
		ID:        v.ID,
		Origin:    v.Origin,
		Lane:      v.Lane,
		Intent:    v.Intent,
		SpawnTick: v.SpawnTick,
		Positions: make([][]any, 0, len(record.States)+1),
	}

	out.Positions = append(out.Positions, []any{
		v.SpawnTick, []float64{v.Position.X, v.Position.Y}, v.Heading, "drive",
	})
	for _, s := range record.States {
		out.Positions = append(out.Positions, []any{
			s.Tick, []float64{s.Position.X, s.Position.Y}, s.Heading, s.State,
		})
	}

	if record.Exit != nil {
		tick := record.Exit.Tick
		out.ExitTick = &tick
		out.TravelTicks = record.Exit.TravelTicks

		if project != nil && len(record.Exit.Track) > 0 {
			out.Path = make([][2]float64, 0, len(record.Exit.Track))
			for _, p := range record.Exit.Track {
				lon, lat := project(p)
				out.Path = append(out.Path, [2]float64{lon, lat})
			}
		}
	}

	return out
}
