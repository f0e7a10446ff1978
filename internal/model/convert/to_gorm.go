// Package convert provides functions to convert core records into GORM models
package convert

import (
	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/intersim/intersim/internal/model"
	"github.com/intersim/intersim/pkg/core"
)

// Projector maps simulation positions into stored geometry.
// *geo.Anchor satisfies it.
type Projector interface {
	Point(p core.Position) geom.Point
	LineString(track []core.Position) geom.LineString
}

// Planar stores positions in raw simulation units.
type Planar struct{}

// Point converts a position without reprojection.
func (Planar) Point(p core.Position) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}})
}

// LineString converts a track without reprojection.
func (Planar) LineString(track []core.Position) geom.LineString {
	if len(track) < 2 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(track)*2)
	for _, pt := range track {
		coords = append(coords, pt.X, pt.Y)
	}
	return geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
}

// CoreToRun converts a core.Run. center is the junction center in
// simulation units.
func CoreToRun(r core.Run, center core.Position, proj Projector) model.Run {
	params := datatypes.JSON("{}")
	if len(r.Params) > 0 {
		params = datatypes.JSON(r.Params)
	}

	out := model.Run{
		ID:        r.ID,
		Name:      r.Name,
		Seed:      r.Seed,
		StartTime: r.StartTime,
		EndTick:   r.EndTick,
		TickRate:  int64(r.TickRate),
		Params:    params,
		Anchor: model.Anchor{
			Latitude:      r.Anchor.Latitude,
			Longitude:     r.Anchor.Longitude,
			MetersPerUnit: r.Anchor.MetersPerUnit,
		},
		Location: proj.Point(center),
	}
	if !r.EndTime.IsZero() {
		end := r.EndTime
		out.EndTime = &end
	}
	return out
}

// CoreToVehicle converts a core.Vehicle.
// core.Vehicle.ID maps to GORM Vehicle.VehicleID.
func CoreToVehicle(runID uuid.UUID, v core.Vehicle, proj Projector) model.Vehicle {
	return model.Vehicle{
		RunID:     runID,
		VehicleID: v.ID,
		Origin:    v.Origin,
		Lane:      uint8(v.Lane),
		Intent:    v.Intent,
		SpawnTick: v.SpawnTick,
		SpawnTime: v.SpawnTime,
		Position:  proj.Point(v.Position),
		Heading:   v.Heading,
	}
}

// CoreToVehicleState converts a core.VehicleState.
func CoreToVehicleState(runID uuid.UUID, s core.VehicleState, proj Projector) model.VehicleState {
	return model.VehicleState{
		Time:      s.Time,
		RunID:     runID,
		Tick:      s.Tick,
		VehicleID: s.VehicleID,
		State:     s.State,
		Position:  proj.Point(s.Position),
		Heading:   s.Heading,
	}
}

// CoreToVehicleExit converts a core.VehicleExit, including its track.
func CoreToVehicleExit(runID uuid.UUID, e core.VehicleExit, proj Projector) model.VehicleExit {
	return model.VehicleExit{
		Time:        e.Time,
		RunID:       runID,
		Tick:        e.Tick,
		VehicleID:   e.VehicleID,
		TravelTicks: e.TravelTicks,
		Position:    proj.Point(e.Position),
		Track:       proj.LineString(e.Track),
	}
}

// CoreToLightState converts a core.LightState.
func CoreToLightState(runID uuid.UUID, l core.LightState) model.LightState {
	return model.LightState{
		Time:  l.Time,
		RunID: runID,
		Tick:  l.Tick,
		Phase: l.Phase,
		NS:    l.NS,
		EW:    l.EW,
	}
}

// CoreToLaneCount converts a core.LaneCounts.
func CoreToLaneCount(runID uuid.UUID, c core.LaneCounts) model.LaneCount {
	return model.LaneCount{
		Time:    c.Time,
		RunID:   runID,
		Tick:    c.Tick,
		North:   c.North,
		South:   c.South,
		East:    c.East,
		West:    c.West,
		Active:  c.Active,
		Braking: c.Braking,
	}
}
