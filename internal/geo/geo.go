package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/intersim/intersim/pkg/core"
)

// GEO POINTS
// Positions are stored as EPSG:3857 so SQLite, which has no spatial
// awareness, can still scan them back from WKB. The simulation plane is
// local: one unit is MetersPerUnit meters on the ground and y points south.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Anchor ties the simulation plane to the globe.
type Anchor struct {
	latitude      float64
	longitude     float64
	metersPerUnit float64
	center        core.Position

	// mercator position of the anchor and the scale factor at its latitude
	x, y  float64
	scale float64

	toLonLat func(x, y, z float64) (float64, float64, float64)
}

// NewAnchor places center (in simulation units) at the given coordinate.
func NewAnchor(a core.Anchor, center core.Position) (*Anchor, error) {
	if a.Latitude < -85 || a.Latitude > 85 || a.Longitude < -180 || a.Longitude > 180 {
		return nil, fmt.Errorf("%w: lat %v lon %v", ErrInvalidCoordinates, a.Latitude, a.Longitude)
	}
	if a.MetersPerUnit <= 0 {
		return nil, fmt.Errorf("%w: metersPerUnit must be positive, got %v", ErrInvalidCoordinates, a.MetersPerUnit)
	}

	p := Coords3857From4326(a.Longitude, a.Latitude)
	c, _ := p.Coordinates()

	epsg := wgs84.EPSG()
	return &Anchor{
		latitude:      a.Latitude,
		longitude:     a.Longitude,
		metersPerUnit: a.MetersPerUnit,
		center:        center,
		x:             c.X,
		y:             c.Y,
		scale:         1 / math.Cos(a.Latitude*math.Pi/180),
		toLonLat:      epsg.Transform(3857, 4326),
	}, nil
}

// Core returns the anchor as recorded with a run.
func (a *Anchor) Core() core.Anchor {
	return core.Anchor{Latitude: a.latitude, Longitude: a.longitude, MetersPerUnit: a.metersPerUnit}
}

// mercator maps a simulation position to EPSG:3857 x/y.
func (a *Anchor) mercator(p core.Position) (float64, float64) {
	k := a.metersPerUnit * a.scale
	return a.x + (p.X-a.center.X)*k, a.y - (p.Y-a.center.Y)*k
}

// Point converts a simulation position to an EPSG:3857 point.
func (a *Anchor) Point(p core.Position) geom.Point {
	x, y := a.mercator(p)
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
}

// LonLat converts a simulation position to WGS84 longitude and latitude.
func (a *Anchor) LonLat(p core.Position) (lon, lat float64) {
	x, y := a.mercator(p)
	lon, lat, _ = a.toLonLat(x, y, 0)
	return lon, lat
}

// LineString converts a vehicle track to an EPSG:3857 line. Tracks with
// fewer than two points yield an empty line.
func (a *Anchor) LineString(track []core.Position) geom.LineString {
	if len(track) < 2 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(track)*2)
	for _, p := range track {
		x, y := a.mercator(p)
		coords = append(coords, x, y)
	}
	return geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
}

// Coords3857From4326 creates a mercator point from a longitude and latitude
func Coords3857From4326(longitude, latitude float64) geom.Point {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
}
