package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intersim/intersim/pkg/core"
)

var kathmandu = core.Anchor{Latitude: 27.7172, Longitude: 85.3240, MetersPerUnit: 0.1}

func newTestAnchor(t *testing.T) *Anchor {
	t.Helper()
	a, err := NewAnchor(kathmandu, core.Position{X: 400, Y: 300})
	require.NoError(t, err)
	return a
}

func TestNewAnchor_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		anchor core.Anchor
	}{
		{"latitude beyond mercator", core.Anchor{Latitude: 89, Longitude: 0, MetersPerUnit: 1}},
		{"longitude out of range", core.Anchor{Latitude: 0, Longitude: 200, MetersPerUnit: 1}},
		{"zero scale", core.Anchor{Latitude: 0, Longitude: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnchor(tt.anchor, core.Position{})
			assert.True(t, errors.Is(err, ErrInvalidCoordinates), "got %v", err)
		})
	}
}

func TestAnchor_CenterMapsToAnchor(t *testing.T) {
	a := newTestAnchor(t)

	lon, lat := a.LonLat(core.Position{X: 400, Y: 300})
	assert.InDelta(t, kathmandu.Longitude, lon, 1e-6)
	assert.InDelta(t, kathmandu.Latitude, lat, 1e-6)
	assert.Equal(t, kathmandu, a.Core())
}

func TestAnchor_Directions(t *testing.T) {
	a := newTestAnchor(t)

	eastLon, eastLat := a.LonLat(core.Position{X: 500, Y: 300})
	assert.Greater(t, eastLon, kathmandu.Longitude)
	assert.InDelta(t, kathmandu.Latitude, eastLat, 1e-6)

	// screen y grows southward
	southLon, southLat := a.LonLat(core.Position{X: 400, Y: 400})
	assert.Less(t, southLat, kathmandu.Latitude)
	assert.InDelta(t, kathmandu.Longitude, southLon, 1e-6)
}

func TestAnchor_PointScalesGroundDistance(t *testing.T) {
	a := newTestAnchor(t)

	c, ok := a.Point(core.Position{X: 400, Y: 300}).Coordinates()
	require.True(t, ok)
	e, ok := a.Point(core.Position{X: 500, Y: 300}).Coordinates()
	require.True(t, ok)

	// 100 units at 0.1 m/unit is 10 m on the ground, stretched by mercator
	want := 10 / math.Cos(kathmandu.Latitude*math.Pi/180)
	assert.InDelta(t, want, e.X-c.X, 1e-6)
	assert.InDelta(t, 0, e.Y-c.Y, 1e-9)
}

func TestAnchor_LineString(t *testing.T) {
	a := newTestAnchor(t)

	ls := a.LineString([]core.Position{{X: 415, Y: 0}, {X: 415, Y: 210}, {X: 600, Y: 285}})
	assert.False(t, ls.IsEmpty())
	assert.Equal(t, 3, ls.Coordinates().Length())

	assert.True(t, a.LineString([]core.Position{{X: 1, Y: 1}}).IsEmpty())
	assert.True(t, a.LineString(nil).IsEmpty())
}

func TestCoords3857From4326_Origin(t *testing.T) {
	c, ok := Coords3857From4326(0, 0).Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 0, c.X, 1e-6)
	assert.InDelta(t, 0, c.Y, 1e-6)
}
