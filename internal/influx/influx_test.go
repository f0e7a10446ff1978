package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intersim/intersim/internal/config"
	"github.com/intersim/intersim/pkg/core"
)

func unreachableConfig(t *testing.T) config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:   true,
		Protocol:  "http",
		Host:      "127.0.0.1",
		Port:      "1",
		Org:       "intersim",
		Bucket:    "intersection",
		BackupDir: t.TempDir(),
	}
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop())
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid())
	assert.Error(t, m.WritePoint(LaneCountsPoint("r", core.LaneCounts{}, "green", "red")))
	assert.NoError(t, m.Close())
}

func TestURL(t *testing.T) {
	m := NewManager(config.InfluxConfig{Protocol: "https", Host: "influx", Port: "8086"}, zerolog.Nop())
	assert.Equal(t, "https://influx:8086", m.URL())
}

func TestConnect_UnreachableFallsBackToFile(t *testing.T) {
	cfg := unreachableConfig(t)
	m := NewManager(cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid())

	c := core.LaneCounts{Tick: 120, Time: time.Unix(1700000000, 0), North: 3, West: 1, Active: 12, Braking: 4}
	require.NoError(t, m.WritePoint(LaneCountsPoint("run-1", c, "green", "red")))
	require.NoError(t, m.WritePoint(LaneCountsPoint("run-1", c, "yellow", "red")))
	require.NoError(t, m.Close())

	f, err := os.Open(m.BackupPath())
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "intersection,run=run-1 "), lines[0])
	assert.Contains(t, lines[0], "north=3i")
	assert.Contains(t, lines[0], "waiting=4i")
	assert.Contains(t, lines[0], `ns="green"`)
	assert.True(t, strings.HasSuffix(lines[0], " 1700000000000000000"), lines[0])
}

func TestLaneCountsPoint_DefaultsTime(t *testing.T) {
	p := LaneCountsPoint("r", core.LaneCounts{}, "red", "green")
	assert.False(t, p.Time().IsZero())
	assert.Equal(t, Measurement, p.Name())
}
