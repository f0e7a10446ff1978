package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intersim/intersim/internal/channel"
	"github.com/intersim/intersim/internal/dispatcher"
	"github.com/intersim/intersim/internal/logging"
	"github.com/intersim/intersim/internal/worker"
	"github.com/intersim/intersim/pkg/core"
)

type pointRecorder struct {
	mu     sync.Mutex
	points []*influxdb2_write.Point
	err    error
}

func (r *pointRecorder) WritePoint(p *influxdb2_write.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, p)
	return r.err
}

func (r *pointRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points)
}

func newDispatcher(t *testing.T) (*dispatcher.Dispatcher, *[]core.LaneCounts, *sync.Mutex) {
	t.Helper()
	d, err := dispatcher.New(logging.NewDispatcherLogger(slog.Default()))
	require.NoError(t, err)

	var mu sync.Mutex
	var got []core.LaneCounts
	d.Register(worker.CmdLaneCounts, func(e dispatcher.Event) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Payload.(core.LaneCounts))
		return nil, nil
	})
	return d, &got, &mu
}

func TestReport_AllSinks(t *testing.T) {
	d, got, mu := newDispatcher(t)
	points := &pointRecorder{}
	statusPath := filepath.Join(t.TempDir(), "status.json")

	s := NewService(Dependencies{Dispatcher: d, Influx: points, StatusPath: statusPath})
	st := s.Report(Sample{
		Counts: core.LaneCounts{Tick: 240, North: 2, South: 1, Active: 8, Braking: 3},
		NS:     "green",
		EW:     "red",
	})

	assert.Equal(t, 3, st.Waiting)
	assert.False(t, st.Time.IsZero())

	mu.Lock()
	require.Len(t, *got, 1)
	assert.Equal(t, uint64(240), (*got)[0].Tick)
	mu.Unlock()

	require.Equal(t, 1, points.len())
	assert.Equal(t, "intersection", points.points[0].Name())

	data, err := os.ReadFile(statusPath)
	require.NoError(t, err)
	var onDisk Status
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, 2, onDisk.Counts.North)
	assert.Equal(t, "green", onDisk.NS)

	assert.Equal(t, uint64(240), s.Last().Counts.Tick)
}

func TestReport_SinkErrorsDoNotStop(t *testing.T) {
	points := &pointRecorder{err: errors.New("influx down")}
	statusPath := filepath.Join(t.TempDir(), "missing", "status.json")

	s := NewService(Dependencies{Influx: points, StatusPath: statusPath})
	st := s.Report(Sample{Counts: core.LaneCounts{Tick: 1, East: 4}})

	assert.Equal(t, 4, st.Waiting)
	assert.Equal(t, 1, points.len())
	assert.Equal(t, 4, s.Last().Waiting)
}

func TestStartStop(t *testing.T) {
	points := &pointRecorder{}
	s := NewService(Dependencies{Influx: points})
	in := channel.NewChan[Sample](4)

	require.NoError(t, s.Start(in))
	require.NoError(t, s.Start(in), "second start is a no-op")
	assert.True(t, s.IsRunning())

	require.NoError(t, in.Send(context.Background(), Sample{Counts: core.LaneCounts{Tick: 5}}))
	assert.Eventually(t, func() bool { return points.len() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestStart_StopsWhenInputCloses(t *testing.T) {
	s := NewService(Dependencies{})
	in := channel.NewChan[Sample](1)

	require.NoError(t, s.Start(in))
	in.Close()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 5*time.Millisecond)
}
