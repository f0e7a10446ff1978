package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intersim/intersim/internal/channel"
	"github.com/intersim/intersim/internal/sim"
)

func writeLane(t *testing.T, dir string, o sim.Origin, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(LanePath(dir, o), []byte(content), 0o644))
}

func TestLanePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "lanea.txt"), LanePath("data", sim.North))
	assert.Equal(t, filepath.Join("data", "laneb.txt"), LanePath("data", sim.South))
	assert.Equal(t, filepath.Join("data", "lanec.txt"), LanePath("data", sim.East))
	assert.Equal(t, filepath.Join("data", "laned.txt"), LanePath("data", sim.West))
}

func TestLoad_ConsumesFiles(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir, nil)
	require.NoError(t, err)

	writeLane(t, dir, sim.North, "1\n2\n3\n")
	writeLane(t, dir, sim.West, "40\n")

	batches, err := src.Load()
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, Batch{Origin: sim.North, IDs: []uint64{1, 2, 3}}, batches[0])
	assert.Equal(t, Batch{Origin: sim.West, IDs: []uint64{40}}, batches[1])

	// consumed entries are gone
	batches, err = src.Load()
	require.NoError(t, err)
	assert.Empty(t, batches)
	_, err = os.Stat(LanePath(dir, sim.North) + takeSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir, nil)
	require.NoError(t, err)

	writeLane(t, dir, sim.East, "7\n\ncar\n  8  \n-1\n")

	batches, err := src.Load()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []uint64{7, 8}, batches[0].IDs)
}

func TestLoad_ResumesInterruptedTake(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(LanePath(dir, sim.South)+takeSuffix, []byte("5\n"), 0o644))
	writeLane(t, dir, sim.South, "6\n")

	batches, err := src.Load()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []uint64{5}, batches[0].IDs)

	batches, err = src.Load()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []uint64{6}, batches[0].IDs)
}

func TestWaiting(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir, nil)
	require.NoError(t, err)

	writeLane(t, dir, sim.North, "1\n2\n")
	writeLane(t, dir, sim.East, "3\n")

	counts, err := src.Waiting()
	require.NoError(t, err)
	assert.Equal(t, [4]int{2, 0, 1, 0}, counts)

	// counting does not consume
	batches, err := src.Load()
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestWatch_DeliversWrites(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir, nil)
	require.NoError(t, err)

	writeLane(t, dir, sim.North, "1\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := channel.NewChan[Batch](16)
	done := make(chan error, 1)
	go func() { done <- src.Watch(ctx, 50*time.Millisecond, out) }()

	select {
	case b := <-out.Receive():
		assert.Equal(t, Batch{Origin: sim.North, IDs: []uint64{1}}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("initial batch not delivered")
	}

	// rename into place so the watcher never sees a half-written file
	tmp := filepath.Join(t.TempDir(), "lane.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("9\n10\n"), 0o644))
	require.NoError(t, os.Rename(tmp, LanePath(dir, sim.West)))
	select {
	case b := <-out.Receive():
		assert.Equal(t, Batch{Origin: sim.West, IDs: []uint64{9, 10}}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("written batch not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
