package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textSink(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestMultiHandler_FansOutAndSkipsNil(t *testing.T) {
	var file, gelf bytes.Buffer
	multi := NewMultiHandler(nil, textSink(&file, slog.LevelInfo), nil, textSink(&gelf, slog.LevelInfo))
	require.Len(t, multi.sinks, 2)

	slog.New(multi).Info("vehicle spawned", "id", 7)
	assert.Contains(t, file.String(), "id=7")
	assert.Contains(t, gelf.String(), "id=7")
}

func TestMultiHandler_Enabled(t *testing.T) {
	ctx := context.Background()
	info := textSink(&bytes.Buffer{}, slog.LevelInfo)
	debug := textSink(&bytes.Buffer{}, slog.LevelDebug)

	assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))
	assert.False(t, NewMultiHandler(info).Enabled(ctx, slog.LevelDebug))
	assert.True(t, NewMultiHandler(info, debug).Enabled(ctx, slog.LevelDebug))
}

func TestMultiHandler_LevelPerSink(t *testing.T) {
	var verbose, quiet bytes.Buffer
	logger := slog.New(NewMultiHandler(textSink(&verbose, slog.LevelDebug), textSink(&quiet, slog.LevelWarn)))

	logger.Debug("arc step")
	assert.Contains(t, verbose.String(), "arc step")
	assert.Empty(t, quiet.String())
}

func TestMultiHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(textSink(&buf, slog.LevelInfo))

	slog.New(multi).With("component", "driver").WithGroup("lane").Info("waiting", "north", 3)
	assert.Contains(t, buf.String(), "component=driver")
	assert.Contains(t, buf.String(), "lane.north=3")
	assert.Same(t, multi, multi.WithGroup(""))
}

type failingSink struct {
	slog.Handler
}

func (failingSink) Enabled(context.Context, slog.Level) bool { return true }

func (failingSink) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandler_FailingSinkDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(failingSink{}, textSink(&buf, slog.LevelInfo))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0)
	err := multi.Handle(context.Background(), r)
	assert.ErrorContains(t, err, "sink down")
	assert.Contains(t, buf.String(), "still delivered")
}
