package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/intersim/intersim/internal/config"
	"github.com/intersim/intersim/internal/storage"
	"github.com/intersim/intersim/pkg/core"
	"github.com/intersim/intersim/pkg/streaming"
)

// Backend streams run data over WebSocket to a replay server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  config.WebSocketConfig

	mu    sync.Mutex
	runID string
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "websocket-storage")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped reports how many messages were lost to a full send channel.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	env, err := streaming.NewEnvelope(msgType, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartRun sends the run description and waits for server ack. The message
// is cached and replayed if the connection drops.
func (b *Backend) StartRun(run *core.Run) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}

	b.conn.setStartMessage(data)
	b.mu.Lock()
	b.runID = run.ID.String()
	b.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// EndRun sends end_run and waits for server ack.
func (b *Backend) EndRun(endTick uint64) error {
	b.mu.Lock()
	runID := b.runID
	b.runID = ""
	b.mu.Unlock()
	if runID == "" {
		return storage.ErrNoRun
	}

	data, err := marshalEnvelope(streaming.TypeEndRun, streaming.EndRunPayload{RunID: runID, EndTick: endTick})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndRun, ackTimeout)
	if n := b.conn.dropped.Load(); n > 0 {
		b.conn.logger.Warn("Run streamed with dropped messages", "run", runID, "dropped", n)
	}

	// Clear cached state regardless of error.
	b.conn.setStartMessage(nil)
	return err
}

func (b *Backend) AddVehicle(v *core.Vehicle) error {
	return b.sendEnvelope(streaming.TypeAddVehicle, v)
}

func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	return b.sendEnvelope(streaming.TypeVehicleState, s)
}

func (b *Backend) RecordVehicleExit(e *core.VehicleExit) error {
	return b.sendEnvelope(streaming.TypeVehicleExit, e)
}

func (b *Backend) RecordLightState(l *core.LightState) error {
	return b.sendEnvelope(streaming.TypeLightState, l)
}

func (b *Backend) RecordLaneCounts(c *core.LaneCounts) error {
	return b.sendEnvelope(streaming.TypeLaneCounts, c)
}
