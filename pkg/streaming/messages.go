package streaming

import (
	"encoding/json"

	"github.com/intersim/intersim/pkg/core"
)

// Message type constants of the streaming protocol.
const (
	TypeStartRun     = "start_run"
	TypeEndRun       = "end_run"
	TypeAddVehicle   = "add_vehicle"
	TypeVehicleState = "vehicle_state"
	TypeVehicleExit  = "vehicle_exit"
	TypeLightState   = "light_state"
	TypeLaneCounts   = "lane_counts"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload carries the run description.
type StartRunPayload struct {
	Run *core.Run `json:"run"`
}

// EndRunPayload closes the run on the receiving side.
type EndRunPayload struct {
	RunID   string `json:"runId"`
	EndTick uint64 `json:"endTick"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}
