package mqttclimate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/logging"
)

// Bridge exposes a climate.Backend on MQTT: it publishes every state
// retained on the state topic and applies writes arriving on the set
// topics. It is the entity side of Backend.
type Bridge struct {
	conn    Conn
	backend climate.Backend
	topics  Topics
}

// NewBridge creates a bridge for backend under prefix.
func NewBridge(conn Conn, backend climate.Backend, prefix, entityID string) *Bridge {
	return &Bridge{
		conn:    conn,
		backend: backend,
		topics:  TopicsFor(prefix, entityID),
	}
}

// Run serves the entity until ctx is done.
func (br *Bridge) Run(ctx context.Context) error {
	if err := br.conn.Subscribe(br.topics.SetTemperature, func(_ string, payload []byte) {
		br.applyTemperature(ctx, payload)
	}); err != nil {
		return err
	}
	defer func() { _ = br.conn.Unsubscribe(br.topics.SetTemperature) }()

	if err := br.conn.Subscribe(br.topics.SetMode, func(_ string, payload []byte) {
		mode := strings.TrimSpace(string(payload))
		if err := br.backend.SetMode(ctx, mode); err != nil {
			logging.Warn("Rejected mode change", zap.String("mode", mode), zap.Error(err))
		}
	}); err != nil {
		return err
	}
	defer func() { _ = br.conn.Unsubscribe(br.topics.SetMode) }()

	return br.backend.Run(ctx, func(st climate.State) {
		if err := br.publish(st); err != nil {
			logging.Warn("Failed to publish climate state", zap.Error(err))
		}
	})
}

func (br *Bridge) applyTemperature(ctx context.Context, payload []byte) {
	var req climate.TemperatureRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		logging.Warn("Ignoring malformed set_temperature", zap.Error(err))
		return
	}
	if err := br.backend.SetTemperature(ctx, req); err != nil {
		logging.Warn("Rejected set_temperature", zap.Stringer("request", req), zap.Error(err))
	}
}

func (br *Bridge) publish(st climate.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return br.conn.Publish(br.topics.State, true, payload)
}
