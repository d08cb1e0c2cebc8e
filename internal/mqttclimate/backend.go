package mqttclimate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/logging"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "thermodial"

// Topics are the three topics of one climate entity.
type Topics struct {
	State          string // retained JSON State, published by the entity side
	SetTemperature string // JSON TemperatureRequest, published by the dial
	SetMode        string // plain hvac mode, published by the dial
}

// TopicsFor returns the topics for entityID under prefix. The climate.
// domain is dropped from the entity id.
func TopicsFor(prefix, entityID string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = strings.TrimSuffix(prefix, "/")
	base := prefix + "/" + strings.TrimPrefix(entityID, "climate.")
	return Topics{
		State:          base + "/state",
		SetTemperature: base + "/set_temperature",
		SetMode:        base + "/set_mode",
	}
}

// Backend follows a climate entity published on MQTT. It implements
// climate.Backend.
type Backend struct {
	conn     Conn
	entityID string
	topics   Topics

	mu       sync.Mutex
	last     climate.State
	haveLast bool
}

var _ climate.Backend = (*Backend)(nil)

// New creates a backend for entityID on conn.
func New(conn Conn, prefix, entityID string) (*Backend, error) {
	if conn == nil {
		return nil, fmt.Errorf("mqtt connection is required")
	}
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}
	return &Backend{
		conn:     conn,
		entityID: entityID,
		topics:   TopicsFor(prefix, entityID),
	}, nil
}

// Topics returns the topics the backend uses.
func (b *Backend) Topics() Topics {
	return b.topics
}

// LastState returns the most recent state seen on the state topic.
func (b *Backend) LastState() (climate.State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.haveLast
}

// Run subscribes to the state topic and delivers every decoded state until
// ctx is done. The entity side is expected to publish state retained, so
// the current state arrives right after subscribing.
func (b *Backend) Run(ctx context.Context, onState func(climate.State)) error {
	err := b.conn.Subscribe(b.topics.State, func(topic string, payload []byte) {
		st, err := DecodeState(payload)
		if err != nil {
			logging.Warn("Ignoring malformed climate state",
				zap.String("topic", topic),
				zap.Error(err),
			)
			return
		}
		if st.EntityID == "" {
			st.EntityID = b.entityID
		}

		b.mu.Lock()
		b.last = st
		b.haveLast = true
		b.mu.Unlock()

		logging.LogStatePush("mqtt", st)
		if onState != nil {
			onState(st)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to state: %w", err)
	}
	defer func() { _ = b.conn.Unsubscribe(b.topics.State) }()

	<-ctx.Done()
	return nil
}

// SetTemperature publishes req on the set_temperature topic.
func (b *Backend) SetTemperature(ctx context.Context, req climate.TemperatureRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid temperature request: %w", err)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	err = b.conn.Publish(b.topics.SetTemperature, false, payload)
	logging.LogCommit(b.entityID, req, err)
	return err
}

// SetMode publishes mode on the set_mode topic.
func (b *Backend) SetMode(ctx context.Context, mode string) error {
	if mode == "" {
		return fmt.Errorf("mode is required")
	}
	err := b.conn.Publish(b.topics.SetMode, false, []byte(mode))
	logging.LogModeChange(b.entityID, mode, err)
	return err
}

// Close disconnects from the broker.
func (b *Backend) Close() error {
	return b.conn.Close()
}

// DecodeState parses a state payload and fills in default limits.
func DecodeState(payload []byte) (climate.State, error) {
	var st climate.State
	if err := json.Unmarshal(payload, &st); err != nil {
		return climate.State{}, err
	}
	if st.Mode == "" {
		return climate.State{}, fmt.Errorf("state has no hvac_mode")
	}
	if st.Min == 0 && st.Max == 0 {
		st.Min, st.Max = 7, 35
	}
	return st, nil
}
