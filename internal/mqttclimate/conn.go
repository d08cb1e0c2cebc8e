package mqttclimate

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/logging"
)

// Handler receives messages for a subscription.
type Handler func(topic string, payload []byte)

// Conn is the part of an MQTT client the backend uses.
type Conn interface {
	Subscribe(topic string, handler Handler) error
	Unsubscribe(topic string) error
	Publish(topic string, retained bool, payload []byte) error
	Close() error
}

// BrokerConfig describes how to reach the broker.
type BrokerConfig struct {
	URL      string // tcp://host:1883, ssl://host:8883, ws://host/mqtt
	ClientID string
	Username string
	Password string
}

const (
	connectTimeout = 10 * time.Second
	opTimeout      = 5 * time.Second
	qos            = 1
)

// RealConn talks to an actual MQTT broker.
type RealConn struct {
	client paho.Client

	mu   sync.Mutex
	subs map[string]Handler
}

// Dial connects to the broker. Subscriptions are restored after paho
// reconnects on its own.
func Dial(cfg BrokerConfig) (*RealConn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("broker URL is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("thermodial-%d", time.Now().UnixNano()%100000)
	}

	rc := &RealConn{subs: make(map[string]Handler)}

	opts := paho.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(rc.resubscribe).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logging.LogConnection(cfg.URL, "mqtt_connection_lost", zap.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	rc.client = paho.NewClient(opts)
	token := rc.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		rc.client.Disconnect(0)
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	logging.LogConnection(cfg.URL, "mqtt_connected", zap.String("client_id", cfg.ClientID))
	return rc, nil
}

// Subscribe registers handler for topic at QoS 1.
func (r *RealConn) Subscribe(topic string, handler Handler) error {
	r.mu.Lock()
	r.subs[topic] = handler
	r.mu.Unlock()
	return r.subscribe(topic, handler)
}

func (r *RealConn) subscribe(topic string, handler Handler) error {
	token := r.client.Subscribe(topic, qos, func(_ paho.Client, m paho.Message) {
		handler(m.Topic(), m.Payload())
	})
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe removes the subscription for topic.
func (r *RealConn) Unsubscribe(topic string) error {
	r.mu.Lock()
	delete(r.subs, topic)
	r.mu.Unlock()

	token := r.client.Unsubscribe(topic)
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("unsubscribe %s: timeout", topic)
	}
	return token.Error()
}

// Publish sends payload at QoS 1.
func (r *RealConn) Publish(topic string, retained bool, payload []byte) error {
	token := r.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (r *RealConn) Close() error {
	r.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (r *RealConn) resubscribe(_ paho.Client) {
	r.mu.Lock()
	subs := make(map[string]Handler, len(r.subs))
	for topic, h := range r.subs {
		subs[topic] = h
	}
	r.mu.Unlock()

	for topic, h := range subs {
		// Called on paho's connect goroutine; don't block it on the ack
		go func() {
			if err := r.subscribe(topic, h); err != nil {
				logging.Warn("Resubscribe failed", zap.String("topic", topic), zap.Error(err))
			}
		}()
	}
}
