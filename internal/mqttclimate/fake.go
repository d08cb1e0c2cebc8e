package mqttclimate

import (
	"strings"
	"sync"
)

// Message is one publish recorded by FakeConn.
type Message struct {
	Topic    string
	Retained bool
	Payload  []byte
}

// FakeConn is an in-memory broker for tests. Publishes are recorded and
// routed to matching subscriptions; retained messages are replayed to new
// subscribers like a real broker does.
type FakeConn struct {
	mu       sync.Mutex
	subs     map[string]Handler
	retained map[string][]byte

	// Published contains every message passed to Publish.
	Published []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeConn creates a FakeConn for testing.
func NewFakeConn() *FakeConn {
	return &FakeConn{
		subs:     make(map[string]Handler),
		retained: make(map[string][]byte),
	}
}

// Subscribe records handler and replays a retained message for topic.
func (f *FakeConn) Subscribe(topic string, handler Handler) error {
	f.mu.Lock()
	f.subs[topic] = handler
	payload, ok := f.retained[topic]
	f.mu.Unlock()

	if ok {
		handler(topic, payload)
	}
	return nil
}

// Unsubscribe removes the subscription.
func (f *FakeConn) Unsubscribe(topic string) error {
	f.mu.Lock()
	delete(f.subs, topic)
	f.mu.Unlock()
	return nil
}

// Publish records the message and delivers it to subscribers.
func (f *FakeConn) Publish(topic string, retained bool, payload []byte) error {
	f.mu.Lock()
	if f.PublishError != nil {
		err := f.PublishError
		f.mu.Unlock()
		return err
	}
	f.Published = append(f.Published, Message{Topic: topic, Retained: retained, Payload: payload})
	if retained {
		f.retained[topic] = payload
	}
	handlers := f.matching(topic)
	f.mu.Unlock()

	for _, h := range handlers {
		h(topic, payload)
	}
	return nil
}

// Close marks the connection as closed.
func (f *FakeConn) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Messages returns a copy of the recorded publishes on topic.
func (f *FakeConn) Messages(topic string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.Published {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Subscribed reports whether anything listens on topic.
func (f *FakeConn) Subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subs[topic]
	return ok
}

func (f *FakeConn) matching(topic string) []Handler {
	var out []Handler
	for filter, h := range f.subs {
		if topicMatches(filter, topic) {
			out = append(out, h)
		}
	}
	return out
}

// topicMatches implements MQTT filter matching for + and #.
func topicMatches(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, part := range fp {
		switch {
		case part == "#":
			return true
		case i >= len(tp):
			return false
		case part != "+" && part != tp[i]:
			return false
		}
	}
	return len(fp) == len(tp)
}
