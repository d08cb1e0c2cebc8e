package mqttclimate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/muurk/thermodial/internal/climate"
)

func TestTopicsFor(t *testing.T) {
	tests := []struct {
		prefix, entity string
		wantState      string
	}{
		{"", "climate.hall", "thermodial/hall/state"},
		{"home/", "climate.hall", "home/hall/state"},
		{"hvac", "office", "hvac/office/state"},
	}

	for _, tt := range tests {
		got := TopicsFor(tt.prefix, tt.entity)
		if got.State != tt.wantState {
			t.Errorf("TopicsFor(%q, %q).State = %q, want %q", tt.prefix, tt.entity, got.State, tt.wantState)
		}
	}

	topics := TopicsFor("", "climate.hall")
	if topics.SetTemperature != "thermodial/hall/set_temperature" || topics.SetMode != "thermodial/hall/set_mode" {
		t.Errorf("TopicsFor() = %+v", topics)
	}
}

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/+/c", "a/x/c", true},
		{"a/#", "a/x/y", true},
		{"a/b", "a/b/c", false},
		{"a/b/c", "a/b", false},
		{"a/+", "b/x", false},
	}
	for _, tt := range tests {
		if got := topicMatches(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicMatches(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestDecodeState(t *testing.T) {
	st, err := DecodeState([]byte(`{"entity_id":"climate.hall","hvac_mode":"heat","temperature":21.5,"current_temperature":20}`))
	if err != nil {
		t.Fatalf("DecodeState() error = %v", err)
	}
	if *st.Target != 21.5 || st.Min != 7 || st.Max != 35 {
		t.Errorf("DecodeState() = %+v", st)
	}

	for _, bad := range []string{`not json`, `{"temperature":21}`} {
		if _, err := DecodeState([]byte(bad)); err == nil {
			t.Errorf("DecodeState(%s) succeeded", bad)
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, "", "climate.hall"); err == nil {
		t.Error("New() without connection succeeded")
	}
	if _, err := New(NewFakeConn(), "", ""); err == nil {
		t.Error("New() without entity succeeded")
	}
}

func TestBackendRun(t *testing.T) {
	conn := NewFakeConn()
	b, err := New(conn, "", "climate.hall")
	if err != nil {
		t.Fatal(err)
	}

	// Retained state published before the dial starts
	if err := conn.Publish(b.Topics().State, true, []byte(`{"hvac_mode":"heat","temperature":21}`)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	states := make(chan climate.State, 8)
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, func(st climate.State) { states <- st }) }()

	select {
	case st := <-states:
		if st.EntityID != "climate.hall" || *st.Target != 21 {
			t.Errorf("retained state = %v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("retained state not delivered")
	}

	_ = conn.Publish(b.Topics().State, true, []byte(`garbage`))
	_ = conn.Publish(b.Topics().State, true, []byte(`{"hvac_mode":"heat","temperature":22}`))
	select {
	case st := <-states:
		if *st.Target != 22 {
			t.Errorf("push = %v, want target 22", st)
		}
	case <-time.After(time.Second):
		t.Fatal("push not delivered")
	}
	if last, ok := b.LastState(); !ok || *last.Target != 22 {
		t.Errorf("LastState() = %v, %v", last, ok)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
	if conn.Subscribed(b.Topics().State) {
		t.Error("state topic still subscribed after Run returned")
	}
}

func TestBackendWrites(t *testing.T) {
	conn := NewFakeConn()
	b, _ := New(conn, "home", "climate.hall")
	ctx := context.Background()

	if err := b.SetTemperature(ctx, climate.DualRequest(19, 23)); err != nil {
		t.Fatalf("SetTemperature() error = %v", err)
	}
	msgs := conn.Messages("home/hall/set_temperature")
	if len(msgs) != 1 || msgs[0].Retained {
		t.Fatalf("set_temperature messages = %+v", msgs)
	}
	var req climate.TemperatureRequest
	if err := json.Unmarshal(msgs[0].Payload, &req); err != nil || *req.Low != 19 || *req.High != 23 || req.Target != nil {
		t.Errorf("payload = %s", msgs[0].Payload)
	}

	if err := b.SetTemperature(ctx, climate.TemperatureRequest{}); err == nil {
		t.Error("empty request published")
	}

	if err := b.SetMode(ctx, climate.ModeCool); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if msgs := conn.Messages("home/hall/set_mode"); len(msgs) != 1 || string(msgs[0].Payload) != "cool" {
		t.Errorf("set_mode messages = %+v", msgs)
	}

	conn.PublishError = errors.New("offline")
	if err := b.SetMode(ctx, climate.ModeHeat); err == nil {
		t.Error("SetMode() ignored publish error")
	}

	_ = b.Close()
	if !conn.Closed {
		t.Error("Close() did not close the connection")
	}
}

func TestBridgeRoundTrip(t *testing.T) {
	conn := NewFakeConn()
	sim := climate.NewSimulator(climate.DefaultSimulatedState("climate.hall"))
	bridge := NewBridge(conn, sim, "", "climate.hall")
	b, _ := New(conn, "", "climate.hall")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bridge.Run(ctx) }()

	states := make(chan climate.State, 16)
	go func() { _ = b.Run(ctx, func(st climate.State) { states <- st }) }()

	waitTarget := func(want float64) {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case st := <-states:
				if st.Target != nil && *st.Target == want {
					return
				}
			case <-timeout:
				t.Fatalf("never saw target %v", want)
			}
		}
	}

	waitTarget(21)
	// Bridge subscriptions are in place once the first state went out
	deadline := time.Now().Add(time.Second)
	for !conn.Subscribed(b.Topics().SetTemperature) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := b.SetTemperature(ctx, climate.TargetRequest(24)); err != nil {
		t.Fatal(err)
	}
	waitTarget(24)
	if got := *sim.State().Target; got != 24 {
		t.Errorf("simulator target = %v, want 24", got)
	}

	if err := b.SetMode(ctx, climate.ModeOff); err != nil {
		t.Fatal(err)
	}
	deadline = time.Now().Add(time.Second)
	for sim.State().Mode != climate.ModeOff && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sim.State().Mode != climate.ModeOff {
		t.Errorf("simulator mode = %q, want off", sim.State().Mode)
	}
}
