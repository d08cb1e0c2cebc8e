package hass_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/hass"
	"github.com/muurk/thermodial/internal/server"
)

const (
	testToken  = "test-token"
	testEntity = "climate.hall"
)

func startHA(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	sim := climate.NewSimulator(climate.DefaultSimulatedState(testEntity))
	srv, err := server.New(&server.Config{Token: testToken}, sim)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.DropConnections()
		ts.Close()
	})
	return srv, ts
}

func newClient(t *testing.T, url, token, entity string) *hass.Client {
	t.Helper()
	c, err := hass.NewClient(hass.Config{
		URL:            url,
		Token:          token,
		EntityID:       entity,
		DialTimeout:    2 * time.Second,
		CallTimeout:    2 * time.Second,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type running struct {
	states chan climate.State
	done   chan error
	cancel context.CancelFunc
}

func run(t *testing.T, c *hass.Client) *running {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &running{
		states: make(chan climate.State, 64),
		done:   make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		r.done <- c.Run(ctx, func(st climate.State) { r.states <- st })
	}()
	t.Cleanup(cancel)
	return r
}

// waitFor reads pushes until match returns true.
func (r *running) waitFor(t *testing.T, what string, match func(climate.State) bool) climate.State {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case st := <-r.states:
			if match(st) {
				return st
			}
		case err := <-r.done:
			t.Fatalf("Run() returned %v while waiting for %s", err, what)
		case <-timeout:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func (r *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
		return nil
	}
}

func targetIs(v float64) func(climate.State) bool {
	return func(st climate.State) bool { return st.Target != nil && *st.Target == v }
}

func TestClientSnapshot(t *testing.T) {
	_, ts := startHA(t)
	c := newClient(t, ts.URL, testToken, testEntity)
	r := run(t, c)

	st := r.waitFor(t, "snapshot", func(climate.State) bool { return true })
	if st.EntityID != testEntity || st.Mode != climate.ModeHeat || *st.Target != 21 {
		t.Errorf("snapshot = %v", st)
	}
	if st.Min != 7 || st.Max != 35 {
		t.Errorf("range = %v..%v, want 7..35", st.Min, st.Max)
	}
	if c.HAVersion() != server.DefaultHAVersion {
		t.Errorf("HAVersion() = %q", c.HAVersion())
	}
	if last, ok := c.LastState(); !ok || last.EntityID != testEntity {
		t.Errorf("LastState() = %v, %v", last, ok)
	}

	r.cancel()
	if err := r.wait(t); err != nil {
		t.Errorf("Run() after cancel = %v, want nil", err)
	}
}

func TestClientStatePush(t *testing.T) {
	srv, ts := startHA(t)
	c := newClient(t, ts.URL, testToken, testEntity)
	r := run(t, c)
	r.waitFor(t, "snapshot", targetIs(21))

	srv.Simulator().Tick()
	st := r.waitFor(t, "ambient change", func(st climate.State) bool {
		return st.Ambient != nil && *st.Ambient == 20.6
	})
	if *st.Target != 21 {
		t.Errorf("push = %v", st)
	}
}

func TestClientSetTemperature(t *testing.T) {
	srv, ts := startHA(t)
	c := newClient(t, ts.URL, testToken, testEntity)
	r := run(t, c)
	r.waitFor(t, "snapshot", targetIs(21))

	if err := c.SetTemperature(context.Background(), climate.TargetRequest(23.5)); err != nil {
		t.Fatalf("SetTemperature() error = %v", err)
	}
	if got := *srv.Simulator().State().Target; got != 23.5 {
		t.Errorf("simulator target = %v, want 23.5", got)
	}
	r.waitFor(t, "echo of the write", targetIs(23.5))

	err := c.SetTemperature(context.Background(), climate.DualRequest(19, 23))
	var haErr *hass.Error
	if !errors.As(err, &haErr) || haErr.Type != hass.ErrTypeService || haErr.Code == "" {
		t.Errorf("band write on single entity error = %v, want service error with code", err)
	}

	err = c.SetTemperature(context.Background(), climate.TemperatureRequest{})
	if !errors.As(err, &haErr) || haErr.Type != hass.ErrTypeService {
		t.Errorf("empty request error = %v", err)
	}
}

func TestClientSetMode(t *testing.T) {
	srv, ts := startHA(t)
	c := newClient(t, ts.URL, testToken, testEntity)
	r := run(t, c)
	r.waitFor(t, "snapshot", targetIs(21))

	if err := c.SetMode(context.Background(), climate.ModeHeatCool); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	st := r.waitFor(t, "band", func(st climate.State) bool { return st.IsDual() })
	if *st.TargetLow != 20 || *st.TargetHigh != 22 {
		t.Errorf("band = %v", st)
	}
	if srv.Simulator().State().Mode != climate.ModeHeatCool {
		t.Error("simulator mode not switched")
	}

	if err := c.SetMode(context.Background(), climate.ModeDry); err == nil {
		t.Error("SetMode(dry) succeeded on an entity without dry")
	}
}

func TestClientAuthInvalid(t *testing.T) {
	_, ts := startHA(t)
	c := newClient(t, ts.URL, "wrong", testEntity)
	r := run(t, c)

	err := r.wait(t)
	if !hass.IsAuthError(err) {
		t.Errorf("Run() error = %v, want auth error", err)
	}
	if hass.IsRetryable(err) {
		t.Error("auth error reported as retryable")
	}
}

func TestClientEntityNotFound(t *testing.T) {
	_, ts := startHA(t)
	c := newClient(t, ts.URL, testToken, "climate.attic")
	r := run(t, c)

	err := r.wait(t)
	var haErr *hass.Error
	if !errors.As(err, &haErr) || haErr.Type != hass.ErrTypeService {
		t.Errorf("Run() error = %v, want service error", err)
	}
}

func TestClientReconnects(t *testing.T) {
	srv, ts := startHA(t)
	c := newClient(t, ts.URL, testToken, testEntity)
	r := run(t, c)
	r.waitFor(t, "snapshot", targetIs(21))

	if srv.DropConnections() != 1 {
		t.Fatal("no connection to drop")
	}
	// Either the post-reconnect snapshot or a push carries the change
	if err := srv.Simulator().SetTemperature(context.Background(), climate.TargetRequest(26)); err != nil {
		t.Fatal(err)
	}
	r.waitFor(t, "state after reconnect", targetIs(26))

	if err := c.SetTemperature(context.Background(), climate.TargetRequest(24)); err != nil {
		t.Fatalf("SetTemperature() after reconnect error = %v", err)
	}
	r.waitFor(t, "write after reconnect", targetIs(24))
}

func TestClientServerGone(t *testing.T) {
	_, ts := startHA(t)
	url := ts.URL
	ts.Close()

	c, err := hass.NewClient(hass.Config{
		URL:            url,
		Token:          testToken,
		EntityID:       testEntity,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		MaxElapsed:     100 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	r := run(t, c)
	if err := r.wait(t); err == nil {
		t.Error("Run() = nil, want error once MaxElapsed is spent")
	}
}

func TestClientNotConnected(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1", testToken, testEntity)

	err := c.SetTemperature(context.Background(), climate.TargetRequest(21))
	if err == nil || !hass.IsRetryable(err) {
		t.Errorf("SetTemperature() before Run = %v, want retryable error", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  hass.Config
	}{
		{"no token", hass.Config{URL: "ha.local", EntityID: testEntity}},
		{"not climate", hass.Config{URL: "ha.local", Token: "t", EntityID: "light.kitchen"}},
		{"no url", hass.Config{Token: "t", EntityID: testEntity}},
		{"bad scheme", hass.Config{URL: "ftp://ha.local", Token: "t", EntityID: testEntity}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := hass.NewClient(tt.cfg); err == nil {
				t.Error("NewClient() succeeded")
			}
		})
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"homeassistant.local:8123", "ws://homeassistant.local:8123/api/websocket"},
		{"http://10.0.0.2:8123", "ws://10.0.0.2:8123/api/websocket"},
		{"http://10.0.0.2:8123/", "ws://10.0.0.2:8123/api/websocket"},
		{"https://ha.example.com", "wss://ha.example.com/api/websocket"},
		{"wss://ha.example.com/api/websocket", "wss://ha.example.com/api/websocket"},
		{"https://example.com/ha?x=1", "wss://example.com/ha/api/websocket"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := hass.WebSocketURL(tt.in)
			if err != nil {
				t.Fatalf("WebSocketURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("WebSocketURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
