package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/hass"
	"github.com/muurk/thermodial/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed for the client to authenticate
	authWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Error codes used in failed results
const (
	codeUnknownCommand = "unknown_command"
	codeInvalidFormat  = "invalid_format"
	codeNotFound       = "not_found"
	codeServiceFailed  = "home_assistant_error"
)

// session is one authenticated websocket client.
type session struct {
	conn   *websocket.Conn
	remote string

	writeMu sync.Mutex

	mu     sync.Mutex
	subs   []func()
	closed bool
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	sess := &session{conn: conn, remote: r.RemoteAddr}
	s.wg.Add(1)
	defer s.wg.Done()
	s.track(sess)
	defer s.untrack(sess)

	logging.LogConnection(sess.remote, "websocket_upgraded",
		zap.String("user_agent", r.Header.Get("User-Agent")))

	if err := s.serveSession(sess); err != nil {
		logging.Info("WebSocket session ended",
			zap.String("remote_addr", sess.remote),
			zap.Error(err),
		)
	}
}

// serveSession runs the auth phase and then answers commands until the
// client goes away.
func (s *Server) serveSession(sess *session) error {
	defer func() {
		sess.close()
		logging.LogConnection(sess.remote, "websocket_closed")
	}()
	sess.conn.SetReadLimit(maxMessageSize)

	if err := sess.send(hass.AuthMessage{Type: hass.TypeAuthRequired, HAVersion: s.config.HAVersion}); err != nil {
		return err
	}

	_ = sess.conn.SetReadDeadline(time.Now().Add(authWait))
	var auth hass.AuthMessage
	if err := sess.conn.ReadJSON(&auth); err != nil {
		return fmt.Errorf("reading auth: %w", err)
	}
	if auth.Type != hass.TypeAuth || auth.AccessToken != s.config.Token {
		_ = sess.send(hass.AuthMessage{Type: hass.TypeAuthInvalid, Message: "Invalid access token or password"})
		return errors.New("authentication failed")
	}
	if err := sess.send(hass.AuthMessage{Type: hass.TypeAuthOK, HAVersion: s.config.HAVersion}); err != nil {
		return err
	}
	_ = sess.conn.SetReadDeadline(time.Time{})
	logging.LogConnection(sess.remote, "authenticated")

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		logging.LogMessage(sess.remote, "received", data)

		var cmd hass.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			_ = sess.fail(0, codeInvalidFormat, "Message incorrectly formatted.")
			continue
		}
		if err := s.dispatch(sess, cmd); err != nil {
			return err
		}
	}
}

// dispatch answers one command. Only write errors are returned.
func (s *Server) dispatch(sess *session, cmd hass.Command) error {
	switch cmd.Type {
	case hass.TypePing:
		return sess.send(hass.Envelope{ID: cmd.ID, Type: hass.TypePong})

	case hass.TypeSubscribeEvents:
		if cmd.EventType == "" || cmd.EventType == hass.EventStateChanged {
			s.subscribe(sess, cmd.ID)
		}
		return sess.result(cmd.ID, nil)

	case hass.TypeGetStates:
		return sess.result(cmd.ID, []hass.EntityState{hass.EntityFromClimate(s.sim.State())})

	case hass.TypeCallService:
		code, err := s.callService(cmd)
		if err != nil {
			logging.Info("Service call failed",
				zap.String("service", cmd.Domain+"."+cmd.Service),
				zap.Error(err),
			)
			return sess.fail(cmd.ID, code, err.Error())
		}
		return sess.result(cmd.ID, map[string]any{"context": map[string]string{"id": fmt.Sprintf("sim-%d", cmd.ID)}})

	default:
		return sess.fail(cmd.ID, codeUnknownCommand, "Unknown command.")
	}
}

// subscribe forwards simulator changes as state_changed events.
func (s *Server) subscribe(sess *session, id int) {
	var mu sync.Mutex
	prev := hass.EntityFromClimate(s.sim.State())

	cancel := s.sim.Subscribe(func(st climate.State) {
		mu.Lock()
		old := prev
		next := hass.EntityFromClimate(st)
		now := time.Now().UTC().Format(time.RFC3339Nano)
		next.LastUpdated = now
		prev = next
		mu.Unlock()

		err := sess.send(hass.EventMessage{
			ID:   id,
			Type: hass.TypeEvent,
			Event: hass.Event{
				EventType: hass.EventStateChanged,
				Data: hass.StateChangedData{
					EntityID: st.EntityID,
					OldState: &old,
					NewState: &next,
				},
				TimeFired: now,
			},
		})
		if err != nil {
			logging.Debug("Dropping event for closed session", zap.String("remote_addr", sess.remote))
		}
	})
	sess.addSub(cancel)
}

// callService applies a climate service call to the simulator and returns
// the error code to report on failure.
func (s *Server) callService(cmd hass.Command) (string, error) {
	if cmd.Domain != hass.DomainClimate {
		return codeNotFound, fmt.Errorf("Service %s.%s not found.", cmd.Domain, cmd.Service)
	}
	entity := s.sim.State().EntityID
	if cmd.Target == nil || cmd.Target.EntityID != entity {
		return codeNotFound, errors.New("Referenced entities not found.")
	}

	ctx := context.Background()
	switch cmd.Service {
	case hass.ServiceSetTemperature:
		req, err := requestFromServiceData(cmd.ServiceData)
		if err != nil {
			return codeInvalidFormat, err
		}
		if err := s.sim.SetTemperature(ctx, req); err != nil {
			return codeServiceFailed, err
		}
	case hass.ServiceSetHVACMode:
		mode, _ := cmd.ServiceData["hvac_mode"].(string)
		if mode == "" {
			return codeInvalidFormat, errors.New("required key not provided @ data['hvac_mode']")
		}
		if err := s.sim.SetMode(ctx, mode); err != nil {
			return codeServiceFailed, err
		}
	default:
		return codeNotFound, fmt.Errorf("Service climate.%s not found.", cmd.Service)
	}
	return "", nil
}

func requestFromServiceData(data map[string]any) (climate.TemperatureRequest, error) {
	var req climate.TemperatureRequest
	for key, dst := range map[string]**float64{
		"temperature":      &req.Target,
		"target_temp_low":  &req.Low,
		"target_temp_high": &req.High,
	} {
		v, ok := data[key]
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok {
			return req, fmt.Errorf("expected float for dictionary value @ data['%s']", key)
		}
		*dst = climate.Float(f)
	}
	return req, req.Validate()
}

func (sess *session) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	logging.LogMessage(sess.remote, "sent", data)

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sess.conn.WriteMessage(websocket.TextMessage, data)
}

func (sess *session) result(id int, v any) error {
	msg := hass.ResultMessage{ID: id, Type: hass.TypeResult, Success: true}
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		msg.Result = raw
	}
	return sess.send(msg)
}

func (sess *session) fail(id int, code, message string) error {
	return sess.send(hass.ResultMessage{
		ID:      id,
		Type:    hass.TypeResult,
		Success: false,
		Error:   &hass.ErrorInfo{Code: code, Message: message},
	})
}

func (sess *session) addSub(cancel func()) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		cancel()
		return
	}
	sess.subs = append(sess.subs, cancel)
}

// close drops subscriptions and the connection. Safe to call twice.
func (sess *session) close() {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	sess.closed = true
	subs := sess.subs
	sess.subs = nil
	sess.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}
	_ = sess.conn.Close()
}
