package hass

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/logging"
	"github.com/muurk/thermodial/internal/version"
)

// Default connection settings
const (
	DefaultDialTimeout    = 10 * time.Second
	DefaultCallTimeout    = 10 * time.Second
	DefaultPingInterval   = 30 * time.Second
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second

	writeWait = 5 * time.Second
)

// Config holds the settings for one Home Assistant connection.
type Config struct {
	URL      string // Base URL (http://ha.local:8123) or websocket URL
	Token    string // Long-lived access token
	EntityID string // Climate entity to follow, e.g. climate.living_room

	Insecure bool // Skip TLS verification for self-signed installs

	DialTimeout    time.Duration
	CallTimeout    time.Duration
	PingInterval   time.Duration // Zero disables keep-alive pings
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxElapsed     time.Duration // Give up reconnecting after this long; zero retries forever
}

func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	return c
}

// Client follows one climate entity over the Home Assistant websocket API
// and writes set-points back through climate services. It implements
// climate.Backend.
type Client struct {
	cfg    Config
	wsURL  string
	dialer *websocket.Dialer

	writeMu sync.Mutex

	mu        sync.Mutex
	conn      *websocket.Conn
	pending   map[int]*pendingCall
	nextID    int
	last      climate.State
	haveLast  bool
	haVersion string
	closed    bool
}

type pendingCall struct {
	ch       chan callResult
	snapshot bool // get_states result the reader must apply itself
}

type callResult struct {
	msg ResultMessage
	err error
}

var _ climate.Backend = (*Client)(nil)

// NewClient validates cfg and creates a client. No connection is made
// until Run.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Token == "" {
		return nil, &Error{Type: ErrTypeAuth, Message: "an access token is required"}
	}
	if !strings.HasPrefix(cfg.EntityID, DomainClimate+".") {
		return nil, &Error{Type: ErrTypeService, Message: fmt.Sprintf("%q is not a climate entity", cfg.EntityID)}
	}
	wsURL, err := WebSocketURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.DialTimeout,
	}
	if cfg.Insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed installs
	}

	return &Client{
		cfg:     cfg,
		wsURL:   wsURL,
		dialer:  dialer,
		pending: make(map[int]*pendingCall),
	}, nil
}

// WebSocketURL turns a Home Assistant address into its websocket API URL.
// Bare hosts are taken as http.
func WebSocketURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &Error{Type: ErrTypeNetwork, Message: "Home Assistant URL is empty"}
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &Error{Type: ErrTypeNetwork, Message: "invalid Home Assistant URL", Err: err}
	}
	if u.Host == "" {
		return "", &Error{Type: ErrTypeNetwork, Message: fmt.Sprintf("Home Assistant URL %q has no host", raw)}
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", &Error{Type: ErrTypeNetwork, Message: fmt.Sprintf("unsupported URL scheme %q", u.Scheme)}
	}

	if !strings.HasSuffix(u.Path, "/api/websocket") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/api/websocket"
	}
	u.RawQuery, u.Fragment = "", ""
	return u.String(), nil
}

// URL returns the websocket endpoint the client connects to.
func (c *Client) URL() string {
	return c.wsURL
}

// EntityID returns the followed entity.
func (c *Client) EntityID() string {
	return c.cfg.EntityID
}

// HAVersion returns the version Home Assistant announced on the last connect.
func (c *Client) HAVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.haVersion
}

// LastState returns the most recent state pushed for the entity.
func (c *Client) LastState() (climate.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.haveLast
}

// Run connects, authenticates and follows the entity, calling onState for
// the initial state and every change. Lost connections are re-established
// with exponential backoff. Run returns nil when ctx is cancelled or the
// client is closed, and an error when the failure cannot be retried (bad
// token, unknown entity) or MaxElapsed runs out.
func (c *Client) Run(ctx context.Context, onState func(climate.State)) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.InitialBackoff
	eb.MaxInterval = c.cfg.MaxBackoff
	eb.MaxElapsedTime = c.cfg.MaxElapsed
	b := backoff.WithContext(eb, ctx)

	var fatal error
	op := func() error {
		err := c.session(ctx, onState, b.Reset)
		switch {
		case ctx.Err() != nil || c.isClosed():
			return nil
		case err == nil:
			// Server ended the session cleanly; reconnect like any other drop
			return newProtocolError("Home Assistant closed the connection")
		case !IsRetryable(err):
			fatal = err
			return nil
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logging.Warn("Home Assistant connection lost, reconnecting",
			zap.String("url", c.wsURL),
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if ctx.Err() != nil || c.isClosed() {
			return nil
		}
		return fmt.Errorf("giving up on Home Assistant: %w", err)
	}
	return fatal
}

// session runs one connection until it drops.
func (c *Client) session(ctx context.Context, onState func(climate.State), connected func()) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := c.authenticate(conn); err != nil {
		return err
	}
	logging.LogConnection(c.wsURL, "authenticated", zap.String("ha_version", c.HAVersion()))

	c.attach(conn)
	defer c.detach(conn)

	readErr := make(chan error, 1)
	go func() {
		readErr <- c.readLoop(conn, onState)
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	abort := func(err error) error {
		_ = conn.Close()
		<-readErr
		return err
	}

	// Subscribe first so no change slips between the snapshot and the stream
	if _, err := c.call(ctx, Command{Type: TypeSubscribeEvents, EventType: EventStateChanged}); err != nil {
		return abort(err)
	}
	if _, err := c.callSnapshot(ctx); err != nil {
		return abort(err)
	}
	connected()

	go c.keepAlive(ctx, conn, stop)

	err = <-readErr
	logging.LogConnection(c.wsURL, "disconnected")
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	conn, resp, err := c.dialer.DialContext(dctx, c.wsURL, header)
	if err != nil {
		msg := "failed to connect to " + c.wsURL
		if resp != nil {
			msg = fmt.Sprintf("%s (HTTP %d)", msg, resp.StatusCode)
		}
		return nil, classifyNetworkError(msg, err)
	}
	logging.LogConnection(c.wsURL, "connected")
	return conn, nil
}

// authenticate runs the auth_required / auth / auth_ok exchange.
func (c *Client) authenticate(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.DialTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	var hello AuthMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return classifyNetworkError("no greeting from Home Assistant", err)
	}
	if hello.Type != TypeAuthRequired {
		return newProtocolError("expected %s, got %q", TypeAuthRequired, hello.Type)
	}
	c.mu.Lock()
	c.haVersion = hello.HAVersion
	c.mu.Unlock()

	if err := c.write(conn, AuthMessage{Type: TypeAuth, AccessToken: c.cfg.Token}); err != nil {
		return classifyNetworkError("failed to send credentials", err)
	}

	var reply AuthMessage
	if err := conn.ReadJSON(&reply); err != nil {
		return classifyNetworkError("no answer to authentication", err)
	}
	switch reply.Type {
	case TypeAuthOK:
		return nil
	case TypeAuthInvalid:
		return &Error{Type: ErrTypeAuth, Message: "access token rejected: " + reply.Message}
	default:
		return newProtocolError("unexpected authentication reply %q", reply.Type)
	}
}

// readLoop dispatches incoming messages until the connection fails.
// State is only ever delivered from here, so pushes stay in order.
func (c *Client) readLoop(conn *websocket.Conn, onState func(climate.State)) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			lost := classifyNetworkError("connection to Home Assistant lost", err)
			c.failPending(lost)
			return lost
		}
		logging.LogMessage(c.wsURL, "received", data)

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logging.Warn("Ignoring malformed message", zap.Error(err))
			continue
		}

		switch env.Type {
		case TypeResult:
			var res ResultMessage
			if err := json.Unmarshal(data, &res); err != nil {
				c.resolve(env.ID, callResult{err: newProtocolError("malformed result: %v", err)})
				continue
			}
			c.handleResult(res, onState)

		case TypePong:
			c.resolve(env.ID, callResult{msg: ResultMessage{ID: env.ID, Type: TypePong, Success: true}})

		case TypeEvent:
			var ev EventMessage
			if err := json.Unmarshal(data, &ev); err != nil {
				logging.Warn("Ignoring malformed event", zap.Error(err))
				continue
			}
			c.handleEvent(ev, onState)

		default:
			logging.Debug("Unhandled message type", zap.String("type", env.Type))
		}
	}
}

func (c *Client) handleResult(res ResultMessage, onState func(climate.State)) {
	c.mu.Lock()
	p := c.pending[res.ID]
	c.mu.Unlock()
	if p == nil {
		return
	}

	var err error
	if p.snapshot && res.Success {
		err = c.applySnapshot(res.Result, onState)
	}
	c.resolve(res.ID, callResult{msg: res, err: err})
}

func (c *Client) handleEvent(ev EventMessage, onState func(climate.State)) {
	if ev.Event.EventType != EventStateChanged {
		return
	}
	data := ev.Event.Data
	if data.EntityID != c.cfg.EntityID || data.NewState == nil {
		return
	}
	c.deliver(data.NewState.Climate(), onState)
}

func (c *Client) applySnapshot(raw json.RawMessage, onState func(climate.State)) error {
	var states []EntityState
	if err := json.Unmarshal(raw, &states); err != nil {
		return newProtocolError("malformed get_states result: %v", err)
	}
	for _, es := range states {
		if es.EntityID == c.cfg.EntityID {
			c.deliver(es.Climate(), onState)
			return nil
		}
	}
	return &Error{Type: ErrTypeService, Message: fmt.Sprintf("entity %s not found", c.cfg.EntityID)}
}

func (c *Client) deliver(st climate.State, onState func(climate.State)) {
	c.mu.Lock()
	c.last = st
	c.haveLast = true
	c.mu.Unlock()

	logging.LogStatePush("hass", st)
	if onState != nil {
		onState(st)
	}
}

// keepAlive pings Home Assistant and drops the connection when it stops
// answering, which hands control back to the reconnect loop.
func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	if c.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.call(ctx, Command{Type: TypePing}); err != nil {
				logging.Warn("Home Assistant ping failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}

// SetTemperature calls climate.set_temperature for the entity.
func (c *Client) SetTemperature(ctx context.Context, req climate.TemperatureRequest) error {
	if err := req.Validate(); err != nil {
		return &Error{Type: ErrTypeService, Message: "invalid set-point request", Err: err}
	}
	_, err := c.call(ctx, Command{
		Type:        TypeCallService,
		Domain:      DomainClimate,
		Service:     ServiceSetTemperature,
		ServiceData: req.ServiceData(),
		Target:      &ServiceTarget{EntityID: c.cfg.EntityID},
	})
	logging.LogCommit(c.cfg.EntityID, req, err)
	return err
}

// SetMode calls climate.set_hvac_mode for the entity.
func (c *Client) SetMode(ctx context.Context, mode string) error {
	_, err := c.call(ctx, Command{
		Type:        TypeCallService,
		Domain:      DomainClimate,
		Service:     ServiceSetHVACMode,
		ServiceData: map[string]any{"hvac_mode": mode},
		Target:      &ServiceTarget{EntityID: c.cfg.EntityID},
	})
	logging.LogModeChange(c.cfg.EntityID, mode, err)
	return err
}

// Close drops the connection and stops Run.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *Client) callSnapshot(ctx context.Context) (json.RawMessage, error) {
	return c.send(ctx, Command{Type: TypeGetStates}, true)
}

func (c *Client) call(ctx context.Context, cmd Command) (json.RawMessage, error) {
	return c.send(ctx, cmd, false)
}

// send writes a command and waits for its result.
func (c *Client) send(ctx context.Context, cmd Command, snapshot bool) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, &Error{Type: ErrTypeNetwork, Message: "not connected to Home Assistant", Retryable: true}
	}
	c.nextID++
	cmd.ID = c.nextID
	p := &pendingCall{ch: make(chan callResult, 1), snapshot: snapshot}
	c.pending[cmd.ID] = p
	c.mu.Unlock()
	defer c.forget(cmd.ID)

	if err := c.write(conn, cmd); err != nil {
		return nil, classifyNetworkError("failed to send "+cmd.Type, err)
	}

	timer := time.NewTimer(c.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case r := <-p.ch:
		if r.err != nil {
			return nil, r.err
		}
		if !r.msg.Success {
			return nil, resultError(cmd, r.msg.Error)
		}
		return r.msg.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, &Error{
			Type:      ErrTypeTimeout,
			Message:   fmt.Sprintf("no answer to %s after %s", cmd.Type, c.cfg.CallTimeout),
			Retryable: true,
		}
	}
}

func (c *Client) write(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	logging.LogMessage(c.wsURL, "sent", redact(data))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) resolve(id int, r callResult) {
	c.mu.Lock()
	p := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if p != nil {
		p.ch <- r
	}
}

func (c *Client) forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int]*pendingCall)
	c.mu.Unlock()

	for _, p := range pending {
		p.ch <- callResult{err: err}
	}
}

func resultError(cmd Command, info *ErrorInfo) *Error {
	what := cmd.Type
	if cmd.Type == TypeCallService {
		what = cmd.Domain + "." + cmd.Service
	}
	e := &Error{Type: ErrTypeService, Message: what + " failed"}
	if info != nil {
		e.Code = info.Code
		e.Message = fmt.Sprintf("%s failed: %s", what, info.Message)
	}
	return e
}

// redact hides the access token in logged auth messages.
func redact(data []byte) []byte {
	var auth AuthMessage
	if json.Unmarshal(data, &auth) != nil || auth.AccessToken == "" {
		return data
	}
	auth.AccessToken = "***"
	out, err := json.Marshal(auth)
	if err != nil {
		return []byte(`{"type":"auth"}`)
	}
	return out
}
