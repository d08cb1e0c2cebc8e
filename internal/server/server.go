package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/logging"
)

// DefaultHAVersion is the version announced in auth_required.
const DefaultHAVersion = "2024.6.0"

// Config holds the server configuration
type Config struct {
	Host          string
	Port          int
	CertPath      string        // Serve wss when both CertPath and KeyPath are set
	KeyPath       string
	Token         string        // Access token clients must present
	HAVersion     string        // Announced Home Assistant version
	LocationName  string        // Reported by /api/config
	DriftInterval time.Duration // Simulated thermal tick; zero keeps the ambient fixed
}

// Server is a small stand-in for Home Assistant. It serves the websocket
// API and a read-only slice of the REST API for one simulated climate
// entity.
type Server struct {
	config     *Config
	sim        *climate.Simulator
	tlsConfig  *tls.Config
	upgrader   websocket.Upgrader
	listener   net.Listener
	httpServer *http.Server
	stopDrift  context.CancelFunc

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*session
}

// New creates a new Server instance
func New(config *Config, sim *climate.Simulator) (*Server, error) {
	if sim == nil {
		return nil, errors.New("a simulated entity is required")
	}
	if config.Token == "" {
		return nil, errors.New("an access token is required")
	}
	if config.HAVersion == "" {
		config.HAVersion = DefaultHAVersion
	}
	if config.LocationName == "" {
		config.LocationName = "Home"
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	return &Server{
		config:    config,
		sim:       sim,
		tlsConfig: tlsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		activeConns: make(map[string]*session),
	}, nil
}

// Simulator returns the entity the server exposes.
func (s *Server) Simulator() *climate.Simulator {
	return s.sim
}

// Start listens on the configured address and blocks until a shutdown
// signal or a serve error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var listener net.Listener
	var err error
	if s.tlsConfig != nil {
		logging.Info("TLS configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
		listener, err = tls.Listen("tcp", addr, s.tlsConfig)
	} else {
		listener, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logging.Info("Simulated Home Assistant listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.String("entity_id", s.sim.State().EntityID),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.listener = l
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.stopDrift = cancel
	srv := s.httpServer
	s.mu.Unlock()

	if s.config.DriftInterval > 0 {
		go s.sim.RunDrift(ctx, s.config.DriftInterval)
	}

	err := srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listening address once Serve has started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	srv := s.httpServer
	stop := s.stopDrift
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if srv != nil {
		// Hijacked websocket connections are not tracked by http.Server
		if err := srv.Shutdown(ctx); err != nil {
			logging.Error("Error stopping HTTP server", zap.Error(err))
		}
	}

	s.DropConnections()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	logging.Sync()
	return nil
}

// DropConnections closes every websocket session, as a Home Assistant
// restart would. It returns how many were closed.
func (s *Server) DropConnections() int {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.activeConns))
	for _, sess := range s.activeConns {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		logging.Info("Closing active connection", zap.String("remote_addr", sess.remote))
		sess.close()
	}
	return len(sessions)
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) track(sess *session) {
	s.mu.Lock()
	s.activeConns[sess.remote] = sess
	s.mu.Unlock()
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	if s.activeConns[sess.remote] == sess {
		delete(s.activeConns, sess.remote)
	}
	s.mu.Unlock()
}
