package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/hass"
	"github.com/muurk/thermodial/internal/logging"
)

// Handler returns the HTTP routes of the simulated Home Assistant.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/websocket", s.handleWebSocket)
	mux.HandleFunc("GET /api/{$}", s.requireToken(s.handleAPIRoot))
	mux.HandleFunc("GET /api/config", s.requireToken(s.handleConfig))
	mux.HandleFunc("GET /api/states", s.requireToken(s.handleStates))
	mux.HandleFunc("GET /api/states/{entity_id}", s.requireToken(s.handleState))
	return logRequests(mux)
}

func (s *Server) handleAPIRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API running."})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	st := s.sim.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":       s.config.HAVersion,
		"location_name": s.config.LocationName,
		"unit_system":   map[string]string{"temperature": st.Unit},
	})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []hass.EntityState{hass.EntityFromClimate(s.sim.State())})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st := s.sim.State()
	if r.PathValue("entity_id") != st.EntityID {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Entity not found."})
		return
	}
	writeJSON(w, http.StatusOK, hass.EntityFromClimate(st))
}

// requireToken checks the bearer token like Home Assistant's REST API.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token != s.config.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "401: Unauthorized"})
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

// logRequests logs each request at debug level
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.Debug("HTTP request",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_agent", r.Header.Get("User-Agent")),
		)
		next.ServeHTTP(w, r)
	})
}
