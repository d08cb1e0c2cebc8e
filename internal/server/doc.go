// Package server implements a simulated Home Assistant for one climate entity.
//
// It speaks enough of the Home Assistant websocket API for thermodial to run
// against it without a real installation: the auth handshake, get_states,
// subscribe_events for state_changed, climate.set_temperature,
// climate.set_hvac_mode and ping. A climate.Simulator holds the entity.
//
// # Endpoints
//
//	GET /api/websocket            websocket API
//	GET /api/                     {"message": "API running."}
//	GET /api/config               version and location name
//	GET /api/states               every entity (just the simulated one)
//	GET /api/states/{entity_id}   one entity
//
// REST endpoints require "Authorization: Bearer <token>".
//
// # Usage Example
//
//	sim := climate.NewSimulator(climate.DefaultSimulatedState("climate.demo"))
//	srv, err := server.New(&server.Config{Port: 8123, Token: "secret"}, sim)
//	if err != nil {
//	    return err
//	}
//	// Start blocks until SIGINT/SIGTERM
//	return srv.Start()
//
// Tests usually mount Handler on an httptest.Server instead of calling
// Start. DropConnections simulates a Home Assistant restart.
//
// # Graceful Shutdown
//
// Shutdown stops the listener, closes every websocket session and waits
// up to ten seconds for handlers to return.
package server
