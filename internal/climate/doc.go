// Package climate describes the external climate entity the dial controls.
//
// It defines the state pushed into the dial (State), the writes the dial
// issues (TemperatureRequest and hvac modes) and the Backend interface that
// connects both to a real system. Three backends exist:
//
//   - hass.Client talks to Home Assistant over its websocket API
//   - mqttclimate.Backend uses Home Assistant's MQTT climate topic layout
//   - Simulator is an in-memory entity used for demos and tests
//
// # Redundant Writes
//
// The dial may produce a request equal to what the entity already has (the
// user dragged away and back). NeedsWrite compares a request against the
// last known State so hosts can skip such writes.
package climate
