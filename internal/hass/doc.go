// Package hass connects thermodial to a Home Assistant climate entity.
//
// Client speaks the Home Assistant websocket API: it authenticates with a
// long-lived access token, subscribes to state_changed events, loads the
// entity through get_states and writes set-points with the climate
// set_temperature and set_hvac_mode services. It implements climate.Backend.
//
// # Connection Lifecycle
//
//  1. Dial /api/websocket (http and https base URLs are converted)
//  2. auth_required → auth → auth_ok (auth_invalid ends Run)
//  3. subscribe_events{state_changed}, then get_states for the snapshot
//  4. Deliver the snapshot and every change of the entity to onState
//  5. On a dropped connection, reconnect with exponential backoff
//
// Subscribing before reading the snapshot means no change is lost between
// the two. Pushes are delivered from a single reader goroutine and so stay
// in order.
//
// # Errors
//
// Every failure is an *Error carrying an ErrorType. IsRetryable separates
// transient failures (network, timeouts) from ones a reconnect cannot fix
// (rejected token, unknown entity). Run only returns the latter.
//
// # Usage Example
//
//	c, err := hass.NewClient(hass.Config{
//	    URL:      "http://homeassistant.local:8123",
//	    Token:    token,
//	    EntityID: "climate.living_room",
//	})
//	if err != nil {
//	    return err
//	}
//	go c.Run(ctx, func(st climate.State) { fmt.Println(st) })
//	err = c.SetTemperature(ctx, climate.TargetRequest(21.5))
package hass
