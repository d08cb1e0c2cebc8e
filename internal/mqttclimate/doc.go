// Package mqttclimate connects the dial to a climate entity over MQTT.
//
// The topic layout follows Home Assistant's MQTT climate platform, one
// directory per entity:
//
//	<prefix>/<object_id>/state            retained JSON climate.State
//	<prefix>/<object_id>/set_temperature  JSON {"temperature": 21.5} or {"target_temp_low": .., "target_temp_high": ..}
//	<prefix>/<object_id>/set_mode         plain hvac mode, e.g. heat_cool
//
// Backend is the dial side and implements climate.Backend. Bridge is the
// entity side; the simulate command uses it to put a simulated entity on a
// broker. Both talk through the Conn interface, implemented by RealConn
// (paho) and FakeConn (in-memory, for tests).
package mqttclimate
