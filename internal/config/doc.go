// Package config provides user configuration management for thermodial.
//
// This package manages a YAML-based configuration file naming the climate
// entities the dial can control (instances), dial tuning and application
// preferences. The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/thermodial/config.yaml or $HOME/.config/thermodial/config.yaml
//   - macOS: $HOME/.config/thermodial/config.yaml
//   - Windows: %LOCALAPPDATA%\thermodial\config.yaml
//
// THERMODIAL_CONFIG overrides the location.
//
// # Example
//
//	version: 1
//	instances:
//	  home:
//	    kind: hass
//	    url: http://homeassistant.local:8123
//	    entity_id: climate.living_room
//	dial:
//	  pending: 2s
//	  sensitivity: 0.8
//	preferences:
//	  default_instance: home
//	  auto_discover: true
//	  discover_timeout: 5
//
// # Security
//
// IMPORTANT: This package NEVER stores access tokens or MQTT passwords.
// They come from THERMODIAL_TOKEN or the --token flag.
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
