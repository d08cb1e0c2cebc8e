package hass

import (
	"encoding/json"

	"github.com/muurk/thermodial/internal/climate"
)

// Message types of the Home Assistant websocket API
const (
	TypeAuthRequired    = "auth_required"
	TypeAuth            = "auth"
	TypeAuthOK          = "auth_ok"
	TypeAuthInvalid     = "auth_invalid"
	TypeResult          = "result"
	TypeEvent           = "event"
	TypeGetStates       = "get_states"
	TypeSubscribeEvents = "subscribe_events"
	TypeCallService     = "call_service"
	TypePing            = "ping"
	TypePong            = "pong"

	EventStateChanged = "state_changed"

	DomainClimate         = "climate"
	ServiceSetTemperature = "set_temperature"
	ServiceSetHVACMode    = "set_hvac_mode"
)

// Default limits reported for climate entities that omit them (°C).
const (
	DefaultMinTemp = 7.0
	DefaultMaxTemp = 35.0
)

// Envelope is the part shared by every message.
type Envelope struct {
	ID   int    `json:"id,omitempty"`
	Type string `json:"type"`
}

// AuthMessage covers the auth_required, auth, auth_ok and auth_invalid phase.
type AuthMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
	HAVersion   string `json:"ha_version,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Command is a request carrying an id.
type Command struct {
	ID          int            `json:"id"`
	Type        string         `json:"type"`
	EventType   string         `json:"event_type,omitempty"`
	Domain      string         `json:"domain,omitempty"`
	Service     string         `json:"service,omitempty"`
	ServiceData map[string]any `json:"service_data,omitempty"`
	Target      *ServiceTarget `json:"target,omitempty"`
}

// ServiceTarget selects the entities a service call acts on.
type ServiceTarget struct {
	EntityID string `json:"entity_id"`
}

// ErrorInfo is the error object of a failed result.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResultMessage answers a Command.
type ResultMessage struct {
	ID      int             `json:"id"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// EventMessage is pushed for subscriptions.
type EventMessage struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Event Event  `json:"event"`
}

// Event is one bus event.
type Event struct {
	EventType string           `json:"event_type"`
	Data      StateChangedData `json:"data"`
	TimeFired string           `json:"time_fired,omitempty"`
}

// StateChangedData is the payload of a state_changed event.
type StateChangedData struct {
	EntityID string       `json:"entity_id"`
	OldState *EntityState `json:"old_state"`
	NewState *EntityState `json:"new_state"`
}

// EntityState is one entity in get_states results and state_changed events.
type EntityState struct {
	EntityID    string     `json:"entity_id"`
	State       string     `json:"state"`
	Attributes  Attributes `json:"attributes"`
	LastChanged string     `json:"last_changed,omitempty"`
	LastUpdated string     `json:"last_updated,omitempty"`
}

// Attributes are the climate attributes thermodial reads.
type Attributes struct {
	FriendlyName       string   `json:"friendly_name,omitempty"`
	CurrentTemperature *float64 `json:"current_temperature,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	TargetTempLow      *float64 `json:"target_temp_low,omitempty"`
	TargetTempHigh     *float64 `json:"target_temp_high,omitempty"`
	MinTemp            *float64 `json:"min_temp,omitempty"`
	MaxTemp            *float64 `json:"max_temp,omitempty"`
	TargetTempStep     *float64 `json:"target_temp_step,omitempty"`
	HVACModes          []string `json:"hvac_modes,omitempty"`
	HVACAction         string   `json:"hvac_action,omitempty"`
	PresetMode         string   `json:"preset_mode,omitempty"`
	Unit               string   `json:"unit_of_measurement,omitempty"`
}

// Unavailable reports whether Home Assistant has lost the device.
func (e EntityState) Unavailable() bool {
	return e.State == "unavailable" || e.State == "unknown"
}

// Climate converts the entity into the dial's state model. The entity's
// state string is its hvac mode.
func (e EntityState) Climate() climate.State {
	a := e.Attributes
	st := climate.State{
		EntityID:       e.EntityID,
		Name:           a.FriendlyName,
		Ambient:        a.CurrentTemperature,
		Target:         a.Temperature,
		TargetLow:      a.TargetTempLow,
		TargetHigh:     a.TargetTempHigh,
		Min:            DefaultMinTemp,
		Max:            DefaultMaxTemp,
		Mode:           e.State,
		Action:         a.HVACAction,
		AvailableModes: a.HVACModes,
		Preset:         a.PresetMode,
		Unit:           a.Unit,
	}
	if a.MinTemp != nil {
		st.Min = *a.MinTemp
	}
	if a.MaxTemp != nil {
		st.Max = *a.MaxTemp
	}
	if e.Unavailable() {
		// Keep the entity visible but give the dial nothing to map
		st.Min, st.Max = 0, 0
	}
	return st
}

// EntityFromClimate is the inverse of EntityState.Climate.
func EntityFromClimate(st climate.State) EntityState {
	return EntityState{
		EntityID: st.EntityID,
		State:    st.Mode,
		Attributes: Attributes{
			FriendlyName:       st.Name,
			CurrentTemperature: st.Ambient,
			Temperature:        st.Target,
			TargetTempLow:      st.TargetLow,
			TargetTempHigh:     st.TargetHigh,
			MinTemp:            climate.Float(st.Min),
			MaxTemp:            climate.Float(st.Max),
			HVACModes:          st.AvailableModes,
			HVACAction:         st.Action,
			PresetMode:         st.Preset,
			Unit:               st.Unit,
		},
	}
}
