package hass

import (
	"encoding/json"
	"testing"

	"github.com/muurk/thermodial/internal/climate"
)

const stateChangedFixture = `{
  "id": 2,
  "type": "event",
  "event": {
    "event_type": "state_changed",
    "data": {
      "entity_id": "climate.living_room",
      "old_state": null,
      "new_state": {
        "entity_id": "climate.living_room",
        "state": "heat_cool",
        "attributes": {
          "hvac_modes": ["off", "heat", "cool", "heat_cool"],
          "min_temp": 10,
          "max_temp": 30,
          "target_temp_step": 0.5,
          "current_temperature": 22.4,
          "temperature": null,
          "target_temp_high": 24,
          "target_temp_low": 19.5,
          "hvac_action": "idle",
          "friendly_name": "Living Room"
        },
        "last_changed": "2024-05-01T10:00:00+00:00",
        "last_updated": "2024-05-01T10:00:00+00:00"
      }
    },
    "time_fired": "2024-05-01T10:00:00+00:00"
  }
}`

func TestDecodeStateChanged(t *testing.T) {
	var ev EventMessage
	if err := json.Unmarshal([]byte(stateChangedFixture), &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if ev.Event.Data.OldState != nil {
		t.Error("old_state null decoded as non-nil")
	}

	st := ev.Event.Data.NewState.Climate()
	if !st.IsDual() || *st.TargetLow != 19.5 || *st.TargetHigh != 24 {
		t.Errorf("band = %v", st)
	}
	if st.Target != nil {
		t.Errorf("Target = %v, want nil for temperature: null", *st.Target)
	}
	if st.Min != 10 || st.Max != 30 {
		t.Errorf("range = %v..%v, want 10..30", st.Min, st.Max)
	}
	if st.Mode != climate.ModeHeatCool || st.Action != climate.ActionIdle || st.Name != "Living Room" {
		t.Errorf("state = %+v", st)
	}
	if len(st.AvailableModes) != 4 {
		t.Errorf("AvailableModes = %v", st.AvailableModes)
	}
}

func TestClimateDefaults(t *testing.T) {
	es := EntityState{EntityID: "climate.x", State: "heat", Attributes: Attributes{Temperature: climate.Float(20)}}
	st := es.Climate()
	if st.Min != DefaultMinTemp || st.Max != DefaultMaxTemp {
		t.Errorf("range = %v..%v, want defaults", st.Min, st.Max)
	}

	es.State = "unavailable"
	st = es.Climate()
	if st.Min != 0 || st.Max != 0 {
		t.Errorf("unavailable range = %v..%v, want 0..0", st.Min, st.Max)
	}
	if !es.Unavailable() {
		t.Error("Unavailable() = false")
	}
}

func TestEntityFromClimate(t *testing.T) {
	st := climate.DefaultSimulatedState("climate.sim")
	back := EntityFromClimate(st).Climate()

	if back.EntityID != st.EntityID || back.Mode != st.Mode || *back.Target != *st.Target {
		t.Errorf("EntityFromClimate().Climate() = %v, want %v", back, st)
	}
	if back.Min != st.Min || back.Max != st.Max || back.Preset != st.Preset {
		t.Errorf("limits or preset lost: %+v", back)
	}
}
