package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/muurk/thermodial/internal/dial"
)

// Instance kinds
const (
	KindHass = "hass"
	KindMQTT = "mqtt"
	KindDemo = "demo"
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                  `yaml:"version"`
	Instances   map[string]*Instance `yaml:"instances,omitempty"` // Keyed by a user-chosen name
	Dial        *DialPrefs           `yaml:"dial,omitempty"`
	Preferences *Preferences         `yaml:"preferences,omitempty"`
}

// Instance is one place a climate entity can be reached.
type Instance struct {
	Kind     string    `yaml:"kind"`                // hass, mqtt or demo
	URL      string    `yaml:"url,omitempty"`       // Home Assistant base URL or MQTT broker URL
	EntityID string    `yaml:"entity_id"`           // climate.living_room
	Prefix   string    `yaml:"prefix,omitempty"`    // MQTT topic prefix
	Username string    `yaml:"username,omitempty"`  // MQTT username
	Insecure bool      `yaml:"insecure,omitempty"`  // Skip TLS verification
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery/connection time
	// Access tokens and passwords are NEVER stored in the config file
}

// Validate checks the instance can be connected to.
func (i *Instance) Validate() error {
	switch i.Kind {
	case KindHass, KindMQTT:
		if i.URL == "" {
			return fmt.Errorf("%s instance needs a url", i.Kind)
		}
	case KindDemo:
	default:
		return fmt.Errorf("unknown instance kind %q (want hass, mqtt or demo)", i.Kind)
	}
	if i.EntityID == "" {
		return fmt.Errorf("instance needs an entity_id")
	}
	return nil
}

// DialPrefs overrides the dial configuration. Zero values keep the defaults.
type DialPrefs struct {
	TickDegrees   float64       `yaml:"tick_degrees,omitempty"`
	OffsetDegrees *float64      `yaml:"offset_degrees,omitempty"` // Pointer so 0 can be chosen
	NumTicks      int           `yaml:"num_ticks,omitempty"`
	Step          float64       `yaml:"step,omitempty"`
	IdleZone      *float64      `yaml:"idle_zone,omitempty"` // Pointer so 0 can be chosen
	Pending       time.Duration `yaml:"pending,omitempty"`
	HighlightTap  bool          `yaml:"highlight_tap,omitempty"`
	Radius        int           `yaml:"radius,omitempty"`
	Sensitivity   float64       `yaml:"sensitivity,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultInstance string `yaml:"default_instance,omitempty"` // Instance used when none is named
	AutoDiscover    bool   `yaml:"auto_discover"`              // Browse mDNS when no instance is configured
	DiscoverTimeout int    `yaml:"discover_timeout"`           // mDNS discovery timeout in seconds
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Instances:   make(map[string]*Instance),
		Dial:        &DialPrefs{},
		Preferences: defaultPreferences(),
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: 5,
	}
}

// GetInstance retrieves an instance by name.
// Returns nil if the instance doesn't exist in the registry.
func (r *Registry) GetInstance(name string) *Instance {
	return r.Instances[name]
}

// SetInstance adds or replaces an instance. The first instance added
// becomes the default.
func (r *Registry) SetInstance(name string, inst *Instance) error {
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("instance %q: %w", name, err)
	}
	if r.Instances == nil {
		r.Instances = make(map[string]*Instance)
	}
	r.Instances[name] = inst
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	}
	if r.Preferences.DefaultInstance == "" {
		r.Preferences.DefaultInstance = name
	}
	return nil
}

// RemoveInstance deletes an instance and clears it as default.
func (r *Registry) RemoveInstance(name string) {
	delete(r.Instances, name)
	if r.Preferences != nil && r.Preferences.DefaultInstance == name {
		r.Preferences.DefaultInstance = ""
	}
}

// InstanceNames returns the instance names in sorted order.
func (r *Registry) InstanceNames() []string {
	names := make([]string, 0, len(r.Instances))
	for name := range r.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveInstance returns the named instance, or the default one when
// name is empty. A registry with exactly one instance needs no default.
func (r *Registry) ResolveInstance(name string) (string, *Instance, error) {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultInstance
	}
	if name == "" && len(r.Instances) == 1 {
		name = r.InstanceNames()[0]
	}
	if name == "" {
		return "", nil, fmt.Errorf("no instance configured; pass --url and --entity or run 'thermodial config init'")
	}
	inst := r.Instances[name]
	if inst == nil {
		return "", nil, fmt.Errorf("instance %q not found in config", name)
	}
	return name, inst, nil
}

// UpdateInstanceLastSeen records a successful connection.
func (r *Registry) UpdateInstanceLastSeen(name string) {
	if inst := r.Instances[name]; inst != nil {
		inst.LastSeen = time.Now()
	}
}

// DialConfig applies the dial preferences over dial.DefaultConfig and
// validates the result.
func (r *Registry) DialConfig() (dial.Config, error) {
	cfg := dial.DefaultConfig()
	p := r.Dial
	if p == nil {
		return cfg, nil
	}

	if p.TickDegrees != 0 {
		cfg.TickDegrees = p.TickDegrees
	}
	if p.OffsetDegrees != nil {
		cfg.OffsetDegrees = *p.OffsetDegrees
	}
	if p.NumTicks != 0 {
		cfg.NumTicks = p.NumTicks
	}
	if p.Step != 0 {
		cfg.Step = p.Step
	}
	if p.IdleZone != nil {
		cfg.IdleZone = *p.IdleZone
	}
	if p.Pending != 0 {
		cfg.Pending = p.Pending
	}
	cfg.HighlightTap = p.HighlightTap
	if p.Radius != 0 {
		cfg.Radius = p.Radius
		cfg.Diameter = 2*p.Radius + 1
	}
	if p.Sensitivity != 0 {
		cfg.Sensitivity = p.Sensitivity
	}

	if err := cfg.Validate(); err != nil {
		return dial.Config{}, err
	}
	return cfg, nil
}
