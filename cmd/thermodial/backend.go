package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/config"
	"github.com/muurk/thermodial/internal/discovery"
	"github.com/muurk/thermodial/internal/hass"
	"github.com/muurk/thermodial/internal/logging"
	"github.com/muurk/thermodial/internal/mqttclimate"
)

// Secrets are read from the environment so they stay out of shell history.
const (
	TokenEnvVar        = "THERMODIAL_TOKEN"
	MQTTPasswordEnvVar = "THERMODIAL_MQTT_PASSWORD"
)

const demoEntity = "climate.demo"

// connFlags selects the climate entity. Flags win over the config file.
type connFlags struct {
	instance string
	kind     string
	url      string
	entity   string
	token    string
	prefix   string
	username string
	password string
	insecure bool
}

func (f *connFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.instance, "instance", "i", "", "Named instance from the config file")
	fs.StringVar(&f.kind, "backend", "", "Backend kind: hass, mqtt or demo")
	fs.StringVar(&f.url, "url", "", "Home Assistant URL or MQTT broker URL")
	fs.StringVarP(&f.entity, "entity", "e", "", "Climate entity id, e.g. climate.living_room")
	fs.StringVar(&f.token, "token", "", "Home Assistant access token (or "+TokenEnvVar+")")
	fs.StringVar(&f.prefix, "prefix", "", "MQTT topic prefix (default homeassistant)")
	fs.StringVar(&f.username, "username", "", "MQTT username")
	fs.StringVar(&f.password, "password", "", "MQTT password (or "+MQTTPasswordEnvVar+")")
	fs.BoolVar(&f.insecure, "insecure", false, "Skip TLS certificate verification")
}

// fromFlags reports whether the flags describe an entity on their own,
// without a config instance.
func (f connFlags) fromFlags() bool {
	return f.instance == "" && (f.kind != "" || f.url != "" || f.entity != "")
}

// target is a resolved climate entity.
type target struct {
	Name string // Config instance name; empty when given by flags
	config.Instance
}

// source describes where the entity lives, for headers.
func (t target) source() string {
	switch t.Kind {
	case config.KindDemo:
		return "simulator"
	case config.KindMQTT:
		return fmt.Sprintf("%s (%s)", t.URL, mqttclimate.TopicsFor(t.Prefix, t.EntityID).State)
	default:
		return t.URL
	}
}

// discoverURL finds a Home Assistant base URL over mDNS.
var discoverURL = func(ctx context.Context, timeout time.Duration) (string, error) {
	scanner := discovery.NewScanner()
	if timeout > 0 {
		scanner.Timeout = timeout
	}
	inst, err := scanner.First(ctx)
	if err != nil {
		return "", err
	}
	logging.Info("Discovered Home Assistant", zap.String("instance", inst.String()))
	return inst.BaseURL(), nil
}

// resolveTarget combines the config registry and the flags into one entity.
func resolveTarget(ctx context.Context, reg *config.Registry, f connFlags) (target, error) {
	var t target
	if !f.fromFlags() {
		name, inst, err := reg.ResolveInstance(f.instance)
		if err != nil {
			return target{}, err
		}
		t = target{Name: name, Instance: *inst}
	}

	if f.kind != "" {
		t.Kind = f.kind
	}
	if f.url != "" {
		t.URL = f.url
	}
	if f.entity != "" {
		t.EntityID = f.entity
	}
	if f.prefix != "" {
		t.Prefix = f.prefix
	}
	if f.username != "" {
		t.Username = f.username
	}
	if f.insecure {
		t.Insecure = true
	}

	if t.Kind == "" {
		t.Kind = config.KindHass
	}
	if t.Kind == config.KindDemo && t.EntityID == "" {
		t.EntityID = demoEntity
	}
	if t.Kind == config.KindHass && t.URL == "" && reg.Preferences != nil && reg.Preferences.AutoDiscover {
		timeout := time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
		u, err := discoverURL(ctx, timeout)
		if err != nil {
			return target{}, fmt.Errorf("no --url given and discovery failed: %w", err)
		}
		t.URL = u
	}

	if err := t.Validate(); err != nil {
		return target{}, err
	}
	return t, nil
}

// openBackend connects to the entity described by t. Nothing is sent until
// the backend's Run is called.
func openBackend(ctx context.Context, t target, f connFlags) (climate.Backend, error) {
	switch t.Kind {
	case config.KindHass:
		token := firstNonEmpty(f.token, os.Getenv(TokenEnvVar))
		client, err := hass.NewClient(hass.Config{
			URL:          t.URL,
			Token:        token,
			EntityID:     t.EntityID,
			Insecure:     t.Insecure,
			PingInterval: hass.DefaultPingInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Home Assistant client: %w", err)
		}
		return client, nil

	case config.KindMQTT:
		mc, err := mqttclimate.Dial(mqttclimate.BrokerConfig{
			URL:      t.URL,
			ClientID: fmt.Sprintf("thermodial-%d", os.Getpid()),
			Username: t.Username,
			Password: firstNonEmpty(f.password, os.Getenv(MQTTPasswordEnvVar)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		b, err := mqttclimate.New(mc, t.Prefix, t.EntityID)
		if err != nil {
			_ = mc.Close()
			return nil, err
		}
		return b, nil

	case config.KindDemo:
		sim := climate.NewSimulator(climate.DefaultSimulatedState(t.EntityID))
		go sim.RunDrift(ctx, climate.DefaultDriftInterval)
		return sim, nil
	}
	return nil, fmt.Errorf("unknown backend kind %q", t.Kind)
}

// loadRegistry reads --config when given, the default location otherwise.
func loadRegistry() (*config.Registry, string, error) {
	if configPath != "" {
		reg, err := config.LoadFile(configPath)
		return reg, configPath, err
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, "", err
	}
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, "", err
	}
	return reg, path, nil
}

// parseTemperatures turns one value into a target request and two values
// into a low/high band.
func parseTemperatures(args []string) (climate.TemperatureRequest, error) {
	values := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return climate.TemperatureRequest{}, fmt.Errorf("invalid temperature %q", a)
		}
		values[i] = v
	}

	var req climate.TemperatureRequest
	switch len(values) {
	case 1:
		req = climate.TargetRequest(values[0])
	case 2:
		req = climate.DualRequest(values[0], values[1])
	default:
		return req, fmt.Errorf("expected a target or a low and high temperature, got %d values", len(values))
	}
	if err := req.Validate(); err != nil {
		return climate.TemperatureRequest{}, err
	}
	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
