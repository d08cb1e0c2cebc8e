package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/config"
)

func TestParseTemperatures(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		dual    bool
		wantErr bool
	}{
		{name: "target", args: []string{"21.5"}, want: "21.5"},
		{name: "band", args: []string{"19", "24"}, want: "19.0..24.0", dual: true},
		{name: "not a number", args: []string{"warm"}, wantErr: true},
		{name: "inverted band", args: []string{"24", "19"}, wantErr: true},
		{name: "too many", args: []string{"1", "2", "3"}, wantErr: true},
		{name: "nan", args: []string{"NaN"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseTemperatures(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseTemperatures(%v) = %v, want error", tt.args, req)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTemperatures(%v) error = %v", tt.args, err)
			}
			if req.IsDual() != tt.dual {
				t.Errorf("IsDual() = %v, want %v", req.IsDual(), tt.dual)
			}
			if tt.dual {
				if *req.Low != mustFloat(tt.args[0]) || *req.High != mustFloat(tt.args[1]) {
					t.Errorf("band = %s, want %s", req, tt.want)
				}
			} else if *req.Target != mustFloat(tt.args[0]) {
				t.Errorf("target = %s, want %s", req, tt.want)
			}
		})
	}
}

func mustFloat(s string) float64 {
	req, err := parseTemperatures([]string{s})
	if err != nil {
		panic(err)
	}
	return *req.Target
}

func testRegistry(t *testing.T) *config.Registry {
	t.Helper()
	reg := config.NewRegistry()
	reg.Preferences.AutoDiscover = false
	if err := reg.SetInstance("home", &config.Instance{
		Kind:     config.KindHass,
		URL:      "http://ha.local:8123",
		EntityID: "climate.hall",
	}); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetInstance("office", &config.Instance{
		Kind:     config.KindMQTT,
		URL:      "tcp://broker:1883",
		EntityID: "climate.office",
		Prefix:   "hvac",
	}); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestResolveTarget(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		flags    connFlags
		wantName string
		wantKind string
		wantURL  string
		wantID   string
		wantErr  bool
	}{
		{
			name:     "default instance",
			wantName: "home", wantKind: config.KindHass, wantURL: "http://ha.local:8123", wantID: "climate.hall",
		},
		{
			name:     "named instance",
			flags:    connFlags{instance: "office"},
			wantName: "office", wantKind: config.KindMQTT, wantURL: "tcp://broker:1883", wantID: "climate.office",
		},
		{
			name:     "flags override instance",
			flags:    connFlags{instance: "home", entity: "climate.kitchen"},
			wantName: "home", wantKind: config.KindHass, wantURL: "http://ha.local:8123", wantID: "climate.kitchen",
		},
		{
			name:     "flags only",
			flags:    connFlags{url: "http://other:8123", entity: "climate.den"},
			wantKind: config.KindHass, wantURL: "http://other:8123", wantID: "climate.den",
		},
		{
			name:     "demo needs nothing else",
			flags:    connFlags{kind: config.KindDemo},
			wantKind: config.KindDemo, wantID: demoEntity,
		},
		{
			name:    "unknown instance",
			flags:   connFlags{instance: "attic"},
			wantErr: true,
		},
		{
			name:    "entity without url and no discovery",
			flags:   connFlags{entity: "climate.den"},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			flags:   connFlags{kind: "zigbee", entity: "climate.den"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTarget(ctx, testRegistry(t), tt.flags)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveTarget() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveTarget() error = %v", err)
			}
			if got.Name != tt.wantName || got.Kind != tt.wantKind || got.URL != tt.wantURL || got.EntityID != tt.wantID {
				t.Errorf("resolveTarget() = %s/%s %s %s, want %s/%s %s %s",
					got.Name, got.Kind, got.URL, got.EntityID,
					tt.wantName, tt.wantKind, tt.wantURL, tt.wantID)
			}
		})
	}
}

func TestResolveTargetDiscovers(t *testing.T) {
	orig := discoverURL
	defer func() { discoverURL = orig }()

	var gotTimeout time.Duration
	discoverURL = func(ctx context.Context, timeout time.Duration) (string, error) {
		gotTimeout = timeout
		return "http://found.local:8123", nil
	}

	reg := config.NewRegistry()
	got, err := resolveTarget(context.Background(), reg, connFlags{entity: "climate.den"})
	if err != nil {
		t.Fatalf("resolveTarget() error = %v", err)
	}
	if got.URL != "http://found.local:8123" {
		t.Errorf("URL = %q, want discovered URL", got.URL)
	}
	if gotTimeout != 5*time.Second {
		t.Errorf("discovery timeout = %v, want 5s", gotTimeout)
	}

	discoverURL = func(context.Context, time.Duration) (string, error) {
		return "", errors.New("nothing found")
	}
	if _, err := resolveTarget(context.Background(), reg, connFlags{entity: "climate.den"}); err == nil {
		t.Error("resolveTarget() should fail when discovery finds nothing")
	}
}

func TestTargetSource(t *testing.T) {
	tests := []struct {
		target target
		want   string
	}{
		{target{Instance: config.Instance{Kind: config.KindHass, URL: "http://ha:8123"}}, "http://ha:8123"},
		{target{Instance: config.Instance{Kind: config.KindDemo}}, "simulator"},
		{target{Instance: config.Instance{Kind: config.KindMQTT, URL: "tcp://b:1883", Prefix: "hvac", EntityID: "climate.office"}}, "tcp://b:1883 (hvac/office/state)"},
	}
	for _, tt := range tests {
		if got := tt.target.source(); got != tt.want {
			t.Errorf("source() = %q, want %q", got, tt.want)
		}
	}
}

func TestOpenBackendHassNeedsToken(t *testing.T) {
	t.Setenv(TokenEnvVar, "")
	tgt := target{Instance: config.Instance{Kind: config.KindHass, URL: "http://ha:8123", EntityID: "climate.hall"}}
	if _, err := openBackend(context.Background(), tgt, connFlags{}); err == nil {
		t.Fatal("openBackend() without a token should fail")
	}

	t.Setenv(TokenEnvVar, "abc")
	b, err := openBackend(context.Background(), tgt, connFlags{})
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	_ = b.Close()
}

func TestOpenBackendDemo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := openBackend(ctx, target{Instance: config.Instance{Kind: config.KindDemo, EntityID: "climate.x"}}, connFlags{})
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	sim, ok := b.(*climate.Simulator)
	if !ok {
		t.Fatalf("openBackend() = %T, want *climate.Simulator", b)
	}
	if got := sim.State().EntityID; got != "climate.x" {
		t.Errorf("EntityID = %q, want climate.x", got)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.ConfigPathEnvVar, filepath.Join(t.TempDir(), "config.yaml"))
	conn = connFlags{}
	outputFormat = "detailed"
	forceInit, assumeYes, setDefault = false, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStatusCommandJSON(t *testing.T) {
	out, err := execute(t, "status", "--backend", "demo", "--entity", "climate.lab", "--format", "json",
		"--config", filepath.Join(t.TempDir(), "c.yaml"))
	if err != nil {
		t.Fatalf("status error = %v\n%s", err, out)
	}
	var st climate.State
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, out)
	}
	if st.EntityID != "climate.lab" || st.Mode != climate.ModeHeat {
		t.Errorf("status = %+v", st)
	}
}

func TestStatusCommandDetailed(t *testing.T) {
	out, err := execute(t, "status", "--backend", "demo",
		"--config", filepath.Join(t.TempDir(), "c.yaml"))
	if err != nil {
		t.Fatalf("status error = %v\n%s", err, out)
	}
	for _, want := range []string{"thermodial status", demoEntity, "heat", "21"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestSetCommand(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "c.yaml")

	out, err := execute(t, "set", "23", "--backend", "demo", "--config", cfg)
	if err != nil {
		t.Fatalf("set error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Set-point sent") {
		t.Errorf("set output = %s", out)
	}

	out, err = execute(t, "set", "21", "--backend", "demo", "--config", cfg)
	if err != nil {
		t.Fatalf("set error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Nothing to change") {
		t.Errorf("set to the current value should not write:\n%s", out)
	}

	if _, err := execute(t, "set", "19", "24", "--backend", "demo", "--config", cfg); err == nil {
		t.Error("a band for a single set-point entity should fail")
	}
}

func TestModeCommand(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "c.yaml")

	out, err := execute(t, "mode", "cool", "--backend", "demo", "--config", cfg)
	if err != nil {
		t.Fatalf("mode error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Mode changed") {
		t.Errorf("mode output = %s", out)
	}

	if _, err := execute(t, "mode", "dry", "--backend", "demo", "--config", cfg); err == nil {
		t.Error("a mode the entity does not list should fail")
	}
}

func TestConfigCommands(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "c.yaml")

	if out, err := execute(t, "config", "init", "--config", cfg); err != nil {
		t.Fatalf("config init error = %v\n%s", err, out)
	}
	if _, err := execute(t, "config", "init", "--config", cfg); err == nil {
		t.Error("config init should refuse to overwrite without --force")
	}

	out, err := execute(t, "config", "add", "office", "--backend", "mqtt", "--url", "tcp://broker:1883",
		"--entity", "climate.office", "--default", "--config", cfg)
	if err != nil {
		t.Fatalf("config add error = %v\n%s", err, out)
	}

	reg, err := config.LoadFile(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Preferences.DefaultInstance != "office" {
		t.Errorf("default instance = %q, want office", reg.Preferences.DefaultInstance)
	}
	if inst := reg.GetInstance("office"); inst == nil || inst.Kind != config.KindMQTT {
		t.Errorf("office instance = %+v", inst)
	}

	out, err = execute(t, "config", "show", "--config", cfg)
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "climate.office") {
		t.Errorf("config show output missing instance:\n%s", out)
	}

	if _, err := execute(t, "config", "remove", "office", "--config", cfg); err != nil {
		t.Fatalf("config remove error = %v", err)
	}
	if _, err := execute(t, "config", "remove", "office", "--config", cfg); err == nil {
		t.Error("removing a missing instance should fail")
	}
}
