package discovery

import "testing"

func TestInstance_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		instance *Instance
		expected string
	}{
		{
			name:     "resolved address",
			instance: &Instance{IP: "192.168.1.20", Port: 8123},
			expected: "http://192.168.1.20:8123",
		},
		{
			name:     "ipv6 address",
			instance: &Instance{IP: "fe80::1", Port: 8123},
			expected: "http://[fe80::1]:8123",
		},
		{
			name: "announced base_url",
			instance: &Instance{IP: "192.168.1.20", Port: 8123, Metadata: map[string]string{
				"base_url": "http://homeassistant.local:8123",
			}},
			expected: "http://homeassistant.local:8123",
		},
		{
			name: "internal_url fallback",
			instance: &Instance{IP: "192.168.1.20", Port: 8123, Metadata: map[string]string{
				"internal_url": "http://ha.lan:8123",
			}},
			expected: "http://ha.lan:8123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.instance.BaseURL(); got != tt.expected {
				t.Errorf("Instance.BaseURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestInstance_String(t *testing.T) {
	inst := &Instance{
		Name: "Home",
		IP:   "192.168.1.20",
		Port: 8123,
		Metadata: map[string]string{
			"location_name": "Cottage",
			"version":       "2024.6.0",
		},
	}

	expected := "Cottage at http://192.168.1.20:8123 (Home Assistant 2024.6.0)"
	if inst.String() != expected {
		t.Errorf("Instance.String() = %v, want %v", inst.String(), expected)
	}

	bare := &Instance{Name: "Home", IP: "10.0.0.2", Port: 8123}
	if got := bare.String(); got != "Home at http://10.0.0.2:8123" {
		t.Errorf("Instance.String() = %v", got)
	}
}

func TestInstance_GetMetadata(t *testing.T) {
	inst := &Instance{}
	if inst.GetMetadata("uuid") != "" {
		t.Error("GetMetadata() on nil metadata should return empty string")
	}

	inst.Metadata = map[string]string{"uuid": "abc123"}
	if inst.UUID() != "abc123" {
		t.Errorf("UUID() = %v, want abc123", inst.UUID())
	}
}
