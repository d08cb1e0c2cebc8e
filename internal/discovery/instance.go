package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Instance represents a Home Assistant installation found on the network
type Instance struct {
	// Name is the mDNS instance name (usually the location name, e.g. "Home")
	Name string

	// Hostname is the mDNS hostname (e.g., "homeassistant.local.")
	Hostname string

	// IP is the address, IPv4 when one was announced
	IP string

	// Port is the HTTP port (typically 8123)
	Port int

	// Metadata contains the TXT record data
	// Home Assistant announces: base_url, internal_url, external_url,
	// location_name, uuid, version, requires_api_password
	Metadata map[string]string

	// DiscoveredAt is when the instance was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the instance
func (i *Instance) String() string {
	s := fmt.Sprintf("%s at %s", i.LocationName(), i.BaseURL())
	if v := i.Version(); v != "" {
		s += " (Home Assistant " + v + ")"
	}
	return s
}

// BaseURL returns the URL clients should use. The announced base_url or
// internal_url wins over the resolved address.
func (i *Instance) BaseURL() string {
	for _, key := range []string{"base_url", "internal_url"} {
		if u := i.GetMetadata(key); u != "" {
			return u
		}
	}
	return "http://" + net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

// LocationName returns the configured location name, or the instance name.
func (i *Instance) LocationName() string {
	if n := i.GetMetadata("location_name"); n != "" {
		return n
	}
	return i.Name
}

// Version returns the announced Home Assistant version.
func (i *Instance) Version() string {
	return i.GetMetadata("version")
}

// UUID returns the installation id, stable across address changes.
func (i *Instance) UUID() string {
	return i.GetMetadata("uuid")
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}
