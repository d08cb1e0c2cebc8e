// Package discovery finds Home Assistant instances with mDNS.
//
// Home Assistant advertises "_home-assistant._tcp" with TXT records
// carrying base_url, location_name, uuid and version. Scanner browses for
// that service; Advertise publishes it, which lets the simulate command
// show up in a scan.
//
// # Usage Example
//
//	instances, err := discovery.QuickScan(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, inst := range instances {
//	    fmt.Println(inst.LocationName(), inst.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Instances must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
