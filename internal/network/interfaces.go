// Package network provides local IPv6 interface discovery and the interface
// allow-list used when binding output sockets.
package network

import (
	"fmt"
	"net"
)

// LocalIPv6Addrs enumerates the unicast IPv6 addresses assigned to the
// host's interfaces, in interface discovery order.
//
// IPv4 and IPv4-mapped addresses are skipped. Link-local addresses are also
// skipped: they cannot be bound without a zone identifier, which the 16-byte
// locator representation does not carry.
func LocalIPv6Addrs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	var out []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			// An interface can disappear between the two calls; keep going
			// with whatever remains.
			continue
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP
			if ip.To4() != nil || ip.To16() == nil {
				continue
			}
			if ip.IsLinkLocalUnicast() {
				continue
			}
			out = append(out, ip)
		}
	}

	return out, nil
}
