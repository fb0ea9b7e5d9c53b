package network

import (
	"fmt"
	"net"
)

// AllowList is the set of local IPv6 addresses an output socket may bind to.
//
// An empty list allows every interface. The unspecified (wildcard) address is
// always allowed, since it does not select a concrete interface.
type AllowList struct {
	addrs []net.IP
}

// NewAllowList parses the configured interface addresses. A nil or empty
// slice yields the allow-everything list.
func NewAllowList(addrs []string) (*AllowList, error) {
	l := &AllowList{}
	for _, s := range addrs {
		ip := net.ParseIP(s)
		if ip == nil || ip.To4() != nil {
			return nil, fmt.Errorf("interface allow-list: %q is not an IPv6 address", s)
		}
		l.addrs = append(l.addrs, ip)
	}
	return l, nil
}

// Empty reports whether the list allows every interface.
func (l *AllowList) Empty() bool {
	return len(l.addrs) == 0
}

// Allowed reports whether ip may be used as a local binding address.
func (l *AllowList) Allowed(ip net.IP) bool {
	if l.Empty() {
		return true
	}
	if ip.IsUnspecified() {
		return true
	}
	for _, a := range l.addrs {
		if a.Equal(ip) {
			return true
		}
	}
	return false
}
