package transport

import (
	"net"
	"testing"
)

func TestNewUDPv6Locator(t *testing.T) {
	ip := net.ParseIP("fd00::1234")
	loc := NewUDPv6Locator(ip, 7400)

	if loc.Kind != LocatorKindUDPv6 {
		t.Errorf("Kind = %d, want %d", loc.Kind, LocatorKindUDPv6)
	}
	if loc.Port != 7400 {
		t.Errorf("Port = %d, want 7400", loc.Port)
	}
	if !loc.IP().Equal(ip) {
		t.Errorf("IP() = %v, want %v", loc.IP(), ip)
	}
}

func TestNewUDPv6Locator_NilIPIsWildcard(t *testing.T) {
	loc := NewUDPv6Locator(nil, 7400)

	if !loc.IsWildcard() {
		t.Errorf("IsWildcard() = false, want true for nil IP")
	}
}

func TestLocator_IsMulticast(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want bool
	}{
		{"link-local multicast", "ff02::1", true},
		{"site-local multicast", "ff05::99", true},
		{"unicast", "fd00::1", false},
		{"loopback", "::1", false},
		{"wildcard", "::", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := NewUDPv6Locator(net.ParseIP(tt.ip), 7400)
			if got := loc.IsMulticast(); got != tt.want {
				t.Errorf("IsMulticast(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestLocatorFromUDPAddr(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("::1"), Port: 54321}
	loc := LocatorFromUDPAddr(addr)

	if loc.Kind != LocatorKindUDPv6 {
		t.Errorf("Kind = %d, want %d", loc.Kind, LocatorKindUDPv6)
	}
	if loc.Port != 54321 {
		t.Errorf("Port = %d, want 54321", loc.Port)
	}
	if !loc.IP().Equal(addr.IP) {
		t.Errorf("IP() = %v, want %v", loc.IP(), addr.IP)
	}
}

func TestLocator_UDPAddrRoundTrip(t *testing.T) {
	loc := NewUDPv6Locator(net.ParseIP("fd12:3456::1"), 7500)
	back := LocatorFromUDPAddr(loc.UDPAddr())

	if back != loc {
		t.Errorf("LocatorFromUDPAddr(UDPAddr()) = %v, want %v", back, loc)
	}
}

func TestLocator_String(t *testing.T) {
	loc := NewUDPv6Locator(net.ParseIP("::1"), 7400)
	if got, want := loc.String(), "[::1]:7400"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
