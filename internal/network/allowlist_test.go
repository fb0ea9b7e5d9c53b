package network

import (
	"net"
	"testing"
)

func TestNewAllowList_RejectsNonIPv6(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{"garbage", "not-an-address"},
		{"ipv4", "192.168.1.1"},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAllowList([]string{tt.addr}); err == nil {
				t.Errorf("NewAllowList(%q) error = nil, want error", tt.addr)
			}
		})
	}
}

func TestAllowList_EmptyAllowsAll(t *testing.T) {
	l, err := NewAllowList(nil)
	if err != nil {
		t.Fatalf("NewAllowList(nil) error = %v, want nil", err)
	}

	if !l.Empty() {
		t.Error("Empty() = false, want true")
	}
	if !l.Allowed(net.ParseIP("fd00::1")) {
		t.Error("Allowed(any address) = false, want true for empty list")
	}
}

func TestAllowList_Membership(t *testing.T) {
	l, err := NewAllowList([]string{"fd00::1", "fd00::2"})
	if err != nil {
		t.Fatalf("NewAllowList() error = %v, want nil", err)
	}

	if l.Empty() {
		t.Error("Empty() = true, want false")
	}
	if !l.Allowed(net.ParseIP("fd00::1")) {
		t.Error("Allowed(member) = false, want true")
	}
	if l.Allowed(net.ParseIP("fd00::3")) {
		t.Error("Allowed(non-member) = true, want false")
	}
}

func TestAllowList_WildcardAlwaysAllowed(t *testing.T) {
	l, err := NewAllowList([]string{"fd00::1"})
	if err != nil {
		t.Fatalf("NewAllowList() error = %v, want nil", err)
	}

	if !l.Allowed(net.IPv6unspecified) {
		t.Error("Allowed(::) = false, want true regardless of list contents")
	}
}
