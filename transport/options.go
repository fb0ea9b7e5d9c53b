package transport

import (
	"net"

	"go.uber.org/zap"
)

// Option is a functional option for configuring a UDPv6Transport. Options
// are applied by NewUDPv6Transport before any socket exists.
type Option func(*UDPv6Transport) error

// WithLogger attaches a logger to the transport. Without this option the
// transport is silent.
func WithLogger(log *zap.Logger) Option {
	return func(t *UDPv6Transport) error {
		t.log = log
		return nil
	}
}

// WithInterfaceLister replaces the local IPv6 interface discovery used for
// wildcard normalization and allow-list enumeration. Interface discovery is
// a consumed capability, not part of the transport; this option lets callers
// (and tests) supply their own.
func WithInterfaceLister(list func() ([]net.IP, error)) Option {
	return func(t *UDPv6Transport) error {
		t.listIPs = list
		return nil
	}
}
