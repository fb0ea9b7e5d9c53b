package transport

import (
	"fmt"

	"gopkg.in/yaml.v3"

	transerr "github.com/sciapex/Fast-DDS/internal/errors"
)

const (
	// MaximumMessageSize is the ceiling for a single UDP datagram carried by
	// this transport.
	MaximumMessageSize uint32 = 65500

	// MaximumUDPSocketSize is the default socket buffer size applied when
	// the descriptor does not configure one.
	MaximumUDPSocketSize uint32 = 65536
)

// UDPv6TransportDescriptor configures a UDPv6 transport. It is immutable
// once the transport is constructed.
//
// GranularMode selects the addressing policy for output channels: in
// granular mode every distinct (address, port) pair is its own channel with
// its own socket; in non-granular mode all locators sharing a port are one
// logical channel backed by one socket per allowed local interface.
//
// InterfaceWhiteList restricts which local IPv6 addresses output sockets may
// bind to. Empty means unrestricted.
type UDPv6TransportDescriptor struct {
	MaxMessageSize     uint32   `yaml:"max_message_size"`
	SendBufferSize     uint32   `yaml:"send_buffer_size"`
	ReceiveBufferSize  uint32   `yaml:"receive_buffer_size"`
	GranularMode       bool     `yaml:"granular_mode"`
	InterfaceWhiteList []string `yaml:"interface_whitelist"`
}

// NewUDPv6TransportDescriptor returns the default configuration: maximum
// message size at the datagram ceiling, socket buffers at the UDP socket
// maximum, non-granular addressing, no interface restriction.
func NewUDPv6TransportDescriptor() UDPv6TransportDescriptor {
	return UDPv6TransportDescriptor{
		MaxMessageSize:    MaximumMessageSize,
		SendBufferSize:    MaximumUDPSocketSize,
		ReceiveBufferSize: MaximumUDPSocketSize,
	}
}

// DescriptorFromYAML decodes a descriptor from YAML, starting from the
// defaults so omitted fields keep their documented values.
func DescriptorFromYAML(data []byte) (UDPv6TransportDescriptor, error) {
	d := NewUDPv6TransportDescriptor()
	if err := yaml.Unmarshal(data, &d); err != nil {
		return UDPv6TransportDescriptor{}, fmt.Errorf("decode transport descriptor: %w", err)
	}
	return d, nil
}

// check enforces the size invariants. Violations are fatal to
// initialization: the transport starts no thread and binds no sockets.
func (d UDPv6TransportDescriptor) check() error {
	if d.MaxMessageSize > MaximumMessageSize {
		return &transerr.ConfigError{
			Field:   "MaxMessageSize",
			Value:   d.MaxMessageSize,
			Limit:   MaximumMessageSize,
			Message: "cannot exceed the UDP datagram ceiling",
		}
	}
	if d.MaxMessageSize > d.SendBufferSize {
		return &transerr.ConfigError{
			Field:   "MaxMessageSize",
			Value:   d.MaxMessageSize,
			Limit:   d.SendBufferSize,
			Message: "cannot exceed SendBufferSize",
		}
	}
	if d.MaxMessageSize > d.ReceiveBufferSize {
		return &transerr.ConfigError{
			Field:   "MaxMessageSize",
			Value:   d.MaxMessageSize,
			Limit:   d.ReceiveBufferSize,
			Message: "cannot exceed ReceiveBufferSize",
		}
	}
	return nil
}
