// Package errors defines the error types surfaced by the UDPv6 transport.
//
// The transport never panics on bad input: unsupported locators, duplicate
// opens, and oversized messages are ordinary failures reported through these
// values. Callers can branch on the sentinels with errors.Is and unwrap the
// structured types with errors.As.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the transport's fail-closed outcomes.
var (
	// ErrUnsupportedLocator is returned when a locator's kind does not match
	// the transport's address family. Every operation checks this first and
	// fails closed rather than panicking.
	ErrUnsupportedLocator = errors.New("locator kind not supported by this transport")

	// ErrChannelAlreadyOpen is returned when opening a channel that is
	// already open. Opening twice is a no-op failure: the existing channel
	// state is left untouched.
	ErrChannelAlreadyOpen = errors.New("channel already open")

	// ErrChannelNotOpen is returned by Close/Send/Receive when no channel
	// exists for the given locator.
	ErrChannelNotOpen = errors.New("channel not open")

	// ErrMessageTooLarge is returned by Send when the payload exceeds the
	// configured send buffer size. No network operation is attempted.
	ErrMessageTooLarge = errors.New("message exceeds configured send buffer size")

	// ErrShortBuffer is returned by Receive when the caller's buffer is
	// smaller than the configured receive buffer size.
	ErrShortBuffer = errors.New("receive buffer smaller than configured receive buffer size")

	// ErrReceiveCanceled is delivered to a blocked Receive when its channel
	// is closed underneath it.
	ErrReceiveCanceled = errors.New("receive canceled by channel close")

	// ErrServiceStopped is returned when an asynchronous operation is
	// registered against an event loop that has already been stopped.
	ErrServiceStopped = errors.New("event loop service stopped")

	// ErrInterfaceNotAllowed is returned when a locator's address is
	// excluded by the interface allow-list. No socket is bound.
	ErrInterfaceNotAllowed = errors.New("local address not permitted by interface allow-list")

	// ErrNoAllowedInterfaces is returned when the allow-list excludes every
	// local interface, leaving an output channel with nothing to bind.
	ErrNoAllowedInterfaces = errors.New("interface allow-list excludes every local interface")
)

// ConfigError reports a transport descriptor that violates a size invariant.
// It is fatal to initialization: the transport never starts its event loop
// and holds no sockets.
type ConfigError struct {
	Field   string // offending descriptor field
	Value   uint32 // configured value
	Limit   uint32 // the bound it violated
	Message string // human-readable constraint
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid transport configuration: %s=%d: %s (limit %d)", e.Field, e.Value, e.Message, e.Limit)
}

// BindError reports a failure to open or bind a socket for a channel. It is
// recovered locally: the partial table entry is discarded and the transport
// remains usable for other channels.
type BindError struct {
	Address string // local address the bind targeted
	Port    uint32
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind [%s]:%d: %v", e.Address, e.Port, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// NetworkError wraps a network-level failure with the operation that caused
// it and enough detail to diagnose without a debugger attached.
type NetworkError struct {
	Operation string // e.g. "send", "receive", "join multicast group"
	Err       error
	Details   string
}

func (e *NetworkError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Operation, e.Err, e.Details)
}

func (e *NetworkError) Unwrap() error { return e.Err }
