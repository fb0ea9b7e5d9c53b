// Package socket opens and configures the UDP sockets backing transport
// channels.
//
// Two socket shapes exist. Output sockets are plain unicast sockets bound to
// one concrete local address (or the wildcard) and written to directly by the
// sending goroutine. Input sockets are bound to the wildcard address on a
// port, configured for address reuse and multicast loopback, and wrapped in
// an ipv6.PacketConn so multicast groups can be joined on the same socket
// after binding.
//
// Both shapes share the cancel-then-close discipline: Cancel wakes any
// blocked I/O by poking the deadline, Close releases the descriptor. A socket
// with a pending asynchronous operation must be canceled before it is closed
// so the operation completes through its handler rather than vanishing.
package socket

import (
	"context"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/ipv6"

	transerr "github.com/sciapex/Fast-DDS/internal/errors"
)

// immediately is the deadline used by Cancel: any blocked read or write
// returns os.ErrDeadlineExceeded at once.
var immediately = time.Unix(0, 1)

// Output is a unicast output socket bound to a single local address/port.
type Output struct {
	conn *net.UDPConn
}

// OpenOutput binds a unicast output socket to the given local IPv6 address
// and port and applies the configured send buffer size. A nil ip binds the
// wildcard address.
func OpenOutput(ip net.IP, port uint32, sendBufferSize uint32) (*Output, error) {
	if ip == nil {
		ip = net.IPv6unspecified
	}

	var lc net.ListenConfig
	pc, err := lc.ListenPacket(context.Background(), "udp6", joinHostPort(ip, port))
	if err != nil {
		return nil, &transerr.BindError{Address: ip.String(), Port: port, Err: err}
	}

	conn := pc.(*net.UDPConn)
	if err := conn.SetWriteBuffer(int(sendBufferSize)); err != nil {
		_ = conn.Close()
		return nil, &transerr.BindError{Address: ip.String(), Port: port, Err: err}
	}

	return &Output{conn: conn}, nil
}

// WriteTo sends b to the remote address on the calling goroutine. It is a
// direct, blocking network send; nothing is routed through the event loop.
func (o *Output) WriteTo(b []byte, raddr *net.UDPAddr) (int, error) {
	return o.conn.WriteToUDP(b, raddr)
}

// LocalAddr returns the socket's bound address.
func (o *Output) LocalAddr() *net.UDPAddr {
	return o.conn.LocalAddr().(*net.UDPAddr)
}

// Cancel wakes any I/O blocked on the socket.
func (o *Output) Cancel() {
	_ = o.conn.SetDeadline(immediately)
}

// Close releases the socket. Call Cancel first if an operation may be
// pending.
func (o *Output) Close() error {
	return o.conn.Close()
}

// Input is a port-keyed input socket shared by every locator on its port.
type Input struct {
	conn *net.UDPConn
	pc   *ipv6.PacketConn
}

// OpenInput binds an input socket to the wildcard address on the given port
// with the configured receive buffer size, address reuse enabled, and
// multicast loopback enabled. Loopback is on so a process can receive its own
// multicast transmissions, which single-host discovery depends on.
func OpenInput(port uint32, receiveBufferSize uint32) (*Input, error) {
	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(context.Background(), "udp6", joinHostPort(net.IPv6unspecified, port))
	if err != nil {
		return nil, &transerr.BindError{Address: net.IPv6unspecified.String(), Port: port, Err: err}
	}

	conn := pc.(*net.UDPConn)
	if err := conn.SetReadBuffer(int(receiveBufferSize)); err != nil {
		_ = conn.Close()
		return nil, &transerr.BindError{Address: net.IPv6unspecified.String(), Port: port, Err: err}
	}

	wrapped := ipv6.NewPacketConn(conn)
	// Loopback control is best-effort on platforms that do not expose it;
	// the bind itself already succeeded.
	_ = wrapped.SetMulticastLoopback(true)

	return &Input{conn: conn, pc: wrapped}, nil
}

// JoinGroup joins the multicast group on the already-bound socket. The join
// produces no new resource: multiple groups share the one socket.
func (i *Input) JoinGroup(group net.IP) error {
	if err := i.pc.JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
		return &transerr.NetworkError{
			Operation: "join multicast group",
			Err:       err,
			Details:   group.String(),
		}
	}
	return nil
}

// ReadFrom blocks until a datagram arrives, returning the payload length and
// the sender's address.
func (i *Input) ReadFrom(b []byte) (int, *net.UDPAddr, error) {
	n, _, src, err := i.pc.ReadFrom(b)
	if err != nil {
		return 0, nil, err
	}
	addr, _ := src.(*net.UDPAddr)
	return n, addr, nil
}

// LocalAddr returns the socket's bound address. Callers binding port 0 use
// this to learn the port the OS picked.
func (i *Input) LocalAddr() *net.UDPAddr {
	return i.conn.LocalAddr().(*net.UDPAddr)
}

// Cancel wakes any receive blocked on the socket. The pending operation
// completes through its handler with a deadline error.
func (i *Input) Cancel() {
	_ = i.conn.SetReadDeadline(immediately)
}

// Close releases the socket. Call Cancel first so a pending receive is
// answered before the descriptor goes away.
func (i *Input) Close() error {
	return i.conn.Close()
}

func joinHostPort(ip net.IP, port uint32) string {
	return net.JoinHostPort(ip.String(), strconv.Itoa(int(port)))
}
