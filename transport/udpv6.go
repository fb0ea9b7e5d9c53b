// Package transport implements the UDP/IPv6 data-plane transport used by the
// RTPS protocol layer.
//
// The transport maps abstract endpoint identifiers (locators) to concrete OS
// sockets and presents a uniform send/receive contract no matter how many
// sockets are bound underneath. Callers open output and input channels, send
// and receive opaque byte buffers, and close channels when done; a single
// background goroutine drives every asynchronous I/O completion for the
// transport's lifetime.
//
// Two addressing modes exist, chosen once at construction:
//
//   - Non-granular (default): all output locators sharing a port are one
//     logical channel, backed by one socket per allowed local interface (or a
//     single wildcard socket when no allow-list is configured). A send fans
//     out over every socket and succeeds if at least one underlying send
//     succeeded — a deliberate best-effort broadcast, since the sender cannot
//     know which local interface reaches a given peer.
//
//   - Granular: every distinct (address, port) pair is its own independent
//     channel with exactly one socket bound to that exact address.
//
// Input channels are always port-keyed: one wildcard-bound socket per port,
// shared by every unicast and multicast locator on that port. Opening an
// input channel on a multicast locator joins the group silently on the
// existing socket instead of creating a second resource.
//
// Flow control, retransmission, congestion handling, encryption, and message
// framing are all layered above this transport by protocol code.
//
// Example:
//
//	desc := transport.NewUDPv6TransportDescriptor()
//	t, err := transport.NewUDPv6Transport(desc)
//	if err != nil {
//	    return err
//	}
//	if err := t.Init(); err != nil {
//	    return err
//	}
//	defer t.Close()
//
//	local := transport.NewUDPv6Locator(nil, 7400)
//	if err := t.OpenInputChannel(local); err != nil {
//	    return err
//	}
//	buf := make([]byte, transport.MaximumUDPSocketSize)
//	n, remote, err := t.Receive(buf, local)
package transport

import (
	"errors"
	"net"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	transerr "github.com/sciapex/Fast-DDS/internal/errors"
	"github.com/sciapex/Fast-DDS/internal/eventloop"
	"github.com/sciapex/Fast-DDS/internal/network"
	"github.com/sciapex/Fast-DDS/internal/socket"
)

// UDPv6Transport is the UDP/IPv6 transport façade.
//
// All entry points may be called concurrently from arbitrary goroutines.
// The two channel tables are guarded by independent locks that are never
// nested and never held across blocking I/O. One documented caveat survives
// from that discipline: Send resolves its sockets under the output lock and
// then writes without it, so a channel must not be closed while a caller is
// actively sending on it — the close surfaces as a per-socket send error.
type UDPv6Transport struct {
	descriptor UDPv6TransportDescriptor
	allowList  *network.AllowList
	log        *zap.Logger
	listIPs    func() ([]net.IP, error)

	loop    *eventloop.Service
	running bool

	// Output channel table. Exactly one of the two maps is populated,
	// selected by the addressing mode at construction. The lock also covers
	// the running flag.
	outputMu              sync.Mutex
	outputSockets         map[uint32][]*socket.Output
	granularOutputSockets map[Locator]*socket.Output

	// Input channel table, port-keyed in both modes. Never held together
	// with outputMu.
	inputMu      sync.Mutex
	inputSockets map[uint32]*socket.Input
}

// NewUDPv6Transport builds a transport from the descriptor. The descriptor's
// size invariants are checked later, by Init; construction only fails on an
// unparseable interface allow-list or a failing option.
func NewUDPv6Transport(descriptor UDPv6TransportDescriptor, opts ...Option) (*UDPv6Transport, error) {
	allowList, err := network.NewAllowList(descriptor.InterfaceWhiteList)
	if err != nil {
		return nil, err
	}

	t := &UDPv6Transport{
		descriptor: descriptor,
		allowList:  allowList,
		log:        zap.NewNop(),
		listIPs:    network.LocalIPv6Addrs,
		loop:       eventloop.NewService(),
	}
	if descriptor.GranularMode {
		t.granularOutputSockets = make(map[Locator]*socket.Output)
	} else {
		t.outputSockets = make(map[uint32][]*socket.Output)
	}
	t.inputSockets = make(map[uint32]*socket.Input)

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Init validates the descriptor and starts the event-loop goroutine. On a
// configuration error the transport remains unusable: no goroutine started,
// no sockets bound. Calling Init again on a running transport is a no-op.
func (t *UDPv6Transport) Init() error {
	if err := t.descriptor.check(); err != nil {
		t.log.Error("transport configuration rejected", zap.Error(err))
		return err
	}

	t.outputMu.Lock()
	defer t.outputMu.Unlock()
	if t.running {
		return nil
	}
	t.running = true
	go t.loop.Run()
	return nil
}

// Close tears the transport down: any channels the caller left open are
// swept shut (unblocking pending receives through the cancellation path),
// then the event loop is stopped and joined.
func (t *UDPv6Transport) Close() error {
	var errs error

	t.inputMu.Lock()
	for port, sock := range t.inputSockets {
		sock.Cancel()
		errs = multierr.Append(errs, sock.Close())
		delete(t.inputSockets, port)
	}
	t.inputMu.Unlock()

	t.outputMu.Lock()
	if t.descriptor.GranularMode {
		for loc, sock := range t.granularOutputSockets {
			sock.Cancel()
			errs = multierr.Append(errs, sock.Close())
			delete(t.granularOutputSockets, loc)
		}
	} else {
		for port, socks := range t.outputSockets {
			for _, sock := range socks {
				sock.Cancel()
				errs = multierr.Append(errs, sock.Close())
			}
			delete(t.outputSockets, port)
		}
	}
	stop := t.running
	t.running = false
	t.outputMu.Unlock()

	if stop {
		t.loop.Stop()
	}
	return errs
}

// IsLocatorSupported reports whether the locator belongs to this transport's
// address family. Every other operation checks this first and fails closed
// for foreign kinds.
func (t *UDPv6Transport) IsLocatorSupported(locator Locator) bool {
	return locator.Kind == LocatorKindUDPv6
}

// DoLocatorsMatch is the single source of truth for "is this the same
// channel": full equality in granular mode, port equality otherwise.
func (t *UDPv6Transport) DoLocatorsMatch(left, right Locator) bool {
	if t.descriptor.GranularMode {
		return left == right
	}
	return left.Port == right.Port
}

// RemoteToMainLocal maps a remote locator to the local locator whose input
// channel would receive its traffic: the wildcard address on the same port.
// It opens nothing.
func (t *UDPv6Transport) RemoteToMainLocal(remote Locator) (Locator, error) {
	if !t.IsLocatorSupported(remote) {
		return Locator{}, transerr.ErrUnsupportedLocator
	}

	mainLocal := remote
	mainLocal.Address = [16]byte{}
	return mainLocal, nil
}

// NormalizeLocator expands a wildcard-address locator into one concrete
// locator per discovered local IPv6 interface, preserving kind and port in
// discovery order. A concrete locator is returned unchanged as a
// single-element slice.
func (t *UDPv6Transport) NormalizeLocator(locator Locator) ([]Locator, error) {
	if !locator.IsWildcard() {
		return []Locator{locator}, nil
	}

	ips, err := t.listIPs()
	if err != nil {
		return nil, &transerr.NetworkError{Operation: "normalize locator", Err: err}
	}

	list := make([]Locator, 0, len(ips))
	for _, ip := range ips {
		loc := NewUDPv6Locator(ip, locator.Port)
		loc.Kind = locator.Kind
		list = append(list, loc)
	}
	return list, nil
}

// IsOutputChannelOpen reports whether an output channel exists for the
// locator under the current addressing mode.
func (t *UDPv6Transport) IsOutputChannelOpen(locator Locator) bool {
	if !t.IsLocatorSupported(locator) {
		return false
	}
	t.outputMu.Lock()
	defer t.outputMu.Unlock()
	return t.outputChannelOpenLocked(locator)
}

func (t *UDPv6Transport) outputChannelOpenLocked(locator Locator) bool {
	if t.descriptor.GranularMode {
		_, ok := t.granularOutputSockets[locator]
		return ok
	}
	_, ok := t.outputSockets[locator.Port]
	return ok
}

// IsInputChannelOpen reports whether an input channel exists for the
// locator's port.
func (t *UDPv6Transport) IsInputChannelOpen(locator Locator) bool {
	if !t.IsLocatorSupported(locator) {
		return false
	}
	t.inputMu.Lock()
	defer t.inputMu.Unlock()
	_, ok := t.inputSockets[locator.Port]
	return ok
}

// OpenOutputChannel binds the socket(s) backing an output channel.
//
// Opening an already-open channel is a failure, not idempotent success; the
// existing channel state is left exactly as it was. On any bind failure the
// whole entry is discarded — the table never holds a partial socket set.
func (t *UDPv6Transport) OpenOutputChannel(locator Locator) error {
	if !t.IsLocatorSupported(locator) {
		return transerr.ErrUnsupportedLocator
	}

	t.outputMu.Lock()
	defer t.outputMu.Unlock()

	if t.outputChannelOpenLocked(locator) {
		return transerr.ErrChannelAlreadyOpen
	}

	if t.descriptor.GranularMode {
		return t.openAndBindGranularOutputSocketLocked(locator)
	}
	return t.openAndBindOutputSocketsLocked(locator.Port)
}

// openAndBindGranularOutputSocketLocked binds one unicast socket to the
// locator's exact address and port, keyed by the full locator.
func (t *UDPv6Transport) openAndBindGranularOutputSocketLocked(locator Locator) error {
	ip := locator.IP()
	if !t.allowList.Allowed(ip) {
		return transerr.ErrInterfaceNotAllowed
	}

	sock, err := socket.OpenOutput(ip, locator.Port, t.descriptor.SendBufferSize)
	if err != nil {
		t.log.Info("failed to bind granular output socket",
			zap.Uint32("port", locator.Port), zap.Error(err))
		return err
	}

	t.granularOutputSockets[locator] = sock
	return nil
}

// openAndBindOutputSocketsLocked populates the port's socket set. With no
// allow-list a single wildcard socket serves every interface; otherwise one
// socket is bound per allowed discovered interface.
func (t *UDPv6Transport) openAndBindOutputSocketsLocked(port uint32) error {
	if t.allowList.Empty() {
		sock, err := socket.OpenOutput(nil, port, t.descriptor.SendBufferSize)
		if err != nil {
			t.log.Info("failed to bind output socket",
				zap.Uint32("port", port), zap.Error(err))
			return err
		}
		t.outputSockets[port] = []*socket.Output{sock}
		return nil
	}

	ips, err := t.listIPs()
	if err != nil {
		return &transerr.NetworkError{Operation: "open output channel", Err: err}
	}

	var bound []*socket.Output
	for _, ip := range ips {
		if !t.allowList.Allowed(ip) {
			continue
		}
		sock, err := socket.OpenOutput(ip, port, t.descriptor.SendBufferSize)
		if err != nil {
			t.log.Info("failed to bind output socket",
				zap.Uint32("port", port), zap.String("address", ip.String()), zap.Error(err))
			for _, b := range bound {
				b.Cancel()
				_ = b.Close()
			}
			return err
		}
		bound = append(bound, sock)
	}

	if len(bound) == 0 {
		return transerr.ErrNoAllowedInterfaces
	}
	t.outputSockets[port] = bound
	return nil
}

// OpenInputChannel binds the port-keyed input socket if it is not already
// bound, then, for multicast locators, joins the group silently on that
// socket. The join never creates or returns a second channel resource.
//
// As with output channels, opening an already-open input channel reports
// ErrChannelAlreadyOpen — even for a multicast locator, whose group join is
// still performed on the existing socket.
func (t *UDPv6Transport) OpenInputChannel(locator Locator) error {
	if !t.IsLocatorSupported(locator) {
		return transerr.ErrUnsupportedLocator
	}

	t.inputMu.Lock()
	defer t.inputMu.Unlock()

	var openErr error
	sock, ok := t.inputSockets[locator.Port]
	if ok {
		openErr = transerr.ErrChannelAlreadyOpen
	} else {
		sock, openErr = socket.OpenInput(locator.Port, t.descriptor.ReceiveBufferSize)
		if openErr != nil {
			t.log.Info("failed to bind input socket",
				zap.Uint32("port", locator.Port), zap.Error(openErr))
			return openErr
		}
		t.inputSockets[locator.Port] = sock
	}

	if locator.IsMulticast() {
		if err := sock.JoinGroup(locator.IP()); err != nil {
			t.log.Warn("multicast group join failed",
				zap.Stringer("locator", locator), zap.Error(err))
			return err
		}
	}

	return openErr
}

// CloseOutputChannel cancels any pending operation on every socket in the
// entry, closes the socket(s), and erases the entry, in that strict order.
// Closing a channel that is not open is a failure.
func (t *UDPv6Transport) CloseOutputChannel(locator Locator) error {
	if !t.IsLocatorSupported(locator) {
		return transerr.ErrChannelNotOpen
	}

	t.outputMu.Lock()
	defer t.outputMu.Unlock()

	if !t.outputChannelOpenLocked(locator) {
		return transerr.ErrChannelNotOpen
	}

	var errs error
	if t.descriptor.GranularMode {
		sock := t.granularOutputSockets[locator]
		sock.Cancel()
		errs = sock.Close()
		delete(t.granularOutputSockets, locator)
	} else {
		for _, sock := range t.outputSockets[locator.Port] {
			sock.Cancel()
			errs = multierr.Append(errs, sock.Close())
		}
		delete(t.outputSockets, locator.Port)
	}
	return errs
}

// CloseInputChannel cancels any pending receive (its completion handler runs
// with a cancellation error, unblocking the waiting caller), closes the
// socket, and erases the entry.
func (t *UDPv6Transport) CloseInputChannel(locator Locator) error {
	if !t.IsLocatorSupported(locator) {
		return transerr.ErrChannelNotOpen
	}

	t.inputMu.Lock()
	defer t.inputMu.Unlock()

	sock, ok := t.inputSockets[locator.Port]
	if !ok {
		return transerr.ErrChannelNotOpen
	}

	sock.Cancel()
	err := sock.Close()
	delete(t.inputSockets, locator.Port)
	return err
}

// Send transmits buf to the remote locator over the local locator's output
// channel. The network write happens on the calling goroutine; nothing is
// routed through the event loop.
//
// In non-granular mode the send fans out over every socket bound for the
// port and reports success if at least one underlying send succeeded; the
// failures of the rest are logged and folded into the error only when all of
// them fail. The payload must not exceed the configured send buffer size,
// else the call fails before touching the network.
func (t *UDPv6Transport) Send(buf []byte, localLocator, remoteLocator Locator) error {
	t.outputMu.Lock()
	if !t.IsLocatorSupported(localLocator) || !t.outputChannelOpenLocked(localLocator) {
		t.outputMu.Unlock()
		return transerr.ErrChannelNotOpen
	}
	if uint32(len(buf)) > t.descriptor.SendBufferSize {
		t.outputMu.Unlock()
		return transerr.ErrMessageTooLarge
	}

	var socks []*socket.Output
	if t.descriptor.GranularMode {
		socks = []*socket.Output{t.granularOutputSockets[localLocator]}
	} else {
		socks = append(socks, t.outputSockets[localLocator.Port]...)
	}
	t.outputMu.Unlock()

	raddr := remoteLocator.UDPAddr()
	var (
		success bool
		errs    error
	)
	for _, sock := range socks {
		if err := t.sendThroughSocket(buf, raddr, sock); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		success = true
	}

	if success {
		return nil
	}
	return errs
}

func (t *UDPv6Transport) sendThroughSocket(buf []byte, raddr *net.UDPAddr, sock *socket.Output) error {
	n, err := sock.WriteTo(buf, raddr)
	if err != nil {
		t.log.Warn("send failed",
			zap.Stringer("to", raddr), zap.Stringer("from", sock.LocalAddr()), zap.Error(err))
		return &transerr.NetworkError{Operation: "send", Err: err, Details: raddr.String()}
	}

	t.log.Debug("datagram sent",
		zap.Int("bytes", n), zap.Stringer("to", raddr), zap.Stringer("from", sock.LocalAddr()))
	return nil
}

// Receive blocks until a datagram arrives on the local locator's input
// channel, then returns the payload length and the sender translated into a
// locator.
//
// The call bridges the asynchronous completion model to a blocking contract:
// it registers an asynchronous receive under the input lock (released right
// after registration) and parks on a one-shot primitive that the event
// loop's completion handler signals exactly once. The caller's buffer must
// have capacity for the configured receive buffer size.
//
// There is no timeout. Closing the channel is the only cancellation
// mechanism: the pending receive completes through the cancellation path and
// this call returns ErrReceiveCanceled with zero bytes. Keep at most one
// receive outstanding per channel, since a close cancels indiscriminately.
func (t *UDPv6Transport) Receive(buf []byte, localLocator Locator) (int, Locator, error) {
	if !t.IsLocatorSupported(localLocator) {
		return 0, Locator{}, transerr.ErrChannelNotOpen
	}
	if uint32(cap(buf)) < t.descriptor.ReceiveBufferSize {
		return 0, Locator{}, transerr.ErrShortBuffer
	}

	var (
		bytes   int
		remote  Locator
		recvErr error
	)
	done := make(chan struct{})

	t.inputMu.Lock()
	sock, ok := t.inputSockets[localLocator.Port]
	if !ok {
		t.inputMu.Unlock()
		return 0, Locator{}, transerr.ErrChannelNotOpen
	}
	err := t.loop.AsyncReceiveFrom(sock, buf[:cap(buf)], func(n int, src *net.UDPAddr, err error) {
		defer close(done)
		if err != nil {
			if isCancellation(err) {
				recvErr = transerr.ErrReceiveCanceled
			} else {
				recvErr = &transerr.NetworkError{Operation: "receive", Err: err}
			}
			t.log.Info("error while listening on input socket",
				zap.Uint32("port", localLocator.Port), zap.Error(err))
			return
		}
		bytes = n
		remote = LocatorFromUDPAddr(src)
		t.log.Debug("datagram received",
			zap.Int("bytes", n), zap.Stringer("from", src))
	})
	t.inputMu.Unlock()

	if err != nil {
		return 0, Locator{}, err
	}

	<-done
	if recvErr != nil {
		return 0, Locator{}, recvErr
	}
	return bytes, remote, nil
}

// isCancellation classifies the errors produced when a pending receive is
// answered by Cancel (deadline poke) or Close (descriptor gone).
func isCancellation(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, net.ErrClosed)
}
