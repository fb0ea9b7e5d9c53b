package transport

import (
	"fmt"
	"net"
)

// Locator kinds. A transport serves exactly one kind; operations handed a
// locator of any other kind fail closed rather than erroring loudly.
const (
	LocatorKindInvalid  int32 = -1
	LocatorKindReserved int32 = 0
	LocatorKindUDPv4    int32 = 1
	LocatorKindUDPv6    int32 = 2
)

// multicastMarker is the leading byte of every IPv6 multicast address.
const multicastMarker = 0xFF

// Locator identifies a transport endpoint: an address kind, a 16-byte
// address, and a port. It is an immutable value, comparable with ==, and
// usable as a map key.
//
// Whether two locators name the same channel depends on the transport's
// addressing mode; use UDPv6Transport.DoLocatorsMatch, not raw equality,
// when asking that question.
type Locator struct {
	Kind    int32
	Port    uint32
	Address [16]byte
}

// NewUDPv6Locator builds a UDPv6 locator from an IP and port. A nil ip
// yields the wildcard (all-zero) address.
func NewUDPv6Locator(ip net.IP, port uint32) Locator {
	l := Locator{Kind: LocatorKindUDPv6, Port: port}
	if ip16 := ip.To16(); ip16 != nil {
		copy(l.Address[:], ip16)
	}
	return l
}

// LocatorFromUDPAddr translates a sender's network address into a locator.
func LocatorFromUDPAddr(addr *net.UDPAddr) Locator {
	return NewUDPv6Locator(addr.IP, uint32(addr.Port))
}

// IP returns the locator's address as a net.IP.
func (l Locator) IP() net.IP {
	ip := make(net.IP, net.IPv6len)
	copy(ip, l.Address[:])
	return ip
}

// IsMulticast reports whether the locator names an IPv6 multicast group.
func (l Locator) IsMulticast() bool {
	return l.Address[0] == multicastMarker
}

// IsWildcard reports whether the locator carries the all-zero any-address.
func (l Locator) IsWildcard() bool {
	return l.Address == [16]byte{}
}

// UDPAddr returns the locator as a dialable UDP address.
func (l Locator) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: l.IP(), Port: int(l.Port)}
}

func (l Locator) String() string {
	return fmt.Sprintf("[%s]:%d", l.IP(), l.Port)
}
