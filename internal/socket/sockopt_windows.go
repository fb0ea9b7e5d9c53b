//go:build windows

package socket

import "syscall"

// reuseControl applies address-reuse options before bind. Windows has no
// SO_REUSEPORT; SO_REUSEADDR alone already permits rebinding a UDP port.
func reuseControl(network, address string, c syscall.RawConn) error {
	var optErr error
	err := c.Control(func(fd uintptr) {
		optErr = syscall.SetsockoptInt(syscall.Handle(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return optErr
}
