//go:build unix

package socket

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseControl applies address-reuse options before bind so multiple
// transports on one host can share an input port. SO_REUSEPORT is required
// for that on Linux and the BSDs; SO_REUSEADDR alone is not enough for two
// live binds of the same UDP port.
func reuseControl(network, address string, c syscall.RawConn) error {
	var optErr error
	err := c.Control(func(fd uintptr) {
		if optErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); optErr != nil {
			return
		}
		optErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return optErr
}
