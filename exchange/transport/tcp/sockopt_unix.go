//go:build unix

package tcp

import (
	"golang.org/x/sys/unix"
	"syscall"
)

// reuseAddrControl sets SO_REUSEADDR before the socket is bound
func reuseAddrControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return sockErr
}
