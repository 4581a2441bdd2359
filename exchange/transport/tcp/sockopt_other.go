//go:build !unix

package tcp

import "syscall"

// reuseAddrControl is a no-op where x/sys/unix is not available
func reuseAddrControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
