//go:build !unix

package dhcpsvc

import "syscall"

// listenControl is used as [net.ListenConfig.Control].  The socket options
// aren't set on this platform.
func listenControl(_, _ string, _ syscall.RawConn) (err error) {
	return nil
}
