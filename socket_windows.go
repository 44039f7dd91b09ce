//go:build windows

package reactor

import "net"

// listenTCP on windows falls back to the standard library: backlog is
// OS-default and reuseAddress is a no-op. Custom backlog/SO_REUSEADDR
// control would require the same manual WSASocket/bind/listen plumbing as
// socket_unix.go's golang.org/x/sys/unix path, mirrored against
// golang.org/x/sys/windows; not worth doing until a caller actually needs
// it on this platform.
func listenTCP(addr *net.TCPAddr, backlog int, reuseAddress bool) (net.Listener, error) {
	return net.ListenTCP("tcp", addr)
}
