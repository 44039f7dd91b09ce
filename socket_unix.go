//go:build !windows

package reactor

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenTCP creates a listening TCP socket by hand instead of going through
// net.Listen, because net.Listen does not let a caller choose the listen
// backlog (the runtime always computes its own via maxListenerBacklog).
// Grounded on the raw-socket construction style in moby/moby's vendored
// mdlayher/socket package: Socket, SetsockoptInt, Bind, Listen, then hand
// the fd to net.FileListener so everything past this point is an ordinary
// net.Listener.
func listenTCP(addr *net.TCPAddr, backlog int, reuseAddress bool) (net.Listener, error) {
	domain := unix.AF_INET
	if addr.IP.To4() == nil {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("reactor: socket: %w", err)
	}
	// fd is only ours to close while no os.File wraps it; os.NewFile below
	// takes over ownership without duplicating the descriptor, so closing
	// fd directly after that point would race a fd number reused by an
	// unrelated goroutine.
	closeFD := true
	defer func() {
		if closeFD {
			unix.Close(fd)
		}
	}()

	if reuseAddress {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return nil, fmt.Errorf("reactor: setsockopt(SO_REUSEADDR): %w", err)
		}
	}

	sa, err := sockaddrFor(domain, addr)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		return nil, fmt.Errorf("reactor: bind %s: %w", addr, err)
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return nil, fmt.Errorf("reactor: listen %s: %w", addr, err)
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("reactor-listener-%s", addr))
	closeFD = false
	defer f.Close()

	l, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("reactor: FileListener: %w", err)
	}
	return l, nil
}

func sockaddrFor(domain int, addr *net.TCPAddr) (unix.Sockaddr, error) {
	switch domain {
	case unix.AF_INET:
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], addr.IP.To4())
		return sa, nil
	case unix.AF_INET6:
		sa := &unix.SockaddrInet6{Port: addr.Port}
		ip := addr.IP.To16()
		if ip == nil {
			ip = net.IPv6zero
		}
		copy(sa.Addr[:], ip)
		return sa, nil
	default:
		return nil, fmt.Errorf("reactor: unsupported address family for %s", addr)
	}
}
