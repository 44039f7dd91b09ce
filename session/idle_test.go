package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTickerIdleCheckerClosesIdleSessions(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	p := NewProcessor(15*time.Millisecond, 30*time.Millisecond)
	s := newSession(p, serverConn)
	require.NoError(t, p.Add(s))

	p.IdleChecker().Start()
	defer p.IdleChecker().Stop()

	select {
	case <-s.Destroyed():
	case <-time.After(time.Second):
		t.Fatal("idle session was never closed")
	}
}

func TestTickerIdleCheckerStartStopIsIdempotent(t *testing.T) {
	c := newTickerIdleChecker(time.Hour, time.Hour, func() []*Session { return nil })
	c.Start()
	c.Start()
	c.Stop()
	c.Stop()
}
