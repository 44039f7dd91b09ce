package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionWriteDeliversBytes(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	p := NewProcessor(0, 0)
	s := newSession(p, serverConn)
	defer s.Close()

	done := make(chan struct{})
	var got []byte
	go func() {
		buf := make([]byte, 5)
		n, _ := clientConn.Read(buf)
		got = buf[:n]
		close(done)
	}()

	future := s.Write([]byte("hello"))
	future.Await()
	res := future.Value()
	require.NoError(t, res.Err)
	assert.Equal(t, 5, res.N)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("client never received the write")
	}
	assert.Equal(t, "hello", string(got))
}

func TestSessionCloseIsIdempotentAndNotifiesProcessor(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	p := NewProcessor(0, 0)
	s := newSession(p, serverConn)
	require.NoError(t, p.Add(s))

	s.Close().Await()
	s.Close().Await() // idempotent

	select {
	case destroyed := <-p.Destroyed():
		assert.Equal(t, s.ID(), destroyed.ID())
	case <-time.After(time.Second):
		t.Fatal("processor never observed destruction")
	}

	assert.Empty(t, p.Snapshot())
}

func TestSessionWriteAfterCloseFailsFast(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	p := NewProcessor(0, 0)
	s := newSession(p, serverConn)
	s.Close().Await()

	res := s.Write([]byte("x")).Await().Value()
	assert.Error(t, res.Err)
}
