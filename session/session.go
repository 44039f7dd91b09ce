// Package session is a reference SessionProcessor/Session/SessionFactory
// implementation for package reactor's acceptor boundary. It exists so
// AcceptLoop is testable against a real accepted socket end to end; it is
// not the filter-chain/codec runtime the wider framework implies — that
// remains out of scope.
//
// The idempotent-close pattern (sync.Once guarding a destroyed channel),
// the locked live-session map, and the vectorised write path are adapted
// from the teacher's Session type, with its stream-multiplexing protocol
// (frame headers, the shaper priority heap, the token-bucket receive
// throttle) dropped: that protocol is exactly the out-of-scope codec/filter
// territory this core treats as an external collaborator.
package session

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sagernet/sing/common/bufio"

	"github.com/dualstack/reactor"
)

// WriteResult mirrors the teacher's writeResult: bytes written plus any
// error, delivered through a CompletionFuture instead of an ad hoc
// single-use channel.
type WriteResult struct {
	N   int
	Err error
}

type writeRequest struct {
	data   []byte
	future *reactor.CompletionFuture[WriteResult]
}

// Session wraps one accepted net.Conn. It satisfies reactor.Session.
type Session struct {
	id        string
	conn      net.Conn
	processor *Processor

	writes chan writeRequest

	destroyed chan struct{}
	closeOnce sync.Once

	lastActivity atomic.Int64 // unix nanos, touched at creation and after every completed write
}

func newSession(processor *Processor, conn net.Conn) *Session {
	s := &Session{
		id:        uuid.NewString(),
		conn:      conn,
		processor: processor,
		writes:    make(chan writeRequest),
		destroyed: make(chan struct{}),
	}
	s.touch()
	go s.sendLoop()
	return s
}

// ID implements reactor.Session.
func (s *Session) ID() string { return s.id }

// RemoteAddr returns the accepted connection's remote address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Destroyed implements reactor.Session.
func (s *Session) Destroyed() <-chan struct{} { return s.destroyed }

// LastActivity reports when the send loop last completed a write, or when
// the session was created if it has not written yet, for idle detection.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Write queues data for the session's send loop and returns a future that
// completes once the write lands on the wire (or fails). Mirrors the
// teacher's writeFrameInternal, minus framing and the priority shaper —
// this session has no competing control-plane traffic to prioritize over.
func (s *Session) Write(data []byte) *reactor.CompletionFuture[WriteResult] {
	future := reactor.NewCompletionFuture[WriteResult](nil)
	select {
	case s.writes <- writeRequest{data: data, future: future}:
	case <-s.destroyed:
		future.SetValue(WriteResult{Err: io.ErrClosedPipe})
	}
	return future
}

// sendLoop is the teacher's sendLoop, stripped of frame headers: it writes
// queued payloads using a vectorised writer when the underlying connection
// supports one, exactly as the teacher's bufio.CreateVectorisedWriter /
// WriteVectorised path does.
func (s *Session) sendLoop() {
	bw, vectorised := bufio.CreateVectorisedWriter(s.conn)

	for {
		select {
		case <-s.destroyed:
			return
		case req := <-s.writes:
			var n int
			var err error
			if vectorised {
				n, err = bufio.WriteVectorised(bw, [][]byte{req.data})
			} else {
				n, err = s.conn.Write(req.data)
			}
			s.touch()
			req.future.SetValue(WriteResult{N: n, Err: err})
			if err != nil {
				s.Close()
				return
			}
		}
	}
}

// Close is idempotent: the first call closes the underlying connection,
// closes Destroyed, and reports the destruction to the owning processor so
// AcceptorState's admission permit for this session is released.
func (s *Session) Close() *reactor.CompletionFuture[struct{}] {
	future := reactor.NewCompletionFuture[struct{}](nil)
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		close(s.destroyed)
		s.processor.notifyDestroyed(s)
	})
	future.SetValue(struct{}{})
	return future
}
