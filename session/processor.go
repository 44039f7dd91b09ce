package session

import (
	"sync"
	"time"

	"github.com/dualstack/reactor"
)

// Processor is the reference reactor.SessionProcessor. It tracks live
// sessions in a locked map — the same shape as the teacher's
// streams/streamLock pair — and fans every session's destruction into one
// channel for AcceptorState to subscribe to.
type Processor struct {
	mu       sync.Mutex
	sessions map[string]*Session
	disposed bool

	destroyed chan reactor.Session

	idle *TickerIdleChecker
}

// NewProcessor returns a Processor with its idle checker wired to sweep
// this processor's own managed-session snapshot every interval, closing
// any session idle longer than idleTimeout.
func NewProcessor(interval, idleTimeout time.Duration) *Processor {
	p := &Processor{
		sessions:  make(map[string]*Session),
		destroyed: make(chan reactor.Session, 64),
	}
	p.idle = newTickerIdleChecker(interval, idleTimeout, p.Snapshot)
	return p
}

// Add implements reactor.SessionProcessor. A session rejected because the
// processor is disposed is closed before Add returns, so its destruction is
// reported like any other.
func (p *Processor) Add(s reactor.Session) error {
	sess, ok := s.(*Session)
	if !ok {
		return errNotASession
	}
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		sess.Close()
		return errProcessorDisposed
	}
	p.sessions[sess.ID()] = sess
	p.mu.Unlock()
	return nil
}

// Destroyed implements reactor.SessionProcessor.
func (p *Processor) Destroyed() <-chan reactor.Session { return p.destroyed }

// IdleChecker implements reactor.SessionProcessor.
func (p *Processor) IdleChecker() reactor.IdleStatusChecker { return p.idle }

// Dispose implements reactor.SessionProcessor. It marks the processor unable
// to accept further sessions, then closes every remaining managed session
// (each of which reports its own destruction).
func (p *Processor) Dispose() {
	p.mu.Lock()
	p.disposed = true
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// Snapshot returns the live managed-session set, for the idle checker (and
// any other caller wanting a read-only enumeration) to range over without
// holding the processor's lock.
func (p *Processor) Snapshot() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		out = append(out, s)
	}
	return out
}

// notifyDestroyed is called by a Session's Close, exactly once per
// session, to both stop tracking it and fan its destruction out to
// AcceptorState's subscriber. The send is non-blocking: when maxConnections
// <= 0, AcceptorState never starts a subscriber on Destroyed() at all (no
// gate means nothing to release a permit for), so nothing drains this
// channel — a blocking send there would wedge every future Close inside
// closeOnce.Do once the buffer filled. Callers that do want every
// destruction, gate or not, should read Destroyed() themselves rather than
// rely on this buffer as a queue.
func (p *Processor) notifyDestroyed(s *Session) {
	p.mu.Lock()
	delete(p.sessions, s.ID())
	p.mu.Unlock()
	select {
	case p.destroyed <- s:
	default:
	}
}
