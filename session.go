package reactor

import "net"

// Session is the opaque external type this core hands off to a
// SessionProcessor after a successful accept. The core itself only ever
// needs an identity distinct from other live sessions and a signal for
// when the session is destroyed; everything else (I/O, the filter chain,
// codecs) belongs to the session/processor implementation.
type Session interface {
	// ID distinguishes this session from every other currently-live
	// session.
	ID() string

	// Destroyed returns a channel closed exactly once, when this session
	// is torn down. AcceptorState does not read this directly — it
	// subscribes to the owning SessionProcessor's Destroyed() channel,
	// which is expected to fan every session's destruction through to one
	// stream — but implementations still expose it per-session for callers
	// that only hold a Session reference.
	Destroyed() <-chan struct{}
}

// SessionProcessor is the external collaborator that owns session I/O and
// lifecycle after accept. AcceptorState consumes exactly this surface: a
// non-blocking Add, a fan-in destroyed-session stream it subscribes to while
// an admission gate exists, an idle checker it starts/stops alongside
// bind/unbind, and Dispose at acceptor shutdown.
type SessionProcessor interface {
	// Add enqueues a newly accepted session. Add must not block on I/O; if
	// it returns an error the accept loop reports it to the ExceptionSink
	// and re-arms. A session that fails Add is still a live Session object
	// — the processor, not the acceptor, is responsible for closing its
	// socket and driving it through the normal Destroyed path so the
	// admission permit acquired for it is eventually released.
	Add(session Session) error

	// Destroyed is a single stream every session's destruction is fanned
	// into, fired exactly once per session. When MaxConnections > 0,
	// AcceptorState reads this from the first Bind until the listener set
	// empties and releases one AdmissionGate permit per value received; with
	// MaxConnections <= 0 it never reads it.
	Destroyed() <-chan Session

	// IdleChecker returns the checker AcceptorState starts when the first
	// listener is bound and stops when the listener set empties (or at
	// Dispose, which subsumes a full unbind).
	IdleChecker() IdleStatusChecker

	// Dispose releases whatever the processor owns. Called once, at
	// acceptor Dispose.
	Dispose()
}

// IdleStatusChecker is started once bind produces at least one live
// listener and stopped when the last one is removed.
type IdleStatusChecker interface {
	Start()
	Stop()
}

// SessionFactory is the injected capability object standing in for the
// acceptor's virtual subclass hooks (NewSession / BeginAccept in the source
// material): no inheritance, just an interface with exactly the methods a
// caller needs to customize.
type SessionFactory interface {
	// NewSession builds a Session around a freshly accepted connection. An
	// error here is reported to the ExceptionSink as a session-init
	// failure; conn is closed by the caller of NewSession in that case,
	// since no Session object exists yet to own that responsibility.
	NewSession(processor SessionProcessor, conn net.Conn) (Session, error)
}
