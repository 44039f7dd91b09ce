package reactor

import (
	"errors"
	"fmt"
	"net"

	"github.com/dualstack/reactor/internal/workerpool"
)

// acceptOutcome is the value an accept operation's CompletionFuture
// carries: either a freshly accepted net.Conn, or the error the listener
// produced instead.
type acceptOutcome struct {
	conn net.Conn
	err  error
}

// acceptLoop drives one listener's Armed → Waiting/AcceptInFlight →
// Completing → Armed cycle, terminating at Stopped when the listener is
// closed or the gate it depends on is closed.
type acceptLoop struct {
	owner *AcceptorState
	entry *ListenerEntry
	pool  *workerpool.Pool
	stop  chan struct{}
}

func newAcceptLoop(owner *AcceptorState, entry *ListenerEntry, pool *workerpool.Pool) *acceptLoop {
	return &acceptLoop{owner: owner, entry: entry, pool: pool, stop: make(chan struct{})}
}

func (l *acceptLoop) close() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

// run is the Armed state's loop: it never returns except via Stopped.
func (l *acceptLoop) run() {
	for {
		select {
		case <-l.stop:
			return
		default:
		}

		outcome, stopped := l.acceptOnce()
		if stopped {
			return
		}
		l.complete(outcome)
	}
}

// acceptOnce performs one Armed→{Waiting→AcceptInFlight | AcceptInFlight}
// transition and blocks until it resolves to Completing, or reports that
// the loop should move to Stopped.
func (l *acceptLoop) acceptOnce() (acceptOutcome, bool) {
	if l.owner.gate == nil {
		conn, err := l.entry.Listener.Accept()
		return acceptOutcome{conn: conn, err: err}, false
	}

	// Waiting: dispatch acquire-then-accept to the pool so a saturated
	// gate never blocks the goroutine that also has to notice l.stop.
	future := NewCompletionFuture[acceptOutcome](l.owner.sinkOrDefault())
	l.pool.Submit(func() {
		if err := l.owner.gate.Acquire(); err != nil {
			future.SetValue(acceptOutcome{err: err})
			return
		}
		conn, err := l.entry.Listener.Accept()
		future.SetValue(acceptOutcome{conn: conn, err: err})
	})

	delivered := make(chan acceptOutcome, 1)
	future.AddListener(func(e CompletionEvent[acceptOutcome]) {
		delivered <- e.Future.Value()
	})

	select {
	case <-l.stop:
		// A pool worker may already have acquired a permit and be blocked
		// in Accept() — stopping here without waiting for it would leak
		// that permit forever on a gate that survives this loop (a
		// partial Unbind, as opposed to a full Dispose that discards the
		// gate outright). delivered is buffered, so the worker's
		// SetValue won't block on our abandoning it; drain it on its own
		// goroutine instead and settle the permit there.
		go l.drainAbandoned(delivered)
		return acceptOutcome{}, true
	case outcome := <-delivered:
		if errors.Is(outcome.err, ErrGateClosed) {
			return acceptOutcome{}, true
		}
		return outcome, false
	}
}

// drainAbandoned waits for an accept operation whose loop has already
// moved to Stopped and settles whatever it produced: a permit that was
// never acquired needs nothing, a permit acquired for a failed Accept is
// released, and a permit acquired for a connection that was actually
// accepted is released only after the now-orphaned socket is closed.
func (l *acceptLoop) drainAbandoned(delivered <-chan acceptOutcome) {
	outcome := <-delivered
	if errors.Is(outcome.err, ErrGateClosed) {
		return
	}
	if outcome.conn != nil {
		_ = outcome.conn.Close()
	}
	if l.owner.gate != nil {
		l.owner.gate.Release()
	}
}

// complete handles the Completing state: build a session from the accepted
// socket, hand it to the processor, and report (never propagate) failure.
// The loop always re-arms after this, whatever happened.
func (l *acceptLoop) complete(o acceptOutcome) {
	if o.err != nil {
		if l.owner.gate != nil {
			// Accept itself never produced a session, so nothing will ever
			// fire Destroyed for this permit: release it here instead of
			// leaking it (resolves the source's open question in favor of
			// invariant I6).
			l.owner.gate.Release()
		}
		select {
		case <-l.stop:
			return
		default:
		}
		l.owner.sinkOrDefault().Report(fmt.Errorf("reactor: accept on %s: %w", l.entry.Addr, o.err))
		return
	}

	session, err := l.owner.factory.NewSession(l.owner.processor, o.conn)
	if err != nil {
		_ = o.conn.Close()
		if l.owner.gate != nil {
			l.owner.gate.Release()
		}
		l.owner.sinkOrDefault().Report(fmt.Errorf("reactor: new session for %s: %w", l.entry.Addr, err))
		return
	}

	if err := l.owner.processor.Add(session); err != nil {
		// The session object now exists; its own Destroyed path (owned by
		// the processor, per the SessionProcessor.Add contract) is what
		// eventually releases this permit, not this error branch.
		l.owner.sinkOrDefault().Report(fmt.Errorf("reactor: processor add for %s: %w", l.entry.Addr, err))
	}
}
