package reactor

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrGateClosed is returned by AdmissionGate.Acquire once the gate has been
// closed, whether or not a caller was already blocked in Acquire at the
// time of the close.
var ErrGateClosed = errors.New("reactor: admission gate closed")

// AdmissionGate is a counting semaphore sized to maxConnections: acquired
// once per in-flight accept, released exactly once per session destruction
// (or per failed accept that never produced a session). Close permanently
// disables further acquires and unblocks anyone already waiting.
type AdmissionGate struct {
	sem *semaphore.Weighted
	max int64

	inUse atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewAdmissionGate constructs a gate with the given permit count. Callers
// must pass maxConnections > 0; a gate is never constructed for
// maxConnections <= 0 (invariant I5 — the AcceptorState simply has no gate
// in that case).
func NewAdmissionGate(maxConnections int) *AdmissionGate {
	ctx, cancel := context.WithCancel(context.Background())
	return &AdmissionGate{
		sem:    semaphore.NewWeighted(int64(maxConnections)),
		max:    int64(maxConnections),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Acquire blocks until a permit is available or the gate is closed.
func (g *AdmissionGate) Acquire() error {
	if err := g.sem.Acquire(g.ctx, 1); err != nil {
		// The only way Acquire can fail here is g.ctx being canceled by
		// Close; map that to a sink-free, gate-specific sentinel instead
		// of letting context.Canceled leak past this boundary.
		return ErrGateClosed
	}
	g.inUse.Add(1)
	return nil
}

// Release returns one permit.
func (g *AdmissionGate) Release() {
	g.inUse.Add(-1)
	g.sem.Release(1)
}

// Close permanently disables further Acquire calls, unblocking anyone
// already waiting with ErrGateClosed. Close is idempotent.
func (g *AdmissionGate) Close() {
	g.cancel()
}

// InUse returns the number of currently outstanding (acquired but not yet
// released) permits. Exposed for the admission-conservation test property:
// InUse() + (max - InUse()) == max always holds, and at quiescent points
// InUse() equals live-sessions + in-flight-accepts.
func (g *AdmissionGate) InUse() int64 {
	return g.inUse.Load()
}

// Max returns the configured permit ceiling.
func (g *AdmissionGate) Max() int64 {
	return g.max
}
