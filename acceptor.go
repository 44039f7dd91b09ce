package reactor

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dualstack/reactor/internal/workerpool"
)

// Config is the acceptor's immutable default session-config template:
// maxConnections <= 0 disables admission control entirely (no
// AdmissionGate is ever constructed), matching invariant I5.
type Config struct {
	MaxConnections int
	Backlog        int
	ReuseAddress   bool

	// ReuseBuffer is carried through to whatever SessionFactory this
	// acceptor is constructed with; the acceptor core never reads a byte
	// off an accepted socket itself, so it has nothing to recycle a buffer
	// for. package session's Factory does not read it either, since its
	// reference Session has no receive-buffer pool of its own.
	ReuseBuffer bool

	// PoolSize bounds how many acquire-then-accept operations may run
	// concurrently across all of this acceptor's listeners. <= 0 defaults
	// to 32.
	PoolSize int
}

// AcceptorState binds multiple TCP endpoints, bounds concurrently live
// sessions via an AdmissionGate, and dispatches accepted sockets to a
// SessionProcessor through a SessionFactory.
type AcceptorState struct {
	cfg       Config
	processor SessionProcessor
	factory   SessionFactory
	sink      ExceptionSink

	mu          sync.Mutex // guards gate, loops, idleStarted, destroySub lifecycle
	listeners   *ListenerSet
	gate        *AdmissionGate
	pool        *workerpool.Pool
	loops       map[string]*acceptLoop
	idleStarted bool
	destroyStop chan struct{}
	destroyWG   sync.WaitGroup

	disposed atomic.Bool
}

// NewAcceptorState constructs an unbound acceptor. processor and factory
// must be non-nil; a nil sink falls back to DefaultExceptionSink.
func NewAcceptorState(cfg Config, processor SessionProcessor, factory SessionFactory, sink ExceptionSink) *AcceptorState {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 32
	}
	return &AcceptorState{
		cfg:       cfg,
		processor: processor,
		factory:   factory,
		sink:      sink,
		listeners: NewListenerSet(),
		pool:      workerpool.New(poolSize),
		loops:     make(map[string]*acceptLoop),
	}
}

func (a *AcceptorState) sinkOrDefault() ExceptionSink {
	if a.sink != nil {
		return a.sink
	}
	return DefaultExceptionSink
}

// Bind is all-or-nothing: either every requested endpoint ends up
// listening and installed, or none do. A nil endpoint in the slice is
// treated as the wildcard address.
func (a *AcceptorState) Bind(endpoints []net.Addr) ([]net.Addr, error) {
	if a.disposed.Load() {
		return nil, ErrAcceptorDisposed
	}
	if len(endpoints) == 0 {
		return nil, nil
	}

	opened := make([]net.Listener, 0, len(endpoints))
	resolved := make([]*net.TCPAddr, 0, len(endpoints))

	rollback := func(cause error) error {
		for _, l := range opened {
			if cerr := l.Close(); cerr != nil {
				a.sinkOrDefault().Report(fmt.Errorf("reactor: rollback close: %w", cerr))
			}
		}
		return cause
	}

	for _, requested := range endpoints {
		tcpAddr, err := resolveWildcard(requested)
		if err != nil {
			return nil, rollback(err)
		}
		if _, exists := a.listeners.Get(tcpAddr); exists {
			return nil, rollback(fmt.Errorf("%w: %s", ErrAlreadyBound, tcpAddr))
		}
		l, err := listenTCP(tcpAddr, a.cfg.Backlog, a.cfg.ReuseAddress)
		if err != nil {
			return nil, rollback(err)
		}
		opened = append(opened, l)
		resolved = append(resolved, tcpAddr)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cfg.MaxConnections > 0 && a.gate == nil {
		a.gate = NewAdmissionGate(a.cfg.MaxConnections)
	}

	actual := make([]net.Addr, 0, len(opened))
	for _, l := range opened {
		entry := &ListenerEntry{Addr: l.Addr(), Listener: l}
		a.listeners.install(entry)
		loop := newAcceptLoop(a, entry, a.pool)
		a.loops[entry.Addr.String()] = loop
		go loop.run()
		actual = append(actual, entry.Addr)
	}

	if !a.idleStarted {
		a.processor.IdleChecker().Start()
		a.idleStarted = true
	}
	if a.gate != nil && a.destroyStop == nil {
		a.destroyStop = make(chan struct{})
		a.destroyWG.Add(1)
		go a.runDestroySubscriber(a.destroyStop)
	}

	return actual, nil
}

// runDestroySubscriber releases one gate permit per session the processor
// reports as destroyed. This is the release path for every session that was
// handed to the processor; the only other releases are in acceptLoop.complete
// (a failed Accept or NewSession) and acceptLoop.drainAbandoned. Losing this
// goroutine manifests as monotonic admission-budget leakage.
func (a *AcceptorState) runDestroySubscriber(stop <-chan struct{}) {
	defer a.destroyWG.Done()
	ch := a.processor.Destroyed()
	for {
		select {
		case <-stop:
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			a.mu.Lock()
			gate := a.gate
			a.mu.Unlock()
			if gate != nil {
				gate.Release()
			}
		}
	}
}

// Unbind closes and removes each requested endpoint that is currently
// bound; endpoints not currently bound are silently skipped. Calling
// Unbind twice with the same set is equivalent to calling it once
// (invariant 6).
func (a *AcceptorState) Unbind(endpoints []net.Addr) {
	if a.disposed.Load() {
		return
	}
	a.unbindAll(endpoints)
}

func (a *AcceptorState) unbindAll(endpoints []net.Addr) {
	a.mu.Lock()
	for _, requested := range endpoints {
		tcpAddr, err := resolveWildcard(requested)
		if err != nil {
			continue
		}
		entry, ok := a.listeners.remove(tcpAddr)
		if !ok {
			continue
		}
		if loop, ok := a.loops[entry.Addr.String()]; ok {
			loop.close()
			delete(a.loops, entry.Addr.String())
		}
		_ = entry.Listener.Close()
	}
	empty := a.listeners.Len() == 0
	a.mu.Unlock()

	if empty {
		a.quiesce()
	}
}

// quiesce stops the idle checker and tears down the admission gate once no
// listener remains bound. Safe to call more than once.
func (a *AcceptorState) quiesce() {
	a.mu.Lock()
	if a.idleStarted {
		a.processor.IdleChecker().Stop()
		a.idleStarted = false
	}
	gate := a.gate
	a.gate = nil
	stop := a.destroyStop
	a.destroyStop = nil
	a.mu.Unlock()

	if stop != nil {
		close(stop)
		a.destroyWG.Wait()
	}
	if gate != nil {
		gate.Close()
	}
}

// Dispose is idempotent and subsumes a full Unbind: whether or not the
// caller ever unbound every listener itself, Dispose always stops the idle
// checker and releases the admission gate.
func (a *AcceptorState) Dispose() {
	if !a.disposed.CompareAndSwap(false, true) {
		return
	}

	a.mu.Lock()
	remaining := a.listeners.Snapshot()
	a.mu.Unlock()

	endpoints := make([]net.Addr, 0, len(remaining))
	for _, e := range remaining {
		endpoints = append(endpoints, e.Addr)
	}
	a.unbindAll(endpoints)

	a.quiesce() // idempotent even if unbindAll above already quiesced
	a.pool.Close()
	a.processor.Dispose()
}
