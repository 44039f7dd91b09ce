// Package reactor is a small asynchronous-I/O core: a one-shot completion
// future and an admission-gated TCP acceptor built on top of it.
//
// The framework this core belongs to is larger — a session abstraction, a
// composable inbound/outbound filter chain, codec filters, and a connector
// for outbound connections — but those pieces are external collaborators
// here, named only by the interfaces this package consumes
// (SessionProcessor) or produces (Session, via a SessionFactory). A
// reference implementation of the session/processor boundary lives in
// package session; it exists to make AcceptLoop testable end to end, not as
// a complete filter-chain runtime.
package reactor
