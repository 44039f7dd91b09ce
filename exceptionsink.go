package reactor

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ExceptionSink is the process-wide reporter for errors raised on
// goroutines that have no caller to return an error to: a listener panic,
// an accept failure, a failed SessionProcessor.Add. It is modelled as an
// explicit injectable with a process-wide default, rather than hidden
// singleton state — callers that want a different destination (tests,
// a different logger) construct their own AcceptorState with a non-nil
// sink instead of mutating global state.
type ExceptionSink interface {
	Report(err error)
}

// ExceptionSinkFunc adapts a plain function to ExceptionSink.
type ExceptionSinkFunc func(err error)

// Report implements ExceptionSink.
func (f ExceptionSinkFunc) Report(err error) { f(err) }

// DefaultExceptionSink is used by any CompletionFuture, AcceptLoop, or
// AcceptorState constructed without an explicit sink. It logs via logrus at
// error level. Replacing it affects every subsequent use of the zero-value
// default; it does not affect sinks already captured by existing
// constructions.
var DefaultExceptionSink ExceptionSink = ExceptionSinkFunc(func(err error) {
	logrus.WithError(err).Error("reactor: unhandled background error")
})

type listenerPanic struct {
	recovered any
}

func (p *listenerPanic) Error() string {
	return fmt.Sprintf("reactor: completion listener panicked: %v", p.recovered)
}

// listenerIdentity returns a comparable identity for a func value so
// RemoveListener can find the first occurrence of a previously-registered
// handler. Two listeners created from the same function (not a closure
// literal passed twice) compare equal; this matches how callers are
// expected to use AddListener/RemoveListener — keep the handler in a
// variable to remove it later.
func listenerIdentity[V any](l Listener[V]) uintptr {
	return reflectFuncPointer(l)
}
