package session

import (
	"net"

	"github.com/dualstack/reactor"
)

// Factory is the reference reactor.SessionFactory: it wraps every accepted
// net.Conn in a *Session bound to the Processor that owns it.
type Factory struct{}

// NewSession implements reactor.SessionFactory.
func (Factory) NewSession(processor reactor.SessionProcessor, conn net.Conn) (reactor.Session, error) {
	p, ok := processor.(*Processor)
	if !ok {
		return nil, errNotAProcessor
	}
	return newSession(p, conn), nil
}
