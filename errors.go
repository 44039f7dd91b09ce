package reactor

import "errors"

var (
	// ErrAcceptorDisposed is returned by Bind once Dispose has been called.
	// Per §7, everything except Dispose itself is a no-op on a disposed
	// acceptor, and Unbind is exactly that; Bind still surfaces this rather
	// than silently doing nothing, since silently accepting a bind request
	// that never listens would be a worse surprise than an error.
	ErrAcceptorDisposed = errors.New("reactor: acceptor disposed")

	// ErrAlreadyBound is one of the failures Bind can roll back on, when a
	// requested endpoint collides with one this acceptor already owns.
	ErrAlreadyBound = errors.New("reactor: endpoint already bound")
)
