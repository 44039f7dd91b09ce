package session

import "errors"

var (
	errNotASession       = errors.New("session: not a *session.Session")
	errNotAProcessor     = errors.New("session: not a *session.Processor")
	errProcessorDisposed = errors.New("session: processor disposed")
)
