package connpool

import "errors"

var (
	// ErrConfiguration is matched by construction failures caused by a
	// configuration source that is missing, unreadable or invalid.
	ErrConfiguration = errors.New("connpool: configuration error")

	// ErrConnectionUnavailable is returned by Checkout when no connection
	// can be handed out. The opener's error, if any, is wrapped with it.
	ErrConnectionUnavailable = errors.New("connpool: connection unavailable")

	// ErrPoolExhausted accompanies ErrConnectionUnavailable when there is no
	// idle connection and the pool already holds MaxTotal connections.
	ErrPoolExhausted = errors.New("connpool: pool exhausted")

	// ErrUnknownConnection is returned by Release for a connection that is
	// not currently checked out of the pool.
	ErrUnknownConnection = errors.New("connpool: unknown connection")

	// ErrPoolClosed is returned by Checkout after Close.
	ErrPoolClosed = errors.New("connpool: pool closed")
)
