package connpool

import (
	"context"
	"database/sql/driver"
	"errors"
)

// ProbeFunc reports whether an idle or returned connection is still usable.
// Any error marks the connection dead.
type ProbeFunc func(ctx context.Context, c Conn) error

var errConnClosed = errors.New("connpool: connection is closed")

// closedReporter is implemented by connections that track their own state.
type closedReporter interface {
	IsClosed() bool
}

// defaultProbe checks, in order of cost: IsClosed, driver.Validator,
// driver.Pinger. Connections offering none of them are assumed alive.
func defaultProbe(ctx context.Context, c Conn) error {
	if c == nil {
		return errConnClosed
	}
	switch v := c.(type) {
	case closedReporter:
		if v.IsClosed() {
			return errConnClosed
		}
		return nil
	case driver.Validator:
		if !v.IsValid() {
			return driver.ErrBadConn
		}
		return nil
	case driver.Pinger:
		return v.Ping(ctx)
	}
	return nil
}

// probe runs the configured probe under the probe timeout.
func (p *Pool) probe(ctx context.Context, c Conn) error {
	if p.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ProbeTimeout)
		defer cancel()
	}
	return p.probeFn(ctx, c)
}
