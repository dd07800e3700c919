package connpool

import (
	"context"

	"go.uber.org/zap"
)

// Release hands a connection obtained from Checkout back to the pool. It is
// put back into idle unless it has been checked out for MaxActiveAge or
// longer, the probe reports it dead, or the pool was closed meanwhile; in
// those cases it is closed.
//
// Releasing a connection that is not checked out (released twice, never
// checked out, or already closed by maintenance) returns ErrUnknownConnection
// and leaves the pool untouched.
func (p *Pool) Release(conn Conn) error {
	p.mu.Lock()
	r, ok := p.active.remove(conn)
	if !ok {
		p.mu.Unlock()
		return ErrUnknownConnection
	}
	if p.closed {
		p.mu.Unlock()
		conn.Close()
		return nil
	}
	// Keep the slot while the connection is probed.
	p.pending++
	p.mu.Unlock()

	reason := ""
	if r.leaseExpired(nowFunc(), p.cfg.MaxActiveAge) {
		reason = "lease expired"
	} else if err := p.probe(context.Background(), conn); err != nil {
		reason = "dead"
	}

	p.mu.Lock()
	p.pending--
	if reason == "" && !p.closed {
		p.idle.add(r.returned())
		p.stats.released++
		p.mu.Unlock()
		return nil
	}
	p.stats.releaseClosed++
	p.mu.Unlock()

	if reason != "" {
		p.logger.Debug("closing released connection", zap.String("reason", reason))
	}
	conn.Close()
	return nil
}
