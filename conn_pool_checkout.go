package connpool

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Checkout returns the oldest idle connection, opening one first if no
// connection is idle. The caller owns the connection until it hands it back
// with Release.
//
// Checkout blocks at most for a single opener call and never waits for a
// connection to be released: when nothing is idle and the pool already holds
// MaxTotal connections it fails at once with an error matching both
// ErrConnectionUnavailable and ErrPoolExhausted. An opener failure is
// returned wrapped with ErrConnectionUnavailable.
func (p *Pool) Checkout(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	if p.idle.len() == 0 {
		if !p.reserveLocked() {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: %w", ErrConnectionUnavailable, ErrPoolExhausted)
		}
		p.mu.Unlock()

		conn, err := p.openLocked(ctx)
		if err == ErrPoolClosed {
			p.mu.Unlock()
			conn.Close()
			return nil, ErrPoolClosed
		}
		if err != nil {
			p.mu.Unlock()
			p.logger.Warn("open failed on checkout", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
		}
		p.idle.add(newConnRecord(conn))
	}

	r, _ := p.idle.removeOldest()
	p.active.add(r.checkedOut(nowFunc()))
	p.stats.checkedOut++
	p.mu.Unlock()
	return r.conn, nil
}
