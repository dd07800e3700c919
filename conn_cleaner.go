package connpool

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// maintenanceLoop runs one maintenance tick after MaintenanceInitialDelay and
// then MaintenanceInterval after the previous tick finished, until ctx is
// cancelled. Ticks never overlap.
func (p *Pool) maintenanceLoop(ctx context.Context) {
	defer close(p.done)

	timer := time.NewTimer(p.cfg.MaintenanceInitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		p.runMaintenance(ctx)
		timer.Reset(p.cfg.MaintenanceInterval)
	}
}

// runMaintenance performs one tick: top-up, idle health sweep, active aging.
func (p *Pool) runMaintenance(ctx context.Context) {
	opened := p.topUp(ctx)
	dead := p.pruneIdle(ctx)
	aged := p.retireActive()

	if opened > 0 || dead > 0 || aged > 0 {
		s := p.Stats()
		p.logger.Debug("maintenance tick",
			zap.Int("opened", opened),
			zap.Int("dead", dead),
			zap.Int("aged", aged),
			zap.Int("idle", s.Idle),
			zap.Int("active", s.InUse))
	}
}

// topUp opens connections until MinIdle are idle, the pool is full, or
// TopUpMaxFailures opens in a row failed.
func (p *Pool) topUp(ctx context.Context) (opened int) {
	failures := 0
	for failures < p.cfg.TopUpMaxFailures {
		if ctx.Err() != nil {
			return
		}

		p.mu.Lock()
		if p.closed || p.idle.len() >= p.cfg.MinIdle || !p.reserveLocked() {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		conn, err := p.openLocked(ctx)
		switch {
		case err == ErrPoolClosed:
			p.mu.Unlock()
			conn.Close()
			return
		case err != nil:
			p.mu.Unlock()
			failures++
			p.logger.Warn("top-up open failed",
				zap.Int("failures", failures),
				zap.Int("maxFailures", p.cfg.TopUpMaxFailures),
				zap.Error(err))
		default:
			p.idle.add(newConnRecord(conn))
			p.mu.Unlock()
			failures = 0
			opened++
		}
	}
	return
}

// pruneIdle takes every idle connection out of the pool, probes them, and
// puts the live ones back in front of whatever was released meanwhile, in
// their original order. While probed they count as pending, so Checkout
// never hands one out.
func (p *Pool) pruneIdle(ctx context.Context) int {
	p.mu.Lock()
	probing := p.idle.drain()
	p.pending += len(probing)
	p.mu.Unlock()
	if len(probing) == 0 {
		return 0
	}

	dead := make(map[Conn]struct{})
	for _, r := range probing {
		// Unprobed connections are kept when the tick is cancelled.
		if ctx.Err() != nil {
			break
		}
		if err := p.probe(ctx, r.conn); err != nil {
			dead[r.conn] = struct{}{}
		}
	}

	p.mu.Lock()
	p.pending -= len(probing)
	var closing []connRecord
	fresh := newConnSet(p.cfg.MaxTotal)
	for _, r := range probing {
		if _, isDead := dead[r.conn]; isDead || p.closed {
			closing = append(closing, r)
			continue
		}
		fresh.add(r)
	}
	for _, r := range p.idle.records() {
		fresh.add(r)
	}
	p.idle = fresh
	p.stats.deadClosed += int64(len(dead))
	p.mu.Unlock()

	for _, r := range closing {
		r.conn.Close()
	}
	return len(dead)
}

// retireActive swaps in a fresh active set without the connections checked
// out for MaxActiveAge or longer and closes those.
func (p *Pool) retireActive() int {
	p.mu.Lock()
	now := nowFunc()
	var closing []connRecord
	p.active, closing = p.active.retain(func(r connRecord) bool {
		return !r.leaseExpired(now, p.cfg.MaxActiveAge)
	})
	p.stats.maxLifetimeClosed += int64(len(closing))
	p.mu.Unlock()

	for _, r := range closing {
		p.logger.Debug("closing connection held past max active age",
			zap.Duration("held", now.Sub(r.checkedOutAt)))
		r.conn.Close()
	}
	return len(closing)
}
