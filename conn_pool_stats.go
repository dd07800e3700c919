package connpool

// counters are guarded by Pool.mu.
type counters struct {
	opened            int64
	openFailures      int64
	checkedOut        int64
	released          int64
	releaseClosed     int64
	deadClosed        int64
	maxLifetimeClosed int64
}

// PoolStats contains pool statistics.
type PoolStats struct {
	MaxTotal int // Maximum number of connections, idle plus in use plus pending.
	MinIdle  int // Idle target of the maintenance top-up.

	// Pool Status
	Idle    int // The number of idle connections.
	InUse   int // The number of connections currently checked out.
	Pending int // The number of connections being opened or released.

	// Counters
	Opened            int64 // The total number of connections opened.
	OpenFailures      int64 // The total number of failed opener calls.
	CheckedOut        int64 // The total number of successful Checkout calls.
	Released          int64 // The total number of connections returned to idle by Release.
	ReleaseClosed     int64 // The total number of connections closed by Release.
	DeadClosed        int64 // The total number of idle connections closed by the health sweep.
	MaxLifetimeClosed int64 // The total number of connections closed for exceeding the max active age.
}

// Stats returns pool statistics. Sizes are read from the idle and active
// sets in the same critical section, so Idle+InUse+Pending never exceeds
// MaxTotal.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		MaxTotal: p.cfg.MaxTotal,
		MinIdle:  p.cfg.MinIdle,

		Idle:    p.idle.len(),
		InUse:   p.active.len(),
		Pending: p.pending,

		Opened:            p.stats.opened,
		OpenFailures:      p.stats.openFailures,
		CheckedOut:        p.stats.checkedOut,
		Released:          p.stats.released,
		ReleaseClosed:     p.stats.releaseClosed,
		DeadClosed:        p.stats.deadClosed,
		MaxLifetimeClosed: p.stats.maxLifetimeClosed,
	}
}
