package connpool

import (
	"context"
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"connpool/config"
)

// Pool is a bounded pool of reusable connections. It's safe for concurrent
// use by multiple goroutines.
//
// Connections are handed out with Checkout and handed back with Release. A
// background maintenance goroutine keeps MinIdle connections ready, closes
// idle connections that died and closes connections that stayed checked out
// longer than MaxActiveAge.
type Pool struct {
	cfg     PoolConfig
	values  map[string]string // resolved configuration, passed to the opener
	source  string
	opener  Opener
	probeFn ProbeFunc
	logger  *zap.Logger

	mu     deadlock.Mutex // protects following fields
	idle   *connSet
	active *connSet
	// pending counts connections that are in flight: being opened, or
	// taken out of active by a Release that has not finished yet. They
	// occupy a slot of MaxTotal.
	pending int
	closed  bool
	stats   counters

	// stop cancels the maintenance goroutine; done is closed when it exits.
	stop context.CancelFunc
	done chan struct{}
}

// New resolves the configuration from src and starts the maintenance
// goroutine. maxTotal > 0 overrides the max-total setting of src.
//
// Any error matches ErrConfiguration.
func New(maxTotal int, src config.Source, opts ...Option) (*Pool, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrConfiguration)
	}
	values, err := src.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	cfg, err := parsePoolConfig(values, maxTotal, &o)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, src, err)
	}

	p := &Pool{
		cfg:     cfg,
		values:  values,
		source:  src.String(),
		opener:  o.opener,
		probeFn: o.probe,
		logger:  o.logger,
		idle:    newConnSet(cfg.MaxTotal),
		active:  newConnSet(cfg.MaxTotal),
		done:    make(chan struct{}),
	}
	if p.opener == nil {
		p.opener = DriverOpener
	}
	if p.probeFn == nil {
		p.probeFn = defaultProbe
	}
	if p.logger == nil {
		p.logger = zap.L()
	}
	p.logger = p.logger.Named("connpool").With(zap.String("source", p.source))

	ctx, cancel := context.WithCancel(context.Background())
	p.stop = cancel
	go p.maintenanceLoop(ctx)

	p.logger.Info("pool started",
		zap.Int("maxTotal", cfg.MaxTotal),
		zap.Int("minIdle", cfg.MinIdle),
		zap.Duration("maxActiveAge", cfg.MaxActiveAge),
		zap.Duration("interval", cfg.MaintenanceInterval))
	return p, nil
}

// Config returns the resolved configuration.
func (p *Pool) Config() PoolConfig {
	return p.cfg
}

// Close stops maintenance and closes every idle and checked out connection.
// Checkout fails with ErrPoolClosed afterwards. Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Wait for an in-flight tick; its context is cancelled so it starts no
	// further opens.
	p.stop()
	<-p.done

	p.mu.Lock()
	closing := append(p.idle.drain(), p.active.drain()...)
	p.mu.Unlock()

	var err error
	for _, r := range closing {
		err = multierr.Append(err, r.conn.Close())
	}
	p.logger.Info("pool closed", zap.Int("closed", len(closing)), zap.Error(err))
	return err
}

// totalLocked is the number of slots of MaxTotal in use.
func (p *Pool) totalLocked() int {
	return p.idle.len() + p.active.len() + p.pending
}

// reserveLocked takes a slot for a connection about to be opened.
func (p *Pool) reserveLocked() bool {
	if p.totalLocked() >= p.cfg.MaxTotal {
		return false
	}
	p.pending++
	return true
}

// openLocked calls the opener for a slot taken with reserveLocked. It is
// entered without p.mu and returns with p.mu held and the slot given back.
// After Close it returns the opened connection together with ErrPoolClosed;
// the caller closes it once p.mu is released.
func (p *Pool) openLocked(ctx context.Context) (Conn, error) {
	conn, err := p.opener.Open(ctx, p.values)
	if err == nil && conn == nil {
		err = fmt.Errorf("connpool: opener returned nil connection")
	}

	p.mu.Lock()
	p.pending--
	if err != nil {
		p.stats.openFailures++
		return nil, err
	}
	if p.closed {
		return conn, ErrPoolClosed
	}
	p.stats.opened++
	return conn, nil
}
