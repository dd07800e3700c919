package connpool

import (
	"errors"
	"fmt"

	cmap "github.com/orcaman/concurrent-map"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/multierr"

	"connpool/config"
)

var errPoolFacadeClosed = errors.New("connpool: pool facade closed")

// PoolFacade keeps one Pool per endpoint. Pools created through the facade
// are independent: each has its own limits, state and maintenance goroutine.
type PoolFacade struct {
	pools cmap.ConcurrentMap // Credentials.GetId() -> *Pool; read lock-free by Stats
	opts  []Option

	mu     deadlock.Mutex // serializes Pool and Close
	closed bool
}

// NewPoolFacade returns an empty facade. opts are applied to every pool it
// creates.
func NewPoolFacade(opts ...Option) *PoolFacade {
	return &PoolFacade{
		pools: cmap.New(),
		opts:  opts,
	}
}

// Pool returns the pool for the endpoint configured by src, creating it on
// first use. After Close it fails with errPoolFacadeClosed, also for
// endpoints that already have a pool.
func (f *PoolFacade) Pool(src config.Source) (*Pool, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrConfiguration)
	}
	values, err := src.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	id := CredentialsFrom(values).GetId()

	// Lookups take f.mu as well, so no pool is handed out once Close started.
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errPoolFacadeClosed
	}
	if tmp, ok := f.pools.Get(id); ok {
		return tmp.(*Pool), nil
	}
	p, err := New(0, config.Map(values), f.opts...)
	if err != nil {
		return nil, err
	}
	f.pools.Set(id, p)
	return p, nil
}

// Stats returns the stats of every pool keyed by endpoint id.
func (f *PoolFacade) Stats() map[string]PoolStats {
	out := make(map[string]PoolStats, f.pools.Count())
	for tuple := range f.pools.IterBuffered() {
		out[tuple.Key] = tuple.Val.(*Pool).Stats()
	}
	return out
}

// Close closes every pool. Pool fails afterwards.
func (f *PoolFacade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	for key, tmp := range f.pools.Items() {
		f.pools.Remove(key)
		err = multierr.Append(err, tmp.(*Pool).Close())
	}
	return err
}
