package connpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"connpool/config"
)

type fakeConn struct {
	id     int
	closed atomic.Bool
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) IsClosed() bool {
	return c.closed.Load()
}

func (c *fakeConn) String() string {
	return fmt.Sprintf("conn-%d", c.id)
}

var errOpenRefused = errors.New("connection refused")

// fakeOpener hands out sequentially numbered connections.
type fakeOpener struct {
	mu    sync.Mutex
	calls int
	fail  bool
	conns []*fakeConn
}

func (o *fakeOpener) Open(ctx context.Context, _ map[string]string) (Conn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.fail {
		return nil, errOpenRefused
	}
	c := &fakeConn{id: len(o.conns) + 1}
	o.conns = append(o.conns, c)
	return c, nil
}

func (o *fakeOpener) setFail(fail bool) {
	o.mu.Lock()
	o.fail = fail
	o.mu.Unlock()
}

func (o *fakeOpener) numCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func (o *fakeOpener) opened() []*fakeConn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeConn(nil), o.conns...)
}

// manualConfig keeps the scheduled maintenance out of the way so tests
// drive ticks with runMaintenance.
func manualConfig() config.Map {
	return config.Map{
		"active-time":               "60000",
		"maintenance-initial-delay": "3600000",
		"maintenance-interval":      "3600000",
	}
}

func newTestPool(t *testing.T, maxTotal int, opener Opener, opts ...Option) *Pool {
	t.Helper()
	opts = append([]Option{WithOpener(opener), WithLogger(zaptest.NewLogger(t))}, opts...)
	p, err := New(maxTotal, manualConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

// checkMembership fails when a connection is in both sets or the sets hold
// more than MaxTotal connections.
func checkMembership(t *testing.T, p *Pool) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.LessOrEqual(t, p.totalLocked(), p.cfg.MaxTotal)
	for _, r := range p.idle.records() {
		_, inActive := p.active.get(r.conn)
		require.False(t, inActive, "%v is both idle and active", r.conn)
	}
}

// waitTimeout waits for the waitgroup for the specified max timeout.
// Returns true if waiting timed out.
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	c := make(chan struct{})

	go func() {
		defer close(c)
		wg.Wait()
	}()

	select {
	case <-c:
		return false // completed normally
	case <-time.After(timeout):
		return true // timed out
	}
}
