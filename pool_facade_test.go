package connpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connpool/config"
)

func endpoint(url string) config.Map {
	values := manualConfig()
	values["driver"] = "fake"
	values["url"] = url
	values["username"] = "root"
	values["max-total"] = "4"
	return values
}

func TestPoolFacadeReusesPools(t *testing.T) {
	t.Parallel()

	f := NewPoolFacade(WithOpener(&fakeOpener{}))
	defer f.Close()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		pools = make(map[*Pool]struct{})
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := f.Pool(endpoint("db-1:3306"))
			assert.NoError(t, err)
			mu.Lock()
			pools[p] = struct{}{}
			mu.Unlock()
		}()
	}
	require.False(t, waitTimeout(&wg, 5*time.Second))
	assert.Len(t, pools, 1)

	other, err := f.Pool(endpoint("db-2:3306"))
	require.NoError(t, err)
	_, dup := pools[other]
	assert.False(t, dup)

	stats := f.Stats()
	assert.Len(t, stats, 2)
	assert.Contains(t, stats, "fake|root@db-1:3306")
	assert.Equal(t, 4, stats["fake|root@db-2:3306"].MaxTotal)
}

func TestPoolFacadeClose(t *testing.T) {
	t.Parallel()

	f := NewPoolFacade(WithOpener(&fakeOpener{}))
	p, err := f.Pool(endpoint("db-1:3306"))
	require.NoError(t, err)
	_, err = p.Checkout(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.Close())
	_, err = p.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)

	_, err = f.Pool(endpoint("db-1:3306"))
	assert.ErrorIs(t, err, errPoolFacadeClosed)
	assert.Empty(t, f.Stats())
	assert.NoError(t, f.Close())
}

func TestPoolFacadeConfigurationError(t *testing.T) {
	t.Parallel()

	f := NewPoolFacade(WithOpener(&fakeOpener{}))
	defer f.Close()

	_, err := f.Pool(nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	bad := endpoint("db-1:3306")
	bad["min-idle"] = "many"
	_, err = f.Pool(bad)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, f.Stats())
}

// Close marks the facade closed before it shuts the pools down one by one;
// an existing pool must not be handed out in between.
func TestPoolFacadeClosingHidesExistingPools(t *testing.T) {
	t.Parallel()

	f := NewPoolFacade(WithOpener(&fakeOpener{}))
	p, err := f.Pool(endpoint("db-1:3306"))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	require.Equal(t, 1, f.pools.Count())

	got, err := f.Pool(endpoint("db-1:3306"))
	assert.Nil(t, got)
	assert.ErrorIs(t, err, errPoolFacadeClosed)
}
