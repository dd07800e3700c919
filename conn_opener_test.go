package connpool

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: the registry is global.
func TestOpenerRegistry(t *testing.T) {
	unregisterAllOpeners()
	t.Cleanup(unregisterAllOpeners)

	opener := &fakeOpener{}
	RegisterOpener("fake", opener)
	RegisterOpener("another", OpenerFunc(func(ctx context.Context, cfg map[string]string) (Conn, error) {
		return nil, errOpenRefused
	}))
	assert.Equal(t, []string{"another", "fake"}, Openers())

	assert.Panics(t, func() { RegisterOpener("fake", opener) })
	assert.Panics(t, func() { RegisterOpener("nil", nil) })

	conn, err := DriverOpener.Open(context.Background(), map[string]string{"jdbc.driver": "fake"})
	require.NoError(t, err)
	assert.Same(t, opener.opened()[0], conn)

	_, err = DriverOpener.Open(context.Background(), map[string]string{"driver": "another"})
	assert.True(t, errors.Is(err, errOpenRefused))

	_, err = DriverOpener.Open(context.Background(), map[string]string{"driver": "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "oracle"`)
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	cr := CredentialsFrom(map[string]string{
		"driver":        "mysql",
		"jdbc.driver":   "ignored",
		"jdbc.url":      "db:3306",
		"jdbc.username": "root",
		"password":      "secret",
	})
	assert.Equal(t, Credentials{Driver: "mysql", URL: "db:3306", Username: "root", Password: "secret"}, cr)
	assert.Equal(t, "mysql|root@db:3306", cr.GetId())
	assert.NotContains(t, cr.GetId(), "secret")
}

type validatorConn struct{ valid bool }

func (c *validatorConn) Close() error  { return nil }
func (c *validatorConn) IsValid() bool { return c.valid }

type pingerConn struct{ err error }

func (c *pingerConn) Close() error { return nil }

func (c *pingerConn) Ping(ctx context.Context) error {
	if c.err != nil {
		return c.err
	}
	return ctx.Err()
}

type plainConn struct{}

func (c *plainConn) Close() error { return nil }

func TestDefaultProbe(t *testing.T) {
	t.Parallel()

	closed := &fakeConn{}
	closed.Close()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	testCases := []struct {
		name    string
		ctx     context.Context
		conn    Conn
		wantErr error
	}{
		{"open", context.Background(), &fakeConn{}, nil},
		{"closed", context.Background(), closed, errConnClosed},
		{"nil", context.Background(), nil, errConnClosed},
		{"valid", context.Background(), &validatorConn{valid: true}, nil},
		{"invalid", context.Background(), &validatorConn{}, driver.ErrBadConn},
		{"ping ok", context.Background(), &pingerConn{}, nil},
		{"ping failed", context.Background(), &pingerConn{err: driver.ErrBadConn}, driver.ErrBadConn},
		{"ping cancelled", cancelled, &pingerConn{}, context.Canceled},
		{"no probe interface", context.Background(), &plainConn{}, nil},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := defaultProbe(testCase.ctx, testCase.conn)
			if testCase.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, testCase.wantErr)
			}
		})
	}
}

// blockingPingConn answers Ping only once ctx is done.
type blockingPingConn struct{}

func (c *blockingPingConn) Close() error { return nil }

func (c *blockingPingConn) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestProbeTimeout(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 2, &fakeOpener{}, WithProbeTimeout(20*time.Millisecond))
	err := p.probe(context.Background(), &blockingPingConn{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
