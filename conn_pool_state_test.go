package connpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conns(n int) []*fakeConn {
	out := make([]*fakeConn, n)
	for i := range out {
		out[i] = &fakeConn{id: i + 1}
	}
	return out
}

func TestConnSetOrder(t *testing.T) {
	t.Parallel()

	s := newConnSet(4)
	cs := conns(4)
	for _, c := range cs {
		s.add(newConnRecord(c))
	}
	require.Equal(t, 4, s.len())

	// Lookups must not reorder the set.
	_, ok := s.get(cs[0])
	require.True(t, ok)

	r, ok := s.remove(cs[1])
	require.True(t, ok)
	assert.Same(t, cs[1], r.conn)
	_, ok = s.remove(cs[1])
	assert.False(t, ok)

	s.add(newConnRecord(cs[1]))
	var got []Conn
	for _, r := range s.records() {
		got = append(got, r.conn)
	}
	assert.Equal(t, []Conn{cs[0], cs[2], cs[3], cs[1]}, got)

	r, ok = s.removeOldest()
	require.True(t, ok)
	assert.Same(t, cs[0], r.conn)
}

func TestConnSetRetain(t *testing.T) {
	t.Parallel()

	s := newConnSet(5)
	cs := conns(5)
	for _, c := range cs {
		s.add(newConnRecord(c))
	}

	fresh, dropped := s.retain(func(r connRecord) bool {
		return r.conn.(*fakeConn).id%2 == 1
	})
	assert.Equal(t, 5, s.len(), "retain leaves the original set alone")
	require.Equal(t, 3, fresh.len())
	require.Len(t, dropped, 2)
	assert.Same(t, cs[1], dropped[0].conn)
	assert.Same(t, cs[3], dropped[1].conn)

	var kept []Conn
	for _, r := range fresh.records() {
		kept = append(kept, r.conn)
	}
	assert.Equal(t, []Conn{cs[0], cs[2], cs[4]}, kept)

	drained := fresh.drain()
	assert.Len(t, drained, 3)
	assert.Equal(t, 0, fresh.len())
	_, ok := fresh.removeOldest()
	assert.False(t, ok)
}

func TestConnSetOverflowPanics(t *testing.T) {
	t.Parallel()

	s := newConnSet(1)
	cs := conns(2)
	s.add(newConnRecord(cs[0]))
	assert.Panics(t, func() { s.add(newConnRecord(cs[1])) })
	assert.Panics(t, func() { newConnSet(0) })
}

func TestConnRecordLease(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 11, 13, 10, 0, 0, 0, time.UTC)
	r := connRecord{conn: &fakeConn{}, createdAt: at}.checkedOut(at)

	assert.False(t, r.leaseExpired(at.Add(time.Second), time.Minute))
	assert.True(t, r.leaseExpired(at.Add(time.Minute), time.Minute))
	assert.True(t, r.leaseExpired(at, 0))

	idle := r.returned()
	assert.True(t, idle.checkedOutAt.IsZero())
	assert.Equal(t, at, idle.createdAt)
}
