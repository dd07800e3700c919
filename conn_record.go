package connpool

import "time"

// nowFunc returns the current time; it's overridden in tests.
var nowFunc = time.Now

// Conn is a physical connection handed out by the pool. The pool keys its
// bookkeeping on the Conn value, so implementations must be comparable
// (pointer types in practice).
type Conn interface {
	Close() error
}

// connRecord pairs a connection with its timestamps. Records are values and
// are replaced, never mutated, when a connection changes state.
type connRecord struct {
	conn      Conn
	createdAt time.Time
	// checkedOutAt is zero while the connection is idle.
	checkedOutAt time.Time
}

func newConnRecord(conn Conn) connRecord {
	return connRecord{conn: conn, createdAt: nowFunc()}
}

// checkedOut returns the active replacement of an idle record.
func (r connRecord) checkedOut(at time.Time) connRecord {
	return connRecord{conn: r.conn, createdAt: r.createdAt, checkedOutAt: at}
}

// returned returns the idle replacement of an active record.
func (r connRecord) returned() connRecord {
	return connRecord{conn: r.conn, createdAt: r.createdAt}
}

// leaseExpired reports whether the record has been checked out for at least
// maxAge.
func (r connRecord) leaseExpired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(r.checkedOutAt) >= maxAge
}
