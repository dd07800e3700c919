// Package sqlite registers the "sqlite3" opener. The url key is passed to
// the driver as its DSN (a file name, or ":memory:"); credentials are ignored.
package sqlite

import (
	"context"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"connpool"
)

// DriverName is the value of the driver key selecting this opener.
const DriverName = "sqlite3"

func init() {
	connpool.RegisterOpener(DriverName, connpool.OpenerFunc(Open))
}

// Open opens one SQLite connection. The returned *sqlite3.SQLiteConn
// implements driver.Pinger, which the pool uses as its liveness probe.
func Open(ctx context.Context, cfg map[string]string) (connpool.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dsn := connpool.CredentialsFrom(cfg).URL
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: empty url")
	}
	conn, err := (&sqlite3.SQLiteDriver{}).Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	return conn, nil
}
