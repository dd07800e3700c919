// Package mysql registers the "mysql" opener. Import it for its side effect:
//
//	import _ "connpool/mysql"
//
// The url key holds a go-sql-driver DSN, with or without credentials, e.g.
// "tcp(127.0.0.1:3306)/app?parseTime=true". username and password, when set,
// override the ones in the DSN.
package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"connpool"
)

// DriverName is the value of the driver key selecting this opener.
const DriverName = "mysql"

func init() {
	connpool.RegisterOpener(DriverName, connpool.OpenerFunc(Open))
}

// Config builds the driver configuration from the pool configuration.
func Config(cfg map[string]string) (*mysql.Config, error) {
	cr := connpool.CredentialsFrom(cfg)
	dsn := cr.URL
	if !strings.Contains(dsn, "/") {
		// A bare address; the driver requires the database part.
		dsn = fmt.Sprintf("tcp(%s)/", dsn)
	}
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if cr.Username != "" {
		c.User = cr.Username
	}
	if cr.Password != "" {
		c.Passwd = cr.Password
	}
	return c, nil
}

// Open dials one physical MySQL connection. The returned connection is the
// driver's own, so the pool probes it through driver.Validator.
func Open(ctx context.Context, cfg map[string]string) (connpool.Conn, error) {
	c, err := Config(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	connector, err := mysql.NewConnector(c)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	conn, err := connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("mysql: connect %s: %w", c.Addr, err)
	}
	return conn, nil
}
