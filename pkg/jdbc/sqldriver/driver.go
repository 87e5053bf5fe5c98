// Package sqldriver exposes the bridge through database/sql.
//
// Callers either build a connector with NewConnector and sql.OpenDB, or
// use the registered "jdbc" driver name with a DSN of the form
//
//	<driver-class>|<jdbc-url>[|<user>|<password>]
//
// e.g. "org.postgresql.Driver|jdbc:postgresql://localhost/app|app|secret".
package sqldriver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/leapstack-labs/jbridge/pkg/jdbc"
)

func init() {
	sql.Register("jdbc", &Driver{})
}

// Driver implements driver.Driver over DSN strings.
type Driver struct{}

// Open parses the DSN and opens a connection.
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	connector, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector parses the DSN into a reusable connector.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	opts, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return &connector{opts: opts, drv: d}, nil
}

// ParseDSN splits a DSN into connect options.
func ParseDSN(dsn string) (jdbc.Options, error) {
	parts := strings.Split(dsn, "|")
	switch len(parts) {
	case 2:
		return jdbc.Options{DriverClass: parts[0], URL: parts[1]}, nil
	case 4:
		return jdbc.Options{DriverClass: parts[0], URL: parts[1], Credentials: []string{parts[2], parts[3]}}, nil
	default:
		return jdbc.Options{}, fmt.Errorf("sqldriver: dsn must be class|url or class|url|user|password, got %d parts", len(parts))
	}
}

// NewConnector builds a connector from explicit options, for sql.OpenDB.
func NewConnector(opts jdbc.Options) driver.Connector {
	return &connector{opts: opts, drv: &Driver{}}
}

type connector struct {
	opts jdbc.Options
	drv  *Driver
}

func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	jc, err := jdbc.Connect(ctx, c.opts)
	if err != nil {
		return nil, err
	}
	return &conn{conn: jc}, nil
}

func (c *connector) Driver() driver.Driver { return c.drv }
