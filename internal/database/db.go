package database

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrRunNotFound is returned when a run id does not exist
var ErrRunNotFound = errors.New("run not found")

// DB wraps the database connection
type DB struct {
	conn   *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

// New creates a new database connection. driver is "sqlite" or "postgres".
func New(driver, dsn string) (*DB, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverPostgres:
		placeholder = sq.Dollar
	case DriverSQLite:
		placeholder = sq.Question
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	// queries become child spans of the request or task that issued them
	conn, err := otelsql.Open(driver, dsn,
		otelsql.WithAttributes(attribute.String("db.system", driver)),
		otelsql.WithSpanOptions(otelsql.SpanOptions{OmitConnResetSession: true, OmitRows: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// in-memory databases are per-connection
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		conn:   conn,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the driver name the connection was opened with
func (db *DB) Driver() string {
	return db.driver
}
