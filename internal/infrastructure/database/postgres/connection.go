// Package postgres holds the archive database: the connection pool and the
// embedded schema migrations.
package postgres

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/turtacn/Catalysis-Ingest/internal/config"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

const (
	defaultMaxConns     = 10
	defaultMaxIdleConns = 2
	defaultConnLifetime = 30 * time.Minute
	connectTimeout      = 5 * time.Second
	statementTimeoutMS  = 30000
)

// replaced in tests
var sqlOpen = sql.Open

// Connection is the pool shared by the repositories.
type Connection struct {
	db        *sql.DB
	log       logging.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewConnection opens the pool described by cfg and pings it once.
func NewConnection(cfg config.DatabaseConfig, log logging.Logger) (*Connection, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	db, err := sqlOpen(DriverName, buildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}
	db.SetMaxOpenConns(orDefault(cfg.MaxConns, defaultMaxConns))
	db.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, defaultMaxIdleConns))
	db.SetConnMaxLifetime(orDefault(cfg.ConnMaxLifetime, defaultConnLifetime))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	log.Info("archive database connected",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.DBName))
	return &Connection{db: db, log: log}, nil
}

// NewConnectionWithDB wraps an already opened pool.
func NewConnectionWithDB(db *sql.DB, log logging.Logger) *Connection {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Connection{db: db, log: log}
}

func (c *Connection) DB() *sql.DB { return c.db }

func (c *Connection) Stats() sql.DBStats { return c.db.Stats() }

// HealthCheck pings the pool.  It backs the readiness check.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}
	return nil
}

// Close closes the pool.  Later calls return the first result.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.db.Close()
		if c.closeErr != nil {
			c.log.Error("failed to close archive database", logging.Err(c.closeErr))
		}
	})
	return c.closeErr
}

func buildDSN(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("statement_timeout", strconv.Itoa(statementTimeoutMS))

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func orDefault[T int | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

//Personal.AI order the ending
