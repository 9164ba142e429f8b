package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// sqlOpen is replaced in tests.
var sqlOpen = sql.Open

// Connection manages the PostgreSQL pool behind the run ledger.
type Connection struct {
	db     *sql.DB
	logger logging.Logger
	once   sync.Once
}

// NewConnection opens and pings the database described by cfg.
func NewConnection(ctx context.Context, cfg config.DatabaseConfig, log logging.Logger) (*Connection, error) {
	db, err := sqlOpen("pgx", BuildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	db.SetMaxIdleConns(2)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}
	log.Info("Connected to PostgreSQL",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.DBName))
	return &Connection{db: db, logger: log}, nil
}

// NewConnectionWithDB wraps an existing pool.
func NewConnectionWithDB(db *sql.DB, log logging.Logger) *Connection {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Connection{db: db, logger: log}
}

// DB returns the pool.
func (c *Connection) DB() *sql.DB { return c.db }

// HealthCheck pings the database and warns when the pool is nearly exhausted.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}
	stats := c.db.Stats()
	if stats.MaxOpenConnections > 0 && float64(stats.InUse)/float64(stats.MaxOpenConnections) > 0.8 {
		c.logger.Warn("High database pool usage",
			logging.Int("in_use", stats.InUse),
			logging.Int("max_open", stats.MaxOpenConnections))
	}
	return nil
}

// Close closes the pool once.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		err = c.db.Close()
		if err != nil {
			c.logger.Error("Failed to close PostgreSQL connection", logging.Err(err))
			return
		}
		c.logger.Info("Closed PostgreSQL connection")
	})
	return err
}

// BuildDSN renders cfg as a postgres URL.
func BuildDSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.DBName,
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

//Personal.AI order the ending
