// Package neo4j stores junction trees as property graphs so that scaffold
// and fragment co-occurrence can be queried across a corpus.
package neo4j

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

const (
	defaultPoolSize       = 50
	defaultConnLifetime   = time.Hour
	defaultAcquireTimeout = 60 * time.Second
	connectTimeout        = 10 * time.Second
)

// Result abstracts neo4j.ResultWithContext.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
	Consume(ctx context.Context) (neo4j.ResultSummary, error)
}

// Transaction abstracts neo4j.ManagedTransaction.
type Transaction interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

type internalSession interface {
	ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error)
	ExecuteWrite(ctx context.Context, work func(Transaction) (any, error)) (any, error)
	Close(ctx context.Context) error
}

type internalDriver interface {
	VerifyConnectivity(ctx context.Context) error
	NewSession(ctx context.Context, config neo4j.SessionConfig) internalSession
	Close(ctx context.Context) error
}

// ─────────────────────────────────────────────────────────────────────────────
// SDK adapters
// ─────────────────────────────────────────────────────────────────────────────

type stdResult struct{ res neo4j.ResultWithContext }

func (r *stdResult) Next(ctx context.Context) bool { return r.res.Next(ctx) }
func (r *stdResult) Record() *neo4j.Record         { return r.res.Record() }
func (r *stdResult) Err() error                    { return r.res.Err() }
func (r *stdResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return r.res.Consume(ctx)
}

type stdTransaction struct{ tx neo4j.ManagedTransaction }

func (t *stdTransaction) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return &stdResult{res: res}, nil
}

type stdSession struct{ s neo4j.SessionWithContext }

func (s *stdSession) ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	return s.s.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&stdTransaction{tx: tx})
	})
}

func (s *stdSession) ExecuteWrite(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	return s.s.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&stdTransaction{tx: tx})
	})
}

func (s *stdSession) Close(ctx context.Context) error { return s.s.Close(ctx) }

type stdDriver struct{ d neo4j.DriverWithContext }

func (d *stdDriver) VerifyConnectivity(ctx context.Context) error { return d.d.VerifyConnectivity(ctx) }

func (d *stdDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) internalSession {
	return &stdSession{s: d.d.NewSession(ctx, config)}
}

func (d *stdDriver) Close(ctx context.Context) error { return d.d.Close(ctx) }

// dialDriver is swapped in tests.
var dialDriver = func(cfg config.Neo4jConfig) (internalDriver, error) {
	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	d, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = defaultPoolSize
		c.MaxConnectionLifetime = defaultConnLifetime
		c.ConnectionAcquisitionTimeout = defaultAcquireTimeout
	})
	if err != nil {
		return nil, err
	}
	return &stdDriver{d: d}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Driver
// ─────────────────────────────────────────────────────────────────────────────

// Driver wraps a Neo4j driver bound to one database.
type Driver struct {
	driver   internalDriver
	database string
	logger   logging.Logger
	once     sync.Once
}

// NewDriver connects to Neo4j and verifies connectivity.
func NewDriver(ctx context.Context, cfg config.Neo4jConfig, log logging.Logger) (*Driver, error) {
	if cfg.URI == "" {
		return nil, errors.InvalidParam("neo4j uri is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	d, err := dialDriver(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create neo4j driver")
	}

	vctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := d.VerifyConnectivity(vctx); err != nil {
		_ = d.Close(context.Background())
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to connect to neo4j")
	}

	log.Info("Connected to Neo4j", logging.String("uri", cfg.URI), logging.String("database", cfg.Database))
	return newDriver(d, cfg.Database, log), nil
}

func newDriver(d internalDriver, database string, log logging.Logger) *Driver {
	if database == "" {
		database = config.DefaultNeo4jDatabase
	}
	return &Driver{driver: d, database: database, logger: log}
}

func (d *Driver) session(ctx context.Context, mode neo4j.AccessMode) internalSession {
	return d.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.database, AccessMode: mode})
}

// ExecuteRead runs work in a managed read transaction.
func (d *Driver) ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	s := d.session(ctx, neo4j.AccessModeRead)
	defer s.Close(ctx)

	res, err := s.ExecuteRead(ctx, work)
	if err != nil {
		d.logger.Error("Neo4j read transaction failed", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j read failed")
	}
	return res, nil
}

// ExecuteWrite runs work in a managed write transaction.
func (d *Driver) ExecuteWrite(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	s := d.session(ctx, neo4j.AccessModeWrite)
	defer s.Close(ctx)

	res, err := s.ExecuteWrite(ctx, work)
	if err != nil {
		d.logger.Error("Neo4j write transaction failed", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j write failed")
	}
	return res, nil
}

// HealthCheck verifies connectivity and round-trips a trivial query.
func (d *Driver) HealthCheck(ctx context.Context) error {
	if err := d.driver.VerifyConnectivity(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j connectivity check failed")
	}
	_, err := d.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, "RETURN 1 AS health", nil)
		if err != nil {
			return nil, err
		}
		return ExtractSingleRecord(ctx, res, func(r *neo4j.Record) (any, error) { return r.Values[0], nil })
	})
	return err
}

// Close releases the driver once.
func (d *Driver) Close() error {
	var err error
	d.once.Do(func() {
		err = d.driver.Close(context.Background())
		if err != nil {
			d.logger.Error("Failed to close Neo4j driver", logging.Err(err))
			return
		}
		d.logger.Info("Closed Neo4j driver")
	})
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// ExtractSingleRecord maps the first record, or returns NotFound.
func ExtractSingleRecord[T any](ctx context.Context, result Result, mapper func(*neo4j.Record) (T, error)) (T, error) {
	var zero T
	if result.Next(ctx) {
		return mapper(result.Record())
	}
	if err := result.Err(); err != nil {
		return zero, err
	}
	return zero, errors.New(errors.ErrCodeNotFound, "no record found")
}

// CollectRecords maps every record of result.
func CollectRecords[T any](ctx context.Context, result Result, mapper func(*neo4j.Record) (T, error)) ([]T, error) {
	var items []T
	for result.Next(ctx) {
		item, err := mapper(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

//Personal.AI order the ending
