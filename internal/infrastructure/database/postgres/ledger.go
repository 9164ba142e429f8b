package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunStopped  = "stopped"
)

// RunRecord is one row of training_runs.
type RunRecord struct {
	RunID          string
	Status         string
	StartedAt      time.Time
	FinishedAt     *time.Time
	Examples       int
	VocabSize      int
	Steps          int
	Epochs         int
	Skipped        int
	LastCheckpoint string
}

// CheckpointRecord is one row of training_checkpoints.
type CheckpointRecord struct {
	RunID     string
	Step      int
	Key       string
	CreatedAt time.Time
}

// Ledger records training runs and their checkpoints.  It implements
// training.Ledger.
type Ledger struct {
	db     *sql.DB
	logger logging.Logger
}

// NewLedger creates a ledger on conn.
func NewLedger(conn *Connection) *Ledger {
	return &Ledger{db: conn.DB(), logger: conn.logger}
}

var _ training.Ledger = (*Ledger)(nil)

const upsertRun = `
INSERT INTO training_runs (run_id, status, started_at, examples, vocab_size, config)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id) DO UPDATE
SET status = EXCLUDED.status, examples = EXCLUDED.examples, vocab_size = EXCLUDED.vocab_size, finished_at = NULL`

// StartRun inserts the run or marks a resumed run as running again.
func (l *Ledger) StartRun(ctx context.Context, run training.RunInfo) error {
	var cfg any
	if len(run.Config) > 0 {
		cfg = []byte(run.Config)
	}
	if _, err := l.db.ExecContext(ctx, upsertRun,
		run.RunID, RunRunning, run.StartedAt, run.Examples, run.VocabSize, cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record run start").WithDetail(run.RunID)
	}
	l.logger.Debug("Run recorded", logging.String("run_id", run.RunID))
	return nil
}

const insertCheckpoint = `
INSERT INTO training_checkpoints (run_id, step, key)
VALUES ($1, $2, $3)
ON CONFLICT (run_id, step) DO UPDATE SET key = EXCLUDED.key, created_at = NOW()`

const touchRun = `UPDATE training_runs SET last_checkpoint = $2, steps = GREATEST(steps, $3) WHERE run_id = $1`

// RecordCheckpoint stores key for step and updates the run's latest pointer.
func (l *Ledger) RecordCheckpoint(ctx context.Context, runID string, step int, key string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertCheckpoint, runID, step, key); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record checkpoint").WithDetail(key)
	}
	if _, err := tx.ExecContext(ctx, touchRun, runID, key, step); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update run").WithDetail(runID)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit checkpoint").WithDetail(key)
	}
	return nil
}

const finishRun = `
UPDATE training_runs
SET status = $2, finished_at = $3, steps = $4, epochs = $5, skipped = $6
WHERE run_id = $1`

// FinishRun stores the final counters of res.
func (l *Ledger) FinishRun(ctx context.Context, runID string, res *training.Result) error {
	status := RunFinished
	if res.Stopped {
		status = RunStopped
	}
	out, err := l.db.ExecContext(ctx, finishRun, runID, status, time.Now().UTC(), res.Steps, res.Epochs, res.Skipped)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record run finish").WithDetail(runID)
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrCodeNotFound, "run not found").WithDetail(runID)
	}
	return nil
}

const selectRun = `
SELECT run_id, status, started_at, finished_at, examples, vocab_size, steps, epochs, skipped, COALESCE(last_checkpoint, '')
FROM training_runs WHERE run_id = $1`

// GetRun loads one run.
func (l *Ledger) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var r RunRecord
	var finished sql.NullTime
	err := l.db.QueryRowContext(ctx, selectRun, runID).Scan(
		&r.RunID, &r.Status, &r.StartedAt, &finished,
		&r.Examples, &r.VocabSize, &r.Steps, &r.Epochs, &r.Skipped, &r.LastCheckpoint)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeNotFound, "run not found").WithDetail(runID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load run").WithDetail(runID)
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

const selectCheckpoints = `
SELECT run_id, step, key, created_at FROM training_checkpoints
WHERE run_id = $1 ORDER BY step`

// ListCheckpoints returns the checkpoints of runID in step order.
func (l *Ledger) ListCheckpoints(ctx context.Context, runID string) ([]CheckpointRecord, error) {
	rows, err := l.db.QueryContext(ctx, selectCheckpoints, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list checkpoints").WithDetail(runID)
	}
	defer rows.Close()

	var out []CheckpointRecord
	for rows.Next() {
		var c CheckpointRecord
		if err := rows.Scan(&c.RunID, &c.Step, &c.Key, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan checkpoint")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list checkpoints")
	}
	return out, nil
}

//Personal.AI order the ending
