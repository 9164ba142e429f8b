package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

type LedgerTestSuite struct {
	suite.Suite
	db     *sql.DB
	mock   sqlmock.Sqlmock
	ledger *Ledger
	ctx    context.Context
}

func (s *LedgerTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	s.ledger = NewLedger(NewConnectionWithDB(s.db, nil))
	s.ctx = context.Background()
}

func (s *LedgerTestSuite) TearDownTest() {
	s.Require().NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *LedgerTestSuite) TestStartRun() {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := json.RawMessage(`{"train":{"batch_size":32}}`)
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO training_runs")).
		WithArgs("run-1", RunRunning, started, 51, 40, []byte(raw)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.ledger.StartRun(s.ctx, training.RunInfo{
		RunID: "run-1", StartedAt: started, Examples: 51, VocabSize: 40, Config: raw,
	}))
}

func (s *LedgerTestSuite) TestStartRun_Error() {
	s.mock.ExpectExec("INSERT INTO training_runs").WillReturnError(stderrors.New("boom"))
	err := s.ledger.StartRun(s.ctx, training.RunInfo{RunID: "run-1"})
	s.True(errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func (s *LedgerTestSuite) TestRecordCheckpoint() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO training_checkpoints").
		WithArgs("run-1", 200, "checkpoints/step-00000200.ckpt").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("UPDATE training_runs SET last_checkpoint").
		WithArgs("run-1", "checkpoints/step-00000200.ckpt", 200).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	s.NoError(s.ledger.RecordCheckpoint(s.ctx, "run-1", 200, "checkpoints/step-00000200.ckpt"))
}

func (s *LedgerTestSuite) TestRecordCheckpoint_RollsBack() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO training_checkpoints").WillReturnError(stderrors.New("fk violation"))
	s.mock.ExpectRollback()

	err := s.ledger.RecordCheckpoint(s.ctx, "missing", 1, "k")
	s.True(errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func (s *LedgerTestSuite) TestFinishRun() {
	s.mock.ExpectExec("UPDATE training_runs").
		WithArgs("run-1", RunStopped, sqlmock.AnyArg(), 40, 2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.ledger.FinishRun(s.ctx, "run-1", &training.Result{Steps: 40, Epochs: 2, Skipped: 1, Stopped: true}))

	s.mock.ExpectExec("UPDATE training_runs").
		WithArgs("ghost", RunFinished, sqlmock.AnyArg(), 0, 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := s.ledger.FinishRun(s.ctx, "ghost", &training.Result{})
	s.True(errors.IsNotFound(err))
}

func (s *LedgerTestSuite) TestGetRun() {
	started := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	finished := started.Add(time.Hour)
	cols := []string{"run_id", "status", "started_at", "finished_at", "examples", "vocab_size", "steps", "epochs", "skipped", "last_checkpoint"}
	s.mock.ExpectQuery("SELECT run_id, status").WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("run-1", RunFinished, started, finished, 51, 40, 100, 3, 0, "ckpt/step-00000100.ckpt"))

	r, err := s.ledger.GetRun(s.ctx, "run-1")
	s.Require().NoError(err)
	s.Equal(100, r.Steps)
	s.Equal("ckpt/step-00000100.ckpt", r.LastCheckpoint)
	s.Require().NotNil(r.FinishedAt)
	s.Equal(finished, *r.FinishedAt)

	s.mock.ExpectQuery("SELECT run_id, status").WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = s.ledger.GetRun(s.ctx, "nope")
	s.True(errors.IsNotFound(err))
}

func (s *LedgerTestSuite) TestListCheckpoints() {
	now := time.Now().UTC()
	s.mock.ExpectQuery("SELECT run_id, step, key, created_at FROM training_checkpoints").WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "step", "key", "created_at"}).
			AddRow("run-1", 100, "a", now).
			AddRow("run-1", 200, "b", now))

	got, err := s.ledger.ListCheckpoints(s.ctx, "run-1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(200, got[1].Step)
	s.Equal("b", got[1].Key)
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{"000001_training_ledger.up.sql", "000001_training_ledger.down.sql"}, names)

	up, err := migrationFS.ReadFile("migrations/000001_training_ledger.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(up), "training_checkpoints")
}

//Personal.AI order the ending
