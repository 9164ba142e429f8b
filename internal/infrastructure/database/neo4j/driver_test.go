package neo4j

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) NewSession(ctx context.Context, cfg neo4j.SessionConfig) internalSession {
	return m.Called(ctx, cfg).Get(0).(internalSession)
}

func (m *MockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type call struct {
	cypher string
	params map[string]any
}

// fakeSession runs work against a recordingTx and answers every Run with
// rows.
type fakeSession struct {
	tx     *recordingTx
	closed int
}

func (s *fakeSession) ExecuteRead(_ context.Context, work func(Transaction) (any, error)) (any, error) {
	return work(s.tx)
}

func (s *fakeSession) ExecuteWrite(_ context.Context, work func(Transaction) (any, error)) (any, error) {
	return work(s.tx)
}

func (s *fakeSession) Close(context.Context) error { s.closed++; return nil }

type recordingTx struct {
	calls  []call
	rows   [][]any
	runErr error
}

func (t *recordingTx) Run(_ context.Context, cypher string, params map[string]any) (Result, error) {
	t.calls = append(t.calls, call{cypher: cypher, params: params})
	if t.runErr != nil {
		return nil, t.runErr
	}
	return &sliceResult{rows: t.rows, idx: -1}, nil
}

type sliceResult struct {
	rows [][]any
	idx  int
}

func (r *sliceResult) Next(context.Context) bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *sliceResult) Record() *neo4j.Record { return &neo4j.Record{Values: r.rows[r.idx]} }
func (r *sliceResult) Err() error            { return nil }
func (r *sliceResult) Consume(context.Context) (neo4j.ResultSummary, error) {
	return nil, nil
}

func newFakeDriver(t *testing.T, tx *recordingTx) (*Driver, *MockDriver, *fakeSession) {
	t.Helper()
	md := new(MockDriver)
	sess := &fakeSession{tx: tx}
	md.On("NewSession", mock.Anything, mock.Anything).Return(sess)
	return newDriver(md, "", logging.NewNopLogger()), md, sess
}

// ─────────────────────────────────────────────────────────────────────────────
// Driver
// ─────────────────────────────────────────────────────────────────────────────

func TestNewDriver_RequiresURI(t *testing.T) {
	_, err := NewDriver(context.Background(), config.Neo4jConfig{}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBadRequest, errors.GetCode(err))
}

func TestNewDriver_ConnectivityFailureCloses(t *testing.T) {
	md := new(MockDriver)
	md.On("VerifyConnectivity", mock.Anything).Return(stderrors.New("refused"))
	md.On("Close", mock.Anything).Return(nil)

	orig := dialDriver
	dialDriver = func(config.Neo4jConfig) (internalDriver, error) { return md, nil }
	t.Cleanup(func() { dialDriver = orig })

	_, err := NewDriver(context.Background(), config.Neo4jConfig{URI: "bolt://localhost:7687"}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabaseError, errors.GetCode(err))
	md.AssertCalled(t, "Close", mock.Anything)
}

func TestNewDriver_DefaultDatabase(t *testing.T) {
	md := new(MockDriver)
	md.On("VerifyConnectivity", mock.Anything).Return(nil)

	orig := dialDriver
	dialDriver = func(config.Neo4jConfig) (internalDriver, error) { return md, nil }
	t.Cleanup(func() { dialDriver = orig })

	d, err := NewDriver(context.Background(), config.Neo4jConfig{URI: "bolt://localhost:7687"}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultNeo4jDatabase, d.database)
}

func TestDriver_HealthCheck(t *testing.T) {
	tx := &recordingTx{rows: [][]any{{int64(1)}}}
	d, md, sess := newFakeDriver(t, tx)
	md.On("VerifyConnectivity", mock.Anything).Return(nil)

	require.NoError(t, d.HealthCheck(context.Background()))
	require.Len(t, tx.calls, 1)
	assert.Contains(t, tx.calls[0].cypher, "RETURN 1")
	assert.Equal(t, 1, sess.closed)
	md.AssertCalled(t, "NewSession", mock.Anything, neo4j.SessionConfig{
		DatabaseName: config.DefaultNeo4jDatabase,
		AccessMode:   neo4j.AccessModeRead,
	})
}

func TestDriver_HealthCheck_EmptyResult(t *testing.T) {
	d, md, _ := newFakeDriver(t, &recordingTx{})
	md.On("VerifyConnectivity", mock.Anything).Return(nil)

	err := d.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabaseError, errors.GetCode(err))
}

func TestDriver_CloseOnce(t *testing.T) {
	d, md, _ := newFakeDriver(t, &recordingTx{})
	md.On("Close", mock.Anything).Return(nil).Once()

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	md.AssertNumberOfCalls(t, "Close", 1)
}

//Personal.AI order the ending
