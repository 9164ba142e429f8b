package neo4j

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

func sampleTree() *junction.Tree {
	return &junction.Tree{
		SMILES: "CCc1ccccc1",
		Clusters: []junction.Cluster{
			{Kind: junction.KindRing, Signature: "c1ccccc1"},
			{Kind: junction.KindBond, Signature: "CC"},
		},
		Edges: [][2]int{{0, 1}},
	}
}

func TestTreeGraph_Save(t *testing.T) {
	tx := &recordingTx{}
	d, _, sess := newFakeDriver(t, tx)
	g := NewTreeGraph(d)

	require.NoError(t, g.Save(context.Background(), sampleTree()))
	require.Len(t, tx.calls, 3)
	assert.Equal(t, 1, sess.closed)

	key := junction.KeyString("CCc1ccccc1")
	assert.Equal(t, key, tx.calls[0].params["key"])
	assert.Equal(t, int64(2), tx.calls[0].params["n"])

	clusters := tx.calls[1].params["clusters"].([]map[string]any)
	require.Len(t, clusters, 2)
	assert.Equal(t, "ring", clusters[0]["kind"])
	assert.Equal(t, "CC", clusters[1]["signature"])

	assert.Equal(t, [][]int64{{0, 1}}, tx.calls[2].params["edges"])
}

func TestTreeGraph_Save_SingleCluster(t *testing.T) {
	tx := &recordingTx{}
	d, _, _ := newFakeDriver(t, tx)
	tree := &junction.Tree{SMILES: "C", Clusters: []junction.Cluster{{Kind: junction.KindAtom, Signature: "C"}}}

	require.NoError(t, NewTreeGraph(d).Save(context.Background(), tree))
	assert.Len(t, tx.calls, 2)
}

func TestTreeGraph_Save_Invalid(t *testing.T) {
	d, _, _ := newFakeDriver(t, &recordingTx{})
	err := NewTreeGraph(d).Save(context.Background(), &junction.Tree{})
	assert.Equal(t, errors.ErrCodeBadRequest, errors.GetCode(err))
}

func TestTreeGraph_Save_RunError(t *testing.T) {
	tx := &recordingTx{runErr: stderrors.New("constraint violated")}
	d, _, _ := newFakeDriver(t, tx)

	err := NewTreeGraph(d).Save(context.Background(), sampleTree())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabaseError, errors.GetCode(err))
	assert.Len(t, tx.calls, 1)
}

func TestTreeGraph_MoleculesWithSignature(t *testing.T) {
	tx := &recordingTx{rows: [][]any{{"CCc1ccccc1"}, {"Oc1ccccc1"}}}
	d, _, _ := newFakeDriver(t, tx)

	got, err := NewTreeGraph(d).MoleculesWithSignature(context.Background(), "c1ccccc1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"CCc1ccccc1", "Oc1ccccc1"}, got)
	assert.Equal(t, int64(10), tx.calls[0].params["limit"])

	_, err = NewTreeGraph(d).MoleculesWithSignature(context.Background(), "", 10)
	assert.Error(t, err)
	_, err = NewTreeGraph(d).MoleculesWithSignature(context.Background(), "C", 0)
	assert.Error(t, err)
}

func TestTreeGraph_SignatureCounts(t *testing.T) {
	tx := &recordingTx{rows: [][]any{{"c1ccccc1", int64(7)}, {"CC", int64(3)}}}
	d, _, _ := newFakeDriver(t, tx)

	got, err := NewTreeGraph(d).SignatureCounts(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []SignatureCount{{"c1ccccc1", 7}, {"CC", 3}}, got)
}

func TestTreeGraph_SignatureCounts_Empty(t *testing.T) {
	d, _, _ := newFakeDriver(t, &recordingTx{})

	got, err := NewTreeGraph(d).SignatureCounts(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

//Personal.AI order the ending
