package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/application/encoding"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	apperrors "github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

func newIndex(t *testing.T, mc *mockMilvusClient, dim int) *LatentIndex {
	t.Helper()
	idx, err := NewLatentIndex(NewClientWithSDK(mc, nil), "latents", dim)
	require.NoError(t, err)
	return idx
}

func TestNewLatentIndex_Validation(t *testing.T) {
	c := NewClientWithSDK(&mockMilvusClient{}, nil)
	_, err := NewLatentIndex(nil, "latents", 4)
	assert.Error(t, err)
	_, err = NewLatentIndex(c, "", 4)
	assert.Error(t, err)
	_, err = NewLatentIndex(c, "latents", 0)
	assert.Error(t, err)
}

func TestEnsureCollection_CreatesWhenMissing(t *testing.T) {
	mc := &mockMilvusClient{}
	idx := newIndex(t, mc, 8)

	require.NoError(t, idx.EnsureCollection(context.Background()))
	require.NotNil(t, mc.created)
	assert.Equal(t, "latents", mc.created.CollectionName)
	require.Len(t, mc.created.Fields, 3)
	assert.True(t, mc.created.Fields[0].PrimaryKey)
	assert.Equal(t, "8", mc.created.Fields[2].TypeParams["dim"])
	assert.Equal(t, FieldLatent, mc.indexed)
	assert.True(t, mc.loaded)
}

func TestEnsureCollection_Existing(t *testing.T) {
	mc := &mockMilvusClient{hasCollection: true}
	idx := newIndex(t, mc, 8)

	require.NoError(t, idx.EnsureCollection(context.Background()))
	assert.Nil(t, mc.created)
	assert.Empty(t, mc.indexed)
	assert.True(t, mc.loaded)
}

func TestUpsert(t *testing.T) {
	mc := &mockMilvusClient{}
	idx := newIndex(t, mc, 2)

	records := []encoding.Record{
		{SMILES: "CCO", Vector: []float32{0.1, 0.2}},
		{SMILES: "c1ccccc1", Vector: []float32{0.3, 0.4}},
	}
	require.NoError(t, idx.Upsert(context.Background(), records))
	require.Len(t, mc.upserted, 3)

	ids, ok := mc.upserted[0].(*entity.ColumnInt64)
	require.True(t, ok)
	assert.Equal(t, []int64{int64(junction.Key("CCO")), int64(junction.Key("c1ccccc1"))}, ids.Data())
	assert.Equal(t, 2, mc.upserted[2].Len())
}

func TestUpsert_Empty(t *testing.T) {
	mc := &mockMilvusClient{}
	idx := newIndex(t, mc, 2)
	require.NoError(t, idx.Upsert(context.Background(), nil))
	assert.Nil(t, mc.upserted)
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	mc := &mockMilvusClient{}
	idx := newIndex(t, mc, 3)
	err := idx.Upsert(context.Background(), []encoding.Record{{SMILES: "CCO", Vector: []float32{1}}})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	assert.Nil(t, mc.upserted)
}

func TestSearch(t *testing.T) {
	mc := &mockMilvusClient{
		results: []client.SearchResult{{
			ResultCount: 2,
			IDs:         entity.NewColumnInt64(FieldID, []int64{7, 9}),
			Scores:      []float32{0.01, 0.5},
			Fields:      client.ResultSet{entity.NewColumnVarChar(FieldSMILES, []string{"CCO", "CCN"})},
		}},
	}
	idx := newIndex(t, mc, 2)

	hits, err := idx.Search(context.Background(), []float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, mc.topK)
	assert.Equal(t, []Hit{
		{ID: 7, SMILES: "CCO", Score: 0.01},
		{ID: 9, SMILES: "CCN", Score: 0.5},
	}, hits)
}

func TestSearch_Validation(t *testing.T) {
	idx := newIndex(t, &mockMilvusClient{}, 2)
	_, err := idx.Search(context.Background(), []float32{0}, 5)
	assert.Error(t, err)
	_, err = idx.Search(context.Background(), []float32{0, 0}, 0)
	assert.Error(t, err)
}

//Personal.AI order the ending
