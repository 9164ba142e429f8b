package encoding_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/application/encoding"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/jtnn"
	"github.com/turtacn/KeyIP-JTNN/internal/testutil"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

func model(t *testing.T, dataset []string) *jtnn.Model {
	t.Helper()
	c, err := corpus.Fit(context.Background(), dataset, nil, 2)
	require.NoError(t, err)
	m, err := jtnn.NewModel(jtnn.Config{HiddenSize: 8, LatentSize: 4, Depth: 2, MaxDecodeNodes: 6, MaxCandidates: 16, MaxStereo: 4}, c.Vocabulary())
	require.NoError(t, err)
	m.Init(rand.New(rand.NewSource(5)))
	return m
}

type memIndex struct{ records []encoding.Record }

func (m *memIndex) Upsert(_ context.Context, r []encoding.Record) error {
	m.records = append(m.records, r...)
	return nil
}

func TestEncode(t *testing.T) {
	dataset := testutil.FixtureSMILES[:10]
	log := testutil.NewMockLogger()
	enc := encoding.NewEncoder(model(t, dataset), encoding.WithLogger(log), encoding.WithWorkers(3), encoding.WithBatchSize(4))

	records, stats, err := enc.Encode(context.Background(), dataset)
	require.NoError(t, err)
	assert.Equal(t, encoding.Stats{Total: 10, Encoded: 10, Elapsed: stats.Elapsed}, stats)
	require.Len(t, records, 10)
	for _, r := range records {
		assert.Len(t, r.Vector, 4)
		assert.NotEmpty(t, r.SMILES)
	}
	assert.True(t, log.HasMessage("info", "Molecules encoded"))

	again, _, err := enc.Encode(context.Background(), dataset)
	require.NoError(t, err)
	assert.Equal(t, records, again)
}

func TestEncode_DropsUncoveredMolecules(t *testing.T) {
	enc := encoding.NewEncoder(model(t, []string{"CC", "CCO"}))
	records, stats, err := enc.Encode(context.Background(), []string{"CCO", "c1ccccc1", "C(C"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, stats.Dropped)
}

func TestEncode_NothingValid(t *testing.T) {
	enc := encoding.NewEncoder(model(t, []string{"CC"}))
	_, _, err := enc.Encode(context.Background(), []string{"C(C", "[Xx]"})
	assert.True(t, errors.IsCode(err, errors.CodeEmptyCorpus))
}

func TestEncodeInto(t *testing.T) {
	dataset := testutil.FixtureSMILES[:6]
	idx := &memIndex{}
	stats, err := encoding.NewEncoder(model(t, dataset)).EncodeInto(context.Background(), dataset, idx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Encoded)
	assert.Len(t, idx.records, 6)
}

func TestReconstruct(t *testing.T) {
	dataset := testutil.FixtureSMILES[:6]
	out, err := encoding.NewEncoder(model(t, dataset)).Reconstruct(context.Background(), dataset)
	require.NoError(t, err)
	require.Len(t, out, 6)
	for _, r := range out {
		assert.NotEmpty(t, r.Input)
		assert.True(t, r.Output != "" || r.Error != "")
	}
}

func TestReconstruct_FlagsStereoInputs(t *testing.T) {
	dataset := append([]string{"CCO"}, testutil.StereoFixtures...)
	out, err := encoding.NewEncoder(model(t, dataset)).Reconstruct(context.Background(), dataset)
	require.NoError(t, err)
	require.Len(t, out, len(dataset))

	stereo := map[string]bool{}
	for _, r := range out {
		stereo[r.Input] = r.Stereo
	}
	assert.False(t, stereo["CCO"])
	for _, smi := range testutil.StereoFixtures {
		assert.True(t, stereo[smi], smi)
	}
}

//Personal.AI order the ending
