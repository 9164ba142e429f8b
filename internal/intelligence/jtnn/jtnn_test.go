package jtnn_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/vocabulary"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/autograd"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/jtnn"
	"github.com/turtacn/KeyIP-JTNN/internal/testutil"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

var smallConfig = jtnn.Config{HiddenSize: 8, LatentSize: 4, Depth: 2, MaxDecodeNodes: 6, MaxCandidates: 16, MaxStereo: 4}

func fixtureItems(t *testing.T, dataset []string) ([]*corpus.Item, *vocabulary.Vocabulary) {
	t.Helper()
	ctx := context.Background()
	opts := corpus.DefaultOptions()
	opts.Shuffle = false
	opts.BatchSize = len(dataset)
	c, err := corpus.Fit(ctx, dataset, nil, 2, corpus.WithOptions(opts))
	require.NoError(t, err)
	loader, err := c.Transform(ctx, dataset, 2)
	require.NoError(t, err)
	it := loader.Iterate(ctx)
	defer it.Close()
	b, ok := it.Next()
	require.True(t, ok)
	return b.Items(), c.Vocabulary()
}

func newModel(t *testing.T, vocab *vocabulary.Vocabulary) *jtnn.Model {
	t.Helper()
	m, err := jtnn.NewModel(smallConfig, vocab)
	require.NoError(t, err)
	m.Init(rand.New(rand.NewSource(1)))
	return m
}

func TestNewModel_Validation(t *testing.T) {
	vocab := vocabulary.New()
	_, err := vocab.Add("CC")
	require.NoError(t, err)

	bad := []jtnn.Config{
		{HiddenSize: 0, LatentSize: 4, Depth: 1},
		{HiddenSize: 4, LatentSize: 3, Depth: 1},
		{HiddenSize: 4, LatentSize: 4, Depth: 0},
	}
	for _, cfg := range bad {
		_, err := jtnn.NewModel(cfg, vocab)
		assert.True(t, errors.IsCode(err, errors.ErrCodeModelConfig), "%+v", cfg)
	}
	_, err = jtnn.NewModel(smallConfig, vocabulary.New())
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelConfig))
}

func TestInit(t *testing.T) {
	_, vocab := fixtureItems(t, testutil.FixtureSMILES[:5])
	m := newModel(t, vocab)
	ps := m.Parameters()
	for _, name := range ps.Names() {
		p, _ := ps.Get(name)
		if len(p.Shape) == 1 {
			assert.Equal(t, make([]float64, p.Len()), p.Data, name)
		}
	}
	emb, ok := ps.Get("embedding")
	require.True(t, ok)
	assert.Equal(t, []int{vocab.Size(), smallConfig.HiddenSize}, emb.Shape)
}

func TestEncodeAndSample(t *testing.T) {
	items, vocab := fixtureItems(t, testutil.FixtureSMILES[:8])
	m := newModel(t, vocab)

	for _, item := range items {
		enc := m.Encode(item)
		assert.Equal(t, 2, enc.TreeMean.Len())
		assert.Equal(t, 2, enc.GraphMean.Len())
		for _, v := range append(append([]float64{}, enc.TreeLogVar.Data...), enc.GraphLogVar.Data...) {
			assert.LessOrEqual(t, v, 0.0)
		}
		assert.GreaterOrEqual(t, enc.KL().Value(), 0.0)
		assert.Len(t, enc.Vector(), 4)

		mean := m.Sample(enc, rand.New(rand.NewSource(2)), false)
		assert.Equal(t, enc.TreeMean.Data, mean.ZTree.Data)
		sampled := m.Sample(enc, rand.New(rand.NewSource(2)), true)
		assert.NotEqual(t, enc.GraphMean.Data, sampled.ZGraph.Data)
	}
}

func TestTeacherForcing_Counts(t *testing.T) {
	items, vocab := fixtureItems(t, testutil.FixtureSMILES)
	m := newModel(t, vocab)
	rng := rand.New(rand.NewSource(3))

	for _, item := range items {
		z := m.Sample(m.Encode(item), rng, true)
		res, err := m.Decode(jtnn.TeacherForcing{}, item, z)
		require.NoError(t, err)

		n := item.NumNodes()
		assert.Equal(t, n, res.WordTotal, item.SMILES)
		assert.Equal(t, 2*(n-1)+1, res.TopoTotal, item.SMILES)
		assert.LessOrEqual(t, res.AssmTotal, n-1)
		for _, term := range []*autograd.Tensor{res.Word, res.Topo, res.Assm, res.Stereo} {
			assert.True(t, term.Finite())
			assert.GreaterOrEqual(t, term.Value(), 0.0)
		}
		assert.Positive(t, res.Word.Value())
		if len(item.Stereo) > 1 {
			assert.Positive(t, res.Stereo.Value())
		} else {
			assert.Zero(t, res.Stereo.Value())
		}
	}
}

func TestTeacherForcing_Backward(t *testing.T) {
	items, vocab := fixtureItems(t, []string{"Cc1ccncc1", "N[C@@H](C)C(=O)O"})
	m := newModel(t, vocab)
	ps := m.Parameters()
	ps.ZeroGrad()

	for _, item := range items {
		enc := m.Encode(item)
		res, err := m.Decode(jtnn.TeacherForcing{}, item, m.Sample(enc, rand.New(rand.NewSource(4)), true))
		require.NoError(t, err)
		autograd.Backward(autograd.Add(res.Loss(), enc.KL()))
		if item.SMILES == "Cc1ccncc1" {
			require.Len(t, item.Assembly, 1)
			assert.Len(t, item.Assembly[0].Candidates, 3)
		}
	}
	for _, name := range []string{"embedding", "decoder.word.u", "decoder.topo.u", "graph.mpn.wi", "tree.gru.wz", "assm.a", "stereo.s"} {
		p, _ := ps.Get(name)
		assert.Positive(t, floatsNorm(p.Grad), name)
	}
}

func floatsNorm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

// The full model loss agrees with central differences on a few parameters.
func TestGradientCheck(t *testing.T) {
	items, vocab := fixtureItems(t, []string{"Cc1ccncc1"})
	item := items[0]
	m := newModel(t, vocab)
	ps := m.Parameters()

	loss := func() *autograd.Tensor {
		enc := m.Encode(item)
		res, err := m.Decode(jtnn.TeacherForcing{}, item, m.Sample(enc, nil, false))
		require.NoError(t, err)
		return autograd.Add(res.Loss(), enc.KL())
	}

	ps.ZeroGrad()
	autograd.Backward(loss())
	for _, name := range []string{"decoder.word.ub", "decoder.topo.ub", "latent.tree_mean.b", "assm.a"} {
		p, _ := ps.Get(name)
		for i := 0; i < min(p.Len(), 6); i++ {
			orig := p.Data[i]
			p.Data[i] = orig + 1e-6
			up := loss().Value()
			p.Data[i] = orig - 1e-6
			down := loss().Value()
			p.Data[i] = orig
			numeric := (up - down) / 2e-6
			assert.InDelta(t, numeric, p.Grad[i], 1e-3*math.Max(1, math.Abs(numeric)), "%s[%d]", name, i)
		}
	}
}

func TestGreedy(t *testing.T) {
	items, vocab := fixtureItems(t, testutil.FixtureSMILES)
	m := newModel(t, vocab)

	for _, item := range items[:10] {
		z := m.Sample(m.Encode(item), nil, false)
		res, err := m.Decode(jtnn.Greedy{MaxNodes: 5}, nil, z)
		require.NoError(t, err)
		assert.NotEmpty(t, res.Labels)
		assert.LessOrEqual(t, len(res.Labels), 5)
		assert.Len(t, res.Edges, len(res.Labels)-1)
		require.NotNil(t, res.Molecule)
		assert.True(t, res.Molecule.IsConnected())
		assert.Equal(t, molecule.CanonicalSMILES(res.Molecule), res.SMILES)
		assert.GreaterOrEqual(t, res.Skipped, 0)
		assert.Zero(t, res.Loss().Value())
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	_, vocab := fixtureItems(t, testutil.FixtureSMILES[:6])
	m := newModel(t, vocab)

	ck := jtnn.NewCheckpoint(m, "run-1")
	ck.Trainer = jtnn.TrainerState{Step: 12, Epoch: 1, Beta: 0.002, LearningRate: 1e-3}
	opt := autograd.NewAdam()
	state := opt.State()
	ck.Optimizer = &state

	data, err := jtnn.EncodeCheckpoint(ck)
	require.NoError(t, err)
	back, err := jtnn.DecodeCheckpoint(data)
	require.NoError(t, err)
	assert.Equal(t, "run-1", back.RunID)
	assert.Equal(t, ck.Trainer, back.Trainer)
	assert.Equal(t, smallConfig, back.Model)

	fresh, err := jtnn.NewModel(smallConfig, vocab)
	require.NoError(t, err)
	require.NoError(t, back.Restore(fresh))
	assert.Equal(t, m.Parameters().Values(), fresh.Parameters().Values())

	wider := smallConfig
	wider.HiddenSize = 16
	other, err := jtnn.NewModel(wider, vocab)
	require.NoError(t, err)
	assert.True(t, errors.IsCode(back.Restore(other), errors.ErrCodeModelConfig))

	_, err = jtnn.DecodeCheckpoint([]byte("not zstd"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

//Personal.AI order the ending
