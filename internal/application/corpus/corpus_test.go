package corpus_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/internal/testutil"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

func noShuffle(batch int) corpus.Options {
	o := corpus.DefaultOptions()
	o.BatchSize = batch
	o.Shuffle = false
	return o
}

func drain(t *testing.T, it *corpus.BatchIterator) []*corpus.Batch {
	t.Helper()
	var out []*corpus.Batch
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			b, ok := it.Next()
			if !ok {
				return
			}
			out = append(out, b)
		}
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("iterator did not finish")
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// ReadSMILES
// ─────────────────────────────────────────────────────────────────────────────

func TestReadSMILES(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		column string
		want   []string
	}{
		{"lines", "CCO\n\nc1ccccc1\n  \nO\n", "", []string{"CCO", "c1ccccc1", "O"}},
		{"header", "smiles\nCCO\nCN\n", "", []string{"CCO", "CN"}},
		{"csv column", "id,SMILES,logp\n1,CCO,0.1\n2,CC(=O)O,0.2\n", "smiles", []string{"CCO", "CC(=O)O"}},
		{"csv default column", "id,smiles\n1,CCO\n", "", []string{"CCO"}},
		{"no header", "CCO,1\nCN,2\n", "", []string{"CCO", "CN"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := corpus.ReadSMILES(strings.NewReader(tc.in), tc.column)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := corpus.ReadSMILES(strings.NewReader("id,name\n1,CCO\n"), "smiles")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

// ─────────────────────────────────────────────────────────────────────────────
// Fit
// ─────────────────────────────────────────────────────────────────────────────

func TestFit_DeterministicAcrossWorkerCounts(t *testing.T) {
	ctx := context.Background()
	var sigs [][]string
	for _, n := range []int{1, 3, 8} {
		c, err := corpus.Fit(ctx, testutil.FixtureSMILES, nil, n)
		require.NoError(t, err)
		assert.True(t, c.Vocabulary().Frozen())
		sigs = append(sigs, c.Vocabulary().Signatures())
	}
	assert.Equal(t, sigs[0], sigs[1])
	assert.Equal(t, sigs[0], sigs[2])
	assert.Equal(t, "CC", sigs[0][0])
	assert.Equal(t, "CO", sigs[0][1])
}

func TestFit_SkipsInvalidMolecules(t *testing.T) {
	dataset := append(append([]string{}, testutil.InvalidSMILES...), testutil.FixtureSMILES...)
	dataset = append(dataset, testutil.InvalidSMILES...)

	log := testutil.NewMockLogger()
	c, err := corpus.Fit(context.Background(), dataset, nil, 4, corpus.WithLogger(log))
	require.NoError(t, err)

	s := c.Stats()
	assert.Equal(t, len(dataset), s.Total)
	assert.Equal(t, len(testutil.FixtureSMILES), s.Valid)
	assert.Equal(t, 2*len(testutil.InvalidSMILES), s.Skipped)
	assert.Positive(t, s.ByCode[errors.CodeMoleculeInvalidSMILES])
	assert.Positive(t, s.ByCode[errors.CodeDecomposition])
	assert.True(t, log.HasMessage("info", "Corpus fitted"))
	assert.Equal(t, 2*len(testutil.InvalidSMILES), log.Count("debug"))

	clean, err := corpus.Fit(context.Background(), testutil.FixtureSMILES, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, clean.Vocabulary().Signatures(), c.Vocabulary().Signatures())
}

func TestFit_SkipsOverValentMolecules(t *testing.T) {
	dataset := append([]string{"CCO"}, testutil.OverValentSMILES...)

	c, err := corpus.Fit(context.Background(), dataset, nil, 2)
	require.NoError(t, err)

	s := c.Stats()
	assert.Equal(t, 1, s.Valid)
	assert.Equal(t, len(testutil.OverValentSMILES), s.Skipped)
	assert.Equal(t, len(testutil.OverValentSMILES), s.ByCode[errors.CodeDecomposition])

	clean, err := corpus.Fit(context.Background(), []string{"CCO"}, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, clean.Vocabulary().Signatures(), c.Vocabulary().Signatures())
}

func TestFit_EmptyCorpus(t *testing.T) {
	_, err := corpus.Fit(context.Background(), testutil.InvalidSMILES, nil, 2)
	assert.True(t, errors.IsCode(err, errors.CodeEmptyCorpus))

	_, err = corpus.Fit(context.Background(), nil, nil, 2)
	assert.True(t, errors.IsCode(err, errors.CodeEmptyCorpus))
}

func TestFit_ReusesVocabulary(t *testing.T) {
	ctx := context.Background()
	first, err := corpus.Fit(ctx, testutil.FixtureSMILES[:10], nil, 2)
	require.NoError(t, err)
	vocab := first.Vocabulary()
	size := vocab.Size()

	second, err := corpus.Fit(ctx, testutil.FixtureSMILES, vocab, 2)
	require.NoError(t, err)
	assert.Same(t, vocab, second.Vocabulary())
	assert.Equal(t, size, vocab.Size())
}

func TestFit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := corpus.Fit(ctx, testutil.FixtureSMILES, nil, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFit_UsesCache(t *testing.T) {
	cache, err := junction.NewLRUCache(128)
	require.NoError(t, err)
	_, err = corpus.Fit(context.Background(), testutil.FixtureSMILES, nil, 2, corpus.WithCache(cache))
	require.NoError(t, err)
	assert.Equal(t, len(testutil.FixtureSMILES), cache.Len())
}

// ─────────────────────────────────────────────────────────────────────────────
// Transform / Loader
// ─────────────────────────────────────────────────────────────────────────────

func TestTransform_DropsUnknownClusters(t *testing.T) {
	ctx := context.Background()
	c, err := corpus.Fit(ctx, []string{"CCO", "c1ccccc1"}, nil, 1)
	require.NoError(t, err)

	loader, err := c.Transform(ctx, []string{"CCO", "C1CCCCCCC1", "C(C", "Oc1ccccc1", "OCC"}, 2)
	require.NoError(t, err)
	st := loader.Stats().Transform
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 2, st.Kept)
	assert.Equal(t, 1, st.Invalid)
	assert.Equal(t, 2, st.Unknown)
	assert.Equal(t, 2, loader.Len())

	_, err = c.Transform(ctx, []string{"C1CCCCCCC1"}, 1)
	assert.True(t, errors.IsCode(err, errors.CodeEmptyCorpus))
}

func TestLoader_OrderAndBatchSizes(t *testing.T) {
	ctx := context.Background()
	c, err := corpus.Fit(ctx, testutil.FixtureSMILES, nil, 4, corpus.WithOptions(noShuffle(8)))
	require.NoError(t, err)
	loader, err := c.Transform(ctx, testutil.FixtureSMILES, 4)
	require.NoError(t, err)

	batches := drain(t, loader.Iterate(ctx))
	require.Len(t, batches, loader.NumBatches())
	require.Len(t, batches, 7)
	var seen []string
	for i, b := range batches {
		if i < len(batches)-1 {
			assert.Equal(t, 8, b.Size)
		}
		seen = append(seen, b.SMILES...)
	}
	assert.Equal(t, 3, batches[len(batches)-1].Size)
	assert.Equal(t, testutil.FixtureSMILES, seen)
}

func TestLoader_DropLast(t *testing.T) {
	ctx := context.Background()
	opts := noShuffle(8)
	opts.DropLast = true
	c, err := corpus.Fit(ctx, testutil.FixtureSMILES, nil, 2, corpus.WithOptions(opts))
	require.NoError(t, err)
	loader, err := c.Transform(ctx, testutil.FixtureSMILES, 2)
	require.NoError(t, err)

	batches := drain(t, loader.Iterate(ctx))
	assert.Len(t, batches, 6)
	assert.Equal(t, 6, loader.NumBatches())
}

func TestLoader_ShuffleIsSeededPerEpoch(t *testing.T) {
	ctx := context.Background()
	opts := corpus.DefaultOptions()
	opts.BatchSize = 16
	opts.Seed = 7

	order := func() [][]string {
		c, err := corpus.Fit(ctx, testutil.FixtureSMILES, nil, 2, corpus.WithOptions(opts))
		require.NoError(t, err)
		loader, err := c.Transform(ctx, testutil.FixtureSMILES, 3)
		require.NoError(t, err)
		var epochs [][]string
		for e := 0; e < 2; e++ {
			var smi []string
			for _, b := range drain(t, loader.Iterate(ctx)) {
				smi = append(smi, b.SMILES...)
			}
			assert.ElementsMatch(t, testutil.FixtureSMILES, smi)
			epochs = append(epochs, smi)
		}
		return epochs
	}
	a, b := order(), order()
	assert.Equal(t, a, b)
	assert.NotEqual(t, a[0], a[1])
	assert.NotEqual(t, testutil.FixtureSMILES, a[0])
}

func TestLoader_RepeatAndClose(t *testing.T) {
	ctx := context.Background()
	opts := noShuffle(10)
	opts.Repeat = true
	c, err := corpus.Fit(ctx, testutil.FixtureSMILES, nil, 2, corpus.WithOptions(opts))
	require.NoError(t, err)
	loader, err := c.Transform(ctx, testutil.FixtureSMILES, 2)
	require.NoError(t, err)

	it := loader.Iterate(ctx)
	want := 2*loader.NumBatches() + 1
	for i := 0; i < want; i++ {
		b, ok := it.Next()
		require.True(t, ok)
		require.NotNil(t, b)
	}
	it.Close()
	_, ok := it.Next()
	assert.False(t, ok)
	assert.NoError(t, it.Err())
	it.Close()
}

func TestLoader_Cancelled(t *testing.T) {
	c, err := corpus.Fit(context.Background(), testutil.FixtureSMILES, nil, 2, corpus.WithOptions(noShuffle(4)))
	require.NoError(t, err)
	loader, err := c.Transform(context.Background(), testutil.FixtureSMILES, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	it := loader.Iterate(ctx)
	drain(t, it)
	assert.ErrorIs(t, it.Err(), context.Canceled)
}

func TestLoader_AssemblyAndStereoTargets(t *testing.T) {
	ctx := context.Background()
	c, err := corpus.Fit(ctx, testutil.FixtureSMILES, nil, 2, corpus.WithOptions(noShuffle(64)))
	require.NoError(t, err)
	loader, err := c.Transform(ctx, testutil.FixtureSMILES, 2)
	require.NoError(t, err)

	batches := drain(t, loader.Iterate(ctx))
	require.Len(t, batches, 1)
	b := batches[0]
	assert.Zero(t, loader.Stats().Mismatches)

	stereo := map[string]bool{}
	for _, s := range testutil.StereoFixtures {
		stereo[s] = true
	}
	for i := 0; i < b.Size; i++ {
		item := b.Item(i)
		assert.False(t, item.AssemblyMismatch, item.SMILES)
		require.Len(t, item.Assembly, item.NumNodes()-1, item.SMILES)
		for _, a := range item.Assembly {
			assert.GreaterOrEqual(t, a.Target, 0)
			assert.Less(t, a.Target, len(a.Candidates))
		}
		if stereo[item.SMILES] {
			assert.Greater(t, len(item.Stereo), 1, item.SMILES)
		} else {
			assert.Empty(t, item.Stereo, item.SMILES)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch padding
// ─────────────────────────────────────────────────────────────────────────────

func itemFor(t *testing.T, smi string, labels []int) *corpus.Item {
	t.Helper()
	tree, err := junction.DecomposeSMILES(smi)
	require.NoError(t, err)
	require.Len(t, labels, tree.NumNodes())
	return &corpus.Item{
		SMILES: smi,
		Mol:    tree.Mol,
		Labels: labels,
		Edges:  tree.Edges,
		Order:  tree.DFSOrder(),
		Graph:  molecule.Featurize(tree.Mol),
	}
}

func TestBatch_Padding(t *testing.T) {
	small := itemFor(t, "O", []int{5})
	large := itemFor(t, "CCOc1ccccc1", []int{0, 1, 2, 3})
	b := corpus.NewBatch([]*corpus.Item{small, large})

	assert.Equal(t, 2, b.Size)
	assert.Equal(t, 4, b.MaxNodes)
	assert.Equal(t, 9, b.MaxAtoms)
	assert.Equal(t, 9, b.MaxBonds)
	assert.Equal(t, []int{1, 4}, b.NodeCounts)
	assert.Equal(t, []int{0, 3}, b.EdgeCounts)
	assert.Equal(t, []int{0, 6}, b.StepCounts)
	assert.Equal(t, []int{1, 9}, b.AtomCounts)
	assert.Equal(t, []int{0, 9}, b.BondCounts)

	for i := 0; i < b.Size; i++ {
		assert.Len(t, b.NodeLabels[i], b.MaxNodes)
		assert.Len(t, b.TreeEdges[i], b.MaxNodes-1)
		assert.Len(t, b.DecodeOrder[i], 2*(b.MaxNodes-1))
		assert.Len(t, b.AtomFeatures[i], b.MaxAtoms)
		assert.Len(t, b.BondIndex[i], b.MaxBonds)
		assert.Len(t, b.BondFeatures[i], b.MaxBonds)

		for k := b.NodeCounts[i]; k < b.MaxNodes; k++ {
			assert.Equal(t, corpus.PadIndex, b.NodeLabels[i][k])
		}
		for k := b.EdgeCounts[i]; k < b.MaxNodes-1; k++ {
			assert.Equal(t, [2]int{-1, -1}, b.TreeEdges[i][k])
		}
		for k := b.StepCounts[i]; k < len(b.DecodeOrder[i]); k++ {
			assert.Equal(t, corpus.PadStep, b.DecodeOrder[i][k])
		}
		for k := b.AtomCounts[i]; k < b.MaxAtoms; k++ {
			assert.Equal(t, make([]float64, molecule.AtomFDim), b.AtomFeatures[i][k])
		}
		for k := b.BondCounts[i]; k < b.MaxBonds; k++ {
			assert.Equal(t, [2]int{-1, -1}, b.BondIndex[i][k])
			assert.Equal(t, make([]float64, molecule.BondFDim), b.BondFeatures[i][k])
		}
	}

	got := b.Item(1)
	assert.Equal(t, large.SMILES, got.SMILES)
	assert.Equal(t, large.Labels, got.Labels)
	assert.Equal(t, large.Edges, got.Edges)
	assert.Equal(t, large.Order, got.Order)
	assert.Equal(t, large.Graph, got.Graph)

	one := b.Item(0)
	assert.Equal(t, []int{5}, one.Labels)
	assert.Empty(t, one.Edges)
	assert.Empty(t, one.Order)
	assert.Len(t, one.Graph.Atoms, 1)
	assert.Empty(t, one.Graph.Bonds)
}

//Personal.AI order the ending
