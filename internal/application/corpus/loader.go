package corpus

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/vocabulary"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// TransformStats summarises a Transform call.
type TransformStats struct {
	Total   int `json:"total"`
	Kept    int `json:"kept"`
	Invalid int `json:"invalid"`
	Unknown int `json:"unknown"`
}

// Transform decomposes and labels dataset against the frozen vocabulary.
// Molecules that fail to decompose or contain unknown clusters are dropped
// and counted.  The returned Loader builds batches on numWorkers goroutines.
func (c *Corpus) Transform(ctx context.Context, dataset []string, numWorkers int) (*Loader, error) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	trees, _, err := c.decomposeAll(ctx, dataset, numWorkers)
	if err != nil {
		return nil, err
	}

	stats := TransformStats{Total: len(dataset)}
	kept := make([]*junction.Tree, 0, len(trees))
	for i, t := range trees {
		if t == nil {
			stats.Invalid++
			continue
		}
		if err := c.vocab.Label(t); err != nil {
			stats.Unknown++
			c.logger.Debug("Dropping molecule with unknown cluster",
				logging.Int("index", i), logging.String("smiles", t.SMILES), logging.Err(err))
			continue
		}
		kept = append(kept, t)
	}
	stats.Kept = len(kept)
	c.logger.Info("Corpus transformed",
		logging.Int("total", stats.Total), logging.Int("kept", stats.Kept),
		logging.Int("invalid", stats.Invalid), logging.Int("unknown", stats.Unknown))
	if stats.Kept == 0 {
		return nil, errors.New(errors.CodeEmptyCorpus, "no molecule survived labelling")
	}

	opts := c.opts
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.Prefetch < 1 {
		opts.Prefetch = 1
	}
	return &Loader{
		trees:   kept,
		vocab:   c.vocab,
		opts:    opts,
		workers: numWorkers,
		logger:  c.logger,
		stats:   stats,
	}, nil
}

// LoaderStats counts per-example conditions met while building batches.
type LoaderStats struct {
	Transform  TransformStats `json:"transform"`
	Mismatches int64          `json:"assembly_mismatches"`
	Batches    int64          `json:"batches"`
}

// Loader is a restartable source of batches.  Each Iterate call walks one
// epoch, or epochs without end when Options.Repeat is set.
type Loader struct {
	trees   []*junction.Tree
	vocab   *vocabulary.Vocabulary
	opts    Options
	workers int
	logger  logging.Logger
	stats   TransformStats

	epoch      atomic.Int64
	mismatches atomic.Int64
	batches    atomic.Int64
}

// Len returns the number of examples.
func (l *Loader) Len() int { return len(l.trees) }

// NumBatches returns the number of batches in one epoch.
func (l *Loader) NumBatches() int {
	n := len(l.trees) / l.opts.BatchSize
	if !l.opts.DropLast && len(l.trees)%l.opts.BatchSize != 0 {
		n++
	}
	return n
}

// Vocabulary returns the vocabulary labels refer to.
func (l *Loader) Vocabulary() *vocabulary.Vocabulary { return l.vocab }

// Options returns the batching options.
func (l *Loader) Options() Options { return l.opts }

// Stats returns counters accumulated so far.
func (l *Loader) Stats() LoaderStats {
	return LoaderStats{Transform: l.stats, Mismatches: l.mismatches.Load(), Batches: l.batches.Load()}
}

// SetEpoch sets the epoch number the next Iterate call starts from.  The
// shuffle order of an epoch depends only on the seed and its number.
func (l *Loader) SetEpoch(epoch int) { l.epoch.Store(int64(epoch)) }

// plan returns the example indices of each batch of epoch.
func (l *Loader) plan(epoch int64) [][]int {
	order := lo.Range(len(l.trees))
	if l.opts.Shuffle {
		rng := rand.New(rand.NewSource(l.opts.Seed + epoch))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	chunks := lo.Chunk(order, l.opts.BatchSize)
	if l.opts.DropLast && len(chunks) > 0 && len(chunks[len(chunks)-1]) < l.opts.BatchSize {
		chunks = chunks[:len(chunks)-1]
	}
	return chunks
}

type batchResult struct {
	batch *Batch
	err   error
}

type batchJob struct {
	idx []int
	out chan batchResult
}

// Iterate starts the producer pipeline and returns its consumer end.
// Workers build batches concurrently; an ordered queue of depth Prefetch
// delivers them in epoch order.
func (l *Loader) Iterate(ctx context.Context) *BatchIterator {
	inner, cancel := context.WithCancel(ctx)
	it := &BatchIterator{parent: ctx, cancel: cancel, queue: make(chan chan batchResult, l.opts.Prefetch)}

	jobs := make(chan batchJob)
	var wg sync.WaitGroup
	for w := 0; w < l.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				b, err := l.buildBatch(j.idx)
				j.out <- batchResult{batch: b, err: err}
			}
		}()
	}

	go func() {
		defer close(it.queue)
		defer wg.Wait()
		defer close(jobs)
		for {
			epoch := l.epoch.Add(1) - 1
			for _, idx := range l.plan(epoch) {
				out := make(chan batchResult, 1)
				select {
				case jobs <- batchJob{idx: idx, out: out}:
				case <-inner.Done():
					return
				}
				select {
				case it.queue <- out:
				case <-inner.Done():
					return
				}
			}
			if !l.opts.Repeat {
				return
			}
		}
	}()
	return it
}

func (l *Loader) buildBatch(idx []int) (*Batch, error) {
	items := make([]*Item, len(idx))
	for i, k := range idx {
		items[i] = l.buildItem(l.trees[k])
	}
	l.batches.Add(1)
	return NewBatch(items), nil
}

// buildItem featurizes one labelled tree and enumerates its assembly and
// stereo candidates.
func (l *Loader) buildItem(t *junction.Tree) *Item {
	item := &Item{
		SMILES: t.SMILES,
		Mol:    t.Mol,
		Labels: t.Labels(),
		Edges:  append([][2]int(nil), t.Edges...),
		Order:  t.DFSOrder(),
		Graph:  molecule.Featurize(t.Mol),
	}

	cases, err := junction.AssemblyCases(t, l.templates(t), l.opts.MaxCandidates)
	switch {
	case err == nil:
		item.Assembly = make([]AssemblyTarget, len(cases))
		for i, ac := range cases {
			item.Assembly[i] = AssemblyTarget{
				Node:       ac.Node,
				Parent:     ac.Parent,
				Target:     ac.Target,
				Candidates: lo.Map(ac.Candidates, func(m *molecule.Molecule, _ int) molecule.FeatureGraph { return molecule.Featurize(m) }),
			}
		}
	default:
		item.AssemblyMismatch = true
		l.mismatches.Add(1)
		l.logger.Debug("Assembly target not reproducible", logging.String("smiles", t.SMILES), logging.Err(err))
	}

	if isomers := molecule.StereoIsomers(t.Mol, l.opts.MaxStereo); len(isomers) > 1 {
		item.Stereo = lo.Map(isomers, func(m *molecule.Molecule, _ int) molecule.FeatureGraph { return molecule.Featurize(m) })
	}
	return item
}

func (l *Loader) templates(t *junction.Tree) junction.TemplateFunc {
	return func(node int) (*molecule.Molecule, error) {
		tmpl := l.vocab.Template(t.Clusters[node].Label)
		if tmpl == nil {
			return nil, errors.UnknownCluster(t.Clusters[node].Signature)
		}
		return tmpl.Molecule(), nil
	}
}

// BatchIterator is the consumer end of a Loader pipeline.  It is not safe
// for concurrent use.
type BatchIterator struct {
	parent context.Context
	cancel context.CancelFunc
	queue  chan chan batchResult
	err    error
	closed bool
}

// Next blocks for the next batch.  It returns false at the end of the
// epoch, on error, after cancellation, or after Close.
func (it *BatchIterator) Next() (*Batch, bool) {
	if it.closed || it.err != nil {
		return nil, false
	}
	out, ok := <-it.queue
	if !ok {
		it.err = it.parent.Err()
		it.Close()
		return nil, false
	}
	r := <-out
	if r.err != nil {
		it.err = r.err
		it.Close()
		return nil, false
	}
	return r.batch, true
}

// Err returns the error that ended iteration, if any.
func (it *BatchIterator) Err() error { return it.err }

// Close stops the pipeline.  It is safe to call more than once.
func (it *BatchIterator) Close() {
	if it.closed {
		return
	}
	it.closed = true
	it.cancel()
}

//Personal.AI order the ending
