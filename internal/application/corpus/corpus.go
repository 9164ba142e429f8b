// Package corpus turns a SMILES dataset into labelled junction trees and
// serves them as padded, prefetched batches.
package corpus

import (
	"context"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/vocabulary"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Options controls batching.  The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	BatchSize     int
	Shuffle       bool
	DropLast      bool
	Repeat        bool
	Prefetch      int
	Seed          int64
	MaxCandidates int
	MaxStereo     int
}

// DefaultOptions returns the batching defaults.
func DefaultOptions() Options {
	return Options{BatchSize: 32, Shuffle: true, Prefetch: 2, Seed: 42, MaxCandidates: 64, MaxStereo: 8}
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option { return func(c *Corpus) { c.logger = log } }

// WithCache routes decomposition through cache.
func WithCache(cache junction.Cache) Option {
	return func(c *Corpus) { c.decomposer = junction.NewDecomposer(cache) }
}

// WithOptions sets the batching options used by Transform.
func WithOptions(o Options) Option { return func(c *Corpus) { c.opts = o } }

// FitStats summarises a Fit call.
type FitStats struct {
	Total    int                      `json:"total"`
	Valid    int                      `json:"valid"`
	Skipped  int                      `json:"skipped"`
	ByCode   map[errors.ErrorCode]int `json:"by_code,omitempty"`
	Elapsed  time.Duration            `json:"elapsed"`
	VocabLen int                      `json:"vocab_len"`
}

// Corpus binds a frozen vocabulary to the decomposition pipeline.
type Corpus struct {
	vocab      *vocabulary.Vocabulary
	decomposer *junction.Decomposer
	opts       Options
	logger     logging.Logger
	stats      FitStats
}

// Fit decomposes dataset across nJobs workers and builds the vocabulary.
// A non-nil vocab is frozen and reused as is.  Molecules that fail to parse
// or decompose are skipped and counted; if none remain Fit fails with
// CodeEmptyCorpus.  Vocabulary indices follow dataset order regardless of
// nJobs.
func Fit(ctx context.Context, dataset []string, vocab *vocabulary.Vocabulary, nJobs int, opts ...Option) (*Corpus, error) {
	c := &Corpus{
		decomposer: junction.NewDecomposer(nil),
		opts:       DefaultOptions(),
		logger:     logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	start := time.Now()

	trees, failures, err := c.decomposeAll(ctx, dataset, nJobs)
	if err != nil {
		return nil, err
	}
	c.stats = summarize(dataset, trees, failures)
	if c.stats.Valid == 0 {
		return nil, errors.New(errors.CodeEmptyCorpus, "no molecule in the dataset could be decomposed")
	}

	if vocab == nil {
		vocab = vocabulary.New()
		valid := lo.Filter(trees, func(t *junction.Tree, _ int) bool { return t != nil })
		if err := vocab.Fit(lo.Map(valid, func(t *junction.Tree, _ int) []string { return t.Signatures() })); err != nil {
			return nil, err
		}
	}
	vocab.Freeze()
	c.vocab = vocab
	c.stats.VocabLen = vocab.Size()
	c.stats.Elapsed = time.Since(start)

	c.logger.Info("Corpus fitted",
		logging.Int("total", c.stats.Total),
		logging.Int("valid", c.stats.Valid),
		logging.Int("skipped", c.stats.Skipped),
		logging.Int("vocab_size", c.stats.VocabLen),
		logging.Duration("elapsed", c.stats.Elapsed))
	return c, nil
}

// Vocabulary returns the frozen vocabulary.
func (c *Corpus) Vocabulary() *vocabulary.Vocabulary { return c.vocab }

// Stats returns the statistics of the Fit call.
func (c *Corpus) Stats() FitStats { return c.stats }

// Options returns the batching options.
func (c *Corpus) Options() Options { return c.opts }

// decomposeAll fills one slot per dataset entry.  Per-molecule failures land
// in failures; only context cancellation is returned as an error.
func (c *Corpus) decomposeAll(ctx context.Context, dataset []string, nJobs int) ([]*junction.Tree, []error, error) {
	if nJobs < 1 {
		nJobs = 1
	}
	trees := make([]*junction.Tree, len(dataset))
	failures := make([]error, len(dataset))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nJobs)
	for i, smi := range dataset {
		i, smi := i, smi
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := c.decomposer.Decompose(gctx, smi)
			if err != nil {
				failures[i] = err
				c.logger.Debug("Skipping molecule", logging.Int("index", i), logging.String("smiles", smi), logging.Err(err))
				return nil
			}
			trees[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return trees, failures, nil
}

func summarize(dataset []string, trees []*junction.Tree, failures []error) FitStats {
	s := FitStats{Total: len(dataset), ByCode: map[errors.ErrorCode]int{}}
	for i := range dataset {
		if trees[i] != nil {
			s.Valid++
			continue
		}
		s.Skipped++
		s.ByCode[errors.GetCode(failures[i])]++
	}
	return s
}

//Personal.AI order the ending
