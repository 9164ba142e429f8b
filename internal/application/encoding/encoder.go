// Package encoding maps molecules to latent vectors with a trained model and
// decodes them back.
package encoding

import (
	"context"
	"time"

	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/jtnn"
)

// Record is one encoded molecule.
type Record struct {
	SMILES string    `json:"smiles"`
	Vector []float32 `json:"vector"`
}

// Index stores latent vectors.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
}

// Reconstruction is the greedy decode of an encoded molecule.  Exact compares
// canonical SMILES, which carry no chirality or double-bond configuration, and
// greedy decoding assigns none.  Stereo marks inputs whose stereo elements an
// exact match therefore does not confirm.
type Reconstruction struct {
	Input   string `json:"input"`
	Output  string `json:"output"`
	Exact   bool   `json:"exact"`
	Stereo  bool   `json:"stereo"`
	Skipped int    `json:"skipped_nodes"`
	Error   string `json:"error,omitempty"`
}

// Stats summarises one Encode call.
type Stats struct {
	Total   int
	Encoded int
	Dropped int
	Elapsed time.Duration
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option { return func(e *Encoder) { e.logger = log } }

// WithWorkers sets the decomposition and batching parallelism.
func WithWorkers(n int) Option { return func(e *Encoder) { e.workers = n } }

// WithBatchSize sets how many molecules are encoded per batch.
func WithBatchSize(n int) Option { return func(e *Encoder) { e.batch = n } }

// Encoder runs a model in inference mode.
type Encoder struct {
	model   *jtnn.Model
	logger  logging.Logger
	workers int
	batch   int
}

// NewEncoder creates an encoder for model.
func NewEncoder(model *jtnn.Model, opts ...Option) *Encoder {
	e := &Encoder{model: model, logger: logging.NewNopLogger(), workers: 1, batch: 64}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Encoder) items(ctx context.Context, dataset []string, fn func(*corpus.Item) error) (int, error) {
	opts := corpus.DefaultOptions()
	opts.Shuffle = false
	opts.BatchSize = e.batch
	opts.MaxCandidates = e.model.Config().MaxCandidates
	opts.MaxStereo = e.model.Config().MaxStereo

	c, err := corpus.Fit(ctx, dataset, e.model.Vocabulary(), e.workers, corpus.WithOptions(opts), corpus.WithLogger(e.logger))
	if err != nil {
		return 0, err
	}
	loader, err := c.Transform(ctx, dataset, e.workers)
	if err != nil {
		return 0, err
	}
	it := loader.Iterate(ctx)
	defer it.Close()
	for {
		b, ok := it.Next()
		if !ok {
			break
		}
		for _, item := range b.Items() {
			if err := fn(item); err != nil {
				return 0, err
			}
		}
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return loader.Len(), nil
}

// Encode returns the posterior means of every molecule the model's
// vocabulary covers.  Molecules that cannot be decomposed or labelled are
// dropped and counted.
func (e *Encoder) Encode(ctx context.Context, dataset []string) ([]Record, Stats, error) {
	start := time.Now()
	var out []Record
	_, err := e.items(ctx, dataset, func(item *corpus.Item) error {
		out = append(out, Record{SMILES: item.SMILES, Vector: e.model.Encode(item).Vector()})
		return nil
	})
	stats := Stats{Total: len(dataset), Encoded: len(out), Dropped: len(dataset) - len(out), Elapsed: time.Since(start)}
	if err != nil {
		return nil, stats, err
	}
	e.logger.Info("Molecules encoded",
		logging.Int("total", stats.Total),
		logging.Int("encoded", stats.Encoded),
		logging.Int("dropped", stats.Dropped),
		logging.Duration("elapsed", stats.Elapsed))
	return out, stats, nil
}

// EncodeInto encodes dataset and upserts the records into idx.
func (e *Encoder) EncodeInto(ctx context.Context, dataset []string, idx Index) (Stats, error) {
	records, stats, err := e.Encode(ctx, dataset)
	if err != nil {
		return stats, err
	}
	if len(records) == 0 {
		return stats, nil
	}
	return stats, idx.Upsert(ctx, records)
}

// Reconstruct encodes each molecule to its mean and decodes it greedily.
// Matching ignores stereochemistry; see Reconstruction.
func (e *Encoder) Reconstruct(ctx context.Context, dataset []string) ([]Reconstruction, error) {
	var out []Reconstruction
	_, err := e.items(ctx, dataset, func(item *corpus.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		z := e.model.Sample(e.model.Encode(item), nil, false)
		r := Reconstruction{Input: item.SMILES, Stereo: item.Mol.HasStereo()}
		res, err := e.model.Decode(jtnn.Greedy{}, nil, z)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Output = res.SMILES
			r.Skipped = res.Skipped
			r.Exact = res.SMILES == molecule.CanonicalSMILES(item.Mol)
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

//Personal.AI order the ending
