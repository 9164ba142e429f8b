package training

import (
	"context"
	"encoding/json"
	"math/rand"

	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/vocabulary"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/jtnn"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Pipeline runs a full training job: vocabulary, corpus, model, trainer and
// the final artifacts.
type Pipeline struct {
	Config *config.Config
	Store  Store
	Cache  junction.Cache
	Logger logging.Logger
	Sinks  []MetricsSink
	Ledger Ledger
	Stop   <-chan struct{}

	// Resume restores from ResumeKey, or the newest checkpoint when empty.
	Resume    bool
	ResumeKey string

	// OnTrainer is called with the trainer before Fit starts.
	OnTrainer func(*Trainer)
}

// CorpusOptions maps configuration onto loader options.
func CorpusOptions(cfg *config.Config) corpus.Options {
	return corpus.Options{
		BatchSize:     cfg.Train.BatchSize,
		Shuffle:       !cfg.Train.NoShuffle,
		DropLast:      cfg.Train.DropLast,
		Repeat:        cfg.Train.Repeat,
		Prefetch:      cfg.Train.Prefetch,
		Seed:          cfg.Train.Seed,
		MaxCandidates: cfg.Model.MaxCandidates,
		MaxStereo:     cfg.Model.MaxStereoIsomers,
	}
}

// Snapshot returns the model, train and paths sections as JSON.
func Snapshot(cfg *config.Config) (json.RawMessage, error) {
	raw, err := json.Marshal(struct {
		Model config.ModelConfig `json:"model"`
		Train config.TrainConfig `json:"train"`
		Paths config.PathsConfig `json:"paths"`
	}{cfg.Model, cfg.Train, cfg.Paths})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal config snapshot")
	}
	return raw, nil
}

// Run trains on dataset and writes the vocabulary, final model and config
// snapshot to the store.
func (p *Pipeline) Run(ctx context.Context, dataset []string) (*Result, *jtnn.Model, error) {
	if p.Config == nil || p.Store == nil {
		return nil, nil, errors.InvalidParam("pipeline requires config and store")
	}
	cfg := p.Config
	log := p.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	snapshot, err := Snapshot(cfg)
	if err != nil {
		return nil, nil, err
	}

	vocab, err := vocabulary.Load(ctx, p.Store, cfg.Paths.VocabKey)
	switch {
	case err == nil:
		log.Info("Loaded vocabulary", logging.String("key", cfg.Paths.VocabKey), logging.Int("size", vocab.Size()))
	case errors.IsNotFound(err):
		vocab = nil
	default:
		return nil, nil, errors.CheckpointIO(err, "load vocabulary").WithDetail(cfg.Paths.VocabKey)
	}

	copts := []corpus.Option{corpus.WithLogger(log), corpus.WithOptions(CorpusOptions(cfg))}
	if p.Cache != nil {
		copts = append(copts, corpus.WithCache(p.Cache))
	}
	c, err := corpus.Fit(ctx, dataset, vocab, cfg.Train.NJobs, copts...)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Vocabulary().Save(ctx, p.Store, cfg.Paths.VocabKey); err != nil {
		return nil, nil, err
	}
	loader, err := c.Transform(ctx, dataset, cfg.Train.NJobs)
	if err != nil {
		return nil, nil, err
	}

	model, err := jtnn.NewModel(jtnn.ConfigFrom(cfg.Model), c.Vocabulary())
	if err != nil {
		return nil, nil, err
	}
	model.Init(rand.New(rand.NewSource(cfg.Train.Seed)))

	opts := []Option{
		WithStore(p.Store, cfg.Paths.CheckpointPrefix, cfg.Paths.VocabKey),
		WithLogger(log),
		WithConfigSnapshot(snapshot),
		WithStopSignal(p.Stop),
	}
	for _, s := range p.Sinks {
		opts = append(opts, WithSink(s))
	}
	if p.Ledger != nil {
		opts = append(opts, WithLedger(p.Ledger))
	}
	trainer := NewTrainer(cfg.Train, model, opts...)
	if p.Resume {
		if err := trainer.Resume(ctx, p.ResumeKey); err != nil {
			return nil, nil, err
		}
	}
	if p.OnTrainer != nil {
		p.OnTrainer(trainer)
	}

	res, err := trainer.Fit(ctx, loader)
	if err != nil {
		return nil, nil, err
	}

	wctx := context.WithoutCancel(ctx)
	ck := jtnn.NewCheckpoint(model, trainer.RunID())
	ck.Trainer = trainer.State()
	ck.Config = snapshot
	data, err := jtnn.EncodeCheckpoint(ck)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Store.Put(wctx, cfg.Paths.ModelKey, data); err != nil {
		return nil, nil, errors.CheckpointIO(err, "write model").WithDetail(cfg.Paths.ModelKey)
	}
	if err := p.Store.Put(wctx, cfg.Paths.ConfigKey, snapshot); err != nil {
		return nil, nil, errors.CheckpointIO(err, "write config").WithDetail(cfg.Paths.ConfigKey)
	}
	log.Info("Model saved",
		logging.String("model_key", cfg.Paths.ModelKey),
		logging.String("config_key", cfg.Paths.ConfigKey))
	return res, model, nil
}

// LoadModel rebuilds a trained model from the vocabulary at vocabKey and the
// checkpoint at modelKey.
func LoadModel(ctx context.Context, store Store, modelKey, vocabKey string) (*jtnn.Model, *jtnn.Checkpoint, error) {
	vocab, err := vocabulary.Load(ctx, store, vocabKey)
	if err != nil {
		return nil, nil, errors.CheckpointIO(err, "load vocabulary").WithDetail(vocabKey)
	}
	data, err := store.Get(ctx, modelKey)
	if err != nil {
		return nil, nil, errors.CheckpointIO(err, "read model").WithDetail(modelKey)
	}
	ck, err := jtnn.DecodeCheckpoint(data)
	if err != nil {
		return nil, nil, err
	}
	model, err := jtnn.NewModel(ck.Model, vocab)
	if err != nil {
		return nil, nil, err
	}
	if err := ck.Restore(model); err != nil {
		return nil, nil, err
	}
	return model, ck, nil
}

//Personal.AI order the ending
