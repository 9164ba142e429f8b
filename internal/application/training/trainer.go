// Package training runs the optimisation loop for the junction-tree VAE:
// step losses, KL and learning-rate schedules, checkpoints and reports.
package training

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/autograd"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/jtnn"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Store persists checkpoints and the vocabulary.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Ledger records runs and checkpoints.  Ledger errors are logged only.
type Ledger interface {
	StartRun(ctx context.Context, run RunInfo) error
	RecordCheckpoint(ctx context.Context, runID string, step int, key string) error
	FinishRun(ctx context.Context, runID string, res *Result) error
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	RunID     string
	StartedAt time.Time
	Examples  int
	VocabSize int
	Config    json.RawMessage
}

// Result summarises a finished or stopped run.
type Result struct {
	RunID          string
	Steps          int
	Epochs         int
	Skipped        int
	Stopped        bool
	LastCheckpoint string
	Final          StepMetrics
	Elapsed        time.Duration
}

// Status is a point-in-time view of a trainer.
type Status struct {
	RunID        string    `json:"run_id"`
	Running      bool      `json:"running"`
	Step         int       `json:"step"`
	Epoch        int       `json:"epoch"`
	Beta         float64   `json:"beta"`
	LearningRate float64   `json:"learning_rate"`
	Loss         float64   `json:"loss"`
	Skipped      int       `json:"skipped"`
	Checkpoint   string    `json:"checkpoint,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LatestKey names the pointer object holding the newest checkpoint key.
const LatestKey = "latest"

// Option configures a Trainer.
type Option func(*Trainer)

// WithStore enables checkpoints under prefix and saves the vocabulary to
// vocabKey alongside the first one.
func WithStore(store Store, prefix, vocabKey string) Option {
	return func(t *Trainer) {
		t.store = store
		t.prefix = prefix
		t.vocabKey = vocabKey
	}
}

// WithSink adds a metrics sink.
func WithSink(sink MetricsSink) Option {
	return func(t *Trainer) { t.sinks = append(t.sinks, sink) }
}

// WithLedger sets the run ledger.
func WithLedger(l Ledger) Option { return func(t *Trainer) { t.ledger = l } }

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option { return func(t *Trainer) { t.logger = log } }

// WithStopSignal stops training at the next step boundary once ch is closed
// or receives.
func WithStopSignal(ch <-chan struct{}) Option { return func(t *Trainer) { t.stop = ch } }

// WithRunID overrides the generated run id.
func WithRunID(id string) Option { return func(t *Trainer) { t.runID = id } }

// WithConfigSnapshot stores raw config JSON in every checkpoint.
func WithConfigSnapshot(raw json.RawMessage) Option {
	return func(t *Trainer) { t.snapshot = raw }
}

// Trainer owns the optimiser and schedule state for one model.
type Trainer struct {
	cfg    config.TrainConfig
	model  *jtnn.Model
	opt    *autograd.Adam
	rng    *rand.Rand
	beta   BetaSchedule
	lr     LRSchedule
	logger logging.Logger

	store    Store
	prefix   string
	vocabKey string
	sinks    MultiSink
	ledger   Ledger
	stop     <-chan struct{}
	runID    string
	snapshot json.RawMessage

	state      jtnn.TrainerState
	vocabSaved bool

	mu     sync.RWMutex
	status Status
}

// NewTrainer creates a trainer for model.  The model's parameters should
// already be initialised or restored.
func NewTrainer(cfg config.TrainConfig, model *jtnn.Model, opts ...Option) *Trainer {
	t := &Trainer{
		cfg:    cfg,
		model:  model,
		opt:    autograd.NewAdam(),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		beta:   BetaSchedule{Init: cfg.InitBeta, Step: cfg.StepBeta, Max: cfg.MaxBeta, Warmup: cfg.Warmup, Every: cfg.KLAnnealIter},
		lr:     LRSchedule{Rate: cfg.AnnealRate, Every: cfg.AnnealIter, Min: cfg.MinLR},
		logger: logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.runID == "" {
		t.runID = uuid.NewString()
	}
	t.state = jtnn.TrainerState{
		Beta:         t.beta.At(0),
		LearningRate: cfg.LearningRate,
	}
	t.logger = t.logger.Named("training").With(logging.String("run_id", t.runID))
	t.publish(false, 0, "")
	return t
}

// RunID returns the run id.
func (t *Trainer) RunID() string { return t.runID }

// State returns the current schedule position.
func (t *Trainer) State() jtnn.TrainerState { return t.state }

// Status returns a snapshot safe to read from other goroutines.
func (t *Trainer) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Trainer) publish(running bool, loss float64, ckpt string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.RunID = t.runID
	t.status.Running = running
	t.status.Step = t.state.Step
	t.status.Epoch = t.state.Epoch
	t.status.Beta = t.state.Beta
	t.status.LearningRate = t.state.LearningRate
	t.status.Skipped = t.state.Skipped
	if loss != 0 {
		t.status.Loss = loss
	}
	if ckpt != "" {
		t.status.Checkpoint = ckpt
	}
	t.status.UpdatedAt = time.Now().UTC()
}

// ─────────────────────────────────────────────────────────────────────────────
// Loop
// ─────────────────────────────────────────────────────────────────────────────

// Fit trains until Epochs are done, MaxSteps is reached, ctx is cancelled or
// the stop signal fires.  Stopping writes a final checkpoint and returns a
// Result with Stopped set and a nil error.
func (t *Trainer) Fit(ctx context.Context, loader *corpus.Loader) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: t.runID}
	epochs := t.cfg.Epochs
	if epochs <= 0 {
		epochs = 1
	}

	t.ledgerCall("start", func() error {
		return t.ledger.StartRun(ctx, RunInfo{
			RunID:     t.runID,
			StartedAt: start.UTC(),
			Examples:  loader.Len(),
			VocabSize: t.model.Vocabulary().Size(),
			Config:    t.snapshot,
		})
	})
	t.logger.Info("Training started",
		logging.Int("examples", loader.Len()),
		logging.Int("vocab_size", t.model.Vocabulary().Size()),
		logging.Int("epochs", epochs),
		logging.Int("max_steps", t.cfg.MaxSteps),
		logging.Int("resume_step", t.state.Step))
	t.publish(true, 0, "")

	finish := func(stopped bool) (*Result, error) {
		res.Steps = t.state.Step
		res.Epochs = t.state.Epoch
		res.Skipped = t.state.Skipped
		res.Stopped = stopped
		res.Elapsed = time.Since(start)
		t.publish(false, 0, "")
		t.ledgerCall("finish", func() error {
			return t.ledger.FinishRun(context.WithoutCancel(ctx), t.runID, res)
		})
		t.logger.Info("Training finished",
			logging.Int("steps", res.Steps),
			logging.Int("epochs", res.Epochs),
			logging.Int("skipped", res.Skipped),
			logging.Bool("stopped", stopped),
			logging.Duration("elapsed", res.Elapsed))
		return res, nil
	}
	stopNow := func() (*Result, error) {
		key, err := t.checkpoint(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if key != "" {
			res.LastCheckpoint = key
		}
		return finish(true)
	}

	done := t.cfg.MaxSteps > 0 && t.state.Step >= t.cfg.MaxSteps
	for !done && t.state.Epoch < epochs {
		loader.SetEpoch(t.state.Epoch)
		it := loader.Iterate(ctx)
		var acc accumulator
		epochStart := time.Now()
		for {
			if t.stopped(ctx) {
				it.Close()
				return stopNow()
			}
			batch, ok := it.Next()
			if !ok {
				break
			}
			m, err := t.Step(batch)
			if err != nil && !errors.IsCode(err, errors.CodeNumericInstability) {
				it.Close()
				return nil, err
			}
			if err == nil {
				acc.add(m)
				res.Final = m
			}
			if t.cfg.PrintEvery > 0 && t.state.Step%t.cfg.PrintEvery == 0 && err == nil {
				t.report(ctx, m)
			}
			if t.cfg.SaveEvery > 0 && t.state.Step%t.cfg.SaveEvery == 0 && err == nil {
				key, err := t.checkpoint(ctx)
				if err != nil {
					it.Close()
					return nil, err
				}
				res.LastCheckpoint = key
			}
			if t.cfg.MaxSteps > 0 && t.state.Step >= t.cfg.MaxSteps {
				done = true
				break
			}
		}
		it.Close()
		if err := it.Err(); err != nil {
			if ctx.Err() != nil {
				return stopNow()
			}
			return nil, err
		}
		if !done {
			t.state.Epoch++
		}
		summary := acc.summary()
		summary.RunID = t.runID
		summary.Step = t.state.Step
		summary.Epoch = t.state.Epoch
		summary.Beta = t.state.Beta
		summary.LearningRate = t.state.LearningRate
		summary.Skipped = t.state.Skipped
		summary.Elapsed = time.Since(epochStart)
		summary.Time = time.Now().UTC()
		t.report(ctx, summary)

		key, err := t.checkpoint(ctx)
		if err != nil {
			return nil, err
		}
		if key != "" {
			res.LastCheckpoint = key
		}
	}
	return finish(false)
}

func (t *Trainer) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	if t.stop == nil {
		return false
	}
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

// Step runs one optimisation step on batch.  A non-finite loss or gradient
// skips the update, counts it and returns a NumericInstability error.
func (t *Trainer) Step(batch *corpus.Batch) (StepMetrics, error) {
	begin := time.Now()
	params := t.model.Parameters()
	params.ZeroGrad()

	items := batch.Items()
	m := StepMetrics{
		RunID:        t.runID,
		Epoch:        t.state.Epoch,
		Beta:         t.state.Beta,
		LearningRate: t.state.LearningRate,
		Examples:     len(items),
	}
	if len(items) == 0 {
		return m, errors.InvalidParam("empty batch")
	}

	var (
		terms                  = make([]*autograd.Tensor, 0, len(items))
		wordOK, wordN          int
		topoOK, topoN          int
		assmOK, assmN          int
		word, topo, assm, ster float64
		kl                     float64
	)
	for _, item := range items {
		enc := t.model.Encode(item)
		z := t.model.Sample(enc, t.rng, true)
		out, err := t.model.Decode(jtnn.TeacherForcing{}, item, z)
		if err != nil {
			return m, err
		}
		klTerm := enc.KL()
		terms = append(terms, autograd.Add(out.Loss(), autograd.Scale(klTerm, t.state.Beta)))

		word += out.Word.Value()
		topo += out.Topo.Value()
		assm += out.Assm.Value()
		ster += out.Stereo.Value()
		kl += klTerm.Value()
		wordOK, wordN = wordOK+out.WordCorrect, wordN+out.WordTotal
		topoOK, topoN = topoOK+out.TopoCorrect, topoN+out.TopoTotal
		assmOK, assmN = assmOK+out.AssmCorrect, assmN+out.AssmTotal
		if out.AssmMismatch {
			m.Mismatches++
		}
	}
	n := float64(len(items))
	total := autograd.Scale(autograd.Sum(1, terms...), 1/n)

	m.Word, m.Topo, m.Assm, m.Stereo, m.KL = word/n, topo/n, assm/n, ster/n, kl/n
	m.Total = total.Value()
	m.WordAcc = ratio(wordOK, wordN)
	m.TopoAcc = ratio(topoOK, topoN)
	m.AssmAcc = ratio(assmOK, assmN)

	if !total.Finite() {
		return t.skip(m, "loss")
	}
	autograd.Backward(total)
	m.GradNorm = params.ClipGradNorm(t.clipNorm())
	if math.IsNaN(m.GradNorm) || math.IsInf(m.GradNorm, 0) {
		return t.skip(m, "gradient")
	}
	t.opt.Step(params, t.state.LearningRate)
	params.ZeroGrad()

	t.state.Step++
	t.state.Beta = t.beta.Next(t.state.Step, t.state.Beta)
	t.state.LearningRate = t.lr.Next(t.state.Step, t.state.LearningRate)

	m.Step = t.state.Step
	m.Skipped = t.state.Skipped
	m.Elapsed = time.Since(begin)
	m.Time = time.Now().UTC()
	t.publish(true, m.Total, "")
	return m, nil
}

func (t *Trainer) clipNorm() float64 {
	if t.cfg.ClipNorm <= 0 {
		return math.Inf(1)
	}
	return t.cfg.ClipNorm
}

func (t *Trainer) skip(m StepMetrics, what string) (StepMetrics, error) {
	t.model.Parameters().ZeroGrad()
	t.state.Skipped++
	m.Step = t.state.Step
	m.Skipped = t.state.Skipped
	t.logger.Warn("Skipping step with non-finite "+what,
		logging.Int("step", t.state.Step),
		logging.Int("skipped", t.state.Skipped),
		logging.Float64("loss", m.Total))
	t.publish(true, 0, "")
	return m, errors.NumericInstability(what + " is not finite")
}

func (t *Trainer) report(ctx context.Context, m StepMetrics) {
	if len(t.sinks) == 0 {
		return
	}
	if err := t.sinks.Record(ctx, m); err != nil {
		t.logger.Warn("Metrics sink failed", logging.Err(err), logging.Int("step", m.Step))
	}
}

func (t *Trainer) ledgerCall(op string, fn func() error) {
	if t.ledger == nil {
		return
	}
	if err := fn(); err != nil {
		t.logger.Warn("Run ledger call failed", logging.String("op", op), logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Checkpoints
// ─────────────────────────────────────────────────────────────────────────────

// CheckpointKey returns the store key for the checkpoint at step.
func (t *Trainer) CheckpointKey(step int) string {
	return t.prefix + fmt.Sprintf("step-%08d.ckpt", step)
}

// Checkpoint writes the current state now.  It returns "" when no store is
// configured.
func (t *Trainer) Checkpoint(ctx context.Context) (string, error) {
	return t.checkpoint(ctx)
}

func (t *Trainer) checkpoint(ctx context.Context) (string, error) {
	if t.store == nil {
		return "", nil
	}
	if !t.vocabSaved && t.vocabKey != "" {
		if err := t.model.Vocabulary().Save(ctx, t.store, t.vocabKey); err != nil {
			return "", err
		}
		t.vocabSaved = true
	}

	ck := jtnn.NewCheckpoint(t.model, t.runID)
	state := t.opt.State()
	ck.Optimizer = &state
	ck.Trainer = t.state
	ck.Config = t.snapshot
	data, err := jtnn.EncodeCheckpoint(ck)
	if err != nil {
		return "", err
	}
	key := t.CheckpointKey(t.state.Step)
	if err := t.store.Put(ctx, key, data); err != nil {
		return "", errors.CheckpointIO(err, "write checkpoint").WithDetail(key)
	}
	if err := t.store.Put(ctx, t.prefix+LatestKey, []byte(key)); err != nil {
		return "", errors.CheckpointIO(err, "write latest pointer").WithDetail(key)
	}
	t.logger.Info("Checkpoint saved",
		logging.String("key", key),
		logging.Int("step", t.state.Step),
		logging.Int("bytes", len(data)))
	t.publish(t.Status().Running, 0, key)
	t.ledgerCall("checkpoint", func() error {
		return t.ledger.RecordCheckpoint(ctx, t.runID, t.state.Step, key)
	})
	return key, nil
}

// Resume restores model, optimiser and schedule state from the checkpoint
// at key, or from the newest one when key is empty.
func (t *Trainer) Resume(ctx context.Context, key string) error {
	if t.store == nil {
		return errors.InvalidParam("resume requires a store")
	}
	if key == "" {
		ptr, err := t.store.Get(ctx, t.prefix+LatestKey)
		if err != nil {
			return errors.CheckpointIO(err, "read latest pointer")
		}
		key = strings.TrimSpace(string(ptr))
	}
	data, err := t.store.Get(ctx, key)
	if err != nil {
		return errors.CheckpointIO(err, "read checkpoint").WithDetail(key)
	}
	ck, err := jtnn.DecodeCheckpoint(data)
	if err != nil {
		return err
	}
	if err := ck.Restore(t.model); err != nil {
		return err
	}
	if ck.Optimizer != nil {
		if err := t.opt.LoadState(*ck.Optimizer, t.model.Parameters()); err != nil {
			return err
		}
	}
	t.state = ck.Trainer
	if ck.RunID != "" {
		t.runID = ck.RunID
	}
	t.vocabSaved = true
	t.publish(false, 0, key)
	t.logger.Info("Resumed from checkpoint",
		logging.String("key", key),
		logging.Int("step", t.state.Step),
		logging.Int("epoch", t.state.Epoch))
	return nil
}

//Personal.AI order the ending
