package training

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
)

// StepMetrics is one training report.  Summary reports cover a whole epoch
// and carry averages over its steps.
type StepMetrics struct {
	RunID   string `json:"run_id"`
	Step    int    `json:"step"`
	Epoch   int    `json:"epoch"`
	Summary bool   `json:"summary"`

	Word   float64 `json:"word"`
	Topo   float64 `json:"topo"`
	Assm   float64 `json:"assm"`
	Stereo float64 `json:"stereo"`
	KL     float64 `json:"kl"`
	Total  float64 `json:"total"`

	WordAcc float64 `json:"word_acc"`
	TopoAcc float64 `json:"topo_acc"`
	AssmAcc float64 `json:"assm_acc"`

	Beta         float64 `json:"beta"`
	LearningRate float64 `json:"learning_rate"`
	GradNorm     float64 `json:"grad_norm"`

	Examples   int           `json:"examples"`
	Mismatches int           `json:"mismatches"`
	Skipped    int           `json:"skipped"`
	Elapsed    time.Duration `json:"elapsed"`
	Time       time.Time     `json:"time"`
}

// MetricsSink receives training reports.  Sink errors are logged and never
// stop training.
type MetricsSink interface {
	Record(ctx context.Context, m StepMetrics) error
}

// SinkFunc adapts a function to MetricsSink.
type SinkFunc func(ctx context.Context, m StepMetrics) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, m StepMetrics) error { return f(ctx, m) }

// MultiSink fans a report out to every sink.
type MultiSink []MetricsSink

// Record delivers m to every sink and joins their errors.
func (s MultiSink) Record(ctx context.Context, m StepMetrics) error {
	var errs []error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// LogSink writes reports to a logger.
type LogSink struct {
	Logger logging.Logger
}

// Record logs m at info level.
func (s LogSink) Record(_ context.Context, m StepMetrics) error {
	msg := "Training step"
	if m.Summary {
		msg = "Epoch finished"
	}
	s.Logger.Info(msg,
		logging.Int("step", m.Step),
		logging.Int("epoch", m.Epoch),
		logging.Float64("loss", m.Total),
		logging.Float64("kl", m.KL),
		logging.Float64("word_acc", m.WordAcc),
		logging.Float64("topo_acc", m.TopoAcc),
		logging.Float64("assm_acc", m.AssmAcc),
		logging.Float64("beta", m.Beta),
		logging.Float64("lr", m.LearningRate),
		logging.Float64("grad_norm", m.GradNorm),
		logging.Int("skipped", m.Skipped),
	)
	return nil
}

// accumulator averages step reports into an epoch summary.
type accumulator struct {
	n                                 int
	word, topo, assm, stereo, kl, tot float64
	wordAcc, topoAcc, assmAcc         float64
	examples, mismatches              int
}

func (a *accumulator) add(m StepMetrics) {
	a.n++
	a.word += m.Word
	a.topo += m.Topo
	a.assm += m.Assm
	a.stereo += m.Stereo
	a.kl += m.KL
	a.tot += m.Total
	a.wordAcc += m.WordAcc
	a.topoAcc += m.TopoAcc
	a.assmAcc += m.AssmAcc
	a.examples += m.Examples
	a.mismatches += m.Mismatches
}

func (a *accumulator) summary() StepMetrics {
	out := StepMetrics{Summary: true, Examples: a.examples, Mismatches: a.mismatches}
	if a.n == 0 {
		return out
	}
	n := float64(a.n)
	out.Word, out.Topo, out.Assm, out.Stereo = a.word/n, a.topo/n, a.assm/n, a.stereo/n
	out.KL, out.Total = a.kl/n, a.tot/n
	out.WordAcc, out.TopoAcc, out.AssmAcc = a.wordAcc/n, a.topoAcc/n, a.assmAcc/n
	return out
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

//Personal.AI order the ending
