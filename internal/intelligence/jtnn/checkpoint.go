package jtnn

import (
	"encoding/json"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/autograd"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// CheckpointVersion is written into every checkpoint.
const CheckpointVersion = 1

// TrainerState is the schedule position saved with a checkpoint.
type TrainerState struct {
	Step         int     `json:"step"`
	Epoch        int     `json:"epoch"`
	Beta         float64 `json:"beta"`
	LearningRate float64 `json:"learning_rate"`
	Skipped      int     `json:"skipped"`
}

// Checkpoint is everything needed to resume training or rebuild a model.
type Checkpoint struct {
	Version   int                  `json:"version"`
	RunID     string               `json:"run_id"`
	CreatedAt time.Time            `json:"created_at"`
	Model     Config               `json:"model"`
	Params    map[string][]float64 `json:"params"`
	Optimizer *autograd.AdamState  `json:"optimizer,omitempty"`
	Trainer   TrainerState         `json:"trainer"`
	Config    json.RawMessage      `json:"config,omitempty"`
}

// NewCheckpoint snapshots the parameters of m.
func NewCheckpoint(m *Model, runID string) *Checkpoint {
	return &Checkpoint{
		Version:   CheckpointVersion,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Model:     m.cfg,
		Params:    m.params.Values(),
	}
}

// EncodeCheckpoint serialises c as zstd-compressed JSON.
func EncodeCheckpoint(c *Checkpoint) ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode checkpoint")
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "create zstd encoder")
	}
	defer enc.Close()
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// DecodeCheckpoint reverses EncodeCheckpoint.
func DecodeCheckpoint(data []byte) (*Checkpoint, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "create zstd decoder")
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decompress checkpoint")
	}
	c := &Checkpoint{}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode checkpoint")
	}
	if c.Version != CheckpointVersion {
		return nil, errors.Newf(errors.ErrCodeSerialization, "unsupported checkpoint version %d", c.Version)
	}
	return c, nil
}

// Restore loads c's parameters into m after checking the shapes agree.
func (c *Checkpoint) Restore(m *Model) error {
	if c.Model.HiddenSize != m.cfg.HiddenSize || c.Model.LatentSize != m.cfg.LatentSize {
		return errors.New(errors.ErrCodeModelConfig, "checkpoint was written by a model of a different shape")
	}
	return m.LoadParameters(c.Params)
}

//Personal.AI order the ending
