package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultHiddenSize, cfg.Model.HiddenSize)
	assert.Equal(t, DefaultLatentSize, cfg.Model.LatentSize)
	assert.Equal(t, DefaultBatchSize, cfg.Train.BatchSize)
	assert.InDelta(t, DefaultLearningRate, cfg.Train.LearningRate, 1e-12)
	assert.Equal(t, DefaultKLAnnealIter, cfg.Train.KLAnnealIter)
	assert.Equal(t, DefaultSMILESColumn, cfg.Paths.SMILESColumn)
	assert.Equal(t, DefaultStorageBackend, cfg.Storage.Backend)
	assert.Equal(t, logging.LevelInfo, cfg.Log.Level)
	assert.Zero(t, cfg.Train.InitBeta)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Model.HiddenSize = 64
	cfg.Train.ClipNorm = 5
	cfg.Log.Level = logging.LevelDebug
	ApplyDefaults(cfg)

	assert.Equal(t, 64, cfg.Model.HiddenSize)
	assert.Equal(t, 5.0, cfg.Train.ClipNorm)
	assert.Equal(t, logging.LevelDebug, cfg.Log.Level)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

//Personal.AI order the ending
