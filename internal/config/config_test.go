package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
)

// validConfig returns a Config that passes Validate() with defaults only.
func validConfig() *config.Config {
	return config.NewDefaultConfig()
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"hidden", func(c *config.Config) { c.Model.HiddenSize = 0 }, "model.hidden_size"},
		{"odd latent", func(c *config.Config) { c.Model.LatentSize = 55 }, "model.latent_size"},
		{"depth", func(c *config.Config) { c.Model.Depth = -1 }, "model.depth"},
		{"batch", func(c *config.Config) { c.Train.BatchSize = 0 }, "train.batch_size"},
		{"lr", func(c *config.Config) { c.Train.LearningRate = -1 }, "train.learning_rate"},
		{"anneal", func(c *config.Config) { c.Train.AnnealRate = 1.5 }, "train.anneal_rate"},
		{"clip", func(c *config.Config) { c.Train.ClipNorm = 0 }, "train.clip_norm"},
		{"beta order", func(c *config.Config) { c.Train.InitBeta = 0.5; c.Train.MaxBeta = 0.1 }, "train.max_beta"},
		{"jobs", func(c *config.Config) { c.Train.NJobs = 0 }, "train.n_jobs"},
		{"prefetch", func(c *config.Config) { c.Train.Prefetch = 0 }, "train.prefetch"},
		{"backend", func(c *config.Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"local root", func(c *config.Config) { c.Storage.LocalRoot = "" }, "storage.local_root"},
		{"minio endpoint", func(c *config.Config) { c.Storage.Backend = "minio" }, "storage.minio.endpoint"},
		{"redis addr", func(c *config.Config) { c.Cache.Redis.Enabled = true }, "cache.redis.addr"},
		{"kafka", func(c *config.Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
		{"db host", func(c *config.Config) { c.Database.Enabled = true }, "database.host"},
		{"db port", func(c *config.Config) {
			c.Database.Enabled = true
			c.Database.Host = "localhost"
			c.Database.DBName = "jtnn"
			c.Database.Port = 70000
		}, "database.port"},
		{"milvus", func(c *config.Config) { c.Milvus.Enabled = true }, "milvus.address"},
		{"log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_Validate_MinIOComplete(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Storage.Backend = "minio"
	cfg.Storage.MinIO.Endpoint = "localhost:9000"
	assert.NoError(t, cfg.Validate())
}

//Personal.AI order the ending
