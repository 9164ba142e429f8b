package config

import (
	"time"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultHiddenSize       = 450
	DefaultLatentSize       = 56
	DefaultDepth            = 3
	DefaultMaxDecodeNodes   = 80
	DefaultMaxCandidates    = 64
	DefaultMaxStereoIsomers = 8

	DefaultBatchSize    = 40
	DefaultEpochs       = 20
	DefaultLearningRate = 1e-3
	DefaultAnnealRate   = 0.9
	DefaultAnnealIter   = 40000
	DefaultMinLR        = 1e-5
	DefaultClipNorm     = 50.0
	DefaultStepBeta     = 0.002
	DefaultMaxBeta      = 1.0
	DefaultWarmup       = 40000
	DefaultKLAnnealIter = 2000
	DefaultPrintEvery   = 50
	DefaultSaveEvery    = 5000
	DefaultNJobs        = 1
	DefaultPrefetch     = 4

	DefaultSMILESColumn     = "SMILES"
	DefaultVocabKey         = "vocab.json"
	DefaultCheckpointPrefix = "checkpoints/"
	DefaultModelKey         = "model.ckpt"
	DefaultConfigKey        = "config.json"

	DefaultStorageBackend  = "local"
	DefaultLocalRoot       = "./artifacts"
	DefaultRetryMaxElapsed = 30 * time.Second
	DefaultMinIORegion     = "us-east-1"
	DefaultMinIOBucket     = "jtnn-artifacts"

	DefaultLRUSize     = 100000
	DefaultRedisPrefix = "jtnn:decomp:"
	DefaultRedisTTL    = 24 * time.Hour

	DefaultKafkaTopic = "jtnn.train.metrics"

	DefaultDBPort         = 5432
	DefaultDBSSLMode      = "disable"
	DefaultDBMaxOpenConns = 4

	DefaultMilvusCollection = "jtnn_latents"

	DefaultOpenSearchIndex = "jtnn-train-steps"
	DefaultNeo4jDatabase   = "neo4j"

	DefaultMetricsNamespace = "jtnn"
	DefaultMetricsAddr      = ":9090"

	DefaultLogLevel  = logging.LevelInfo
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// already set by the caller are left unchanged so explicit configuration
// always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	m := &cfg.Model
	setInt(&m.HiddenSize, DefaultHiddenSize)
	setInt(&m.LatentSize, DefaultLatentSize)
	setInt(&m.Depth, DefaultDepth)
	setInt(&m.MaxDecodeNodes, DefaultMaxDecodeNodes)
	setInt(&m.MaxCandidates, DefaultMaxCandidates)
	setInt(&m.MaxStereoIsomers, DefaultMaxStereoIsomers)

	t := &cfg.Train
	setInt(&t.BatchSize, DefaultBatchSize)
	setInt(&t.Epochs, DefaultEpochs)
	setFloat(&t.LearningRate, DefaultLearningRate)
	setFloat(&t.AnnealRate, DefaultAnnealRate)
	setInt(&t.AnnealIter, DefaultAnnealIter)
	setFloat(&t.MinLR, DefaultMinLR)
	setFloat(&t.ClipNorm, DefaultClipNorm)
	setFloat(&t.StepBeta, DefaultStepBeta)
	setFloat(&t.MaxBeta, DefaultMaxBeta)
	setInt(&t.Warmup, DefaultWarmup)
	setInt(&t.KLAnnealIter, DefaultKLAnnealIter)
	setInt(&t.PrintEvery, DefaultPrintEvery)
	setInt(&t.SaveEvery, DefaultSaveEvery)
	setInt(&t.NJobs, DefaultNJobs)
	setInt(&t.Prefetch, DefaultPrefetch)

	p := &cfg.Paths
	setString(&p.SMILESColumn, DefaultSMILESColumn)
	setString(&p.VocabKey, DefaultVocabKey)
	setString(&p.CheckpointPrefix, DefaultCheckpointPrefix)
	setString(&p.ModelKey, DefaultModelKey)
	setString(&p.ConfigKey, DefaultConfigKey)

	s := &cfg.Storage
	setString(&s.Backend, DefaultStorageBackend)
	setString(&s.LocalRoot, DefaultLocalRoot)
	if s.RetryMaxElapsed == 0 {
		s.RetryMaxElapsed = DefaultRetryMaxElapsed
	}
	setString(&s.MinIO.Region, DefaultMinIORegion)
	setString(&s.MinIO.Bucket, DefaultMinIOBucket)

	c := &cfg.Cache
	setInt(&c.LRUSize, DefaultLRUSize)
	setString(&c.Redis.Prefix, DefaultRedisPrefix)
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultRedisTTL
	}

	setString(&cfg.Kafka.Topic, DefaultKafkaTopic)

	d := &cfg.Database
	setInt(&d.Port, DefaultDBPort)
	setString(&d.SSLMode, DefaultDBSSLMode)
	setInt(&d.MaxOpenConns, DefaultDBMaxOpenConns)

	setString(&cfg.Milvus.Collection, DefaultMilvusCollection)
	setString(&cfg.Milvus.DBName, "default")

	setString(&cfg.OpenSearch.Index, DefaultOpenSearchIndex)
	setString(&cfg.Neo4j.Database, DefaultNeo4jDatabase)

	setString(&cfg.Metrics.Namespace, DefaultMetricsNamespace)
	setString(&cfg.Metrics.ListenAddr, DefaultMetricsAddr)

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	setString(&cfg.Log.Format, DefaultLogFormat)
}

// NewDefaultConfig returns a Config populated only with defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setFloat(dst *float64, def float64) {
	if *dst == 0 {
		*dst = def
	}
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

//Personal.AI order the ending
