// Package config defines all configuration structures for the KeyIP-JTNN
// training core.  No I/O or parsing logic lives here — only plain data types
// and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ModelConfig holds the network shape.  LatentSize is split evenly between
// the tree and graph halves of the latent code.
type ModelConfig struct {
	HiddenSize       int `mapstructure:"hidden_size"`
	LatentSize       int `mapstructure:"latent_size"`
	Depth            int `mapstructure:"depth"`
	MaxDecodeNodes   int `mapstructure:"max_decode_nodes"`
	MaxCandidates    int `mapstructure:"max_candidates"`
	MaxStereoIsomers int `mapstructure:"max_stereo_isomers"`
}

// TrainConfig holds optimisation and scheduling parameters.
type TrainConfig struct {
	BatchSize    int     `mapstructure:"batch_size"`
	Epochs       int     `mapstructure:"epochs"`
	MaxSteps     int     `mapstructure:"max_steps"`
	LearningRate float64 `mapstructure:"learning_rate"`
	AnnealRate   float64 `mapstructure:"anneal_rate"`
	AnnealIter   int     `mapstructure:"anneal_iter"`
	MinLR        float64 `mapstructure:"min_lr"`
	ClipNorm     float64 `mapstructure:"clip_norm"`
	InitBeta     float64 `mapstructure:"init_beta"`
	StepBeta     float64 `mapstructure:"step_beta"`
	MaxBeta      float64 `mapstructure:"max_beta"`
	Warmup       int     `mapstructure:"warmup"`
	KLAnnealIter int     `mapstructure:"kl_anneal_iter"`
	PrintEvery   int     `mapstructure:"print_every"`
	SaveEvery    int     `mapstructure:"save_every"`
	Seed         int64   `mapstructure:"seed"`
	NJobs        int     `mapstructure:"n_jobs"`
	Prefetch     int     `mapstructure:"prefetch"`
	NoShuffle    bool    `mapstructure:"no_shuffle"`
	DropLast     bool    `mapstructure:"drop_last"`
	Repeat       bool    `mapstructure:"repeat"`
}

// PathsConfig names the input dataset and the artifact keys written to the
// configured store.
type PathsConfig struct {
	TrainData        string `mapstructure:"train_data"`
	SMILESColumn     string `mapstructure:"smiles_column"`
	VocabKey         string `mapstructure:"vocab_key"`
	CheckpointPrefix string `mapstructure:"checkpoint_prefix"`
	ModelKey         string `mapstructure:"model_key"`
	ConfigKey        string `mapstructure:"config_key"`
}

// MinIOConfig holds object storage connection parameters.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
}

// StorageConfig selects where vocabularies and checkpoints live.
type StorageConfig struct {
	Backend         string        `mapstructure:"backend"` // "local" | "minio"
	LocalRoot       string        `mapstructure:"local_root"`
	RetryMaxElapsed time.Duration `mapstructure:"retry_max_elapsed"`
	MinIO           MinIOConfig   `mapstructure:"minio"`
}

// RedisConfig holds Redis connection parameters for the decomposition cache.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// CacheConfig holds the decomposition cache tiers.
type CacheConfig struct {
	LRUSize int         `mapstructure:"lru_size"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// KafkaConfig holds the metrics event stream parameters.
type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	Compression string   `mapstructure:"compression"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the run ledger.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MilvusConfig holds latent index connection parameters.
type MilvusConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"db_name"`
	Collection string `mapstructure:"collection"`
}

// OpenSearchConfig holds the step-metrics index parameters.
type OpenSearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// Neo4jConfig holds the junction-tree graph store parameters.
type Neo4jConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// MetricsConfig holds the Prometheus namespace and status server address.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Namespace  string `mapstructure:"namespace"`
	ListenAddr string `mapstructure:"listen_addr"`
	// GRPCHealthAddr enables the gRPC health service when set.
	GRPCHealthAddr string `mapstructure:"grpc_health_addr"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.  Keys not declared here are
// ignored by the loader.
type Config struct {
	Model      ModelConfig       `mapstructure:"model"`
	Train      TrainConfig       `mapstructure:"train"`
	Paths      PathsConfig       `mapstructure:"paths"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Cache      CacheConfig       `mapstructure:"cache"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Milvus     MilvusConfig      `mapstructure:"milvus"`
	OpenSearch OpenSearchConfig  `mapstructure:"opensearch"`
	Neo4j      Neo4jConfig       `mapstructure:"neo4j"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Log        logging.LogConfig `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first error encountered.
func (c *Config) Validate() error {
	// Model
	if c.Model.HiddenSize < 1 {
		return fmt.Errorf("config: model.hidden_size must be ≥ 1, got %d", c.Model.HiddenSize)
	}
	if c.Model.LatentSize < 2 || c.Model.LatentSize%2 != 0 {
		return fmt.Errorf("config: model.latent_size must be a positive even number, got %d", c.Model.LatentSize)
	}
	if c.Model.Depth < 1 {
		return fmt.Errorf("config: model.depth must be ≥ 1, got %d", c.Model.Depth)
	}

	// Train
	if c.Train.BatchSize < 1 {
		return fmt.Errorf("config: train.batch_size must be ≥ 1, got %d", c.Train.BatchSize)
	}
	if c.Train.LearningRate <= 0 {
		return fmt.Errorf("config: train.learning_rate must be > 0, got %g", c.Train.LearningRate)
	}
	if c.Train.AnnealRate <= 0 || c.Train.AnnealRate > 1 {
		return fmt.Errorf("config: train.anneal_rate must be in (0, 1], got %g", c.Train.AnnealRate)
	}
	if c.Train.ClipNorm <= 0 {
		return fmt.Errorf("config: train.clip_norm must be > 0, got %g", c.Train.ClipNorm)
	}
	if c.Train.InitBeta < 0 || c.Train.StepBeta < 0 {
		return fmt.Errorf("config: train.init_beta and train.step_beta must be ≥ 0")
	}
	if c.Train.MaxBeta < c.Train.InitBeta {
		return fmt.Errorf("config: train.max_beta %g is below train.init_beta %g", c.Train.MaxBeta, c.Train.InitBeta)
	}
	if c.Train.NJobs < 1 {
		return fmt.Errorf("config: train.n_jobs must be ≥ 1, got %d", c.Train.NJobs)
	}
	if c.Train.Prefetch < 1 {
		return fmt.Errorf("config: train.prefetch must be ≥ 1, got %d", c.Train.Prefetch)
	}

	// Storage
	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("config: storage.local_root is required for the local backend")
		}
	case "minio":
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("config: storage.minio.endpoint and storage.minio.bucket are required for the minio backend")
		}
	default:
		return fmt.Errorf("config: storage.backend %q is invalid; expected local|minio", c.Storage.Backend)
	}

	// Optional integrations
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("config: kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.Database.Enabled {
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("config: database.host and database.db_name are required when the ledger is enabled")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
	}
	if c.Milvus.Enabled && c.Milvus.Address == "" {
		return fmt.Errorf("config: milvus.address is required when the latent index is enabled")
	}
	if c.OpenSearch.Enabled && len(c.OpenSearch.Addresses) == 0 {
		return fmt.Errorf("config: opensearch.addresses is required when step indexing is enabled")
	}
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required when the tree graph is enabled")
	}

	// Log
	if _, err := logging.ParseLevel(c.Log.Level.String()); err != nil {
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
