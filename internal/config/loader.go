package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "JTNN"

// newViper builds a pre-configured Viper instance: YAML file type, JTNN_ env
// prefix, automatic env binding, and a key replacer that maps "." → "_" so
// that nested keys like "train.batch_size" resolve to "JTNN_TRAIN_BATCH_SIZE".
// Every key is registered with its default so env-only overrides unmarshal
// even when no config file mentions the key.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// registerDefaults seeds v with every known key.
func registerDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("model.hidden_size", d.Model.HiddenSize)
	v.SetDefault("model.latent_size", d.Model.LatentSize)
	v.SetDefault("model.depth", d.Model.Depth)
	v.SetDefault("model.max_decode_nodes", d.Model.MaxDecodeNodes)
	v.SetDefault("model.max_candidates", d.Model.MaxCandidates)
	v.SetDefault("model.max_stereo_isomers", d.Model.MaxStereoIsomers)

	v.SetDefault("train.batch_size", d.Train.BatchSize)
	v.SetDefault("train.epochs", d.Train.Epochs)
	v.SetDefault("train.max_steps", 0)
	v.SetDefault("train.learning_rate", d.Train.LearningRate)
	v.SetDefault("train.anneal_rate", d.Train.AnnealRate)
	v.SetDefault("train.anneal_iter", d.Train.AnnealIter)
	v.SetDefault("train.min_lr", d.Train.MinLR)
	v.SetDefault("train.clip_norm", d.Train.ClipNorm)
	v.SetDefault("train.init_beta", 0.0)
	v.SetDefault("train.step_beta", d.Train.StepBeta)
	v.SetDefault("train.max_beta", d.Train.MaxBeta)
	v.SetDefault("train.warmup", d.Train.Warmup)
	v.SetDefault("train.kl_anneal_iter", d.Train.KLAnnealIter)
	v.SetDefault("train.print_every", d.Train.PrintEvery)
	v.SetDefault("train.save_every", d.Train.SaveEvery)
	v.SetDefault("train.seed", 0)
	v.SetDefault("train.n_jobs", d.Train.NJobs)
	v.SetDefault("train.prefetch", d.Train.Prefetch)
	v.SetDefault("train.no_shuffle", false)
	v.SetDefault("train.drop_last", false)
	v.SetDefault("train.repeat", false)

	v.SetDefault("paths.train_data", "")
	v.SetDefault("paths.smiles_column", d.Paths.SMILESColumn)
	v.SetDefault("paths.vocab_key", d.Paths.VocabKey)
	v.SetDefault("paths.checkpoint_prefix", d.Paths.CheckpointPrefix)
	v.SetDefault("paths.model_key", d.Paths.ModelKey)
	v.SetDefault("paths.config_key", d.Paths.ConfigKey)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.local_root", d.Storage.LocalRoot)
	v.SetDefault("storage.retry_max_elapsed", d.Storage.RetryMaxElapsed)
	v.SetDefault("storage.minio.endpoint", "")
	v.SetDefault("storage.minio.access_key_id", "")
	v.SetDefault("storage.minio.secret_access_key", "")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.minio.region", d.Storage.MinIO.Region)
	v.SetDefault("storage.minio.bucket", d.Storage.MinIO.Bucket)

	v.SetDefault("cache.lru_size", d.Cache.LRUSize)
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 0)
	v.SetDefault("cache.redis.dial_timeout", 0)
	v.SetDefault("cache.redis.prefix", d.Cache.Redis.Prefix)
	v.SetDefault("cache.redis.ttl", d.Cache.Redis.TTL)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("kafka.compression", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", "")
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", 0)

	v.SetDefault("milvus.enabled", false)
	v.SetDefault("milvus.address", "")
	v.SetDefault("milvus.username", "")
	v.SetDefault("milvus.password", "")
	v.SetDefault("milvus.db_name", d.Milvus.DBName)
	v.SetDefault("milvus.collection", d.Milvus.Collection)

	v.SetDefault("opensearch.enabled", false)
	v.SetDefault("opensearch.addresses", []string{})
	v.SetDefault("opensearch.username", "")
	v.SetDefault("opensearch.password", "")
	v.SetDefault("opensearch.index", d.OpenSearch.Index)

	v.SetDefault("neo4j.enabled", false)
	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.username", "")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", d.Neo4j.Database)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)
	v.SetDefault("metrics.grpc_health_addr", "")

	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the YAML file at configPath, merges any JTNN_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from JTNN_* environment variables,
// with no config file required.
//
//	JTNN_<SECTION>_<FIELD>   e.g.  JTNN_TRAIN_BATCH_SIZE, JTNN_STORAGE_BACKEND
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadFromViper finalizes a Viper instance prepared by the CLI, which may
// carry flag bindings on top of the file and env layers.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	if v == nil {
		return LoadFromEnv()
	}
	return unmarshalAndFinalize(v)
}

// NewViper exposes the standard Viper setup to callers that bind flags.
func NewViper() *viper.Viper {
	return newViper()
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file is modified.  Only hot-safe settings (log level) should
// be applied by the callback; model and training shape are fixed for the
// lifetime of a run.
//
// Watch is non-blocking.  A change that fails to parse or validate does not
// reach onChange; onError receives it instead when non-nil.
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers are expected to Load first.
	_ = v.ReadInConfig()

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad is Load that panics on any error.  Intended for main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
