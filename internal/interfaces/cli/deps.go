package cli

import (
	"context"
	"io"
	"os"

	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/database/neo4j"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/search/milvus"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/search/opensearch"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/storage"
	grpchealth "github.com/turtacn/KeyIP-JTNN/internal/interfaces/grpc"
	"github.com/turtacn/KeyIP-JTNN/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// closers runs registered cleanup functions in reverse order.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) closeAll(log logging.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			log.Warn("Cleanup failed", logging.Err(err))
		}
	}
}

// readDataset reads SMILES from path, or stdin when path is "-".
func readDataset(path, column string) ([]string, error) {
	if path == "" {
		return nil, errors.InvalidParam("a dataset path is required (--data)")
	}
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "open dataset").WithDetail(path)
		}
		defer f.Close()
		r = f
	}
	return corpus.ReadSMILES(r, column)
}

func openStore(ctx context.Context, cfg *config.Config, log logging.Logger) (storage.ArtifactStore, error) {
	return storage.New(ctx, cfg.Storage, log)
}

// openCache builds an in-process LRU, backed by Redis when enabled.
func openCache(cfg *config.Config, log logging.Logger, cl *closers) (junction.Cache, []handlers.HealthChecker, error) {
	lruCache, err := junction.NewLRUCache(cfg.Cache.LRUSize)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Redis.Enabled {
		return lruCache, nil, nil
	}
	rc, err := redis.NewClient(cfg.Cache.Redis, log.Named("redis"))
	if err != nil {
		log.Warn("Redis cache unavailable, using in-process cache only", logging.Err(err))
		return lruCache, nil, nil
	}
	cl.add(rc.Close)
	tc := redis.NewTreeCache(rc, log.Named("redis"),
		redis.WithPrefix(cfg.Cache.Redis.Prefix),
		redis.WithTTL(cfg.Cache.Redis.TTL))
	return junction.NewTieredCache(lruCache, tc), []handlers.HealthChecker{handlers.CheckFunc("redis", rc.Ping)}, nil
}

// observability holds the optional sinks and ledger for a training run.
type observability struct {
	collector prometheus.Collector
	metrics   *prometheus.TrainingMetrics
	sinks     []training.MetricsSink
	ledger    training.Ledger
	checks    []handlers.HealthChecker
}

func openObservability(ctx context.Context, cfg *config.Config, log logging.Logger, cl *closers) (*observability, error) {
	o := &observability{}

	c, err := prometheus.NewCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log.Named("metrics"))
	if err != nil {
		return nil, err
	}
	o.collector = c
	o.metrics = prometheus.NewTrainingMetrics(c)
	o.sinks = append(o.sinks, o.metrics)

	if cfg.Kafka.Enabled {
		p, err := kafka.NewProducer(cfg.Kafka, log.Named("kafka"))
		if err != nil {
			return nil, err
		}
		cl.add(p.Close)
		o.sinks = append(o.sinks, kafka.NewMetricsPublisher(p, "jtnn"))
	}

	if cfg.OpenSearch.Enabled {
		oc, err := opensearch.NewClient(ctx, cfg.OpenSearch, log.Named("opensearch"))
		if err != nil {
			return nil, err
		}
		cl.add(oc.Close)
		idx, err := opensearch.NewStepIndex(oc, cfg.OpenSearch.Index)
		if err != nil {
			return nil, err
		}
		if err := idx.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		o.sinks = append(o.sinks, idx)
		o.checks = append(o.checks, handlers.CheckFunc("opensearch", oc.Ping))
	}

	if cfg.Database.Enabled {
		conn, err := postgres.NewConnection(ctx, cfg.Database, log.Named("postgres"))
		if err != nil {
			return nil, err
		}
		cl.add(conn.Close)
		if err := conn.Migrate(); err != nil {
			return nil, err
		}
		o.ledger = postgres.NewLedger(conn)
		o.checks = append(o.checks, handlers.CheckFunc("postgres", conn.HealthCheck))
	}
	return o, nil
}

// startGRPCHealth serves the gRPC health service when
// metrics.grpc_health_addr is set.
func startGRPCHealth(cfg *config.Config, checks []handlers.HealthChecker, log logging.Logger, cl *closers) error {
	if cfg.Metrics.GRPCHealthAddr == "" {
		return nil
	}
	srv, err := grpchealth.NewServer(cfg.Metrics.GRPCHealthAddr,
		grpchealth.WithCheckers(checks...),
		grpchealth.WithLogger(log.Named("grpc")))
	if err != nil {
		return err
	}
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("gRPC health server failed", logging.Err(err))
		}
	}()
	cl.add(func() error { return srv.Stop(context.Background()) })
	return nil
}

func openTreeGraph(ctx context.Context, cfg *config.Config, log logging.Logger, cl *closers) (*neo4j.TreeGraph, error) {
	if !cfg.Neo4j.Enabled {
		return nil, errors.InvalidParam("neo4j is disabled (set neo4j.enabled)")
	}
	d, err := neo4j.NewDriver(ctx, cfg.Neo4j, log.Named("neo4j"))
	if err != nil {
		return nil, err
	}
	cl.add(d.Close)
	return neo4j.NewTreeGraph(d), nil
}

func openLatentIndex(ctx context.Context, cfg *config.Config, dim int, log logging.Logger, cl *closers) (*milvus.LatentIndex, error) {
	if !cfg.Milvus.Enabled {
		return nil, errors.InvalidParam("milvus is disabled (set milvus.enabled)")
	}
	mc, err := milvus.NewClient(ctx, cfg.Milvus, log.Named("milvus"))
	if err != nil {
		return nil, err
	}
	cl.add(mc.Close)
	idx, err := milvus.NewLatentIndex(mc, cfg.Milvus.Collection, dim)
	if err != nil {
		return nil, err
	}
	if err := idx.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

//Personal.AI order the ending
