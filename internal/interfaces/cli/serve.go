package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/jtnn"
	httpserver "github.com/turtacn/KeyIP-JTNN/internal/interfaces/http"
	"github.com/turtacn/KeyIP-JTNN/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-JTNN/internal/interfaces/http/middleware"
)

// checkpointStatus reports the newest checkpoint of a run that may live in
// another process.
type checkpointStatus struct {
	store   training.Store
	prefix  string
	timeout time.Duration
	logger  logging.Logger

	mu   sync.Mutex
	key  string
	last training.Status
}

func (s *checkpointStatus) Status() training.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ptr, err := s.store.Get(ctx, s.prefix+training.LatestKey)
	if err != nil {
		return s.last
	}
	key := string(ptr)
	if key == s.key {
		return s.last
	}
	data, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read checkpoint", logging.String("key", key), logging.Err(err))
		return s.last
	}
	ck, err := jtnn.DecodeCheckpoint(data)
	if err != nil {
		s.logger.Warn("Failed to decode checkpoint", logging.String("key", key), logging.Err(err))
		return s.last
	}
	s.key = key
	s.last = training.Status{
		RunID:        ck.RunID,
		Step:         ck.Trainer.Step,
		Epoch:        ck.Trainer.Epoch,
		Beta:         ck.Trainer.Beta,
		LearningRate: ck.Trainer.LearningRate,
		Skipped:      ck.Trainer.Skipped,
		Checkpoint:   key,
		UpdatedAt:    ck.CreatedAt,
	}
	return s.last
}

// NewServeMetricsCmd serves probes, metrics and the status of the newest
// checkpoint until interrupted.
func NewServeMetricsCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve /metrics, /healthz and /v1/status for stored checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config
			log := cc.Logger
			if addr == "" {
				addr = cfg.Metrics.ListenAddr
			}
			ctx, release := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer release()

			var cl closers
			defer cl.closeAll(log)
			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			obs, err := openObservability(ctx, cfg, log, &cl)
			if err != nil {
				return err
			}
			checks := append(obs.checks, handlers.CheckFunc("store", func(ctx context.Context) error {
				_, err := store.Exists(ctx, cfg.Paths.VocabKey)
				return err
			}))
			if err := startGRPCHealth(cfg, checks, log, &cl); err != nil {
				return err
			}
			provider := &checkpointStatus{
				store:   store,
				prefix:  cfg.Paths.CheckpointPrefix,
				timeout: 5 * time.Second,
				logger:  log,
			}
			router := httpserver.NewRouter(httpserver.RouterConfig{
				HealthHandler: handlers.NewHealthHandler(Version, checks...),
				StatusHandler: handlers.NewStatusHandler(provider),
				Metrics:       obs.collector.Handler(),
				Recorder:      obs.metrics,
				Logger:        log,
				Logging:       middleware.DefaultLoggingConfig(),
			})
			srv := httpserver.NewServer(addr, router, log)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			return srv.Shutdown(context.Background())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: metrics.listen_addr)")
	return cmd
}

//Personal.AI order the ending
