package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/KeyIP-JTNN/internal/interfaces/http"
	"github.com/turtacn/KeyIP-JTNN/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-JTNN/internal/interfaces/http/middleware"
)

// TrainSummary is printed when training ends.
type TrainSummary struct {
	RunID      string  `json:"run_id"`
	Steps      int     `json:"steps"`
	Epochs     int     `json:"epochs"`
	Skipped    int     `json:"skipped"`
	Stopped    bool    `json:"stopped"`
	Checkpoint string  `json:"checkpoint,omitempty"`
	Loss       float64 `json:"loss"`
	WordAcc    float64 `json:"word_acc"`
	TopoAcc    float64 `json:"topo_acc"`
	AssmAcc    float64 `json:"assm_acc"`
	Elapsed    string  `json:"elapsed"`
}

func (s TrainSummary) String() string {
	state := "finished"
	if s.Stopped {
		state = "stopped"
	}
	return fmt.Sprintf("run %s %s after %d steps (%d epochs, %d skipped) loss=%.4f word=%.3f topo=%.3f assm=%.3f in %s",
		s.RunID, state, s.Steps, s.Epochs, s.Skipped, s.Loss, s.WordAcc, s.TopoAcc, s.AssmAcc, s.Elapsed)
}

func summarize(res *training.Result) TrainSummary {
	return TrainSummary{
		RunID:      res.RunID,
		Steps:      res.Steps,
		Epochs:     res.Epochs,
		Skipped:    res.Skipped,
		Stopped:    res.Stopped,
		Checkpoint: res.LastCheckpoint,
		Loss:       res.Final.Total,
		WordAcc:    res.Final.WordAcc,
		TopoAcc:    res.Final.TopoAcc,
		AssmAcc:    res.Final.AssmAcc,
		Elapsed:    res.Elapsed.Truncate(time.Millisecond).String(),
	}
}

// stopOnSignal closes the returned channel on the first SIGINT or SIGTERM
// and cancels ctx on the second.
func stopOnSignal(ctx context.Context, log logging.Logger) (<-chan struct{}, context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := make(chan struct{})
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	var once sync.Once
	go func() {
		select {
		case <-sig:
			log.Warn("Stop requested, writing checkpoint (signal again to abort)")
			once.Do(func() { close(stop) })
		case <-ctx.Done():
			return
		}
		select {
		case <-sig:
			log.Warn("Aborting")
			cancel()
		case <-ctx.Done():
		}
	}()
	return stop, ctx, func() {
		signal.Stop(sig)
		cancel()
	}
}

// NewTrainCmd trains a model end to end.
func NewTrainCmd() *cobra.Command {
	var (
		dataPath  string
		resume    bool
		resumeKey string
		epochs    int
		maxSteps  int
		serve     bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a junction-tree VAE on a SMILES dataset",
		Long: "train fits (or loads) the cluster vocabulary, builds the training corpus and\n" +
			"runs the trainer, writing periodic checkpoints, the final model and a config\n" +
			"snapshot to the artifact store. SIGINT writes a checkpoint and stops.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config
			log := cc.Logger
			if cmd.Flags().Changed("epochs") {
				cfg.Train.Epochs = epochs
			}
			if cmd.Flags().Changed("max-steps") {
				cfg.Train.MaxSteps = maxSteps
			}
			if dataPath == "" {
				dataPath = cfg.Paths.TrainData
			}
			dataset, err := readDataset(dataPath, cfg.Paths.SMILESColumn)
			if err != nil {
				return err
			}

			stop, ctx, release := stopOnSignal(cmd.Context(), log)
			defer release()

			var cl closers
			defer cl.closeAll(log)
			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			cache, cacheChecks, err := openCache(cfg, log, &cl)
			if err != nil {
				return err
			}
			obs, err := openObservability(ctx, cfg, log, &cl)
			if err != nil {
				return err
			}

			checks := append(cacheChecks, obs.checks...)
			if err := startGRPCHealth(cfg, checks, log, &cl); err != nil {
				return err
			}
			status := handlers.NewStatusHandler(nil)
			if serve || cfg.Metrics.Enabled {
				router := httpserver.NewRouter(httpserver.RouterConfig{
					HealthHandler: handlers.NewHealthHandler(Version, checks...),
					StatusHandler: status,
					Metrics:       obs.collector.Handler(),
					Recorder:      obs.metrics,
					Logger:        log,
					Logging:       middleware.DefaultLoggingConfig(),
				})
				srv := httpserver.NewServer(cfg.Metrics.ListenAddr, router, log)
				go func() {
					if err := srv.Start(); err != nil {
						log.Error("Status server failed", logging.Err(err))
					}
				}()
				cl.add(func() error { return srv.Shutdown(context.Background()) })
			}

			p := &training.Pipeline{
				Config:    cfg,
				Store:     store,
				Cache:     obs.metrics.InstrumentCache(cache),
				Logger:    log,
				Sinks:     append([]training.MetricsSink{training.LogSink{Logger: log}}, obs.sinks...),
				Ledger:    obs.ledger,
				Stop:      stop,
				Resume:    resume || resumeKey != "",
				ResumeKey: resumeKey,
				OnTrainer: func(t *training.Trainer) { status.Attach(t) },
			}
			res, _, err := p.Run(ctx, dataset)
			if err != nil {
				return err
			}
			return PrintResult(cmd, summarize(res))
		},
	}
	f := cmd.Flags()
	f.StringVar(&dataPath, "data", "", "SMILES file (default: paths.train_data)")
	f.BoolVar(&resume, "resume", false, "resume from the newest checkpoint")
	f.StringVar(&resumeKey, "resume-key", "", "resume from this checkpoint key")
	f.IntVar(&epochs, "epochs", 0, "override train.epochs")
	f.IntVar(&maxSteps, "max-steps", 0, "override train.max_steps")
	f.BoolVar(&serve, "serve", false, "serve /metrics, /healthz and /v1/status while training")
	return cmd
}

//Personal.AI order the ending
