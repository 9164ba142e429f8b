// Package cli implements the jtnn command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	Watch        bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	ConfigPath   string
	Logger       logging.Logger
	OutputFormat string
}

// NewRootCommand creates the root command with every subcommand registered.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "jtnn",
		Short:   "Junction-tree VAE training for molecules",
		Long:    "jtnn decomposes molecules into junction trees, builds cluster vocabularies,\ntrains a junction-tree variational autoencoder and encodes molecules into its\nlatent space.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./jtnn.yaml if present)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&opts.Watch, "watch-config", false, "reload the log level when the config file changes")

	cmd.AddCommand(
		NewDecomposeCmd(),
		NewVocabCmd(),
		NewTrainCmd(),
		NewEncodeCmd(),
		NewReconstructCmd(),
		NewNeighborsCmd(),
		NewGraphCmd(),
		NewServeMetricsCmd(),
		NewStatusCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, map[string]string{
				"version": Version,
				"commit":  GitCommit,
				"built":   BuildDate,
			})
		},
	}
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	path, cfg, err := initConfig(opts)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidParam, "config initialization failed")
	}
	logger, err := initLogger(cfg, opts)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidParam, "logger initialization failed")
	}
	if opts.Watch && path != "" {
		watchLogLevel(path, logger)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		ConfigPath:   path,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads the explicit config file, ./jtnn.yaml, or environment only.
func initConfig(opts *RootOptions) (string, *config.Config, error) {
	if opts.ConfigPath != "" {
		cfg, err := config.Load(opts.ConfigPath)
		return opts.ConfigPath, cfg, err
	}
	if _, err := os.Stat("jtnn.yaml"); err == nil {
		cfg, err := config.Load("jtnn.yaml")
		return "jtnn.yaml", cfg, err
	}
	cfg, err := config.LoadFromEnv()
	return "", cfg, err
}

// initLogger builds a console logger on stderr at the configured level.
func initLogger(cfg *config.Config, opts *RootOptions) (logging.Logger, error) {
	logCfg := cfg.Log
	if opts.LogLevel != "" {
		level, err := logging.ParseLevel(opts.LogLevel)
		if err != nil {
			return nil, err
		}
		logCfg.Level = level
	}
	if opts.Verbose {
		logCfg.Level = logging.LevelDebug
	}
	if len(logCfg.OutputPaths) == 0 {
		logCfg.OutputPaths = []string{"stderr"}
	}
	if len(logCfg.ErrorOutputPaths) == 0 {
		logCfg.ErrorOutputPaths = []string{"stderr"}
	}
	return logging.NewLogger(logCfg)
}

func watchLogLevel(path string, logger logging.Logger) {
	setter, ok := logger.(logging.LevelSetter)
	if !ok {
		return
	}
	config.Watch(path, func(cfg *config.Config) {
		setter.SetLevel(cfg.Log.Level)
		logger.Info("Log level reloaded", logging.String("level", cfg.Log.Level.String()))
	}, func(err error) {
		logger.Warn("Ignoring invalid config change", logging.Err(err))
	})
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.InvalidParam("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.InvalidParam("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult writes data in the format chosen by --output.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := "text"
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = strings.ToLower(cliCtx.OutputFormat)
	}
	switch format {
	case "json":
		return printJSON(cmd, data)
	case "table":
		if tp, ok := data.(tableProvider); ok {
			fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
			return nil
		}
		return printText(cmd, data)
	default:
		return printText(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case []string:
		for _, line := range v {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	case tableProvider:
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(v.TableHeaders(), v.TableRows()))
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// PrintError writes err to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// PrintSuccess writes msg to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			sb.WriteString(padRight(val, widths[i]))
		}
		sb.WriteString("\n")
	}
	writeRow(headers)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

//Personal.AI order the ending
