// Package logging provides the structured logging interface used across the
// training core and its zap-backed implementation.  Components depend on the
// Logger interface only; direct use of go.uber.org/zap outside this package is
// avoided so the library can be swapped without touching training code.
//
// Initialisation order in cmd/jtnn/main.go (via the cli package):
//
//  1. Parse configuration.
//  2. Call NewLogger(cfg.Log) → store result with SetDefault.
//  3. Initialise corpus, model, trainer and sinks, injecting the Logger.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Field — structured log field carrier
// ─────────────────────────────────────────────────────────────────────────────

// Field is a typed key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Canonical field keys shared by the training pipeline.
const (
	FieldRunID  = "run_id"
	FieldStep   = "step"
	FieldEpoch  = "epoch"
	FieldSMILES = "smiles"
	FieldCode   = "error_code"
)

// ── Convenience constructors ──────────────────────────────────────────────────

// String constructs a Field with a string value.
func String(key, val string) Field { return Field{Key: key, Value: val} }

// Int constructs a Field with an int value.
func Int(key string, val int) Field { return Field{Key: key, Value: val} }

// Int64 constructs a Field with an int64 value.
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }

// Float64 constructs a Field with a float64 value.
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

// Bool constructs a Field with a bool value.
func Bool(key string, val bool) Field { return Field{Key: key, Value: val} }

// Err constructs a Field that captures an error under the canonical key "error".
// If err is nil the field value is the string "<nil>".
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any constructs a Field with an arbitrary value.
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// Duration constructs a Field with a time.Duration value.
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// ─────────────────────────────────────────────────────────────────────────────
// Level
// ─────────────────────────────────────────────────────────────────────────────

// Level is the minimum severity a Logger emits.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) String() string { return string(l) }

// ParseLevel converts a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug, nil
	case LevelInfo, "":
		return LevelInfo, nil
	case LevelWarn, "warning":
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("logging: unknown level %q", s)
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Logger interface
// ─────────────────────────────────────────────────────────────────────────────

// Logger is the structured logging contract.  All components receive a Logger
// via constructor injection.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Fatal logs at FATAL level and then calls os.Exit(1).  Reserve for
	// startup failures in main.
	Fatal(msg string, fields ...Field)

	// With returns a child Logger that includes fields in every entry.
	With(fields ...Field) Logger

	// Named returns a child Logger whose name is appended with a period.
	Named(name string) Logger

	// WithError returns a child Logger carrying err and, for AppErrors, its code.
	WithError(err error) Logger
}

// LevelSetter is implemented by loggers whose level can change at runtime.
type LevelSetter interface {
	SetLevel(level Level)
}

// ─────────────────────────────────────────────────────────────────────────────
// LogConfig — logger construction parameters
// ─────────────────────────────────────────────────────────────────────────────

// LogConfig carries all parameters required to construct a Logger instance.
type LogConfig struct {
	// Level accepts "debug", "info", "warn", "error".  Defaults to "info".
	Level Level `mapstructure:"level" yaml:"level" json:"level"`

	// Format is "json" or "console".  Defaults to "json".
	Format string `mapstructure:"format" yaml:"format" json:"format"`

	// OutputPaths lists sinks; "stdout" and "stderr" are special values.
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths" json:"output_paths"`

	// ErrorOutputPaths receives zap's internal errors.
	ErrorOutputPaths []string `mapstructure:"error_output_paths" yaml:"error_output_paths" json:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// zapLogger — zap-backed Logger implementation
// ─────────────────────────────────────────────────────────────────────────────

type zapLogger struct {
	z     *zap.Logger
	level *zap.AtomicLevel
}

// toZapFields converts Field values into zap.Field values without reflection
// for the common concrete types.
func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(f.Key, v))
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, toZapFields(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, toZapFields(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(toZapFields(fields)...), level: l.level}
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name), level: l.level}
}

func (l *zapLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	fields := []Field{Err(err)}
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		fields = append(fields, String(FieldCode, code.String()))
	}
	return l.With(fields...)
}

// SetLevel changes the minimum level of this logger and every child derived
// from the same root.  Loggers built from a foreign core ignore the call.
func (l *zapLogger) SetLevel(level Level) {
	if l.level != nil {
		l.level.SetLevel(level.zapLevel())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// NewLogger — factory
// ─────────────────────────────────────────────────────────────────────────────

// NewLogger constructs a zap-backed Logger according to cfg.  Unset fields
// fall back to level "info", format "json", stdout and stderr.
func NewLogger(cfg LogConfig) (Logger, error) {
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stdout"}
	}
	if len(cfg.ErrorOutputPaths) == 0 {
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	level, err := ParseLevel(cfg.Level.String())
	if err != nil {
		return nil, err
	}
	atomic := zap.NewAtomicLevelAt(level.zapLevel())

	var encCfg zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	} else {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	zapCfg := zap.Config{
		Level:            atomic,
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: failed to build zap logger: %w", err)
	}
	return &zapLogger{z: z, level: &atomic}, nil
}

// NewLoggerFromCore constructs a Logger from an existing zapcore.Core.  This
// is primarily used by tests with observed or buffered cores.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{z: zap.New(core, zap.AddCallerSkip(1))}
}

// LogOperationDuration logs how long an operation took since start.
func LogOperationDuration(l Logger, operation string, start time.Time, fields ...Field) {
	elapsed := time.Since(start)
	fields = append(fields,
		String("operation", operation),
		Float64("duration_ms", float64(elapsed.Microseconds())/1000.0),
	)
	l.Info("operation completed", fields...)
}

// ─────────────────────────────────────────────────────────────────────────────
// nopLogger — no-op implementation for tests and disabled components
// ─────────────────────────────────────────────────────────────────────────────

type nopLogger struct{}

func (nopLogger) Debug(_ string, _ ...Field) {}
func (nopLogger) Info(_ string, _ ...Field)  {}
func (nopLogger) Warn(_ string, _ ...Field)  {}
func (nopLogger) Error(_ string, _ ...Field) {}
func (nopLogger) Fatal(_ string, _ ...Field) {}
func (n nopLogger) With(_ ...Field) Logger   { return n }
func (n nopLogger) Named(_ string) Logger    { return n }
func (n nopLogger) WithError(_ error) Logger { return n }

// NewNopLogger returns a Logger that discards all log entries.
func NewNopLogger() Logger { return nopLogger{} }

// ─────────────────────────────────────────────────────────────────────────────
// Global default Logger
// ─────────────────────────────────────────────────────────────────────────────

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = nopLogger{}
)

// SetDefault replaces the process-wide default Logger.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the process-wide default Logger.  Constructor injection is
// always preferred.
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	return l
}

//Personal.AI order the ending
