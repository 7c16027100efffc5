// Package logging builds the process logger: INFO and WARN go to stdout,
// ERROR and above to stderr, and optionally every enabled level to a file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects the level, encoding and optional log file.
type Config struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// Validate checks the level and format.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.levelOrDefault()); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.Format {
	case "", FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("log format must be %q or %q, got %q", FormatConsole, FormatJSON, c.Format)
	}
}

func (c Config) levelOrDefault() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// New builds a logger writing to the process stdout and stderr. The
// returned close function syncs the logger and closes the log file.
func New(cfg Config) (*zap.Logger, func() error, error) {
	return NewWithWriters(cfg, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr))
}

// NewWithWriters is New with explicit stdout and stderr sinks.
func NewWithWriters(cfg Config, stdout, stderr zapcore.WriteSyncer) (*zap.Logger, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	minLevel, _ := zapcore.ParseLevel(cfg.levelOrDefault())

	enc := encoder(cfg.Format)
	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= minLevel && l < zapcore.ErrorLevel })
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= minLevel && l >= zapcore.ErrorLevel })

	cores := []zapcore.Core{
		zapcore.NewCore(enc, stdout, low),
		zapcore.NewCore(enc.Clone(), stderr, high),
	}

	closeFile := func() error { return nil }
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		// Files always get JSON so they can be parsed later.
		cores = append(cores, zapcore.NewCore(encoder(FormatJSON), zapcore.AddSync(f), zap.NewAtomicLevelAt(minLevel)))
		closeFile = f.Close
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.DPanicLevel))
	closer := func() error {
		// Syncing a terminal returns EINVAL on some platforms; only the file
		// close error matters.
		_ = logger.Sync()
		return closeFile()
	}
	return logger, closer, nil
}

func encoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}
