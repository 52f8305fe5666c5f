// Package logging provides the structured zap logger shared by the pricing
// components. Components take a named child logger at construction.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger instance
var Logger *zap.Logger = zap.NewNop()

// Component names used with Named.
const (
	ComponentMatrix   = "matrix"
	ComponentPrice    = "price_matrix"
	ComponentLoader   = "matrix_loader"
	ComponentResolver = "storage_resolver"
	ComponentQuote    = "quote"
	ComponentUpload   = "upload"
)

// Config contains logging configuration
type Config struct {
	// Level is the minimum log level
	Level string `json:"level"`

	// Format is the output format (json, console)
	Format string `json:"format"`

	// Output is the output destination (stdout, stderr, file path)
	Output string `json:"output"`

	// Development enables development mode
	Development bool `json:"development"`
}

// DefaultConfig logs warnings and above to stderr, so command output stays clean.
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
	}
}

// Initialize replaces the global logger according to cfg.
// An unknown level falls back to info.
func Initialize(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	sink, err := openSink(cfg.Output)
	if err != nil {
		return err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, level)
	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	Logger = zap.New(core, opts...)
	return nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch output {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr", "":
		return zapcore.AddSync(os.Stderr), nil
	}
	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(file), nil
}

// Replace swaps the global logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) (restore func()) {
	prev := Logger
	Logger = l
	return func() { Logger = prev }
}

// Sync flushes the logger
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Named returns the global logger scoped to a component name.
func Named(component string) *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger.Named(component)
}

// Hash logs a content hash shortened to its first 8 characters.
func Hash(hash string) zap.Field {
	if len(hash) > 8 {
		hash = hash[:8] + "..."
	}
	return zap.String("hash", hash)
}

// Source logs the matrix source kind.
func Source[S ~string](source S) zap.Field {
	return zap.String("source", string(source))
}

// Shape logs a matrix shape.
func Shape(rows, columns int) zap.Field {
	return zap.Dict("shape", zap.Int("rows", rows), zap.Int("columns", columns))
}
