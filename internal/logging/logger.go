// Package logging builds the zap loggers used across trialgate.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below zap's debug level for per-candidate detail.
const TraceLevel = zapcore.DebugLevel - 1

// ParseLevel maps LOG_LEVEL names (ERROR, WARN, INFO, DEBUG, TRACE) to zap levels.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "TRACE":
		return TraceLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %q", name)
	}
}

// New creates a production-configured logger at the given level.
func New(level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// NewDefault creates a logger based on the LOG_LEVEL environment variable,
// falling back to info on unknown names.
func NewDefault() *zap.Logger {
	logger, err := New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logger, err = New("INFO")
		if err != nil {
			return zap.NewNop()
		}
	}
	return logger
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
