package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level    string `yaml:"level"`    // debug|info|warn|error
	Encoding string `yaml:"encoding"` // json|console
}

// New creates a production-style logger writing to stderr with ISO8601
// timestamps under "ts".
func New(c Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(c.Level))); err != nil {
			return nil, fmt.Errorf("log level %q: %w", c.Level, err)
		}
	}

	enc := strings.ToLower(c.Encoding)
	switch enc {
	case "":
		enc = "json"
	case "json", "console":
	default:
		return nil, fmt.Errorf("log encoding %q (want json|console)", c.Encoding)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = enc
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = level > zapcore.DebugLevel
	return cfg.Build()
}

// Must is New that panics; for main.
func Must(c Config) *zap.Logger {
	l, err := New(c)
	if err != nil {
		panic(err)
	}
	return l
}
