// Package logger builds the zap logger shared by the login commands and
// provides the structured fields they log with.
package logger

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger level and encoding
type Config struct {
	// Level is one of debug, info, warn, error. Default info.
	Level string

	// Format is "json" or "console". Default console.
	Format string

	// Name is added to every entry when set
	Name string
}

// New builds a logger writing to stderr, so stdout stays free for command
// output and the MCP stdio protocol.
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if strings.ToLower(cfg.Format) == "json" {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	if cfg.Name != "" {
		l = l.Named(cfg.Name)
	}
	return l, nil
}

// ParseLevel converts a level name, falling back to info
func ParseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Provider is the provider name field
func Provider(name string) zap.Field {
	return zap.String("provider", name)
}

// SessionID is the login session field
func SessionID(id uuid.UUID) zap.Field {
	return zap.String("session_id", id.String())
}

// Region is the provider region field
func Region(region string) zap.Field {
	return zap.String("region", region)
}
