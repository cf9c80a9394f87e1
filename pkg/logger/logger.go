// Package logger provides the shared zap logger for the service.
// Level comes from LOG_LEVEL and the encoder from ENVIRONMENT.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

func initLogger() {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if os.Getenv("ENVIRONMENT") == "production" {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	built, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	logger = built
}

// GetLogger returns the process-wide logger, initialising it on first use.
func GetLogger() *zap.Logger {
	once.Do(initLogger)
	return logger
}

// Named returns a child logger for a component.
func Named(name string) *zap.Logger {
	return GetLogger().Named(name)
}

// Close flushes buffered entries. Call it before the process exits.
func Close() error {
	if logger == nil {
		return nil
	}
	if err := logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "Error syncing logger: %v\n", err)
		return err
	}
	return nil
}

// MaskToken hides the middle of a device token so it can be logged.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) < 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "..." + token[len(token)-4:]
}
