package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// L is the default logger of the application
	L *zap.Logger
)

func init() {
	L, _ = zap.NewProduction(zap.WithCaller(false))
}

// Configure replaces L with a production logger writing at the given level.
// An empty level keeps the zap default (info).
func Configure(level string) error {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		return err
	}

	L = l
	return nil
}

// Or returns l, or L when l is nil.
func Or(l *zap.Logger) *zap.Logger {
	if l == nil {
		return L
	}
	return l
}
