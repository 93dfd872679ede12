// Package logging builds the zap loggers each pipeline stage is handed
// explicitly at construction (never a package-level global), matching the
// per-component logger fields other_examples/manifests repos in this pack
// wire up (grounded on the zap usage surveyed from the retrieval pack's
// financial-trading-adjacent repos; the teacher itself logs with fmt/log,
// so this is an ambient-stack addition per SPEC_FULL.md §4.10).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Development enables human-readable console output with caller info;
	// production mode emits JSON suitable for log aggregation.
	Development bool
	Level       zapcore.Level
}

// New builds a base *zap.Logger per cfg.
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level)
	return zcfg.Build()
}

// ForComponent returns a child logger tagged with a "component" field;
// pipeline.New uses it to tag the core's log lines "pipeline".
func ForComponent(base *zap.Logger, component string) *zap.Logger {
	return base.With(zap.String("component", component))
}
