// Package obslog is the analyzer's logging wrapper: a root *zap.Logger
// built once by the CLI, and a thin per-subsystem accessor (For) so every
// log line carries a "component" field.
package obslog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	root *zap.Logger = zap.NewNop()
)

// Init builds the process-wide root logger. verbose gates debug-level
// output.
func Init(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	SetRoot(l)
	return l, nil
}

// SetRoot installs l as the process-wide root logger. Init calls it; it
// also installs any other logger (e.g. a zaptest/observer one) without
// going through Init.
func SetRoot(l *zap.Logger) {
	mu.Lock()
	root = l
	mu.Unlock()
}

// For returns a logger scoped to component.
func For(component string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With(zap.String("component", component))
}

// Sync flushes the root logger's buffered log entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return root.Sync()
}
