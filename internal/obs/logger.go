// Package obs is the ambient observability stack: a thin zap logger
// constructor and a set of prometheus instruments registered against a
// caller-supplied Registerer. Nothing here uses package-level globals —
// every component that wants to log or record a metric is handed a
// *zap.Logger / *Metrics explicitly, the way gorisk's own callers are
// handed a configured logger rather than reaching for one.
package obs

import "go.uber.org/zap"

// NewLogger builds a production-profile zap logger at the given level
// ("debug", "info", "warn", "error"). An unrecognized level falls back to
// "info" rather than failing construction.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	return cfg.Build()
}

// NewNop returns a logger that discards everything, for tests and callers
// that pass logger=nil upstream.
func NewNop() *zap.Logger { return zap.NewNop() }
