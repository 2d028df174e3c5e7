package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Config selects and configures an index backend.
type Config struct {
	Backend   string
	Path      string // SQLite file
	Dimension int
	Qdrant    QdrantConfig
}

// Open creates the index described by cfg.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryIndex(cfg.Dimension), nil
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		return NewSQLiteIndex(ctx, cfg.Path, cfg.Dimension)
	case BackendQdrant:
		qcfg := cfg.Qdrant
		if qcfg.Dimension == 0 {
			qcfg.Dimension = cfg.Dimension
		}
		return NewQdrantIndex(ctx, qcfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
