// Package backend selects and opens the slot store named by a Config.
package backend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/jsonfile"
	"github.com/mesh-intelligence/logbook/internal/memory"
	"github.com/mesh-intelligence/logbook/internal/sqlite"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Open validates cfg and returns the matching slot store. The caller must
// Close it. File and SQLite stores also implement types.Watcher.
func Open(cfg types.Config, log *zap.Logger) (types.SlotStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("backend", cfg.Backend))

	switch cfg.Backend {
	case types.BackendFile:
		s, err := jsonfile.Open(cfg.DataDir, jsonfile.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("open file backend: %w", err)
		}
		return s, nil
	case types.BackendSQLite:
		b := sqlite.NewBackend(sqlite.WithLogger(log))
		if err := b.Attach(cfg); err != nil {
			return nil, fmt.Errorf("attach sqlite backend: %w", err)
		}
		return b, nil
	case types.BackendMemory:
		return memory.New(), nil
	default:
		return nil, types.ErrBackendUnknown
	}
}
