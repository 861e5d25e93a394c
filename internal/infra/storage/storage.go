package storage

import (
	"fmt"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra"
)

// DefaultHistoryLimit applies when a caller passes a non-positive limit
const DefaultHistoryLimit = 50

// Store is satisfied by both backends; it also exposes the development wipe.
type Store interface {
	domain.Store
	domain.Clearer
}

var (
	_ Store = (*JSONStore)(nil)
	_ Store = (*SQLStore)(nil)
)

// Open creates the backend selected by configuration
func Open(cfg *infra.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case infra.BackendJSON:
		return NewJSONStore(cfg.Storage.JSONPath)
	case infra.BackendSQLite:
		return NewSQLStore(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
