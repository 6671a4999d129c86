// Package store selects the tracker.Store implementation for a configuration.
package store

import (
	"fmt"
	"log/slog"

	"github.com/holocron/tracker/config"
	"github.com/holocron/tracker/store/memory"
	"github.com/holocron/tracker/store/sqlstore"
	"github.com/holocron/tracker/tracker"
)

// Open opens the backend named by cfg.Driver. Defaults to sqlite when unset.
func Open(cfg config.Config, log *slog.Logger) (tracker.Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.StorageSQLite
	}
	switch driver {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageSQLite:
		s, err := sqlstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s.WithLogger(log), nil
	case config.StoragePostgres:
		s, err := sqlstore.OpenPostgres(cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		return s.WithLogger(log), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
