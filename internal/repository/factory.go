package repository

import (
	"context"

	"github.com/pkg/errors"

	"github.com/darkodi/tinyurl/internal/config"
	"github.com/darkodi/tinyurl/internal/logger"
)

// Open returns the engine selected by cfg.Driver, with its schema in place.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (MappingStore, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("Using in-memory store, mappings are lost on restart")
		return NewMemoryStore(), nil

	case "sqlite":
		store, err := NewSQLiteStore(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to SQLite", "path", cfg.Path)
		return store, nil

	case "postgres":
		if err := MigratePostgres(cfg.URL, log); err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to PostgreSQL", "max_open_conns", cfg.MaxOpenConns)
		return store, nil
	}
	return nil, errors.Errorf("unknown database driver %q", cfg.Driver)
}
