// Package store opens the record store selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/idcards/internal/config"
	"github.com/JonMunkholm/idcards/internal/core"
	"github.com/JonMunkholm/idcards/internal/store/memstore"
	"github.com/JonMunkholm/idcards/internal/store/pgstore"
)

// Open returns the configured store and a function that releases it.
func Open(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory, "":
		slog.Info("using in-memory record store; records are lost on restart")
		return memstore.New(), func() {}, nil

	case config.DriverPostgres:
		pool, err := pgstore.Connect(ctx, cfg.Database.URL, pgstore.PoolOptions{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}

		s := pgstore.New(pool)
		if cfg.Store.Migrate {
			if err := s.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		slog.Info("connected to postgres record store",
			"max_conns", cfg.Database.MaxConns,
			"migrated", cfg.Store.Migrate,
		)
		return s, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
