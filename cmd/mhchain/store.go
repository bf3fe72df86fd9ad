package mhchain

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/liftedinit/mhchain/internal/config"
	"github.com/liftedinit/mhchain/internal/output"
	"github.com/liftedinit/mhchain/internal/output/postgresql"
)

// openStore builds the configured chain store. The returned *sql.DB is only
// set for the PostgreSQL backend and feeds the SQL metrics collectors.
func openStore(ctx context.Context, cfg config.StoreConfig) (output.ChainStore, *sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid store configuration: %w", err)
	}
	slog.Debug("Opening chain store", "backend", cfg.Backend)

	switch cfg.Backend {
	case config.StoreJSON:
		store, err := output.NewJSONChainStore(cfg.JSON.Output)
		if err != nil {
			return nil, nil, errors.WithMessage(err, "failed to create JSON chain store")
		}
		return store, nil, nil
	case config.StoreTSV:
		store, err := output.NewTSVChainStore(cfg.TSV.Output)
		if err != nil {
			return nil, nil, errors.WithMessage(err, "failed to create TSV chain store")
		}
		return store, nil, nil
	case config.StorePostgres:
		store, err := postgresql.NewPostgresChainStore(ctx, cfg.Postgres.ConnString, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, errors.WithMessage(err, "failed to create PostgreSQL chain store")
		}
		return store, store.DB(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}

func closeStore(store output.ChainStore) {
	if err := store.Close(); err != nil {
		slog.Error("Failed to close chain store", "error", err)
	}
}
