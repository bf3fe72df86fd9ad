package postgresql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/liftedinit/mhchain/internal/models"
	"github.com/liftedinit/mhchain/internal/output"
)

//go:embed migrations/*
var migrationsFS embed.FS

var _ output.TipReader = (*PostgresChainStore)(nil)

// PostgresChainStore keeps one row per block in api.blocks.
type PostgresChainStore struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

func NewPostgresChainStore(ctx context.Context, connString string, maxConns uint) (*PostgresChainStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL connection string: %w", err)
	}

	if maxConns > math.MaxInt32 {
		return nil, fmt.Errorf("max connections exceeds maximum int32 value")
	}
	if maxConns > 0 {
		config.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	store := &PostgresChainStore{
		pool: pool,
		db:   stdlib.OpenDBFromPool(pool),
	}

	// Run migrations. This is idempotent.
	if err = store.runMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// DB exposes the pool through database/sql for the SQL metric collectors.
func (s *PostgresChainStore) DB() *sql.DB {
	return s.db
}

// SaveChain replaces every stored block with chain in one transaction.
func (s *PostgresChainStore) SaveChain(ctx context.Context, chain models.Chain) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Ensure rollback if commit is not reached

	// The chain may have been replaced wholesale; drop what is not in it
	if _, err = tx.Exec(ctx, `DELETE FROM api.blocks WHERE id > $1`, len(chain)); err != nil {
		return fmt.Errorf("failed to trim stored blocks: %w", err)
	}

	rows, err := blockRows(chain)
	if err != nil {
		return err
	}
	for _, row := range rows {
		_, err = tx.Exec(ctx, `
			INSERT INTO api.blocks (id, data) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data;
		`, row.id, row.data)
		if err != nil {
			return fmt.Errorf("failed to write block %d: %w", row.id, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type blockRow struct {
	id   int64
	data []byte
}

// blockRows keys each block by its position in chain, not by its index
// field, so the trim in SaveChain always matches what is written.
func blockRows(chain models.Chain) ([]blockRow, error) {
	rows := make([]blockRow, 0, len(chain))
	for i, block := range chain {
		data, err := json.Marshal(block)
		if err != nil {
			return nil, fmt.Errorf("failed to encode block %d: %w", i+1, err)
		}
		rows = append(rows, blockRow{id: int64(i + 1), data: data})
	}
	return rows, nil
}

func (s *PostgresChainStore) LoadChain(ctx context.Context) (models.Chain, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM api.blocks ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var chain models.Chain
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		var block models.Block
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, fmt.Errorf("failed to decode block: %w", err)
		}
		chain = append(chain, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read blocks: %w", err)
	}

	if len(chain) == 0 {
		return nil, output.ErrNoChain
	}
	return chain, nil
}

func (s *PostgresChainStore) GetLatestBlock(ctx context.Context) (*models.Block, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data
		FROM api.blocks
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No rows found
		}
		return nil, fmt.Errorf("failed to get the latest block: %w", err)
	}

	var block models.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("failed to decode the latest block: %w", err)
	}
	return &block, nil
}

func (s *PostgresChainStore) runMigrations() error {
	slog.Info("Running PostgreSQL migrations...")

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := migratepgx.WithInstance(stdlib.OpenDBFromPool(s.pool), &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer m.Close()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresChainStore) Close() error {
	slog.Info("Closing PostgreSQL connection pool")
	if err := s.db.Close(); err != nil {
		slog.Warn("Failed to close database handle", "error", err)
	}
	s.pool.Close()
	slog.Info("PostgreSQL connection pool closed")
	return nil
}
