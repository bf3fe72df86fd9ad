package sql

import (
	"database/sql"
	"errors"

	"github.com/liftedinit/mhchain/internal/metrics/collectors"
)

// DefaultSqlRegistry holds the collectors reading from the PostgreSQL chain store.
var DefaultSqlRegistry = collectors.NewRegistry(func(db *sql.DB) error {
	if db == nil {
		return errors.New("database connection is nil")
	}
	return nil
})

func RegisterCollectorFactory(factory collectors.CollectorFactory[*sql.DB]) {
	DefaultSqlRegistry.Register(factory)
}
