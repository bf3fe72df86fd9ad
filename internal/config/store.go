package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	StoreJSON     = "json"
	StoreTSV      = "tsv"
	StorePostgres = "postgres"
)

// StoreConfig selects where the chain is saved and loaded from.
type StoreConfig struct {
	Backend  string
	JSON     JSONConfig
	TSV      TSVConfig
	Postgres PostgresConfig
}

func (c StoreConfig) Validate() error {
	switch c.Backend {
	case StoreJSON:
		return c.JSON.Validate()
	case StoreTSV:
		return c.TSV.Validate()
	case StorePostgres:
		return c.Postgres.Validate()
	default:
		return fmt.Errorf("unknown store backend: %q (valid: %s|%s|%s)", c.Backend, StoreJSON, StorePostgres, StoreTSV)
	}
}

func LoadStoreConfigFromCLI() StoreConfig {
	return StoreConfig{
		Backend:  viper.GetString("store"),
		JSON:     LoadJSONConfigFromCLI(),
		TSV:      LoadTSVConfigFromCLI(),
		Postgres: LoadPostgresConfigFromCLI(),
	}
}
