package sql

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StoredBlockCountQuery       = `SELECT COUNT(*) FROM api.blocks`
	StoredTransactionCountQuery = `SELECT COALESCE(SUM(jsonb_array_length(data->'transactions')), 0) FROM api.blocks`
)

// StoredChainCollector reports how much of the chain has been saved to
// PostgreSQL. Both values come from the last SaveChain, not the live ledger.
type StoredChainCollector struct {
	db         *sql.DB
	blockCount *prometheus.Desc
	txCount    *prometheus.Desc
}

func NewStoredChainCollector(db *sql.DB) *StoredChainCollector {
	return &StoredChainCollector{
		db: db,
		blockCount: prometheus.NewDesc(
			prometheus.BuildFQName("mhchain", "store", "blocks"),
			"Blocks in the saved chain",
			nil,
			prometheus.Labels{"source": "postgres"},
		),
		txCount: prometheus.NewDesc(
			prometheus.BuildFQName("mhchain", "store", "transactions"),
			"Transactions in the saved chain",
			nil,
			prometheus.Labels{"source": "postgres"},
		),
	}
}

func (c *StoredChainCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.blockCount
	ch <- c.txCount
}

func (c *StoredChainCollector) Collect(ch chan<- prometheus.Metric) {
	var blocks int64
	if err := c.db.QueryRow(StoredBlockCountQuery).Scan(&blocks); err != nil {
		ch <- prometheus.NewInvalidMetric(c.blockCount, err)
	} else {
		ch <- prometheus.MustNewConstMetric(c.blockCount, prometheus.GaugeValue, float64(blocks))
	}

	var txs int64
	if err := c.db.QueryRow(StoredTransactionCountQuery).Scan(&txs); err != nil {
		ch <- prometheus.NewInvalidMetric(c.txCount, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.txCount, prometheus.GaugeValue, float64(txs))
}

func init() {
	RegisterCollectorFactory(func(db *sql.DB) (prometheus.Collector, error) {
		return NewStoredChainCollector(db), nil
	})
}
