package collectors

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerCollector reports the size of the chain and of the pending pool.
type LedgerCollector struct {
	ledger      LedgerSource
	chainLength *prometheus.Desc
	pending     *prometheus.Desc
}

func NewLedgerCollector(ledger LedgerSource) *LedgerCollector {
	return &LedgerCollector{
		ledger: ledger,
		chainLength: prometheus.NewDesc(
			prometheus.BuildFQName("mhchain", "chain", "length"),
			"Number of blocks in the local chain",
			nil,
			prometheus.Labels{"source": "ledger"},
		),
		pending: prometheus.NewDesc(
			prometheus.BuildFQName("mhchain", "pool", "pending_transactions"),
			"Transactions waiting for the next block",
			nil,
			prometheus.Labels{"source": "ledger"},
		),
	}
}

func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.chainLength
	ch <- c.pending
}

func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.chainLength, prometheus.GaugeValue, float64(c.ledger.Length()))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(len(c.ledger.PendingTransactions())))
}

func init() {
	RegisterCollectorFactory(func(sources Sources) (prometheus.Collector, error) {
		return NewLedgerCollector(sources.Ledger), nil
	})
}
