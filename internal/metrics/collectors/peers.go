package collectors

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type PeersCollector struct {
	peers PeerSource
	known *prometheus.Desc
}

func NewPeersCollector(peers PeerSource) *PeersCollector {
	return &PeersCollector{
		peers: peers,
		known: prometheus.NewDesc(
			prometheus.BuildFQName("mhchain", "peers", "known"),
			"Number of registered peers",
			nil,
			nil,
		),
	}
}

func (c *PeersCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.known
}

func (c *PeersCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.known, prometheus.GaugeValue, float64(c.peers.Len()))
}

func init() {
	RegisterCollectorFactory(func(sources Sources) (prometheus.Collector, error) {
		if sources.Peers == nil {
			return nil, errors.New("peer source is nil")
		}
		return NewPeersCollector(sources.Peers), nil
	})
}
