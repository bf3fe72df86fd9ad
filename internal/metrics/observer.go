package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NodeObserver records mining attempts and chain resolutions.
type NodeObserver struct {
	miningDuration *prometheus.HistogramVec
	blocksMined    prometheus.Counter
	resolutions    *prometheus.CounterVec
}

func NewNodeObserver() *NodeObserver {
	return &NodeObserver{
		miningDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mhchain",
			Subsystem: "mining",
			Name:      "duration_seconds",
			Help:      "Time spent on mining attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"outcome"}),
		blocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mhchain",
			Name:      "blocks_mined_total",
			Help:      "Blocks sealed by this node.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mhchain",
			Name:      "chain_resolutions_total",
			Help:      "Consensus resolutions, by result.",
		}, []string{"result"}),
	}
}

func (o *NodeObserver) ObserveMining(duration time.Duration, err error) {
	outcome := "sealed"
	if err != nil {
		outcome = "aborted"
	} else {
		o.blocksMined.Inc()
	}
	o.miningDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (o *NodeObserver) ObserveResolution(replaced bool) {
	result := "kept"
	if replaced {
		result = "replaced"
	}
	o.resolutions.WithLabelValues(result).Inc()
}

func (o *NodeObserver) Describe(ch chan<- *prometheus.Desc) {
	o.miningDuration.Describe(ch)
	o.blocksMined.Describe(ch)
	o.resolutions.Describe(ch)
}

func (o *NodeObserver) Collect(ch chan<- prometheus.Metric) {
	o.miningDuration.Collect(ch)
	o.blocksMined.Collect(ch)
	o.resolutions.Collect(ch)
}
