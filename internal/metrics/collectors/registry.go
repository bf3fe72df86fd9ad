package collectors

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/liftedinit/mhchain/internal/models"
)

// LedgerSource is the read-only ledger view collectors report on.
type LedgerSource interface {
	Length() int
	PendingTransactions() []models.Transaction
}

// PeerSource reports the number of known peers.
type PeerSource interface {
	Len() int
}

// Sources bundles everything in-process collectors can read from.
type Sources struct {
	Ledger LedgerSource
	Peers  PeerSource
}

// CollectorFactory creates a collector reading from source.
type CollectorFactory[S any] func(source S) (prometheus.Collector, error)

// Registry holds collector factories sharing one kind of source.
type Registry[S any] struct {
	check     func(S) error
	factories []CollectorFactory[S]
}

// NewRegistry returns an empty registry. check, if set, rejects unusable
// sources before any factory runs.
func NewRegistry[S any](check func(S) error) *Registry[S] {
	return &Registry[S]{
		check:     check,
		factories: make([]CollectorFactory[S], 0),
	}
}

func (r *Registry[S]) Register(factory CollectorFactory[S]) {
	r.factories = append(r.factories, factory)
}

// CreateCollectors instantiates every registered collector against source.
func (r *Registry[S]) CreateCollectors(source S) ([]prometheus.Collector, error) {
	if r.check != nil {
		if err := r.check(source); err != nil {
			return nil, err
		}
	}

	collectors := make([]prometheus.Collector, 0, len(r.factories))
	for i, factory := range r.factories {
		collector, err := factory(source)
		if err != nil {
			return nil, fmt.Errorf("collector factory %d: %w", i, err)
		}
		collectors = append(collectors, collector)
	}
	return collectors, nil
}

// DefaultRegistry holds the collectors reading from the running node.
var DefaultRegistry = NewRegistry(func(s Sources) error {
	if s.Ledger == nil {
		return errors.New("ledger source is nil")
	}
	return nil
})

func RegisterCollectorFactory(factory CollectorFactory[Sources]) {
	DefaultRegistry.Register(factory)
}
