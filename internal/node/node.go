// Package node wires the ledger, miner, peer registry, consensus and chain
// store into one running node. A Node is built by the composition root and
// passed to the transport; there is no package-level state.
package node

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/liftedinit/mhchain/internal/consensus"
	"github.com/liftedinit/mhchain/internal/ledger"
	"github.com/liftedinit/mhchain/internal/miner"
	"github.com/liftedinit/mhchain/internal/models"
	"github.com/liftedinit/mhchain/internal/output"
	"github.com/liftedinit/mhchain/internal/peers"
	"github.com/liftedinit/mhchain/internal/pow"
)

// ErrClosed is returned by Mine after Close.
var ErrClosed = errors.New("node is closed")

// Observer receives mining and resolution outcomes.
type Observer interface {
	miner.Observer
	ObserveResolution(replaced bool)
}

type Node struct {
	ID       string
	Ledger   *ledger.Ledger
	Peers    *peers.Registry
	miner    *miner.Miner
	source   consensus.SnapshotSource
	store    output.ChainStore
	observer Observer

	// mineMu allows one mining operation at a time.
	mineMu sync.Mutex

	mu         sync.Mutex
	cancelMine context.CancelFunc
	closed     bool
}

type Options struct {
	// ID identifies this node as the recipient of mining rewards. A random
	// one is generated when empty.
	ID       string
	Source   consensus.SnapshotSource
	Store    output.ChainStore
	Observer Observer
}

func New(p *pow.ProofOfWork, opts Options) (*Node, error) {
	id := opts.ID
	if id == "" {
		var err error
		if id, err = NewID(); err != nil {
			return nil, err
		}
	}

	l := ledger.New(p)
	var minerObserver miner.Observer
	if opts.Observer != nil {
		minerObserver = opts.Observer
	}

	return &Node{
		ID:       id,
		Ledger:   l,
		Peers:    peers.NewRegistry(),
		miner:    miner.New(l, p, id, minerObserver),
		source:   opts.Source,
		store:    opts.Store,
		observer: opts.Observer,
	}, nil
}

// NewID returns a random 128-bit hex node identifier.
func NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate node identifier: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Mine seals one block. It is aborted when ctx ends, when the node is
// closed, or when a resolution replaces the chain.
func (n *Node) Mine(ctx context.Context) (models.Block, error) {
	n.mineMu.Lock()
	defer n.mineMu.Unlock()

	mineCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return models.Block{}, ErrClosed
	}
	n.cancelMine = cancel
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.cancelMine = nil
		n.mu.Unlock()
	}()

	return n.miner.Mine(mineCtx)
}

// abortMining cancels the in-flight mining operation, if any.
func (n *Node) abortMining() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancelMine != nil {
		n.cancelMine()
	}
}

// Resolve reconciles the local chain with every registered peer.
func (n *Node) Resolve(ctx context.Context) (bool, models.Chain, error) {
	if n.source == nil {
		return false, n.Ledger.Chain(), nil
	}

	replaced, chain, err := consensus.Sync(ctx, n.Ledger, n.source, n.Peers.List())
	if err != nil {
		return false, chain, err
	}
	if replaced {
		n.abortMining()
	}
	if n.observer != nil {
		n.observer.ObserveResolution(replaced)
	}
	return replaced, chain, nil
}

// RunResolver calls Resolve every interval until ctx is done.
func (n *Node) RunResolver(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			replaced, chain, err := n.Resolve(ctx)
			if err != nil {
				slog.Error("Periodic resolution failed", "error", err)
				continue
			}
			slog.Debug("Periodic resolution", "replaced", replaced, "length", len(chain))
		}
	}
}

// Save writes the current chain to the store.
func (n *Node) Save(ctx context.Context) error {
	if n.store == nil {
		return errors.New("no chain store configured")
	}
	chain := n.Ledger.Chain()
	if err := n.store.SaveChain(ctx, chain); err != nil {
		return fmt.Errorf("failed to save chain: %w", err)
	}
	slog.Info("Chain saved", "length", len(chain))
	return nil
}

// Load replaces the chain with the stored one after validating it.
func (n *Node) Load(ctx context.Context) (models.Chain, error) {
	if n.store == nil {
		return nil, errors.New("no chain store configured")
	}
	chain, err := n.store.LoadChain(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain: %w", err)
	}
	if err := n.Ledger.ValidateChain(chain); err != nil {
		return nil, fmt.Errorf("stored chain rejected: %w", err)
	}
	if err := n.Ledger.ReplaceChain(chain); err != nil {
		return nil, err
	}
	n.abortMining()
	slog.Info("Chain loaded", "length", len(chain))
	return chain, nil
}

// Close aborts mining and refuses further mining operations.
func (n *Node) Close() {
	n.mu.Lock()
	n.closed = true
	if n.cancelMine != nil {
		n.cancelMine()
	}
	n.mu.Unlock()
}
