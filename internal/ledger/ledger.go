// Package ledger owns the chain of blocks and the pool of pending
// transactions.
//
// A Ledger is seeded with a genesis block on construction and grows by
// sealing the pending pool into a new block. The whole chain can also be
// swapped for a longer valid one found on a peer. Chain and pool are
// guarded by one mutex; readers always receive copies.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/liftedinit/mhchain/internal/hasher"
	"github.com/liftedinit/mhchain/internal/models"
	"github.com/liftedinit/mhchain/internal/pow"
)

const (
	GenesisPreviousHash = "1"
	GenesisProof        = int64(100)
)

type Ledger struct {
	mu      sync.RWMutex
	chain   models.Chain
	pending []models.Transaction
	pow     *pow.ProofOfWork
	now     func() time.Time
}

type Option func(*Ledger)

// WithClock overrides the clock used to timestamp new blocks.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates a ledger holding only the genesis block.
func New(p *pow.ProofOfWork, opts ...Option) *Ledger {
	l := &Ledger{
		pow:     p,
		now:     time.Now,
		pending: make([]models.Transaction, 0),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.NewBlock(GenesisProof, GenesisPreviousHash)
	return l
}

// NewTransaction queues a transaction for the next block and returns the
// index that block will have.
func (l *Ledger) NewTransaction(sender, recipient string, amount float64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = append(l.pending, models.Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	})
	return int64(len(l.chain)) + 1
}

// NewBlock seals the pending pool into a new block and appends it to the
// chain. An empty previousHash links the block to the current tail.
func (l *Ledger) NewBlock(proof int64, previousHash string) models.Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	if previousHash == "" && len(l.chain) > 0 {
		previousHash = hasher.Hash(l.chain[len(l.chain)-1])
	}
	return l.seal(proof, previousHash)
}

// SealOnto seals the pending pool, followed by extra, into a block linked to
// parentHash. It fails with ErrStaleTip when the tail no longer hashes to
// parentHash, so a proof mined against a replaced chain is never appended;
// extra is then dropped and the pool left as it was.
func (l *Ledger) SealOnto(parentHash string, proof int64, extra ...models.Transaction) (models.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.chain) == 0 {
		return models.Block{}, ErrEmptyChain
	}
	if tip := hasher.Hash(l.chain[len(l.chain)-1]); tip != parentHash {
		return models.Block{}, fmt.Errorf("%w: tip is %s, proof was mined on %s", ErrStaleTip, tip, parentHash)
	}
	l.pending = append(l.pending, extra...)
	return l.seal(proof, parentHash), nil
}

// seal must be called with l.mu held.
func (l *Ledger) seal(proof int64, previousHash string) models.Block {
	block := models.Block{
		Index:        int64(len(l.chain)) + 1,
		Timestamp:    float64(l.now().UnixNano()) / float64(time.Second),
		Transactions: l.pending,
		Proof:        proof,
		PreviousHash: previousHash,
	}
	l.pending = make([]models.Transaction, 0)
	l.chain = append(l.chain, block)
	return block.Clone()
}

// LastBlock returns the tail of the chain.
func (l *Ledger) LastBlock() (models.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.chain) == 0 {
		return models.Block{}, ErrEmptyChain
	}
	return l.chain[len(l.chain)-1].Clone(), nil
}

// Block returns the block with the given 1-based index.
func (l *Ledger) Block(index int64) (models.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 1 || index > int64(len(l.chain)) {
		return models.Block{}, fmt.Errorf("%w: index %d, chain length %d", ErrBlockNotFound, index, len(l.chain))
	}
	return l.chain[index-1].Clone(), nil
}

// Chain returns a copy of the current chain.
func (l *Ledger) Chain() models.Chain {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain.Clone()
}

func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// PendingTransactions returns a copy of the pool.
func (l *Ledger) PendingTransactions() []models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Transaction, len(l.pending))
	copy(out, l.pending)
	return out
}

// ReplaceChain swaps the whole chain for chain. The pending pool is kept.
// Callers validate chain first; only emptiness is checked here.
func (l *Ledger) ReplaceChain(chain models.Chain) error {
	if len(chain) == 0 {
		return ErrEmptyChain
	}
	replacement := chain.Clone()

	l.mu.Lock()
	l.chain = replacement
	l.mu.Unlock()
	return nil
}

// ReplaceChainIfLonger swaps the chain for chain only when chain is strictly
// longer than the chain held at the time of the swap. It reports whether the
// swap happened.
func (l *Ledger) ReplaceChainIfLonger(chain models.Chain) (bool, error) {
	if len(chain) == 0 {
		return false, ErrEmptyChain
	}
	replacement := chain.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(replacement) <= len(l.chain) {
		return false, nil
	}
	l.chain = replacement
	return true, nil
}

// ProofOfWork returns the proof rules this ledger validates against.
func (l *Ledger) ProofOfWork() *pow.ProofOfWork {
	return l.pow
}
