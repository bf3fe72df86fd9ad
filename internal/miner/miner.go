package miner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/liftedinit/mhchain/internal/hasher"
	"github.com/liftedinit/mhchain/internal/models"
)

const (
	// RewardSender marks the transaction that pays the miner.
	RewardSender = "0"
	RewardAmount = 1.0
)

// Ledger is the ledger surface a miner drives.
type Ledger interface {
	LastBlock() (models.Block, error)
	SealOnto(parentHash string, proof int64, extra ...models.Transaction) (models.Block, error)
}

// Prover searches for proofs.
type Prover interface {
	FindProof(ctx context.Context, lastProof int64) (int64, error)
}

// Observer is told about every mining attempt.
type Observer interface {
	ObserveMining(duration time.Duration, err error)
}

type Miner struct {
	ledger   Ledger
	prover   Prover
	nodeID   string
	observer Observer
}

func New(ledger Ledger, prover Prover, nodeID string, observer Observer) *Miner {
	return &Miner{
		ledger:   ledger,
		prover:   prover,
		nodeID:   nodeID,
		observer: observer,
	}
}

// Mine finds a proof for the current tail, credits the node with the mining
// reward and seals the pending pool into a new block. The block holds the
// transactions pending when it is sealed, not when mining started.
func (m *Miner) Mine(ctx context.Context) (models.Block, error) {
	start := time.Now()
	block, err := m.mine(ctx)
	if m.observer != nil {
		m.observer.ObserveMining(time.Since(start), err)
	}
	return block, err
}

func (m *Miner) mine(ctx context.Context) (models.Block, error) {
	last, err := m.ledger.LastBlock()
	if err != nil {
		return models.Block{}, err
	}
	parentHash := hasher.Hash(last)

	slog.Debug("Mining", "height", last.Index+1, "last_proof", last.Proof)
	proof, err := m.prover.FindProof(ctx, last.Proof)
	if err != nil {
		return models.Block{}, fmt.Errorf("proof search aborted: %w", err)
	}

	reward := models.Transaction{
		Sender:    RewardSender,
		Recipient: m.nodeID,
		Amount:    RewardAmount,
	}
	block, err := m.ledger.SealOnto(parentHash, proof, reward)
	if err != nil {
		return models.Block{}, err
	}

	slog.Info("New block forged", "index", block.Index, "proof", block.Proof, "transactions", len(block.Transactions))
	return block, nil
}
