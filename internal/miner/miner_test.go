package miner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftedinit/mhchain/internal/hasher"
	"github.com/liftedinit/mhchain/internal/ledger"
	"github.com/liftedinit/mhchain/internal/miner"
	"github.com/liftedinit/mhchain/internal/models"
	"github.com/liftedinit/mhchain/internal/pow"
)

type recorder struct {
	calls []error
}

func (r *recorder) ObserveMining(_ time.Duration, err error) {
	r.calls = append(r.calls, err)
}

func setup(t *testing.T) (*ledger.Ledger, *pow.ProofOfWork) {
	t.Helper()
	p, err := pow.New("")
	require.NoError(t, err)
	return ledger.New(p), p
}

func TestMine(t *testing.T) {
	l, p := setup(t)
	rec := &recorder{}
	m := miner.New(l, p, "node-1", rec)

	l.NewTransaction("A", "B", 1)
	genesis := l.Chain()[0]

	block, err := m.Mine(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), block.Index)
	assert.Equal(t, hasher.Hash(genesis), block.PreviousHash)
	assert.True(t, p.ValidProof(genesis.Proof, block.Proof))
	assert.Equal(t, []models.Transaction{
		{Sender: "A", Recipient: "B", Amount: 1},
		{Sender: miner.RewardSender, Recipient: "node-1", Amount: miner.RewardAmount},
	}, block.Transactions)
	assert.True(t, l.ValidChain(l.Chain()))
	assert.Equal(t, []error{nil}, rec.calls)
}

// blockingProver waits for a signal before returning a fixed proof.
type blockingProver struct {
	proof   int64
	release chan struct{}
	started chan struct{}
}

func (b *blockingProver) FindProof(ctx context.Context, _ int64) (int64, error) {
	close(b.started)
	select {
	case <-b.release:
		return b.proof, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestMineSealsTransactionsPendingAtSealTime(t *testing.T) {
	l, p := setup(t)
	proof, err := p.FindProof(context.Background(), ledger.GenesisProof)
	require.NoError(t, err)

	prover := &blockingProver{proof: proof, release: make(chan struct{}), started: make(chan struct{})}
	m := miner.New(l, prover, "node-1", nil)

	done := make(chan models.Block)
	go func() {
		block, err := m.Mine(context.Background())
		assert.NoError(t, err)
		done <- block
	}()

	<-prover.started
	l.NewTransaction("late", "B", 3)
	close(prover.release)

	block := <-done
	require.Len(t, block.Transactions, 2)
	assert.Equal(t, "late", block.Transactions[0].Sender)
}

func TestMineCancelled(t *testing.T) {
	l, _ := setup(t)
	rec := &recorder{}
	prover := &blockingProver{release: make(chan struct{}), started: make(chan struct{})}
	m := miner.New(l, prover, "node-1", rec)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-prover.started
		cancel()
	}()

	_, err := m.Mine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.Length())
	assert.Empty(t, l.PendingTransactions())
	require.Len(t, rec.calls, 1)
	assert.Error(t, rec.calls[0])
}

func TestMineStaleTip(t *testing.T) {
	l, p := setup(t)
	proof, err := p.FindProof(context.Background(), ledger.GenesisProof)
	require.NoError(t, err)

	prover := &blockingProver{proof: proof, release: make(chan struct{}), started: make(chan struct{})}
	m := miner.New(l, prover, "node-1", nil)

	errc := make(chan error)
	go func() {
		_, err := m.Mine(context.Background())
		errc <- err
	}()

	<-prover.started
	// The chain moves on while the proof is being searched
	l.NewBlock(proof, "")
	close(prover.release)

	assert.ErrorIs(t, <-errc, ledger.ErrStaleTip)
	assert.Equal(t, 2, l.Length())
	// The reward of the failed attempt is not left behind in the pool
	assert.Empty(t, l.PendingTransactions())
}
