package models

// Transaction represents a transfer waiting in the pool or sealed in a block.
type Transaction struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}

// Block represents a sealed ledger block.
type Block struct {
	Index        int64         `json:"index"`
	Timestamp    float64       `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	Proof        int64         `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
}

// Chain is an ordered sequence of blocks, genesis first.
type Chain []Block

// Snapshot is a peer's view of its chain as served on /chain.
type Snapshot struct {
	Chain  Chain `json:"chain"`
	Length int   `json:"length"`
}

// Clone returns a copy of the chain that shares no backing arrays with c.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	out := make(Chain, len(c))
	for i, b := range c {
		out[i] = b.Clone()
	}
	return out
}

// Clone returns a copy of the block with its own transaction slice.
func (b Block) Clone() Block {
	txs := make([]Transaction, len(b.Transactions))
	copy(txs, b.Transactions)
	b.Transactions = txs
	return b
}
