package ledger

import (
	"fmt"

	"github.com/liftedinit/mhchain/internal/hasher"
	"github.com/liftedinit/mhchain/internal/models"
)

// ValidChain reports whether every adjacent pair of blocks in chain is
// linked by hash and by a valid proof. An empty chain is invalid; a single
// block is trivially valid.
func (l *Ledger) ValidChain(chain models.Chain) bool {
	return l.ValidateChain(chain) == nil
}

// ValidateChain is ValidChain reporting the first failing link.
func (l *Ledger) ValidateChain(chain models.Chain) error {
	if len(chain) == 0 {
		return ErrEmptyChain
	}

	last := chain[0]
	for i := 1; i < len(chain); i++ {
		block := chain[i]

		if expected := hasher.Hash(last); block.PreviousHash != expected {
			return fmt.Errorf("%w: block %d previous hash %s, expected %s", ErrInvalidChain, i+1, block.PreviousHash, expected)
		}

		if !l.pow.ValidProof(last.Proof, block.Proof) {
			return fmt.Errorf("%w: block %d proof %d does not follow %d", ErrInvalidChain, i+1, block.Proof, last.Proof)
		}

		last = block
	}

	return nil
}
