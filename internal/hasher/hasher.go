package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/liftedinit/mhchain/internal/models"
)

// Hash returns the hex SHA-256 digest of the block's canonical encoding.
//
// The block is encoded as JSON with keys sorted at every level, so the
// digest only depends on field values.
func Hash(block models.Block) string {
	return HashBytes(canonical(block))
}

// HashBytes returns the hex SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// canonical encodes the block through maps; encoding/json writes map keys in
// sorted order.
func canonical(block models.Block) []byte {
	txs := make([]map[string]any, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		txs = append(txs, map[string]any{
			"amount":    number(tx.Amount),
			"recipient": tx.Recipient,
			"sender":    tx.Sender,
		})
	}

	doc := map[string]any{
		"index":         block.Index,
		"previous_hash": block.PreviousHash,
		"proof":         block.Proof,
		"timestamp":     number(block.Timestamp),
		"transactions":  txs,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		// Every value in doc is a string, an integer or a finite float.
		panic(fmt.Sprintf("hasher: encoding block %d: %v", block.Index, err))
	}
	return data
}

// number keeps finite floats numeric. NaN and infinities have no JSON number
// form and are encoded as their strconv spelling instead, so blocks carrying
// them still hash apart.
func number(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}
