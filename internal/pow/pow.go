package pow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/liftedinit/mhchain/internal/hasher"
)

// DefaultPrefix is the digest prefix a valid proof must produce: the first
// two hex characters of sha256(lastProof || proof) must read "12".
const DefaultPrefix = "12"

// checkInterval is the number of candidates tried between context checks.
const checkInterval = 1024

var ErrInvalidDifficulty = errors.New("invalid difficulty prefix")

// ProofOfWork searches for and verifies proofs against a hex prefix target.
type ProofOfWork struct {
	Prefix string
}

// New returns a ProofOfWork with the given target prefix. An empty prefix
// selects DefaultPrefix.
func New(prefix string) (*ProofOfWork, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	p := &ProofOfWork{Prefix: strings.ToLower(prefix)}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the prefix is a non-empty hex string no longer than a digest.
func (p *ProofOfWork) Validate() error {
	if p.Prefix == "" || len(p.Prefix) > 64 {
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, p.Prefix)
	}
	for _, r := range p.Prefix {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return fmt.Errorf("%w: %q is not lowercase hex", ErrInvalidDifficulty, p.Prefix)
		}
	}
	return nil
}

// ValidProof reports whether sha256 of the decimal concatenation of
// lastProof and proof starts with the target prefix.
func (p *ProofOfWork) ValidProof(lastProof, proof int64) bool {
	guess := strconv.AppendInt(nil, lastProof, 10)
	guess = strconv.AppendInt(guess, proof, 10)
	return strings.HasPrefix(hasher.HashBytes(guess), p.Prefix)
}

// FindProof returns the smallest non-negative proof accepted by ValidProof
// for lastProof. The search is linear from zero and stops with ctx.Err()
// when ctx is cancelled.
func (p *ProofOfWork) FindProof(ctx context.Context, lastProof int64) (int64, error) {
	for proof := int64(0); ; proof++ {
		if proof%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if p.ValidProof(lastProof, proof) {
			return proof, nil
		}
	}
}
