package output

import (
	"context"
	"errors"

	"github.com/liftedinit/mhchain/internal/models"
)

// ErrNoChain is returned when a store holds no saved chain yet.
var ErrNoChain = errors.New("no saved chain")

// ChainStore persists and restores a whole chain.
type ChainStore interface {
	SaveChain(ctx context.Context, chain models.Chain) error
	LoadChain(ctx context.Context) (models.Chain, error)
	Close() error
}

// TipReader is implemented by stores that can return the last saved block
// without reading the whole chain. It returns nil when nothing is saved.
type TipReader interface {
	GetLatestBlock(ctx context.Context) (*models.Block, error)
}
