package consensus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liftedinit/mhchain/internal/models"
)

// Chainholder is the ledger surface Sync needs.
type Chainholder interface {
	Validator
	Chain() models.Chain
	ReplaceChainIfLonger(chain models.Chain) (bool, error)
}

// SnapshotSource supplies peer snapshots.
type SnapshotSource interface {
	FetchAll(ctx context.Context, peers []string) []models.Snapshot
}

// Sync fetches the peers' chains and swaps the holder's chain for the
// winner, if any. It returns whether the chain was replaced and the chain
// the holder ends up with.
func Sync(ctx context.Context, holder Chainholder, source SnapshotSource, peers []string) (bool, models.Chain, error) {
	local := holder.Chain()
	if len(peers) == 0 {
		return false, local, nil
	}

	snapshots := source.FetchAll(ctx, peers)
	slog.Debug("Fetched peer chains", "peers", len(peers), "snapshots", len(snapshots))

	replaced, chain := NewResolver(holder).Resolve(local, snapshots)
	if !replaced {
		return false, local, nil
	}

	// The local chain may have grown while peers were being fetched.
	swapped, err := holder.ReplaceChainIfLonger(chain)
	if err != nil {
		return false, local, fmt.Errorf("failed to replace chain: %w", err)
	}
	if !swapped {
		current := holder.Chain()
		slog.Info("Local chain grew during resolution, keeping it", "length", len(current), "peer_length", len(chain))
		return false, current, nil
	}
	slog.Info("Local chain replaced", "old_length", len(local), "new_length", len(chain))
	return true, chain, nil
}
