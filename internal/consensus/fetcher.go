package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/liftedinit/mhchain/internal/models"
)

const chainPath = "/chain"

// Fetcher retrieves chain snapshots from peers over HTTP.
type Fetcher struct {
	client         *resty.Client
	maxConcurrency int
}

// NewFetcher returns a Fetcher that gives each peer timeout to answer and
// queries at most maxConcurrency peers at once.
func NewFetcher(timeout time.Duration, maxConcurrency uint) *Fetcher {
	if maxConcurrency == 0 {
		maxConcurrency = 1
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Fetcher{
		client:         client,
		maxConcurrency: int(maxConcurrency),
	}
}

// FetchAll asks every peer for its chain. Peers that fail are logged and
// left out; the remaining snapshots keep the order of peers.
func (f *Fetcher) FetchAll(ctx context.Context, peers []string) []models.Snapshot {
	results := make([]*models.Snapshot, len(peers))

	var eg errgroup.Group
	eg.SetLimit(f.maxConcurrency)
	for i, peer := range peers {
		eg.Go(func() error {
			snapshot, err := f.Fetch(ctx, peer)
			if err != nil {
				slog.Warn("Skipping peer", "peer", peer, "error", err)
				return nil
			}
			results[i] = snapshot
			return nil
		})
	}
	// Workers never return errors
	_ = eg.Wait()

	snapshots := make([]models.Snapshot, 0, len(peers))
	for _, s := range results {
		if s != nil {
			snapshots = append(snapshots, *s)
		}
	}
	return snapshots
}

// Fetch retrieves one peer's snapshot from http://<peer>/chain.
func (f *Fetcher) Fetch(ctx context.Context, peer string) (*models.Snapshot, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("http://%s%s", peer, chainPath))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(resp.Body(), &snapshot); err != nil {
		return nil, fmt.Errorf("malformed chain response: %w", err)
	}
	return &snapshot, nil
}
