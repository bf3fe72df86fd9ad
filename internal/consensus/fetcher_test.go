package consensus_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftedinit/mhchain/internal/consensus"
	"github.com/liftedinit/mhchain/internal/models"
)

func chainServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestFetchAllSkipsBadPeers(t *testing.T) {
	good := buildChain(t, 2, "good")

	okPeer := chainServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chain", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.Snapshot{Chain: good, Length: len(good)})
	})
	failingPeer := chainServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	garbagePeer := chainServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	slowPeer := chainServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	fetcher := consensus.NewFetcher(200*time.Millisecond, 4)
	snapshots := fetcher.FetchAll(context.Background(), []string{failingPeer, okPeer, garbagePeer, slowPeer, "127.0.0.1:1"})

	require.Len(t, snapshots, 1)
	assert.Equal(t, 2, snapshots[0].Length)
	assert.Equal(t, good, snapshots[0].Chain)
}

func TestFetchAllKeepsPeerOrder(t *testing.T) {
	short := buildChain(t, 1, "a")
	long := buildChain(t, 2, "b")

	serve := func(chain models.Chain) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(models.Snapshot{Chain: chain, Length: len(chain)})
		}
	}
	first := chainServer(t, serve(long))
	second := chainServer(t, serve(short))

	snapshots := consensus.NewFetcher(time.Second, 1).FetchAll(context.Background(), []string{first, second})
	require.Len(t, snapshots, 2)
	assert.Equal(t, 2, snapshots[0].Length)
	assert.Equal(t, 1, snapshots[1].Length)
}
