package mhchain_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftedinit/mhchain/cmd/mhchain"
	"github.com/liftedinit/mhchain/internal/models"
)

func TestServeInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"port", []string{"--port", "0"}, "invalid port: 0"},
		{"concurrency", []string{"--port", "5000", "--max-concurrency", "0"}, "max concurrency must be at least 1"},
		{"timeout", []string{"--port", "5000", "--max-concurrency", "4", "--peer-timeout", "0s"}, "peer timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"serve"}, tt.args...)...)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestServe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mhchain.RootCmd.SetArgs([]string{
		"serve",
		"--host", "127.0.0.1",
		"--port", "25017",
		"--max-concurrency", "4",
		"--peer-timeout", "2s",
		"--resolve-interval", "0s",
		"--enable-prometheus",
		"--prometheus-addr", "127.0.0.1:25018",
		"--store", "json",
		"--json-out", path,
		"--logLevel", "error",
		"--difficulty", "12",
		"--node-id", "served",
	})
	// Subcommands keep the context of their first execution.
	mhchain.ServeCmd.SetContext(ctx)
	done := make(chan error, 1)
	go func() {
		done <- mhchain.RootCmd.ExecuteContext(ctx)
	}()

	client := resty.New().SetBaseURL("http://127.0.0.1:25017")
	require.Eventually(t, func() bool {
		resp, err := client.R().Get("/chain")
		return err == nil && resp.StatusCode() == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := client.R().Get("/mine")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = client.R().Get("/save")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var snapshot models.Snapshot
	resp, err = client.R().SetResult(&snapshot).Get("/chain")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, 2, snapshot.Length)

	resp, err = resty.New().R().Get("http://127.0.0.1:25018/metrics")
	require.NoError(t, err)
	assert.Contains(t, resp.String(), "mhchain_chain_length")
	assert.Contains(t, resp.String(), "mhchain_blocks_mined_total 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop")
	}
}
