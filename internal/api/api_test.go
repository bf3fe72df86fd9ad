package api_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftedinit/mhchain/internal/api"
	"github.com/liftedinit/mhchain/internal/consensus"
	"github.com/liftedinit/mhchain/internal/models"
	"github.com/liftedinit/mhchain/internal/node"
	"github.com/liftedinit/mhchain/internal/output"
	"github.com/liftedinit/mhchain/internal/pow"
)

type testServer struct {
	node   *node.Node
	server *httptest.Server
	client *resty.Client
}

func newTestServer(t *testing.T, store output.ChainStore) *testServer {
	t.Helper()
	p, err := pow.New("")
	require.NoError(t, err)

	n, err := node.New(p, node.Options{
		ID:     "test-node",
		Source: consensus.NewFetcher(2*time.Second, 4),
		Store:  store,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(n))
	t.Cleanup(func() {
		n.Close()
		srv.Close()
	})

	return &testServer{
		node:   n,
		server: srv,
		client: resty.New().SetBaseURL(srv.URL),
	}
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func TestFullChainGenesis(t *testing.T) {
	ts := newTestServer(t, nil)

	var snapshot models.Snapshot
	resp, err := ts.client.R().SetResult(&snapshot).Get("/chain")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, 1, snapshot.Length)
	require.Len(t, snapshot.Chain, 1)
	assert.Equal(t, "1", snapshot.Chain[0].PreviousHash)
	assert.Equal(t, int64(100), snapshot.Chain[0].Proof)
}

func TestNewTransaction(t *testing.T) {
	ts := newTestServer(t, nil)

	var out messageResponse
	resp, err := ts.client.R().
		SetBody(map[string]any{"sender": "a", "recipient": "b", "amount": 5}).
		SetResult(&out).
		Post("/transactions/new")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	assert.Equal(t, "Transaction will be added to block 2", out.Message)
	assert.Len(t, ts.node.Ledger.PendingTransactions(), 1)
}

func TestNewTransactionShortRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	var out messageResponse
	resp, err := ts.client.R().
		SetBody(map[string]any{"sender": "a", "recipient": "b", "amount": 1}).
		SetResult(&out).
		Post("/tr/new")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	assert.Equal(t, "Transaction will be added to block 2", out.Message)
	assert.Len(t, ts.node.Ledger.PendingTransactions(), 1)
}

func TestNewTransactionMalformed(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"sender":"a","recipient":"b"}`},
		{"missing sender", `{"recipient":"b","amount":1}`},
		{"empty object", `{}`},
		{"not json", `nope`},
		{"wrong type", `{"sender":"a","recipient":"b","amount":"ten"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out messageResponse
			resp, err := ts.client.R().
				SetHeader("Content-Type", "application/json").
				SetBody(tt.body).
				SetError(&out).
				Post("/transactions/new")
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
			assert.Contains(t, out.Error, api.ErrMalformedInput.Error())
		})
	}
	assert.Empty(t, ts.node.Ledger.PendingTransactions())
}

func TestMine(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.node.Ledger.NewTransaction("a", "b", 2)

	var out struct {
		Message      string               `json:"message"`
		Index        int64                `json:"index"`
		Transactions []models.Transaction `json:"transactions"`
		Proof        int64                `json:"proof"`
		PreviousHash string               `json:"previous_hash"`
	}
	resp, err := ts.client.R().SetResult(&out).Get("/mine")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "New block forged", out.Message)
	assert.Equal(t, int64(2), out.Index)
	require.Len(t, out.Transactions, 2)
	assert.Equal(t, models.Transaction{Sender: "a", Recipient: "b", Amount: 2}, out.Transactions[0])
	assert.Equal(t, models.Transaction{Sender: "0", Recipient: "test-node", Amount: 1}, out.Transactions[1])
	assert.Equal(t, 2, ts.node.Ledger.Length())
}

func TestMineAfterCloseIsUnavailable(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.node.Close()

	resp, err := ts.client.R().Get("/mine")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode())
	assert.Equal(t, 1, ts.node.Ledger.Length())
}

func TestGetBlock(t *testing.T) {
	ts := newTestServer(t, nil)

	var out struct {
		Block models.Block `json:"chain"`
	}
	resp, err := ts.client.R().SetResult(&out).Get("/chain/1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, int64(1), out.Block.Index)

	resp, err = ts.client.R().Get("/chain/2")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = ts.client.R().Get("/chain/abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestRegisterNodes(t *testing.T) {
	ts := newTestServer(t, nil)

	var out struct {
		Message    string   `json:"message"`
		TotalNodes []string `json:"total_nodes"`
	}
	resp, err := ts.client.R().
		SetBody(map[string]any{"nodes": []string{"http://192.168.0.5:5000", "192.168.0.5:5000", "10.0.0.1:5001"}}).
		SetResult(&out).
		Post("/nodes/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	assert.Equal(t, "New nodes have been added", out.Message)
	assert.Equal(t, []string{"10.0.0.1:5001", "192.168.0.5:5000"}, out.TotalNodes)

	resp, err = ts.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{}`).
		Post("/nodes/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	resp, err = ts.client.R().
		SetBody(map[string]any{"nodes": []string{"http://"}}).
		Post("/nodes/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestResolveReplacesShorterChain(t *testing.T) {
	local := newTestServer(t, nil)
	remote := newTestServer(t, nil)

	for range 2 {
		resp, err := remote.client.R().Get("/mine")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
	}

	resp, err := local.client.R().
		SetBody(map[string]any{"nodes": []string{remote.server.URL}}).
		Post("/nodes/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	type resolveResponse struct {
		Message  string       `json:"message"`
		Replaced bool         `json:"replaced"`
		Chain    models.Chain `json:"chain"`
		NewChain models.Chain `json:"new_chain"`
	}
	var out resolveResponse
	resp, err = local.client.R().SetResult(&out).Get("/nodes/resolve")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Our chain was replaced", out.Message)
	assert.True(t, out.Replaced)
	assert.Len(t, out.NewChain, 3)
	assert.Nil(t, out.Chain)
	assert.Equal(t, remote.node.Ledger.Chain(), local.node.Ledger.Chain())

	// The longer side keeps its chain.
	resp, err = remote.client.R().
		SetBody(map[string]any{"nodes": []string{local.server.URL}}).
		Post("/nodes/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var kept resolveResponse
	resp, err = remote.client.R().SetResult(&kept).Get("/nodes/resolve")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Our chain is authoritative", kept.Message)
	assert.False(t, kept.Replaced)
	assert.Len(t, kept.Chain, 3)
	assert.Nil(t, kept.NewChain)
}

func TestSaveAndLoad(t *testing.T) {
	store, err := output.NewJSONChainStore(filepath.Join(t.TempDir(), "chain.json"))
	require.NoError(t, err)
	ts := newTestServer(t, store)

	resp, err := ts.client.R().Get("/load")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = ts.client.R().Get("/mine")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = ts.client.R().Get("/save")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	saved := ts.node.Ledger.Chain()

	resp, err = ts.client.R().Get("/mine")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Equal(t, 3, ts.node.Ledger.Length())

	resp, err = ts.client.R().Get("/load")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, saved, ts.node.Ledger.Chain())
}

func TestSaveWithoutStore(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client.R().Get("/save")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
}

func TestUnknownMethod(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client.R().Post("/chain")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode())
}
