package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/liftedinit/mhchain/internal/ledger"
	"github.com/liftedinit/mhchain/internal/models"
	"github.com/liftedinit/mhchain/internal/node"
	"github.com/liftedinit/mhchain/internal/output"
)

// ErrMalformedInput is returned for request bodies missing required fields.
var ErrMalformedInput = errors.New("malformed input")

type Handler struct {
	node *node.Node
}

// NewRouter exposes the node's operations over HTTP.
func NewRouter(n *node.Node) *mux.Router {
	h := &Handler{node: n}

	r := mux.NewRouter()
	r.HandleFunc("/mine", h.Mine).Methods(http.MethodGet)
	r.HandleFunc("/transactions/new", h.NewTransaction).Methods(http.MethodPost)
	r.HandleFunc("/tr/new", h.NewTransaction).Methods(http.MethodPost)
	r.HandleFunc("/chain", h.FullChain).Methods(http.MethodGet)
	r.HandleFunc("/chain/{index}", h.GetBlock).Methods(http.MethodGet)
	r.HandleFunc("/nodes/register", h.RegisterNodes).Methods(http.MethodPost)
	r.HandleFunc("/nodes/resolve", h.Consensus).Methods(http.MethodGet)
	r.HandleFunc("/save", h.Save).Methods(http.MethodGet)
	r.HandleFunc("/load", h.Load).Methods(http.MethodGet)
	return r
}

type mineResponse struct {
	Message      string               `json:"message"`
	Index        int64                `json:"index"`
	Transactions []models.Transaction `json:"transactions"`
	Proof        int64                `json:"proof"`
	PreviousHash string               `json:"previous_hash"`
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	block, err := h.node.Mine(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, node.ErrClosed), errors.Is(err, ledger.ErrStaleTip):
			writeError(w, http.StatusServiceUnavailable, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, mineResponse{
		Message:      "New block forged",
		Index:        block.Index,
		Transactions: block.Transactions,
		Proof:        block.Proof,
		PreviousHash: block.PreviousHash,
	})
}

type transactionRequest struct {
	Sender    *string  `json:"sender"`
	Recipient *string  `json:"recipient"`
	Amount    *float64 `json:"amount"`
}

func (t transactionRequest) validate() error {
	var missing []string
	if t.Sender == nil {
		missing = append(missing, "sender")
	}
	if t.Recipient == nil {
		missing = append(missing, "recipient")
	}
	if t.Amount == nil {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing values %v", ErrMalformedInput, missing)
	}
	return nil
}

func (h *Handler) NewTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrMalformedInput, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	index := h.node.Ledger.NewTransaction(*req.Sender, *req.Recipient, *req.Amount)
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("Transaction will be added to block %d", index),
	})
}

func (h *Handler) FullChain(w http.ResponseWriter, r *http.Request) {
	chain := h.node.Ledger.Chain()
	writeJSON(w, http.StatusOK, models.Snapshot{Chain: chain, Length: len(chain)})
}

func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseInt(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: block index must be an integer", ErrMalformedInput))
		return
	}

	block, err := h.node.Ledger.Block(index)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Block{"chain": block})
}

type registerRequest struct {
	Nodes []string `json:"nodes"`
}

func (h *Handler) RegisterNodes(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrMalformedInput, err))
		return
	}
	if req.Nodes == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: please supply a valid list of nodes", ErrMalformedInput))
		return
	}

	for _, address := range req.Nodes {
		peer, err := h.node.Peers.Register(address)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		slog.Info("Registered peer", "peer", peer)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "New nodes have been added",
		"total_nodes": h.node.Peers.List(),
	})
}

func (h *Handler) Consensus(w http.ResponseWriter, r *http.Request) {
	replaced, chain, err := h.node.Resolve(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if replaced {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":   "Our chain was replaced",
			"replaced":  true,
			"new_chain": chain,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Our chain is authoritative",
		"replaced": false,
		"chain":    chain,
	})
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.node.Save(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Chain saved",
		"length":  h.node.Ledger.Length(),
	})
}

func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	chain, err := h.node.Load(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, output.ErrNoChain):
			status = http.StatusNotFound
		case errors.Is(err, ledger.ErrInvalidChain), errors.Is(err, ledger.ErrEmptyChain):
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Chain loaded",
		"length":  len(chain),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	slog.Debug("Request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
