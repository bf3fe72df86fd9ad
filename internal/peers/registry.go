package peers

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
)

var ErrInvalidAddress = errors.New("invalid peer address")

// Registry is the set of known peers, keyed by host:port.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]struct{}),
	}
}

// Register adds a peer and returns its canonical form. Addresses may be
// full URLs ("http://192.168.0.5:5000") or bare "host:port".
func (r *Registry) Register(address string) (string, error) {
	node, err := Canonical(address)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.nodes[node] = struct{}{}
	r.mu.Unlock()

	return node, nil
}

// List returns the registered peers in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.nodes))
	for node := range r.nodes {
		out = append(out, node)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Canonical reduces an address to the lowercase host[:port] peers are keyed by.
func Canonical(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidAddress, address)
	}
	return strings.ToLower(u.Host), nil
}
