package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/liftedinit/mhchain/internal/models"
)

// JSONChainStore keeps the chain as a JSON array in a single file.
type JSONChainStore struct {
	path string
}

func NewJSONChainStore(path string) (*JSONChainStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &JSONChainStore{path: path}, nil
}

func (s *JSONChainStore) SaveChain(_ context.Context, chain models.Chain) error {
	data, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("failed to encode chain: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func (s *JSONChainStore) LoadChain(_ context.Context) (models.Chain, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoChain
		}
		return nil, fmt.Errorf("failed to read chain file: %w", err)
	}

	var chain models.Chain
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("failed to decode chain file: %w", err)
	}
	if len(chain) == 0 {
		return nil, ErrNoChain
	}
	return chain, nil
}

func (s *JSONChainStore) Close() error {
	return nil
}

// writeFileAtomic writes data next to path and renames it into place so a
// crash never leaves a truncated chain behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
