package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/liftedinit/mhchain/internal/models"
)

// TSVChainStore keeps one block per line: "<index>\t<compact block JSON>".
type TSVChainStore struct {
	path string
}

func NewTSVChainStore(path string) (*TSVChainStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WithMessage(err, "failed to create output directory")
	}
	return &TSVChainStore{path: path}, nil
}

func (s *TSVChainStore) SaveChain(_ context.Context, chain models.Chain) error {
	var buf bytes.Buffer
	for _, block := range chain {
		data, err := json.Marshal(block)
		if err != nil {
			return errors.WithMessage(err, "failed to encode block")
		}
		fmt.Fprintf(&buf, "%d\t%s\n", block.Index, data)
	}
	return writeFileAtomic(s.path, buf.Bytes())
}

func (s *TSVChainStore) LoadChain(_ context.Context) (models.Chain, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoChain
		}
		return nil, errors.WithMessage(err, "failed to open blocks TSV file")
	}
	defer f.Close()

	var chain models.Chain
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		idField, data, ok := bytes.Cut(scanner.Bytes(), []byte("\t"))
		if !ok {
			return nil, fmt.Errorf("line %d: missing tab separator", line)
		}
		id, err := strconv.ParseInt(string(idField), 10, 64)
		if err != nil {
			return nil, errors.WithMessage(err, fmt.Sprintf("line %d: invalid block index", line))
		}

		var block models.Block
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, errors.WithMessage(err, fmt.Sprintf("line %d: invalid block", line))
		}
		if block.Index != id {
			return nil, fmt.Errorf("line %d: index column %d does not match block index %d", line, id, block.Index)
		}
		chain = append(chain, block)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithMessage(err, "failed to read blocks TSV file")
	}
	if len(chain) == 0 {
		return nil, ErrNoChain
	}
	return chain, nil
}

func (s *TSVChainStore) Close() error {
	return nil
}
