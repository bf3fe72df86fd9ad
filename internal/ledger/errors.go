package ledger

import "errors"

// Ledger errors
var (
	ErrEmptyChain    = errors.New("chain has no blocks")
	ErrInvalidChain  = errors.New("invalid chain")
	ErrStaleTip      = errors.New("chain tip changed while mining")
	ErrBlockNotFound = errors.New("block not found")
)
