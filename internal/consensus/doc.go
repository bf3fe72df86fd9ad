// Package consensus reconciles the local chain with peer chains.
//
// The rule is longest valid chain wins. Resolver is pure: it receives
// snapshots already fetched from peers and decides which chain, if any,
// replaces the local one. Fetcher retrieves snapshots over HTTP and drops
// peers that cannot be reached or answer with anything but a well-formed
// chain.
//
// Tie-break: a snapshot must be strictly longer than the best chain seen so
// far, and snapshots are scanned in order. Among valid snapshots sharing the
// maximal length the first one wins.
package consensus
