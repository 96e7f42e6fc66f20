// Package blockchain wires the header index, active chain pointer, and
// reorg coordinator together: the "chain state" component that decides
// what the canonical chain is and moves the tip atomically.
package blockchain

import (
	"fmt"
	"sync"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/consensus"
)

// HeaderStatus is a header's place in the validation state machine:
// HeaderOnly on first sight, Valid once stateful validation accepts the
// block it describes, Invalid permanently once proven to misbehave.
type HeaderStatus int

const (
	HeaderOnly HeaderStatus = iota
	Valid
	Invalid
)

func (s HeaderStatus) String() string {
	switch s {
	case HeaderOnly:
		return "header-only"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// HeaderInfo is everything the index tracks about one header.
type HeaderInfo struct {
	Header *types.BlockHeader
	Height uint32
	Work   *consensus.ChainWork
	Status HeaderStatus
}

// HeaderIndex maps block ids to HeaderInfo. It is the in-memory structure
// fork choice reasons over; entries are immutable except for Status, per
// spec: "Header index entries are immutable except for the status field."
type HeaderIndex struct {
	mu      sync.RWMutex
	entries map[common.Hash]*HeaderInfo
}

// NewHeaderIndex returns an empty index.
func NewHeaderIndex() *HeaderIndex {
	return &HeaderIndex{entries: make(map[common.Hash]*HeaderInfo)}
}

// Add inserts a new header at height with its cumulative work, as
// HeaderOnly. It is a no-op if the header is already indexed.
func (idx *HeaderIndex) Add(header *types.BlockHeader, height uint32, work *consensus.ChainWork) *HeaderInfo {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	hash := header.Hash()
	if existing, ok := idx.entries[hash]; ok {
		return existing
	}
	info := &HeaderInfo{Header: header, Height: height, Work: work, Status: HeaderOnly}
	idx.entries[hash] = info
	return info
}

// Get returns the indexed info for hash, or (nil, false).
func (idx *HeaderIndex) Get(hash common.Hash) (*HeaderInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	info, ok := idx.entries[hash]
	return info, ok
}

// SetStatus transitions hash's status. Invalid is terminal: once set, a
// later call is a no-op rather than reverting it to Valid.
func (idx *HeaderIndex) SetStatus(hash common.Hash, status HeaderStatus) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	info, ok := idx.entries[hash]
	if !ok || info.Status == Invalid {
		return
	}
	info.Status = status
}

// IsDescendantInvalid reports whether any ancestor of hash (hash itself
// included) is marked Invalid, meaning fork choice must ignore hash's
// entire subtree.
func (idx *HeaderIndex) IsDescendantInvalid(hash common.Hash) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for {
		info, ok := idx.entries[hash]
		if !ok {
			return false
		}
		if info.Status == Invalid {
			return true
		}
		if info.Header.PrevBlockHash.IsZero() {
			return false
		}
		hash = info.Header.PrevBlockHash
	}
}

// AncestorTimestamps walks up to window headers starting at hash itself and
// then its ancestors, returning their timestamps for
// consensus.MedianTimePast.
func (idx *HeaderIndex) AncestorTimestamps(hash common.Hash, window int) []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	timestamps := make([]uint64, 0, window)
	for i := 0; i < window; i++ {
		info, ok := idx.entries[hash]
		if !ok {
			break
		}
		timestamps = append(timestamps, info.Header.Timestamp)
		if info.Header.PrevBlockHash.IsZero() {
			break
		}
		hash = info.Header.PrevBlockHash
	}
	return timestamps
}

// FindCommonAncestor returns the lowest common ancestor of a and b: walk
// the deeper chain up to the shallower one's height, then step both back
// together until the hashes match.
func (idx *HeaderIndex) FindCommonAncestor(a, b common.Hash) (common.Hash, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	infoA, ok := idx.entries[a]
	if !ok {
		return common.Hash{}, fmt.Errorf("blockchain: %s not in header index", a)
	}
	infoB, ok := idx.entries[b]
	if !ok {
		return common.Hash{}, fmt.Errorf("blockchain: %s not in header index", b)
	}

	for infoA.Height > infoB.Height {
		a = infoA.Header.PrevBlockHash
		infoA = idx.entries[a]
		if infoA == nil {
			return common.Hash{}, fmt.Errorf("blockchain: ancestry of %s is broken", a)
		}
	}
	for infoB.Height > infoA.Height {
		b = infoB.Header.PrevBlockHash
		infoB = idx.entries[b]
		if infoB == nil {
			return common.Hash{}, fmt.Errorf("blockchain: ancestry of %s is broken", b)
		}
	}
	for a != b {
		a = infoA.Header.PrevBlockHash
		infoA = idx.entries[a]
		b = infoB.Header.PrevBlockHash
		infoB = idx.entries[b]
		if infoA == nil || infoB == nil {
			return common.Hash{}, fmt.Errorf("blockchain: no common ancestor between given headers")
		}
	}
	return a, nil
}
