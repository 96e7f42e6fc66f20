// Package merkle computes the Bitcoin-style merkle root over transaction
// ids: pairs of nodes are concatenated and hashed with SHA-256 up the
// tree, duplicating the last node of an odd-sized level.
package merkle

import "github.com/supernova-labs/supernova/common"

// Root returns the merkle root of leaves. An empty input returns the zero
// hash; a single leaf is its own root.
func Root(leaves []common.Hash) common.Hash {
	if len(leaves) == 0 {
		return common.ZeroHash
	}
	level := make([]common.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]common.Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

func hashPair(left, right common.Hash) common.Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return common.Sum256(buf)
}
