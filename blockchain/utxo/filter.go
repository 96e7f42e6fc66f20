package utxo

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/holiman/bloomfilter/v2"

	"github.com/supernova-labs/supernova/blockchain/types"
)

// digest64 adapts a precomputed 64-bit hash to the hash.Hash64 interface
// holiman/bloomfilter/v2 takes, so outpoints never need to be re-hashed by
// the filter itself.
type digest64 uint64

func (d digest64) Write(p []byte) (int, error) { return len(p), nil }
func (d digest64) Sum(b []byte) []byte         { return b }
func (d digest64) Reset()                      {}
func (d digest64) Size() int                   { return 8 }
func (d digest64) BlockSize() int              { return 8 }
func (d digest64) Sum64() uint64               { return uint64(d) }

func outpointDigest(op types.Outpoint) digest64 {
	h := fnv.New64a()
	h.Write(op.TxHash.Bytes())
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], op.Index)
	h.Write(idx[:])
	return digest64(h.Sum64())
}

// bloomFilter adapts holiman/bloomfilter/v2 to take Outpoint keys
// directly, hiding the hash.Hash64 adapter from callers.
type bloomFilter struct {
	f *bloomfilter.Filter
}

// newFilter builds a bloom filter sized for maxElements entries at the
// given target false-positive rate.
func newFilter(maxElements uint64, falsePositiveRate float64) (*bloomFilter, error) {
	f, err := bloomfilter.NewOptimal(maxElements, falsePositiveRate)
	if err != nil {
		return nil, err
	}
	return &bloomFilter{f: f}, nil
}

func (b *bloomFilter) add(op types.Outpoint) {
	b.f.Add(outpointDigest(op))
}

func (b *bloomFilter) contains(op types.Outpoint) bool {
	return b.f.Contains(outpointDigest(op))
}
