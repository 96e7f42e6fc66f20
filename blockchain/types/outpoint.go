package types

import (
	"fmt"
	"math"

	"github.com/supernova-labs/supernova/common"
)

// CoinbaseOutputIndex is the sentinel output index carried by a coinbase
// input's prevout.
const CoinbaseOutputIndex = math.MaxUint32

// Outpoint identifies a specific transaction output; it is the key into
// the UTXO set.
type Outpoint struct {
	TxHash common.Hash
	Index  uint32
}

// IsCoinbaseSentinel reports whether this outpoint is the all-zero /
// 0xFFFFFFFF sentinel used by coinbase inputs.
func (o Outpoint) IsCoinbaseSentinel() bool {
	return o.TxHash.IsZero() && o.Index == CoinbaseOutputIndex
}

// String renders the outpoint as "hash:index".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxHash, o.Index)
}

// getShardIndex implements common.CacheKey.
func (o Outpoint) getShardIndex(shardMask int) int {
	h := o.TxHash
	v := uint32(h[28])<<24 | uint32(h[29])<<16 | uint32(h[30])<<8 | uint32(h[31])
	return int(v^o.Index) & shardMask
}

// Bytes returns the fixed 36-byte encoding (hash || little-endian index)
// used as the UTXO set's storage key.
func (o Outpoint) Bytes() []byte {
	b := make([]byte, common.HashLength+4)
	copy(b, o.TxHash.Bytes())
	b[common.HashLength+0] = byte(o.Index)
	b[common.HashLength+1] = byte(o.Index >> 8)
	b[common.HashLength+2] = byte(o.Index >> 16)
	b[common.HashLength+3] = byte(o.Index >> 24)
	return b
}

// DecodeOutpoint reverses Bytes.
func DecodeOutpoint(b []byte) (Outpoint, error) {
	if len(b) != common.HashLength+4 {
		return Outpoint{}, fmt.Errorf("outpoint: expected %d bytes, got %d", common.HashLength+4, len(b))
	}
	idx := uint32(b[common.HashLength]) | uint32(b[common.HashLength+1])<<8 |
		uint32(b[common.HashLength+2])<<16 | uint32(b[common.HashLength+3])<<24
	return Outpoint{TxHash: common.BytesToHash(b[:common.HashLength]), Index: idx}, nil
}
