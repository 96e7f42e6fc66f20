package types

import "github.com/supernova-labs/supernova/common"

// BlockHeader is the minimal proof-of-work-carrying structure; its hash
// alone is sufficient for fork-choice work accounting, without needing the
// block body.
type BlockHeader struct {
	Version       uint32
	PrevBlockHash common.Hash
	MerkleRoot    common.Hash
	Timestamp     uint64
	Bits          uint32
	Nonce         uint32
}

// Bytes returns the canonical encoding of the header.
func (h *BlockHeader) Bytes() []byte {
	return newEncoder().
		uint32(h.Version).
		hash(h.PrevBlockHash).
		hash(h.MerkleRoot).
		uint64(h.Timestamp).
		uint32(h.Bits).
		uint32(h.Nonce).
		bytes()
}

// Hash returns the block id: SHA-256 of the canonical header encoding.
func (h *BlockHeader) Hash() common.Hash {
	return common.Sum256(h.Bytes())
}

// DecodeHeader parses a canonically-encoded header.
func DecodeHeader(b []byte) (*BlockHeader, error) {
	d := newDecoder(b)
	h := &BlockHeader{}
	var err error
	if h.Version, err = d.uint32(); err != nil {
		return nil, err
	}
	if h.PrevBlockHash, err = d.hash(); err != nil {
		return nil, err
	}
	if h.MerkleRoot, err = d.hash(); err != nil {
		return nil, err
	}
	if h.Timestamp, err = d.uint64(); err != nil {
		return nil, err
	}
	if h.Bits, err = d.uint32(); err != nil {
		return nil, err
	}
	if h.Nonce, err = d.uint32(); err != nil {
		return nil, err
	}
	if !d.done() {
		return nil, errTrailingBytes
	}
	return h, nil
}
