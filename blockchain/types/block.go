package types

import (
	"fmt"

	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/merkle"
)

// Block is a header plus its ordered transactions. The first transaction
// is always the coinbase.
type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

// Hash returns the block id (the header hash).
func (b *Block) Hash() common.Hash { return b.Header.Hash() }

// Coinbase returns the block's coinbase transaction. Callers must have
// already validated that Transactions is non-empty.
func (b *Block) Coinbase() *Transaction { return &b.Transactions[0] }

// TxHashes returns the transaction ids in block order.
func (b *Block) TxHashes() []common.Hash {
	hashes := make([]common.Hash, len(b.Transactions))
	for i := range b.Transactions {
		hashes[i] = b.Transactions[i].Hash()
	}
	return hashes
}

// ComputeMerkleRoot recomputes the merkle root over the block's current
// transactions, independent of what is stored in the header.
func (b *Block) ComputeMerkleRoot() common.Hash {
	return merkle.Root(b.TxHashes())
}

// HasValidMerkleRoot reports whether the header's merkle root matches the
// root computed from the block's transactions.
func (b *Block) HasValidMerkleRoot() bool {
	return b.Header.MerkleRoot == b.ComputeMerkleRoot()
}

// SerializedSize returns the canonical encoding length in bytes.
func (b *Block) SerializedSize() int {
	n := len(b.Header.Bytes())
	for i := range b.Transactions {
		n += len(b.Transactions[i].Bytes())
	}
	return n
}

// Bytes encodes the full block (header followed by its transactions) for
// storage.
func (b *Block) Bytes() []byte {
	e := newEncoder()
	headerBytes := b.Header.Bytes()
	e.bytesField(headerBytes)
	e.uint32(uint32(len(b.Transactions)))
	for i := range b.Transactions {
		e.bytesField(b.Transactions[i].Bytes())
	}
	return e.bytes()
}

// DecodeBlock reverses Bytes.
func DecodeBlock(raw []byte) (*Block, error) {
	d := newDecoder(raw)
	headerBytes, err := d.bytesField(0)
	if err != nil {
		return nil, err
	}
	header, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	numTxs, err := d.uint32()
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, numTxs)
	for i := range txs {
		txBytes, err := d.bytesField(0)
		if err != nil {
			return nil, err
		}
		tx, err := DecodeTransaction(txBytes)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs[i] = *tx
	}
	if !d.done() {
		return nil, errTrailingBytes
	}
	return &Block{Header: *header, Transactions: txs}, nil
}

func (b *Block) String() string {
	return fmt.Sprintf("block{%s txs=%d}", b.Hash(), len(b.Transactions))
}
