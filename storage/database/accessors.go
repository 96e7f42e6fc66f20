package database

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/common"
)

// WriteUTXO persists the unspent output at op.
func (m *Manager) WriteUTXO(op types.Outpoint, entry *types.UtxoEntry) error {
	return m.Put(utxoKey(op.Bytes()), entry.Bytes())
}

// ReadUTXO loads the unspent output at op, returning ErrNotFound if it is
// absent or already spent.
func (m *Manager) ReadUTXO(op types.Outpoint) (*types.UtxoEntry, error) {
	raw, err := m.Get(utxoKey(op.Bytes()))
	if err != nil {
		return nil, err
	}
	return types.DecodeUtxoEntry(raw)
}

// DeleteUTXO removes the unspent output at op, the effect of it being spent
// or of a reorg reverting its creation.
func (m *Manager) DeleteUTXO(op types.Outpoint) error {
	return m.Delete(utxoKey(op.Bytes()))
}

// WriteHeader persists a block header, addressable by its hash.
func (m *Manager) WriteHeader(h *types.BlockHeader) error {
	return m.Put(headerKey(h.Hash().Bytes()), h.Bytes())
}

// ReadHeader loads a previously written header.
func (m *Manager) ReadHeader(hash common.Hash) (*types.BlockHeader, error) {
	raw, err := m.Get(headerKey(hash.Bytes()))
	if err != nil {
		return nil, err
	}
	return types.DecodeHeader(raw)
}

// WriteBlock persists a full block, addressable by its hash.
func (m *Manager) WriteBlock(b *types.Block) error {
	return m.Put(blockKey(b.Hash().Bytes()), b.Bytes())
}

// ReadBlock loads a previously written block.
func (m *Manager) ReadBlock(hash common.Hash) (*types.Block, error) {
	raw, err := m.Get(blockKey(hash.Bytes()))
	if err != nil {
		return nil, err
	}
	return types.DecodeBlock(raw)
}

// WriteCanonicalHash records the active chain's block hash at height.
func (m *Manager) WriteCanonicalHash(height uint32, hash common.Hash) error {
	return m.Put(heightKey(height), hash.Bytes())
}

// ReadCanonicalHash returns the active chain's block hash at height.
func (m *Manager) ReadCanonicalHash(height uint32) (common.Hash, error) {
	raw, err := m.Get(heightKey(height))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(raw), nil
}

// DeleteCanonicalHash removes the height-to-hash mapping, used when a
// reorg shortens the active chain.
func (m *Manager) DeleteCanonicalHash(height uint32) error {
	return m.Delete(heightKey(height))
}

// WriteBestHash/WriteBestHeight/WriteChainWork and their Read
// counterparts persist the active tip pointer a node needs to resume
// from after a restart.

func (m *Manager) WriteBestHash(hash common.Hash) error {
	return m.Put(metaKey(metaBestHash), hash.Bytes())
}

func (m *Manager) ReadBestHash() (common.Hash, error) {
	raw, err := m.Get(metaKey(metaBestHash))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(raw), nil
}

func (m *Manager) WriteBestHeight(height uint32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, height)
	return m.Put(metaKey(metaBestHeight), b)
}

func (m *Manager) ReadBestHeight() (uint32, error) {
	raw, err := m.Get(metaKey(metaBestHeight))
	if err != nil {
		return 0, err
	}
	if len(raw) != 4 {
		return 0, fmt.Errorf("corrupt best-height record: %d bytes", len(raw))
	}
	return binary.BigEndian.Uint32(raw), nil
}

// WriteUndo persists the serialized UndoSet needed to revert the block
// identified by hash; WriteBlock/WriteHeader persist the block itself.
func (m *Manager) WriteUndo(hash common.Hash, undoBytes []byte) error {
	return m.Put(undoKey(hash.Bytes()), undoBytes)
}

// ReadUndo loads the serialized UndoSet for hash.
func (m *Manager) ReadUndo(hash common.Hash) ([]byte, error) {
	return m.Get(undoKey(hash.Bytes()))
}

// DeleteUndo removes a block's undo log once it is far enough behind the
// tip that MAX_FORK_DEPTH makes reverting past it impossible.
func (m *Manager) DeleteUndo(hash common.Hash) error {
	return m.Delete(undoKey(hash.Bytes()))
}

func (m *Manager) WriteChainWork(work *uint256.Int) error {
	b := work.Bytes32()
	return m.Put(metaKey(metaChainWork), b[:])
}

func (m *Manager) ReadChainWork() (*uint256.Int, error) {
	raw, err := m.Get(metaKey(metaChainWork))
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("corrupt chainwork record: %d bytes", len(raw))
	}
	var b32 [32]byte
	copy(b32[:], raw)
	return new(uint256.Int).SetBytes32(b32[:]), nil
}

// EncodeHeight and EncodeChainWork serialize the values WriteBestHeight and
// WriteChainWork persist, for a caller (blockchain.ChainState) staging
// those same writes into a WriteBatch instead of going through the
// single-key accessors above.
func EncodeHeight(height uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, height)
	return b
}

func EncodeChainWork(work *uint256.Int) []byte {
	b := work.Bytes32()
	return b[:]
}

// WritePendingBlock buffers block under its parent hash, for later replay
// once the parent is accepted. A block can arrive before its parent when
// peers relay out of order; without buffering it, the node would have to
// wait for the parent to be re-announced and re-fetched from scratch.
func (m *Manager) WritePendingBlock(parentHash common.Hash, block *types.Block) error {
	return m.Put(pendingKey(parentHash.Bytes(), block.Hash().Bytes()), block.Bytes())
}

// PendingBlocksFor returns every previously buffered block whose parent is
// parentHash, so a caller can retry them once that parent lands.
func (m *Manager) PendingBlocksFor(parentHash common.Hash) ([]*types.Block, error) {
	it := m.store.NewIterator(pendingPrefixForParent(parentHash.Bytes()))
	defer it.Release()
	var blocks []*types.Block
	for it.Next() {
		b, err := types.DecodeBlock(it.Value())
		if err != nil {
			return nil, fmt.Errorf("decode pending block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, it.Error()
}

// DeletePendingBlock removes a buffered block once it has been retried, so
// it is not replayed again on a later parent lookup.
func (m *Manager) DeletePendingBlock(parentHash, blockHash common.Hash) error {
	return m.Delete(pendingKey(parentHash.Bytes(), blockHash.Bytes()))
}

// CountPendingBlocks reports how many blocks are currently buffered
// awaiting their parent, for startup diagnostics and crash-recovery
// replay.
func (m *Manager) CountPendingBlocks() (int, error) {
	it := m.store.NewIterator(prefixPending)
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Error()
}
