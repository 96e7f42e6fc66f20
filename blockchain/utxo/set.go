// Package utxo implements the unspent transaction output set: the single
// source of truth for which outputs a new transaction may spend. It
// layers an in-memory LRU cache and a pair of bloom filters in front of
// the persistent store so that most existence and already-spent checks
// never touch disk.
package utxo

import (
	"errors"
	"fmt"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/log"
	"github.com/supernova-labs/supernova/storage/database"
)

var errImmatureCoinbase = errors.New("utxo: coinbase output is not yet mature")

// ErrImmatureCoinbase is returned by ApplyBlock when a block attempts to
// spend a coinbase output before params.CoinbaseMaturity confirmations.
var ErrImmatureCoinbase = errImmatureCoinbase

// Options configures a Set's cache and bloom-filter sizing.
type Options struct {
	CacheSize           int
	ExpectedUTXOCount   uint64
	ExpectedSpentCount  uint64
	FilterFalsePositive float64
}

// DefaultOptions returns sizing reasonable for a testnet-scale node.
func DefaultOptions() Options {
	return Options{
		CacheSize:           1 << 16,
		ExpectedUTXOCount:   1 << 22,
		ExpectedSpentCount:  1 << 24,
		FilterFalsePositive: 0.001,
	}
}

// Set is the live unspent-output view backed by a database.Manager.
type Set struct {
	mgr   *database.Manager
	cache common.Cache
	log   log.Logger

	// existsFilter never has false negatives: if Contains reports false,
	// the outpoint is definitely not an unspent output, and Get can
	// return ErrNotFound without a store round trip. A positive result
	// only means "maybe" and falls through to the store.
	existsFilter *bloomFilter
	// spentFilter records outpoints this Set has ever spent, letting
	// callers that only need "could this possibly still be live" (e.g. a
	// mempool re-checking a transaction after a reorg) skip a store
	// lookup when the answer is a definite "never spent".
	spentFilter *bloomFilter
}

// New builds a Set backed by mgr.
func New(mgr *database.Manager, opts Options) (*Set, error) {
	cache, err := common.NewCache(common.ShardedConfig{Size: opts.CacheSize, NumShards: 16})
	if err != nil {
		return nil, fmt.Errorf("utxo: build cache: %w", err)
	}
	exists, err := newFilter(opts.ExpectedUTXOCount, opts.FilterFalsePositive)
	if err != nil {
		return nil, fmt.Errorf("utxo: build exists filter: %w", err)
	}
	spent, err := newFilter(opts.ExpectedSpentCount, opts.FilterFalsePositive)
	if err != nil {
		return nil, fmt.Errorf("utxo: build spent filter: %w", err)
	}
	utxoPrefix := database.UTXOKey(nil)
	it := mgr.Store().NewIterator(utxoPrefix)
	defer it.Release()
	for it.Next() {
		op, err := types.DecodeOutpoint(it.Key()[len(utxoPrefix):])
		if err != nil {
			return nil, fmt.Errorf("utxo: rebuild exists filter: %w", err)
		}
		exists.add(op)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("utxo: rebuild exists filter: %w", err)
	}
	return &Set{
		mgr:          mgr,
		cache:        cache,
		log:          log.NewModuleLogger(log.Storage),
		existsFilter: exists,
		spentFilter:  spent,
	}, nil
}

// MayExist is the bloom fast-reject: false means "never existed, or was
// spent by ApplyBlock", true only means "check the store". A bloom filter
// cannot forget, so an outpoint that RevertBlock restored after it was
// spent keeps reporting false here; Get consults only existsFilter and
// still finds it. Both filters are consulted, matching the definition
// may_exist(outpoint) = utxo_filter.contains(outpoint) &&
// !spent_filter.contains(outpoint): a positive existsFilter hit is
// overridden by a positive spentFilter hit, since this Set's own
// bookkeeping already knows the outpoint is gone.
func (s *Set) MayExist(op types.Outpoint) bool {
	return s.existsFilter.contains(op) && !s.WasEverSpent(op)
}

// WasEverSpent reports whether op has ever been removed from the set by
// ApplyBlock. False is authoritative; a true result (which stays true even
// after RevertBlock restores op) is what lets
// MayExist fast-reject an outpoint the exists filter alone would still
// call "maybe".
func (s *Set) WasEverSpent(op types.Outpoint) bool {
	return s.spentFilter.contains(op)
}

// Get returns the live entry for op, or ErrNotFound if it does not exist
// or has already been spent.
func (s *Set) Get(op types.Outpoint) (*types.UtxoEntry, error) {
	if v, ok := s.cache.Get(op); ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return v.(*types.UtxoEntry).Clone(), nil
	}
	if !s.existsFilter.contains(op) {
		return nil, ErrNotFound
	}
	entry, err := s.mgr.ReadUTXO(op)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.cache.Add(op, nil)
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.cache.Add(op, entry)
	return entry.Clone(), nil
}

// UndoEntry records the unspent entry an input consumed, so ApplyBlock's
// effect on that outpoint can be reversed by RevertBlock.
type UndoEntry struct {
	Outpoint types.Outpoint
	Entry    *types.UtxoEntry
}

// UndoSet carries everything RevertBlock needs to exactly reverse the
// matching ApplyBlock call. A node persists it keyed by block hash so a
// reorg can revert blocks it is no longer holding in memory.
type UndoSet struct {
	Spent []UndoEntry
}

// ApplyBlock spends every non-coinbase input and creates every output at
// height, as an atomic batch. It enforces coinbase maturity and rejects a
// block that spends the same outpoint twice. The returned UndoSet must be
// retained if the caller may need to call RevertBlock for this block.
func (s *Set) ApplyBlock(block *types.Block, height uint32) (*UndoSet, error) {
	batch := s.mgr.NewWriteBatch()
	undo, err := s.ApplyBlockToBatch(batch, block, height)
	if err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("commit utxo batch: %w", err)
	}
	return undo, nil
}

// ApplyBlockToBatch stages ApplyBlock's effects into a caller-managed
// batch instead of committing its own, so a caller that needs several
// blocks' UTXO mutations to land as one atomic write (a multi-block
// reorg) can fold them all into a single batch.Commit call. The in-memory
// cache and bloom filters are still updated immediately so a later block
// staged into the same batch sees this one's effects; a caller whose
// batch ultimately fails to commit is left with a cache/store
// divergence and must not continue operating on this Set afterward.
func (s *Set) ApplyBlockToBatch(batch *database.WriteBatch, block *types.Block, height uint32) (*UndoSet, error) {
	if len(block.Transactions) == 0 || !block.Transactions[0].IsCoinbase() {
		return nil, ErrMissingCoinbaseOutput
	}

	created := make(map[types.Outpoint]*types.UtxoEntry)
	spentInBlock := make(map[types.Outpoint]struct{})
	undo := &UndoSet{}

	for txIdx := range block.Transactions {
		tx := &block.Transactions[txIdx]
		isCoinbase := txIdx == 0

		if !isCoinbase {
			for _, in := range tx.Inputs {
				op := in.Outpoint()
				if _, dup := spentInBlock[op]; dup {
					return nil, ErrAlreadySpentInBlock
				}
				spentInBlock[op] = struct{}{}

				entry, spentWithinBlock := created[op]
				if spentWithinBlock {
					delete(created, op)
				} else {
					var err error
					entry, err = s.Get(op)
					if err != nil {
						return nil, fmt.Errorf("spend %s: %w", op, err)
					}
				}
				if !entry.IsMatureAt(height) {
					return nil, fmt.Errorf("spend %s at height %d: %w", op, height, ErrImmatureCoinbase)
				}
				if err := batch.Delete(database.UTXOKey(op.Bytes())); err != nil {
					return nil, err
				}
				// Only outputs that existed before this block need to be
				// restored on revert; an output created and spent within
				// the same block leaves nothing to undo.
				if !spentWithinBlock {
					undo.Spent = append(undo.Spent, UndoEntry{Outpoint: op, Entry: entry})
				}
			}
		}

		for outIdx := range tx.Outputs {
			op := types.Outpoint{TxHash: tx.Hash(), Index: uint32(outIdx)}
			entry := types.NewUtxoEntryFromOutput(tx, outIdx, height, isCoinbase)
			created[op] = entry
			if err := batch.Put(database.UTXOKey(op.Bytes()), entry.Bytes()); err != nil {
				return nil, err
			}
		}
	}

	for op := range spentInBlock {
		s.cache.Add(op, nil)
		s.spentFilter.add(op)
	}
	for op, entry := range created {
		s.cache.Add(op, entry)
		s.existsFilter.add(op)
	}
	return undo, nil
}

// RevertBlock exactly reverses a prior ApplyBlock call: it deletes every
// output the block created and restores every entry undo recorded as
// spent.
func (s *Set) RevertBlock(block *types.Block, undo *UndoSet) error {
	batch := s.mgr.NewWriteBatch()
	if err := s.RevertBlockToBatch(batch, block, undo); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit utxo revert batch: %w", err)
	}
	return nil
}

// RevertBlockToBatch stages RevertBlock's effects into a caller-managed
// batch, the RevertBlock counterpart to ApplyBlockToBatch for folding a
// multi-block reorg's reverts into one atomic write.
func (s *Set) RevertBlockToBatch(batch *database.WriteBatch, block *types.Block, undo *UndoSet) error {
	for txIdx := range block.Transactions {
		tx := &block.Transactions[txIdx]
		for outIdx := range tx.Outputs {
			op := types.Outpoint{TxHash: tx.Hash(), Index: uint32(outIdx)}
			if err := batch.Delete(database.UTXOKey(op.Bytes())); err != nil {
				return err
			}
			s.cache.Remove(op)
		}
	}

	for _, u := range undo.Spent {
		if err := batch.Put(database.UTXOKey(u.Outpoint.Bytes()), u.Entry.Bytes()); err != nil {
			return err
		}
	}

	for _, u := range undo.Spent {
		s.cache.Add(u.Outpoint, u.Entry)
		s.existsFilter.add(u.Outpoint)
	}
	return nil
}
