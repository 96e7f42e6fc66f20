package blockchain

import (
	"fmt"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/blockchain/utxo"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/params"
	"github.com/supernova-labs/supernova/storage/database"
)

// ReorgTo moves the active chain tip from its current position to
// newTipHash, reverting the blocks that are no longer canonical and
// re-applying the ones that now are. It holds reorgMu for its entire
// duration so two reorgs never interleave.
//
// Every reverted and re-applied block's UTXO mutation, plus the final
// best_hash/best_height/chainwork write, is staged into a single
// WriteBatch committed exactly once at the end: the switch is atomic, it
// happens completely or not at all. A failure anywhere in the loop
// abandons the batch uncommitted, leaving the database exactly as it was
// before ReorgTo was called. BeginOperation/EndOperation still bracket
// the sequence so a crash between building the batch and committing it
// is visible in RecoveryReport on the next Open.
func (cs *ChainState) ReorgTo(newTipHash common.Hash, newTipHeight uint32) error {
	cs.reorgMu.Lock()
	defer cs.reorgMu.Unlock()

	newInfo, ok := cs.index.Get(newTipHash)
	if !ok {
		return fmt.Errorf("blockchain: %w: %s", ErrBlockNotFound, newTipHash)
	}
	if cs.index.IsDescendantInvalid(newTipHash) {
		return fmt.Errorf("blockchain: %w: %s", ErrHeaderInvalid, newTipHash)
	}

	oldTip, oldHeight, _ := cs.currentTip()

	ancestor, err := cs.index.FindCommonAncestor(oldTip, newTipHash)
	if err != nil {
		return fmt.Errorf("blockchain: reorg: %w", err)
	}
	ancestorInfo, ok := cs.index.Get(ancestor)
	if !ok {
		return fmt.Errorf("blockchain: reorg: common ancestor %s vanished from index", ancestor)
	}
	if oldHeight-ancestorInfo.Height > params.MaxForkDepth {
		return fmt.Errorf("blockchain: %w: %d blocks behind tip", ErrForkTooDeep, oldHeight-ancestorInfo.Height)
	}

	toRevert, err := cs.chainDownTo(oldTip, ancestor)
	if err != nil {
		return fmt.Errorf("blockchain: reorg: %w", err)
	}
	toApplyReverse, err := cs.chainDownTo(newTipHash, ancestor)
	if err != nil {
		return fmt.Errorf("blockchain: reorg: %w", err)
	}
	toApply := make([]common.Hash, len(toApplyReverse))
	for i, h := range toApplyReverse {
		toApply[len(toApplyReverse)-1-i] = h
	}

	if err := cs.mgr.BeginOperation("reorg"); err != nil {
		return fmt.Errorf("blockchain: reorg: %w", err)
	}

	batch := cs.mgr.NewWriteBatch()
	var toResubmit []types.Transaction
	var toRemoveConfirmed [][]types.Transaction
	applied := make([]common.Hash, 0, len(toApply))

	for _, hash := range toRevert {
		txs, err := cs.revertOneToBatch(batch, hash)
		if err != nil {
			_ = cs.mgr.EndOperation()
			return fmt.Errorf("blockchain: reorg: revert %s: %w", hash, err)
		}
		toResubmit = append(toResubmit, txs...)
	}

	for _, hash := range toApply {
		block, err := cs.applyOneToBatch(batch, hash)
		if err != nil {
			_ = cs.mgr.EndOperation()
			cs.index.SetStatus(hash, Invalid)
			return fmt.Errorf("blockchain: reorg: apply %s: %w", hash, err)
		}
		applied = append(applied, hash)
		toRemoveConfirmed = append(toRemoveConfirmed, block.Transactions)
	}

	if err := batch.Put(database.BestHashKey(), newTipHash.Bytes()); err != nil {
		_ = cs.mgr.EndOperation()
		return fmt.Errorf("blockchain: reorg: %w", err)
	}
	if err := batch.Put(database.BestHeightKey(), database.EncodeHeight(newTipHeight)); err != nil {
		_ = cs.mgr.EndOperation()
		return fmt.Errorf("blockchain: reorg: %w", err)
	}
	if err := batch.Put(database.ChainWorkKey(), database.EncodeChainWork(newInfo.Work.Value())); err != nil {
		_ = cs.mgr.EndOperation()
		return fmt.Errorf("blockchain: reorg: %w", err)
	}

	if err := batch.Commit(); err != nil {
		_ = cs.mgr.EndOperation()
		return fmt.Errorf("blockchain: reorg: commit: %w", err)
	}
	if err := cs.mgr.EndOperation(); err != nil {
		return fmt.Errorf("blockchain: reorg: %w", err)
	}

	for _, hash := range applied {
		cs.index.SetStatus(hash, Valid)
	}

	cs.tipMu.Lock()
	cs.tip = newTipHash
	cs.tipHeight = newTipHeight
	cs.tipWork = newInfo.Work
	cs.tipMu.Unlock()

	if cs.pool != nil {
		cs.pool.Resubmit(toResubmit)
		for _, txs := range toRemoveConfirmed {
			cs.pool.RemoveConfirmed(txs)
		}
	}
	if cs.notifier != nil {
		cs.notifier.emitReorgOccurred(ReorgOccurred{OldTip: oldTip, NewTip: newTipHash, Depth: len(toRevert)})
	}
	return nil
}

// chainDownTo walks from from back to (excluding) ancestor, returning
// hashes tip-first: the block at from comes first, ancestor's direct
// child comes last.
func (cs *ChainState) chainDownTo(from, ancestor common.Hash) ([]common.Hash, error) {
	var hashes []common.Hash
	cur := from
	for cur != ancestor {
		info, ok := cs.index.Get(cur)
		if !ok {
			return nil, fmt.Errorf("ancestry of %s is broken walking toward %s", from, ancestor)
		}
		hashes = append(hashes, cur)
		cur = info.Header.PrevBlockHash
	}
	return hashes, nil
}

// revertOneToBatch stages a single block's UTXO revert and canonical
// height-mapping removal into batch, the revertOne counterpart rewritten
// to fold its effect into the caller's single atomic reorg batch rather
// than committing on its own. It returns the block's non-coinbase
// transactions, which the caller gives the mempool a chance to re-admit
// only once the whole reorg has actually committed.
func (cs *ChainState) revertOneToBatch(batch *database.WriteBatch, hash common.Hash) ([]types.Transaction, error) {
	info, ok := cs.index.Get(hash)
	if !ok {
		return nil, fmt.Errorf("header %s not indexed", hash)
	}
	block, err := cs.mgr.ReadBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("read block: %w", err)
	}
	undoBytes, err := cs.mgr.ReadUndo(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingUndoLog, hash, err)
	}
	undo, err := utxo.DecodeUndoSet(undoBytes)
	if err != nil {
		return nil, fmt.Errorf("decode undo log: %w", err)
	}
	if err := cs.utxo.RevertBlockToBatch(batch, block, undo); err != nil {
		return nil, fmt.Errorf("revert utxo effects: %w", err)
	}
	if err := batch.Delete(database.HeightKey(info.Height)); err != nil {
		return nil, fmt.Errorf("delete canonical hash: %w", err)
	}
	return block.Transactions[1:], nil // coinbase is never resubmitted
}

// applyOneToBatch re-runs full stateful validation for a fork block
// against the UTXO set as it stands after every earlier to_apply block
// staged into the same batch, and stages the resulting chain-metadata
// writes alongside it. It returns the block so the caller can defer
// cs.pool.RemoveConfirmed until the whole reorg has committed.
func (cs *ChainState) applyOneToBatch(batch *database.WriteBatch, hash common.Hash) (*types.Block, error) {
	info, ok := cs.index.Get(hash)
	if !ok {
		return nil, fmt.Errorf("header %s not indexed", hash)
	}
	block, err := cs.mgr.ReadBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("read block: %w", err)
	}
	result, err := cs.validateAndApply(block, info.Height, batch)
	if err != nil {
		return nil, err
	}
	if err := cs.stageAccepted(batch, block, info.Height, info.Work, result); err != nil {
		return nil, err
	}
	return block, nil
}
