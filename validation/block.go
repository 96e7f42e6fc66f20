// This file is part of the supernova library.
//
// The supernova library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The supernova library is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public
// License along with the supernova library. If not, see
// <http://www.gnu.org/licenses/>.

package validation

import (
	"errors"
	"fmt"
	"time"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/blockchain/utxo"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/consensus"
	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/params"
	"github.com/supernova-labs/supernova/storage/database"
)

// lockTimeThreshold is the boundary Bitcoin-style lock_time values switch
// meaning at: below it, lock_time names a block height; at or above it, a
// unix timestamp.
const lockTimeThreshold = 500_000_000

// finalSequence is the sentinel sequence value that exempts a transaction
// from lock_time enforcement entirely, regardless of lock_time's value.
const finalSequence = 0xffffffff

// ValidateLockTime runs the lock_time/sequence half of layer E.
func ValidateLockTime(tx *types.Transaction, height uint32, medianTimePast uint64) error {
	if tx.LockTime == 0 {
		return nil
	}
	final := true
	for i := range tx.Inputs {
		if tx.Inputs[i].Sequence != finalSequence {
			final = false
			break
		}
	}
	if final {
		return nil
	}
	if tx.LockTime < lockTimeThreshold {
		if uint64(height) < uint64(tx.LockTime) {
			return newErr(CategoryConsensus, "transaction %s locked until height %d, block is at %d", tx.Hash(), tx.LockTime, height)
		}
		return nil
	}
	if medianTimePast < uint64(tx.LockTime) {
		return newErr(CategoryConsensus, "transaction %s locked until time %d, median-time-past is %d", tx.Hash(), tx.LockTime, medianTimePast)
	}
	return nil
}

// Result carries everything a caller needs after a block passes every
// validation layer.
type Result struct {
	// Undo must be retained by the caller for as long as a revert of this
	// block might be needed.
	Undo      *utxo.UndoSet
	TotalFees uint64
}

// inBlockLookup overlays outputs created earlier in the same block over
// the committed UTXO set, the block-validation counterpart to the
// mempool's own pool-parent overlay: layer E's rule (a) lets an input
// spend an output a still-earlier transaction in this very block
// created, long before that output is anywhere in the committed set.
type inBlockLookup struct {
	set     *utxo.Set
	created map[types.Outpoint]*types.UtxoEntry
}

func (l inBlockLookup) Get(op types.Outpoint) (*types.UtxoEntry, error) {
	if entry, ok := l.created[op]; ok {
		return entry, nil
	}
	return l.set.Get(op)
}

// ValidateBlock runs every layer in order against block at height and, if
// every layer passes, stages its effect on set into batch. The caller owns
// batch's lifetime and must commit it (alongside whatever chain-metadata
// writes accompany this block) for the staged UTXO mutations to persist.
func ValidateBlock(block *types.Block, height uint32, ancestors AncestorContext, medianTimePast uint64, now time.Time, net params.NetworkParams, engine consensus.Engine, registry *sigscheme.Registry, set *utxo.Set, batch *database.WriteBatch) (*Result, error) {
	if err := ValidateHeader(&block.Header, block, net, engine, ancestors, now); err != nil {
		return nil, err
	}
	if err := ValidateBlockStructure(block); err != nil {
		return nil, err
	}
	if size := block.SerializedSize(); size > params.MaxBlockSize {
		return nil, newErr(CategoryStructure, "block %s is %d bytes, exceeds the %d byte limit", block.Hash(), size, params.MaxBlockSize)
	}

	created := make(map[types.Outpoint]*types.UtxoEntry)
	lookup := inBlockLookup{set: set, created: created}

	var totalFees uint64
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if err := ValidateLockTime(tx, height, medianTimePast); err != nil {
			return nil, err
		}
		if i != 0 {
			entries, err := ValidateScripts(tx, lookup, registry)
			if err != nil {
				return nil, err
			}
			fee, err := ValidateTransactionFee(tx, entries)
			if err != nil {
				return nil, err
			}
			sum, ok := common.CheckedAdd(totalFees, fee)
			if !ok {
				return nil, newErr(CategoryFees, "block %s: total fees overflow u64", block.Hash())
			}
			totalFees = sum
		}
		for outIdx := range tx.Outputs {
			op := types.Outpoint{TxHash: tx.Hash(), Index: uint32(outIdx)}
			created[op] = types.NewUtxoEntryFromOutput(tx, outIdx, height, i == 0)
		}
	}

	if err := ValidateCoinbase(block.Coinbase(), height, totalFees); err != nil {
		return nil, err
	}

	undo, err := set.ApplyBlockToBatch(batch, block, height)
	if err != nil {
		return nil, translateApplyErr(err)
	}
	return &Result{Undo: undo, TotalFees: totalFees}, nil
}

func translateApplyErr(err error) error {
	switch {
	case errors.Is(err, utxo.ErrImmatureCoinbase), errors.Is(err, utxo.ErrAlreadySpentInBlock):
		return newErr(CategoryConsensus, "%w", err)
	case errors.Is(err, utxo.ErrNotFound):
		return newErr(CategoryUTXO, "%w", err)
	default:
		return fmt.Errorf("apply block: %w", err)
	}
}
