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

package blockchain

import (
	"fmt"
	"sync"
	"time"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/blockchain/utxo"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/consensus"
	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/log"
	"github.com/supernova-labs/supernova/params"
	"github.com/supernova-labs/supernova/storage/database"
	"github.com/supernova-labs/supernova/validation"
)

// TransactionPool is the narrow slice of mempool behavior the reorg
// coordinator needs: give reverted blocks' transactions a chance at
// re-admission, and drop whatever the newly active chain already
// confirmed. blockchain does not import mempool directly, so either
// direction of dependency stays acyclic; a ChainState without a pool
// (nil) simply skips both calls.
type TransactionPool interface {
	Resubmit(txs []types.Transaction)
	RemoveConfirmed(txs []types.Transaction)
}

// now is a seam so tests can pin wall-clock time instead of depending on
// the real clock, the same pattern storage/database uses for nowUnix.
var now = time.Now

// ChainState is the chain-state component: header index, active-chain
// pointer, and the only place that moves the UTXO set's live view by
// calling ValidateBlock/ReorgTo. A node constructs exactly one per
// running process; there is no global mutable instance.
type ChainState struct {
	mgr      *database.Manager
	utxo     *utxo.Set
	index    *HeaderIndex
	net      params.NetworkParams
	engine   consensus.Engine
	registry *sigscheme.Registry
	notifier *Notifier
	pool     TransactionPool
	log      log.Logger

	reorgMu sync.Mutex

	tipMu     sync.RWMutex
	tip       common.Hash
	tipHeight uint32
	tipWork   *consensus.ChainWork
}

// Deps bundles a ChainState's collaborators.
type Deps struct {
	Manager  *database.Manager
	UTXOSet  *utxo.Set
	Net      params.NetworkParams
	Engine   consensus.Engine
	Registry *sigscheme.Registry
	Notifier *Notifier
	Pool     TransactionPool // optional; may be nil
}

// New constructs a ChainState with an empty header index. Callers must
// call AcceptGenesis before processing any other block.
func New(d Deps) *ChainState {
	return &ChainState{
		mgr:      d.Manager,
		utxo:     d.UTXOSet,
		index:    NewHeaderIndex(),
		net:      d.Net,
		engine:   d.Engine,
		registry: d.Registry,
		notifier: d.Notifier,
		pool:     d.Pool,
		log:      log.NewModuleLogger(log.Chain),
		tipWork:  &consensus.ChainWork{},
	}
}

// BestTip returns the active chain's current tip hash, height, and
// accumulated work.
func (cs *ChainState) BestTip() (common.Hash, uint32, *consensus.ChainWork) {
	return cs.currentTip()
}

func (cs *ChainState) currentTip() (common.Hash, uint32, *consensus.ChainWork) {
	cs.tipMu.RLock()
	defer cs.tipMu.RUnlock()
	work := cs.tipWork.Clone()
	return cs.tip, cs.tipHeight, &work
}

// MedianTimePastAtTip returns the median-time-past a block extending the
// current tip must exceed, the lower timestamp bound a block template
// builder needs before it can pick a candidate header timestamp. tip
// itself is the new block's parent, matching the AncestorTimestamps
// calling convention ProcessBlock uses for an in-flight header.
func (cs *ChainState) MedianTimePastAtTip() uint64 {
	tip, _, _ := cs.currentTip()
	timestamps := cs.index.AncestorTimestamps(tip, params.MedianTimePastWindow)
	return consensus.MedianTimePast(timestamps)
}

// AcceptGenesis seeds the chain state from block, which must be the
// hardcoded genesis block: no parent lookup, height 0, applied
// unconditionally since there is no prior state to validate against
// beyond the block's own internal consistency.
func (cs *ChainState) AcceptGenesis(block *types.Block) error {
	if err := validation.ValidateBlockStructure(block); err != nil {
		return err
	}
	if !block.HasValidMerkleRoot() {
		return fmt.Errorf("blockchain: genesis merkle root mismatch")
	}

	if err := cs.engine.VerifyHeaderPoW(&block.Header); err != nil {
		return fmt.Errorf("blockchain: genesis proof of work: %w", err)
	}

	target, err := cs.engine.Target(&block.Header)
	if err != nil {
		return fmt.Errorf("blockchain: genesis target: %w", err)
	}
	work := &consensus.ChainWork{}
	work.Add(target.Work)

	batch := cs.mgr.NewWriteBatch()
	if _, err := cs.utxo.ApplyBlockToBatch(batch, block, 0); err != nil {
		return fmt.Errorf("blockchain: apply genesis: %w", err)
	}
	if err := cs.stageAccepted(batch, block, 0, work, nil); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("blockchain: commit genesis: %w", err)
	}

	cs.index.Add(&block.Header, 0, work)
	cs.index.SetStatus(block.Hash(), Valid)

	cs.tipMu.Lock()
	cs.tip = block.Hash()
	cs.tipHeight = 0
	cs.tipWork = work
	cs.tipMu.Unlock()
	return nil
}

// ProcessBlock is the block-processor entry point: layer A/B run
// immediately, the block and header are persisted so later reorgs can
// find them, and then either the block extends the active tip directly
// or, if its chain now carries more work, triggers a reorg. A block whose
// parent is not yet known is buffered in the pending-block store instead
// of rejected outright, and retried once that parent is accepted.
func (cs *ChainState) ProcessBlock(block *types.Block) error {
	if err := cs.processBlock(block); err != nil {
		return err
	}
	cs.retryPendingChildren(block.Hash())
	return nil
}

func (cs *ChainState) processBlock(block *types.Block) error {
	header := &block.Header
	hash := header.Hash()

	if info, ok := cs.index.Get(hash); ok {
		if info.Status == Invalid {
			return fmt.Errorf("blockchain: %w: %s", ErrHeaderInvalid, hash)
		}
		return nil // already known and not invalid: idempotent accept
	}

	parentInfo, ok := cs.index.Get(header.PrevBlockHash)
	if !ok {
		if err := cs.mgr.WritePendingBlock(header.PrevBlockHash, block); err != nil {
			return fmt.Errorf("blockchain: buffer pending block %s: %w", hash, err)
		}
		cs.log.Debug("buffered block with unknown parent", "hash", hash, "parent", header.PrevBlockHash)
		return nil
	}
	if cs.index.IsDescendantInvalid(header.PrevBlockHash) {
		cs.index.Add(header, parentInfo.Height+1, parentInfo.Work)
		cs.index.SetStatus(hash, Invalid)
		return fmt.Errorf("blockchain: %w: parent of %s", ErrHeaderInvalid, hash)
	}

	ancestors := validation.AncestorContext{Timestamps: cs.index.AncestorTimestamps(header.PrevBlockHash, params.MedianTimePastWindow)}
	if err := validation.ValidateHeader(header, block, cs.net, cs.engine, ancestors, now()); err != nil {
		cs.index.Add(header, parentInfo.Height+1, parentInfo.Work)
		cs.index.SetStatus(hash, Invalid)
		return err
	}
	if err := validation.ValidateBlockStructure(block); err != nil {
		cs.index.Add(header, parentInfo.Height+1, parentInfo.Work)
		cs.index.SetStatus(hash, Invalid)
		return err
	}

	if err := cs.mgr.WriteHeader(header); err != nil {
		return fmt.Errorf("blockchain: persist header: %w", err)
	}
	if err := cs.mgr.WriteBlock(block); err != nil {
		return fmt.Errorf("blockchain: persist block: %w", err)
	}

	height := parentInfo.Height + 1
	target, err := cs.engine.Target(header)
	if err != nil {
		cs.index.Add(header, height, parentInfo.Work)
		cs.index.SetStatus(hash, Invalid)
		return fmt.Errorf("blockchain: target: %w", err)
	}
	work := parentInfo.Work.Clone()
	work.Add(target.Work)
	cs.index.Add(header, height, &work)

	currentTip, _, currentWork := cs.currentTip()
	if header.PrevBlockHash == currentTip {
		return cs.extendTip(block, height, &work)
	}

	candidate := consensus.ChainCandidate{Work: &work, Tip: hash}
	active := consensus.ChainCandidate{Work: currentWork, Tip: currentTip}
	if !consensus.IsBetterTip(candidate, active) {
		cs.log.Debug("block accepted as a non-winning fork tip", "hash", hash, "height", height)
		return nil
	}
	return cs.ReorgTo(hash, height)
}

// retryPendingChildren re-processes every block previously buffered for
// lack of a known parent, now that parentHash has just been indexed. Each
// retried block may itself unblock further buffered descendants, so this
// recurses through ProcessBlock rather than stopping at one generation.
func (cs *ChainState) retryPendingChildren(parentHash common.Hash) {
	pending, err := cs.mgr.PendingBlocksFor(parentHash)
	if err != nil {
		cs.log.Warn("read pending blocks", "parent", parentHash, "error", err)
		return
	}
	for _, b := range pending {
		if err := cs.mgr.DeletePendingBlock(parentHash, b.Hash()); err != nil {
			cs.log.Warn("delete pending block", "hash", b.Hash(), "error", err)
		}
		if err := cs.ProcessBlock(b); err != nil {
			cs.log.Debug("pending block reprocess failed", "hash", b.Hash(), "error", err)
		}
	}
}

// extendTip runs layers C/D/E against the live UTXO set (valid only
// because block directly extends the current tip) and, on success,
// atomically advances the active chain pointer.
func (cs *ChainState) extendTip(block *types.Block, height uint32, work *consensus.ChainWork) error {
	hash := block.Hash()
	batch := cs.mgr.NewWriteBatch()
	result, err := cs.validateAndApply(block, height, batch)
	if err != nil {
		cs.index.SetStatus(hash, Invalid)
		return err
	}
	if err := cs.stageAccepted(batch, block, height, work, result); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("blockchain: commit block %s: %w", hash, err)
	}
	cs.index.SetStatus(hash, Valid)

	cs.tipMu.Lock()
	cs.tip = hash
	cs.tipHeight = height
	cs.tipWork = work
	cs.tipMu.Unlock()

	if cs.pool != nil {
		cs.pool.RemoveConfirmed(block.Transactions)
	}
	if cs.notifier != nil {
		cs.notifier.emitBlockAccepted(BlockAccepted{Hash: hash, Height: height})
	}
	return nil
}

// validateAndApply runs layers C/D/E (validation.ValidateBlock) for block
// at height, deriving the ancestor context and median-time-past from the
// header index rather than the live tip, so it is equally correct when
// called for a fork block during a reorg. The block's UTXO mutation is
// staged into batch rather than committed directly, so the caller can
// fold it into the same atomic write as the chain-metadata update that
// must accompany it.
func (cs *ChainState) validateAndApply(block *types.Block, height uint32, batch *database.WriteBatch) (*validation.Result, error) {
	parentHash := block.Header.PrevBlockHash
	timestamps := cs.index.AncestorTimestamps(parentHash, params.MedianTimePastWindow)
	mtp := consensus.MedianTimePast(timestamps)
	ancestors := validation.AncestorContext{Timestamps: timestamps}
	return validation.ValidateBlock(block, height, ancestors, mtp, now(), cs.net, cs.engine, cs.registry, cs.utxo, batch)
}

// stageAccepted stages a newly-applied block's undo log, the
// height-to-hash canonical mapping, and the best_hash/best_height/
// chainwork metadata triple into batch: the chain-metadata half of
// accepting a block, staged alongside the UTXO half validateAndApply
// already staged into the very same batch. Every path that advances the
// tip (genesis, a direct extend, each block a reorg replays) stages this
// same triple so that a single batch.Commit makes the whole block's
// effect atomic — the switch happens completely or not at all.
func (cs *ChainState) stageAccepted(batch *database.WriteBatch, block *types.Block, height uint32, work *consensus.ChainWork, result *validation.Result) error {
	hash := block.Hash()
	if result != nil {
		if err := batch.Put(database.UndoKey(hash.Bytes()), result.Undo.Bytes()); err != nil {
			return fmt.Errorf("blockchain: stage undo log: %w", err)
		}
	}
	if err := batch.Put(database.HeightKey(height), hash.Bytes()); err != nil {
		return fmt.Errorf("blockchain: stage canonical hash: %w", err)
	}
	if err := batch.Put(database.BestHashKey(), hash.Bytes()); err != nil {
		return fmt.Errorf("blockchain: stage best hash: %w", err)
	}
	if err := batch.Put(database.BestHeightKey(), database.EncodeHeight(height)); err != nil {
		return fmt.Errorf("blockchain: stage best height: %w", err)
	}
	if err := batch.Put(database.ChainWorkKey(), database.EncodeChainWork(work.Value())); err != nil {
		return fmt.Errorf("blockchain: stage chainwork: %w", err)
	}
	return nil
}
