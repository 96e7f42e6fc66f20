// Package mempool holds validated, unconfirmed transactions: fee-rate
// ordered selection for block assembly, ancestor/descendant package
// tracking, flood resistance via eviction, and fee-rate estimation.
package mempool

import (
	"fmt"
	"sync"
	"time"

	"github.com/heimdalr/dag"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/blockchain/utxo"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/log"
	"github.com/supernova-labs/supernova/params"
	"github.com/supernova-labs/supernova/validation"
)

// Entry is one pool-resident transaction plus the bookkeeping needed for
// fee-rate ordering and eviction. Entry is also the dependency graph's
// vertex payload: its ID is the transaction hash, hex-encoded.
type Entry struct {
	Tx      *types.Transaction
	Hash    common.Hash
	Fee     uint64
	Size    uint64
	FeeRate float64 // satoshis per byte, this transaction alone
	Added   time.Time
}

// ID implements dag.IDInterface.
func (e *Entry) ID() string { return e.Hash.String() }

// Options configures a Pool's admission policy and capacity.
type Options struct {
	MinFeeRate float64 // satoshis per byte, starting admission floor
	MaxBytes   uint64  // total serialized size the pool may hold
}

// DefaultOptions returns policy reasonable for a testnet-scale node.
func DefaultOptions() Options {
	return Options{MinFeeRate: 1.0, MaxBytes: 64 * 1024 * 1024}
}

// Pool is the mempool: a single writer (Admit/Remove/eviction) guarded by
// mu, with readers served from the same locked map since entries are
// small and queries are infrequent relative to admission.
type Pool struct {
	mu sync.RWMutex

	net      params.NetworkParams
	utxo     *utxo.Set
	registry *sigscheme.Registry
	notifier *Notifier
	log      log.Logger

	graph   *dag.DAG
	entries map[string]*Entry // keyed by Entry.ID()

	minFeeRate   float64
	maxBytes     uint64
	currentBytes uint64

	estimator *FeeEstimator
}

// New constructs an empty Pool.
func New(net params.NetworkParams, utxoSet *utxo.Set, registry *sigscheme.Registry, notifier *Notifier, opts Options) *Pool {
	return &Pool{
		net:        net,
		utxo:       utxoSet,
		registry:   registry,
		notifier:   notifier,
		log:        log.NewModuleLogger(log.Mempool),
		graph:      dag.NewDAG(),
		entries:    make(map[string]*Entry),
		minFeeRate: opts.MinFeeRate,
		maxBytes:   opts.MaxBytes,
		estimator:  NewFeeEstimator(),
	}
}

// Size returns the number of transactions currently pooled.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Bytes returns the pool's current total serialized size.
func (p *Pool) Bytes() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentBytes
}

// MinFeeRate returns the pool's current admission floor.
func (p *Pool) MinFeeRate() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.minFeeRate
}

// Get returns the pooled entry for hash, if any.
func (p *Pool) Get(hash common.Hash) (*Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[hash.String()]
	return e, ok
}

// poolLookup resolves an input's UTXO entry either from the committed
// UTXO set or, failing that, from an unconfirmed parent still resident in
// the pool, so a transaction may spend a same-block-unconfirmed parent's
// output per the admission pipeline's "may spend a parent still in the
// mempool" allowance.
type poolLookup struct {
	pool *Pool
}

func (l poolLookup) Get(op types.Outpoint) (*types.UtxoEntry, error) {
	if entry, err := l.pool.utxo.Get(op); err == nil {
		return entry, nil
	}
	parent, ok := l.pool.entries[op.TxHash.String()]
	if !ok || int(op.Index) >= len(parent.Tx.Outputs) {
		return nil, fmt.Errorf("mempool: %w: outpoint %s", utxo.ErrNotFound, op)
	}
	return types.NewUtxoEntryFromOutput(parent.Tx, int(op.Index), 0, false), nil
}

// Admit runs the admission pipeline against tx and, on success, adds it
// to the pool and its dependency graph.
func (p *Pool) Admit(tx *types.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := tx.Hash()
	id := hash.String()
	if _, exists := p.entries[id]; exists {
		return ErrAlreadyInPool
	}
	if err := validation.ValidateStructure(tx, false); err != nil {
		return err
	}

	entries, err := validation.ValidateScripts(tx, poolLookup{pool: p}, p.registry)
	if err != nil {
		return err
	}
	fee, err := validation.ValidateTransactionFee(tx, entries)
	if err != nil {
		return err
	}

	size := uint64(tx.SerializedSize())
	if size == 0 {
		return fmt.Errorf("mempool: zero-size transaction")
	}
	feeRate := float64(fee) / float64(size)
	if feeRate < p.minFeeRate {
		return fmt.Errorf("%w: %.4f < %.4f", ErrFeeTooLow, feeRate, p.minFeeRate)
	}

	if p.currentBytes+size > p.maxBytes {
		if !p.makeRoomLocked(size, feeRate) {
			return ErrMempoolFull
		}
	}

	entry := &Entry{Tx: tx, Hash: hash, Fee: fee, Size: size, FeeRate: feeRate, Added: timeNow()}
	if _, err := p.graph.AddVertex(entry); err != nil {
		return fmt.Errorf("mempool: add to dependency graph: %w", err)
	}
	for i := range tx.Inputs {
		parentID := tx.Inputs[i].PrevTxHash.String()
		if _, ok := p.entries[parentID]; !ok {
			continue
		}
		// Edge points parent -> child, so the dag library's own
		// ancestor/descendant walk lines up with the dependency
		// direction: a transaction's ancestors are the parents it
		// spends, its descendants are transactions that spend it.
		if err := p.graph.AddEdge(parentID, id); err != nil {
			p.graph.DeleteVertex(id)
			return fmt.Errorf("%w: %v", ErrWouldCreateCycle, err)
		}
	}

	p.entries[id] = entry
	p.currentBytes += size

	if p.notifier != nil {
		p.notifier.emitAdmitted(TxAdmitted{Hash: hash})
	}
	return nil
}

// Remove deletes hash from the pool and its dependency graph without
// touching its descendants; callers that need descendants gone too
// should use RemoveWithDescendants.
func (p *Pool) Remove(hash common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(hash)
}

func (p *Pool) removeLocked(hash common.Hash) {
	id := hash.String()
	entry, ok := p.entries[id]
	if !ok {
		return
	}
	_ = p.graph.DeleteVertex(id)
	delete(p.entries, id)
	p.currentBytes -= entry.Size
}

// RemoveWithDescendants deletes hash and every transaction that
// transitively spends one of its outputs, the shape eviction and
// conflict-drop both need.
func (p *Pool) RemoveWithDescendants(hash common.Hash, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, victim := range p.descendantsLocked(hash) {
		p.removeLocked(victim)
		if p.notifier != nil {
			p.notifier.emitEvicted(TxEvicted{Hash: victim, Reason: reason})
		}
	}
	p.removeLocked(hash)
	if p.notifier != nil {
		p.notifier.emitEvicted(TxEvicted{Hash: hash, Reason: reason})
	}
}

// RemoveConfirmed removes every transaction in txs from the pool without
// an eviction notification, since confirmation is the expected, successful
// exit from the pool. Fee rates of matched entries feed the fee estimator
// as one confirmed block's observed sample.
func (p *Pool) RemoveConfirmed(txs []types.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var feeRates []float64
	for i := range txs {
		hash := txs[i].Hash()
		if entry, ok := p.entries[hash.String()]; ok {
			feeRates = append(feeRates, entry.FeeRate)
		}
		p.removeLocked(hash)
	}
	if len(feeRates) > 0 {
		p.estimator.RecordBlock(feeRates)
	}
}

// Resubmit re-runs the admission pipeline for every transaction in txs,
// the reorg collaborator's re-submit-reverted-block-transactions step.
// Failures are logged, not returned: a transaction that no longer admits
// (already confirmed on the new chain, or now conflicting) is simply
// dropped rather than treated as a caller error.
func (p *Pool) Resubmit(txs []types.Transaction) {
	for i := range txs {
		tx := txs[i]
		if err := p.Admit(&tx); err != nil {
			p.log.Debug("resubmitted transaction not re-admitted", "hash", tx.Hash(), "err", err)
		}
	}
}

func (p *Pool) descendantsLocked(hash common.Hash) []common.Hash {
	raw, err := p.graph.GetDescendants(hash.String())
	if err != nil {
		return nil
	}
	out := make([]common.Hash, 0, len(raw))
	for id := range raw {
		if entry, ok := p.entries[id]; ok {
			out = append(out, entry.Hash)
		}
	}
	return out
}

// timeNow is a seam so tests can pin when entries are recorded as added.
var timeNow = time.Now
