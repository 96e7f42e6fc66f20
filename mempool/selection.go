package mempool

import (
	"sort"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/common"
)

// GetReady returns every pooled transaction with no in-mempool parent:
// the dependency graph's roots, since an edge only exists from a parent
// still resident in the pool to the child spending it.
func (p *Pool) GetReady() []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	roots := p.graph.GetRoots()
	out := make([]*Entry, 0, len(roots))
	for id := range roots {
		if entry, ok := p.entries[id]; ok {
			out = append(out, entry)
		}
	}
	return out
}

// TopologicalOrder returns every pooled transaction ordered so that a
// transaction never precedes one of its in-pool ancestors, safe for
// sequential re-validation or block assembly.
func (p *Pool) TopologicalOrder() ([]*Entry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.topologicalOrderLocked()
}

func (p *Pool) topologicalOrderLocked() ([]*Entry, error) {
	remaining := make(map[string]int, len(p.entries)) // in-pool-parent count
	for id := range p.entries {
		ancestors, err := p.graph.GetAncestors(id)
		if err != nil {
			return nil, err
		}
		direct := 0
		for aid := range ancestors {
			if isDirectParent(p, aid, id) {
				direct++
			}
		}
		remaining[id] = direct
	}

	var order []*Entry
	ready := p.graph.GetRoots()
	queue := make([]string, 0, len(ready))
	for id := range ready {
		if _, ok := p.entries[id]; ok {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue) // deterministic across runs with identical pool contents

	visited := make(map[string]bool, len(p.entries))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		entry := p.entries[id]
		order = append(order, entry)

		descendants, err := p.graph.GetDescendants(id)
		if err != nil {
			return nil, err
		}
		next := make([]string, 0, len(descendants))
		for did := range descendants {
			if !isDirectParent(p, id, did) {
				continue
			}
			remaining[did]--
			if remaining[did] == 0 {
				next = append(next, did)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}
	return order, nil
}

// isDirectParent reports whether child directly spends one of parent's
// outputs (a direct graph edge), as opposed to being merely reachable
// through a longer ancestor/descendant chain.
func isDirectParent(p *Pool, parentID, childID string) bool {
	child, ok := p.entries[childID]
	if !ok {
		return false
	}
	for i := range child.Tx.Inputs {
		if child.Tx.Inputs[i].PrevTxHash.String() == parentID {
			return true
		}
	}
	return false
}

// PackageFeeRate returns hash's ancestor-package fee rate: the combined
// fee of the transaction and every in-pool ancestor divided by their
// combined size, the metric child-pays-for-parent selection sorts by.
func (p *Pool) PackageFeeRate(hash common.Hash) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.packageFeeRateLocked(hash.String())
}

func (p *Pool) packageFeeRateLocked(id string) (float64, error) {
	entry, ok := p.entries[id]
	if !ok {
		return 0, ErrUnknownTransaction
	}
	ancestors, err := p.graphAncestorIDsLocked(id)
	if err != nil {
		return 0, err
	}
	var totalFee, totalSize uint64
	totalFee, totalSize = entry.Fee, entry.Size
	for aid := range ancestors {
		if a, ok := p.entries[aid]; ok {
			totalFee += a.Fee
			totalSize += a.Size
		}
	}
	if totalSize == 0 {
		return 0, nil
	}
	return float64(totalFee) / float64(totalSize), nil
}

func (p *Pool) graphAncestorIDsLocked(id string) (map[string]interface{}, error) {
	return p.graph.GetAncestors(id)
}

// SelectForBlock returns pooled transactions in an order respecting
// dependencies, greedily by descending ancestor-package fee rate, until
// maxBytes of serialized size would be exceeded.
func (p *Pool) SelectForBlock(maxBytes uint64) ([]*types.Transaction, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	order, err := p.topologicalOrderLocked()
	if err != nil {
		return nil, err
	}

	type scored struct {
		entry    *Entry
		feeRate  float64
		position int
	}
	position := make(map[string]int, len(order))
	scoredEntries := make([]scored, 0, len(order))
	for i, e := range order {
		rate, err := p.packageFeeRateLocked(e.ID())
		if err != nil {
			return nil, err
		}
		position[e.ID()] = i
		scoredEntries = append(scoredEntries, scored{entry: e, feeRate: rate, position: i})
	}
	sort.SliceStable(scoredEntries, func(i, j int) bool {
		if scoredEntries[i].feeRate != scoredEntries[j].feeRate {
			return scoredEntries[i].feeRate > scoredEntries[j].feeRate
		}
		return scoredEntries[i].position < scoredEntries[j].position
	})

	included := make(map[string]bool, len(order))
	var total uint64
	var selected []*types.Transaction
	for _, s := range scoredEntries {
		if included[s.entry.ID()] {
			continue
		}
		ancestors, err := p.graphAncestorIDsLocked(s.entry.ID())
		if err != nil {
			return nil, err
		}
		need := []*Entry{s.entry}
		for aid := range ancestors {
			if included[aid] {
				continue
			}
			if a, ok := p.entries[aid]; ok {
				need = append(need, a)
			}
		}
		var needSize uint64
		for _, n := range need {
			needSize += n.Size
		}
		if total+needSize > maxBytes {
			continue
		}
		// Add the package in global topological order so no descendant
		// is appended before one of its own in-pool ancestors.
		sort.Slice(need, func(i, j int) bool { return position[need[i].ID()] < position[need[j].ID()] })
		for _, n := range need {
			if included[n.ID()] {
				continue
			}
			included[n.ID()] = true
			total += n.Size
			selected = append(selected, n.Tx)
		}
	}
	return selected, nil
}
