package mempool

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"
)

// makeRoomLocked evicts ancestor-packages in increasing fee-rate order
// until size additional bytes fit, refusing once the cheapest remaining
// package is not strictly worse than the admitting candidate: pressure
// should never evict something better to make room for something worse.
func (p *Pool) makeRoomLocked(size uint64, candidateFeeRate float64) bool {
	for p.currentBytes+size > p.maxBytes {
		victimID, rate, ok := p.lowestPackageLocked()
		if !ok || rate >= candidateFeeRate {
			return false
		}
		removal := p.descendantSetLocked(victimID)
		removal.Add(victimID)
		for _, id := range removal.ToSlice() {
			entry, ok := p.entries[id]
			if !ok {
				continue
			}
			p.removeLocked(entry.Hash)
			if p.notifier != nil {
				p.notifier.emitEvicted(TxEvicted{Hash: entry.Hash, Reason: "evicted: lowest ancestor-package fee rate"})
			}
		}
		if rate > p.minFeeRate {
			p.minFeeRate = rate
		}
	}
	return true
}

// lowestPackageLocked scans every pooled transaction for the one with the
// lowest ancestor-package fee rate.
func (p *Pool) lowestPackageLocked() (id string, rate float64, ok bool) {
	best := math.MaxFloat64
	for candidateID := range p.entries {
		r, err := p.packageFeeRateLocked(candidateID)
		if err != nil {
			continue
		}
		if r < best {
			best = r
			id = candidateID
			ok = true
		}
	}
	return id, best, ok
}

// descendantSetLocked returns id's full transitive descendant set (every
// pooled transaction that spends, directly or indirectly, one of id's
// outputs), so evicting id can take its whole dependent package with it.
func (p *Pool) descendantSetLocked(id string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	raw, err := p.graph.GetDescendants(id)
	if err != nil {
		return set
	}
	for k := range raw {
		set.Add(k)
	}
	return set
}
