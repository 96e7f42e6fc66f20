package mempool

import "sort"

// FeeEstimator maintains a per-recent-block histogram of confirmed fee
// rates and answers quantile-based fee estimates by confirmation target.
type FeeEstimator struct {
	recentBlocks [][]float64 // most recent last, each entry sorted ascending
	maxBlocks    int
}

// NewFeeEstimator returns an estimator retaining the last 100 blocks'
// worth of confirmed fee-rate samples.
func NewFeeEstimator() *FeeEstimator {
	return &FeeEstimator{maxBlocks: 100}
}

// RecordBlock records one confirmed block's fee rates.
func (f *FeeEstimator) RecordBlock(feeRates []float64) {
	sorted := append([]float64(nil), feeRates...)
	sort.Float64s(sorted)
	f.recentBlocks = append(f.recentBlocks, sorted)
	if len(f.recentBlocks) > f.maxBlocks {
		f.recentBlocks = f.recentBlocks[len(f.recentBlocks)-f.maxBlocks:]
	}
}

// EstimateFee returns a fee rate estimate for confirmation within
// targetBlocks blocks: the tighter the target, the higher the quantile
// taken over the observed window, floored at floor so a quiet mempool
// never recommends paying less than the admission policy requires.
func (f *FeeEstimator) EstimateFee(targetBlocks int, floor float64) float64 {
	if targetBlocks <= 0 {
		targetBlocks = 1
	}
	n := targetBlocks
	if n > len(f.recentBlocks) {
		n = len(f.recentBlocks)
	}
	if n == 0 {
		return floor
	}
	window := f.recentBlocks[len(f.recentBlocks)-n:]
	var all []float64
	for _, block := range window {
		all = append(all, block...)
	}
	if len(all) == 0 {
		return floor
	}
	sort.Float64s(all)
	quantile := 0.5 + 0.5/float64(targetBlocks)
	idx := int(quantile * float64(len(all)-1))
	if idx < 0 {
		idx = 0
	}
	estimate := all[idx]
	if estimate < floor {
		return floor
	}
	return estimate
}

// EstimateFee returns the pool's fee-rate estimate for confirmation
// within targetBlocks blocks.
func (p *Pool) EstimateFee(targetBlocks int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.estimator.EstimateFee(targetBlocks, p.minFeeRate)
}
