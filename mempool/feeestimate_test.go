package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeeEstimatorEmptyReturnsFloor(t *testing.T) {
	est := NewFeeEstimator()
	require.Equal(t, 5.0, est.EstimateFee(1, 5.0))
}

func TestFeeEstimatorFloorsEstimateAtMinimum(t *testing.T) {
	est := NewFeeEstimator()
	est.RecordBlock([]float64{1, 1, 1})
	require.Equal(t, 10.0, est.EstimateFee(1, 10.0))
}

func TestFeeEstimatorTighterTargetWantsHigherRate(t *testing.T) {
	est := NewFeeEstimator()
	for i := 0; i < 20; i++ {
		est.RecordBlock([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	}
	tight := est.EstimateFee(1, 0)
	loose := est.EstimateFee(20, 0)
	require.GreaterOrEqual(t, tight, loose)
}

func TestFeeEstimatorRetainsOnlyRecentWindow(t *testing.T) {
	est := NewFeeEstimator()
	est.maxBlocks = 2
	est.RecordBlock([]float64{100})
	est.RecordBlock([]float64{1})
	est.RecordBlock([]float64{1})
	// the block of 100 has aged out of the 2-block window
	require.Less(t, est.EstimateFee(2, 0), 100.0)
}
