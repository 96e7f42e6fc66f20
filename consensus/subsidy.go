package consensus

import "github.com/supernova-labs/supernova/params"

// Subsidy returns the newly-minted coin amount for a block at height h:
// baseSubsidy halved every HalvingInterval blocks. Mirrors
// daglabs-btcd's CalcBlockSubsidy (baseSubsidy >> (height/interval)).
func Subsidy(height uint32) uint64 {
	halvings := uint(height) / params.HalvingInterval
	if halvings >= 64 {
		return 0
	}
	return uint64(params.BaseSubsidy) >> halvings
}

// ExpectedReward returns the total coinbase value a block at height h may
// create: subsidy plus the fees collected from the block's other
// transactions.
func ExpectedReward(height uint32, totalFees uint64) (uint64, bool) {
	sub := Subsidy(height)
	sum := sub + totalFees
	if sum < sub {
		return 0, false
	}
	return sum, true
}

// TreasurySplit returns the expected miner and treasury shares of reward:
// 95%/5%, with the treasury share floored at TreasuryDustThreshold
// absorption semantics left to the caller (CheckTreasuryAllocation).
func TreasurySplit(reward uint64) (minerShare, treasuryShare uint64) {
	treasuryShare = reward * params.TreasuryFractionNum / params.TreasuryFractionDen
	minerShare = reward - treasuryShare
	return minerShare, treasuryShare
}

// CheckTreasuryAllocation validates a coinbase's treasury output amount
// against the expected reward, per spec §4.4.D: its amount must fall
// within ±1% of the expected 5% share, unless that expected share is
// below the dust threshold, in which case any amount (including 0, the
// share absorbed entirely into the miner output) is accepted. It does not
// check whether a treasury output exists; ValidateCoinbase rejects a
// coinbase that lacks one when the expected share is not dust.
func CheckTreasuryAllocation(reward, treasuryAmount uint64) error {
	_, expectedTreasury := TreasurySplit(reward)
	if expectedTreasury < params.TreasuryDustThreshold {
		// Expected share itself is dust; any absorption is acceptable.
		return nil
	}
	lowerBound := expectedTreasury - expectedTreasury*params.TreasuryToleranceNum/params.TreasuryToleranceDen
	upperBound := expectedTreasury + expectedTreasury*params.TreasuryToleranceNum/params.TreasuryToleranceDen
	if treasuryAmount < lowerBound || treasuryAmount > upperBound {
		return errTreasuryOutOfTolerance(treasuryAmount, expectedTreasury, lowerBound, upperBound)
	}
	return nil
}
