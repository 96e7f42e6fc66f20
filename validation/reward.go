package validation

import (
	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/consensus"
	"github.com/supernova-labs/supernova/params"
)

// ValidateTransactionFee runs layer D for a non-coinbase transaction:
// fee = sum(inputs) - sum(outputs) with checked subtraction. inputEntries
// must be in the same order as tx.Inputs (ValidateScripts's return value).
func ValidateTransactionFee(tx *types.Transaction, inputEntries []*types.UtxoEntry) (fee uint64, err error) {
	amounts := make([]common.Amount, len(inputEntries))
	for i, e := range inputEntries {
		amounts[i] = e.Amount
	}
	fee, ok := tx.Fee(amounts)
	if !ok {
		return 0, newErr(CategoryFees, "transaction %s: outputs exceed inputs or sum overflows", tx.Hash())
	}
	return fee, nil
}

// ValidateCoinbase runs layer D for the coinbase transaction: its total
// output must not exceed subsidy(height)+totalFees, and output[1] must
// carry the treasury's 95/5 split within tolerance.
func ValidateCoinbase(coinbase *types.Transaction, height uint32, totalFees uint64) error {
	expected, ok := consensus.ExpectedReward(height, totalFees)
	if !ok {
		return newErr(CategoryConsensus, "block at height %d: subsidy+fees overflows u64", height)
	}

	total, ok := coinbase.TotalOutput()
	if !ok {
		return newErr(CategoryStructure, "coinbase %s: sum of outputs overflows u64", coinbase.Hash())
	}
	if total > expected {
		return newErr(CategoryConsensus, "coinbase %s creates %d, more than the expected reward %d", coinbase.Hash(), total, expected)
	}

	var treasuryAmount uint64
	if len(coinbase.Outputs) >= 2 {
		treasuryAmount = coinbase.Outputs[1].Amount
	} else if _, expectedTreasury := consensus.TreasurySplit(expected); expectedTreasury >= params.TreasuryDustThreshold {
		return newErr(CategoryConsensus, "coinbase %s is missing the treasury output", coinbase.Hash())
	}
	if err := consensus.CheckTreasuryAllocation(expected, treasuryAmount); err != nil {
		return newErr(CategoryConsensus, "coinbase %s: %w", coinbase.Hash(), err)
	}
	return nil
}
