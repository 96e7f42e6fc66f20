package validation

import "github.com/supernova-labs/supernova/blockchain/types"

// ValidateStructure runs layer B: shape checks a transaction must satisfy
// independent of any UTXO lookup. isCoinbase tells the caller's expectation
// of the sentinel rule, since a coinbase and an ordinary transaction
// enforce opposite sides of it.
func ValidateStructure(tx *types.Transaction, isCoinbase bool) error {
	if len(tx.Inputs) == 0 {
		return newErr(CategoryStructure, "transaction has no inputs")
	}
	if len(tx.Outputs) == 0 {
		return newErr(CategoryStructure, "transaction has no outputs")
	}
	if tx.HasDuplicateOutpoints() {
		return newErr(CategoryStructure, "transaction spends the same outpoint twice")
	}

	if isCoinbase {
		if !tx.IsCoinbase() {
			return newErr(CategoryStructure, "coinbase transaction does not use the sentinel prevout")
		}
	} else {
		for i := range tx.Inputs {
			if tx.Inputs[i].IsCoinbase() {
				return newErr(CategoryStructure, "non-coinbase transaction uses the coinbase sentinel prevout at input %d", i)
			}
		}
	}

	if _, ok := tx.TotalOutput(); !ok {
		return newErr(CategoryStructure, "sum of output amounts overflows u64")
	}
	return nil
}

// ValidateBlockStructure runs layer B over every transaction in block:
// transactions[0] must be the coinbase, and every other transaction must
// not be.
func ValidateBlockStructure(block *types.Block) error {
	if len(block.Transactions) == 0 {
		return newErr(CategoryStructure, "block has no transactions")
	}
	for i := range block.Transactions {
		if err := ValidateStructure(&block.Transactions[i], i == 0); err != nil {
			return err
		}
	}
	return nil
}
