package validation

import (
	"golang.org/x/sync/errgroup"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/script"
)

// UTXOLookup resolves an outpoint to its live entry. blockchain/utxo.Set
// satisfies this directly; the mempool wraps it to additionally see
// outputs created by other still-unconfirmed transactions.
type UTXOLookup interface {
	Get(op types.Outpoint) (*types.UtxoEntry, error)
}

// ValidateScripts runs layer C over every non-coinbase input of tx: locates
// the output it spends, then runs its signature_script against that
// output's pubkey_script under the script interpreter. Per spec §5, input
// checks are independent and CPU-bound, so they run concurrently; the
// result does not depend on which goroutine finishes first, only on
// reporting the lowest-indexed failure so two nodes never disagree about
// which input a rejected transaction failed on.
//
// It returns the resolved input entries in input order, which layer D's
// fee computation reuses instead of re-fetching.
func ValidateScripts(tx *types.Transaction, lookup UTXOLookup, registry *sigscheme.Registry) ([]*types.UtxoEntry, error) {
	if tx.IsCoinbase() {
		return nil, nil
	}

	entries := make([]*types.UtxoEntry, len(tx.Inputs))
	errs := make([]error, len(tx.Inputs))

	for i := range tx.Inputs {
		op := tx.Inputs[i].Outpoint()
		entry, err := lookup.Get(op)
		if err != nil {
			return nil, newErr(CategoryUTXO, "input %d references %s: %w", i, op, err)
		}
		entries[i] = entry
	}

	var g errgroup.Group
	for i := range tx.Inputs {
		i := i
		g.Go(func() error {
			message := tx.SignatureHash(i, entries[i].PubkeyScript)
			errs[i] = script.Verify(tx.Inputs[i].SignatureScript, entries[i].PubkeyScript, message.Bytes(), registry)
			return nil
		})
	}
	_ = g.Wait() // goroutines above record failures in errs; they never themselves error

	for i, err := range errs {
		if err != nil {
			return nil, newErr(CategoryScript, "input %d: %w", i, err)
		}
	}
	return entries, nil
}
