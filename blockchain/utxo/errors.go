package utxo

import "errors"

var (
	// ErrNotFound is returned when an outpoint has no unspent entry, either
	// because it was never created or because it has already been spent.
	ErrNotFound = errors.New("utxo: outpoint not found")
	// ErrAlreadySpentInBlock is returned when a block spends the same
	// outpoint twice, directly or across its transactions.
	ErrAlreadySpentInBlock = errors.New("utxo: outpoint spent twice within the same block")
	// ErrMissingCoinbaseOutput is returned when ApplyBlock is given a block
	// whose first transaction is not a valid coinbase.
	ErrMissingCoinbaseOutput = errors.New("utxo: block is missing a valid coinbase")
)
