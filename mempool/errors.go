package mempool

import "errors"

var (
	// ErrAlreadyInPool is returned by Admit for a transaction hash already
	// tracked.
	ErrAlreadyInPool = errors.New("mempool: transaction already in pool")
	// ErrFeeTooLow is returned when a candidate's fee rate is below the
	// pool's current admission floor.
	ErrFeeTooLow = errors.New("mempool: fee rate below minimum")
	// ErrMempoolFull is returned when the pool is at its byte cap and no
	// lower-fee-rate package can be evicted to make room.
	ErrMempoolFull = errors.New("mempool: full and nothing evictable for this fee rate")
	// ErrWouldCreateCycle is returned when the dependency graph rejects an
	// edge because it would cycle back on itself.
	ErrWouldCreateCycle = errors.New("mempool: transaction would create a dependency cycle")
	// ErrUnknownTransaction is returned by lookups for a hash the pool
	// does not track.
	ErrUnknownTransaction = errors.New("mempool: unknown transaction")
)
