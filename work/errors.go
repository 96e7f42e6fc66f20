package work

import "errors"

var (
	// ErrNoMinerScript is returned by BuildBlockTemplate when no
	// miner payout script was supplied.
	ErrNoMinerScript = errors.New("work: no miner payout script supplied")
	// ErrNoTreasuryScript is returned by BuildBlockTemplate when no
	// treasury payout script was supplied.
	ErrNoTreasuryScript = errors.New("work: no treasury payout script supplied")
	// ErrRewardOverflow is returned when a block's subsidy plus collected
	// fees would overflow the coinbase output amount type.
	ErrRewardOverflow = errors.New("work: expected reward overflow")
)
