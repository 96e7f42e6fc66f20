package consensus

import (
	"errors"
	"fmt"
)

var (
	errZeroOrNegativeDenominator = errors.New("consensus: target+1 is not positive")
	errWorkOverflow              = errors.New("consensus: block work overflowed 256 bits")
)

func errTreasuryOutOfTolerance(got, expected, lower, upper uint64) error {
	return fmt.Errorf("consensus: treasury output %d outside tolerance [%d,%d] of expected %d", got, lower, upper, expected)
}
