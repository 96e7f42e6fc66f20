// This file is part of the supernova library.
//
// The supernova library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The supernova library is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public
// License along with the supernova library. If not, see
// <http://www.gnu.org/licenses/>.

package consensus

import (
	"math/big"

	"github.com/holiman/uint256"
)

// maxTargetSpace is 2^256, represented as a big.Int since it overflows
// uint256.Int's 256-bit range by one bit.
var maxTargetSpace = new(big.Int).Lsh(big.NewInt(1), 256)

// one is reused to avoid reallocating on every call to BlockWork.
var one = big.NewInt(1)

// BlockWork returns a single block's proof-of-work contribution:
// floor(2^256 / (target+1)). The quotient always fits in 256 bits because
// target+1 ≥ 1.
func BlockWork(target *big.Int) (*uint256.Int, error) {
	denom := new(big.Int).Add(target, one)
	if denom.Sign() <= 0 {
		return nil, errZeroOrNegativeDenominator
	}
	quotient := new(big.Int).Div(maxTargetSpace, denom)

	work, overflow := uint256.FromBig(quotient)
	if overflow {
		// Unreachable for any target produced by DecodeCompactTarget,
		// kept as a defensive guard against a future encoding change.
		return nil, errWorkOverflow
	}
	return work, nil
}

// ChainWork accumulates BlockWork across a chain. The zero value is the
// work of an empty chain (genesis's parent).
type ChainWork struct {
	total uint256.Int
}

// Add accumulates a single block's work.
func (w *ChainWork) Add(blockWork *uint256.Int) {
	w.total.Add(&w.total, blockWork)
}

// Value returns the accumulated total.
func (w *ChainWork) Value() *uint256.Int {
	return new(uint256.Int).Set(&w.total)
}

// Clone returns an independent copy.
func (w *ChainWork) Clone() ChainWork {
	return ChainWork{total: *new(uint256.Int).Set(&w.total)}
}

// Compare returns -1, 0, 1 as w is less than, equal to, or greater than
// other.
func (w *ChainWork) Compare(other *ChainWork) int {
	return w.total.Cmp(&other.total)
}
