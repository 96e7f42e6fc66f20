package common

import "math"

// Amount is a quantity of base units. u64 in the spec; Go has no native u64
// overflow trap, so every aggregation below uses checked arithmetic and
// returns ok=false instead of wrapping.
type Amount = uint64

// MaxAmount is the maximum representable Amount (u64 max).
const MaxAmount Amount = math.MaxUint64

// CheckedAdd returns a+b and true, or (0, false) if the sum overflows u64.
func CheckedAdd(a, b Amount) (Amount, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// CheckedSub returns a-b and true, or (0, false) if b > a.
func CheckedSub(a, b Amount) (Amount, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// SumAmounts adds all values with overflow checking, short-circuiting to
// (0, false) on the first overflow.
func SumAmounts(values []Amount) (Amount, bool) {
	var total Amount
	var ok bool
	for _, v := range values {
		total, ok = CheckedAdd(total, v)
		if !ok {
			return 0, false
		}
	}
	return total, true
}
