package consensus

import (
	"fmt"
	"math/big"
)

// maxExponent bounds the compact-target exponent field; bits above this
// are never produced by any valid encoding.
const maxExponent = 34

// maxMantissa is the largest legal mantissa; the high bit of the 24-bit
// mantissa field is a sign bit that must always be zero for a PoW target.
const maxMantissa = 0x7fffff

// DecodeCompactTarget expands a 32-bit compact target ("bits", Bitcoin's
// nBits) into a 256-bit target, rejecting non-canonical encodings: a
// mantissa with the sign bit set, or an exponent outside [0, 34].
func DecodeCompactTarget(bits uint32) (*big.Int, error) {
	mantissa := bits & 0x007fffff
	exponent := bits >> 24

	if bits&0x00800000 != 0 {
		return nil, fmt.Errorf("compact target 0x%08x: sign bit set", bits)
	}
	if mantissa > maxMantissa {
		return nil, fmt.Errorf("compact target 0x%08x: mantissa %d exceeds max %d", bits, mantissa, maxMantissa)
	}
	if exponent > maxExponent {
		return nil, fmt.Errorf("compact target 0x%08x: exponent %d exceeds max %d", bits, exponent, maxExponent)
	}

	target := big.NewInt(int64(mantissa))
	if exponent <= 3 {
		target.Rsh(target, uint(8*(3-exponent)))
	} else {
		target.Lsh(target, uint(8*(exponent-3)))
	}
	return target, nil
}

// EncodeCompactTarget compresses a 256-bit target into its canonical
// 32-bit compact form.
func EncodeCompactTarget(target *big.Int) uint32 {
	if target.Sign() == 0 {
		return 0
	}
	// Work from the big-endian byte representation: exponent counts
	// bytes, mantissa is the leading 3 significant bytes.
	raw := target.Bytes()
	exponent := uint32(len(raw))

	var mantissa uint32
	switch {
	case exponent <= 3:
		mantissa = uint32(target.Int64())
		mantissa <<= 8 * (3 - exponent)
	default:
		mantissa = uint32(raw[0])<<16 | uint32(raw[1])<<8 | uint32(raw[2])
	}

	// If the high bit of the mantissa would be interpreted as a sign
	// bit, shift right by a byte and bump the exponent, matching
	// Bitcoin's canonical nBits packing.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}
	return exponent<<24 | mantissa
}

// HashMeetsTarget reports whether the 256-bit value represented by hash
// (interpreted big-endian) is numerically ≤ target, i.e. the header
// satisfies its proof-of-work.
func HashMeetsTarget(hash [32]byte, target *big.Int) bool {
	hashInt := new(big.Int).SetBytes(hash[:])
	return hashInt.Cmp(target) <= 0
}
