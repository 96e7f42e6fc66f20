package consensus

import (
	"fmt"
	"sort"
	"time"

	"github.com/holiman/uint256"

	"github.com/supernova-labs/supernova/blockchain/types"
)

// Engine is the proof-of-work contract the block processor consults for
// header-level consensus checks. It is the closed-set equivalent of the
// teacher's consensus.Engine/Broadcaster interfaces in consensus/protocol.go:
// a narrow, synchronous surface the validator depends on by interface, not
// by concrete type.
type Engine interface {
	// VerifyHeaderPoW checks that header's hash satisfies the target
	// implied by header.Bits.
	VerifyHeaderPoW(header *types.BlockHeader) error

	// Target decodes header.Bits into the 256-bit target it represents.
	Target(header *types.BlockHeader) (*ChainWorkTarget, error)
}

// ChainWorkTarget pairs a decoded target with the BlockWork it implies, so
// callers don't redundantly recompute the division.
type ChainWorkTarget struct {
	TargetValue [32]byte // big-endian 256-bit target, zero-padded
	Work        *uint256.Int
}

type powEngine struct{}

// NewPoWEngine returns the default Engine implementation: canonical
// compact-target decoding plus SHA-256 proof-of-work comparison, as
// specified in spec §4.3/§6.
func NewPoWEngine() Engine { return powEngine{} }

func (powEngine) VerifyHeaderPoW(header *types.BlockHeader) error {
	target, err := DecodeCompactTarget(header.Bits)
	if err != nil {
		return fmt.Errorf("decode bits: %w", err)
	}
	hash := header.Hash()
	if !HashMeetsTarget(hash, target) {
		return fmt.Errorf("header hash %s does not meet target for bits 0x%08x", hash, header.Bits)
	}
	return nil
}

func (powEngine) Target(header *types.BlockHeader) (*ChainWorkTarget, error) {
	target, err := DecodeCompactTarget(header.Bits)
	if err != nil {
		return nil, err
	}
	work, err := BlockWork(target)
	if err != nil {
		return nil, err
	}
	var padded [32]byte
	raw := target.Bytes()
	copy(padded[32-len(raw):], raw)
	return &ChainWorkTarget{TargetValue: padded, Work: work}, nil
}

// MedianTimePast returns the median of the given ancestor timestamps
// (most recent MedianTimePastWindow ancestors, oldest to newest or any
// order — the median doesn't depend on order). Callers pass at most
// MedianTimePastWindow timestamps; fewer (near genesis) is fine.
func MedianTimePast(ancestorTimestamps []uint64) uint64 {
	if len(ancestorTimestamps) == 0 {
		return 0
	}
	sorted := append([]uint64(nil), ancestorTimestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}

// CheckHeaderTimestamp validates a header's timestamp against the spec's
// two bounds: it must exceed the median-time-past of its ancestors and
// must not exceed now+maxFutureDrift.
func CheckHeaderTimestamp(header *types.BlockHeader, medianTimePast uint64, now time.Time, maxFutureDrift time.Duration) error {
	if header.Timestamp <= medianTimePast {
		return fmt.Errorf("header timestamp %d does not exceed median-time-past %d", header.Timestamp, medianTimePast)
	}
	maxFuture := uint64(now.Add(maxFutureDrift).Unix())
	if header.Timestamp > maxFuture {
		return fmt.Errorf("header timestamp %d exceeds max future drift (now+%s=%d)", header.Timestamp, maxFutureDrift, maxFuture)
	}
	return nil
}
