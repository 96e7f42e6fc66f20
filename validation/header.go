package validation

import (
	"time"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/consensus"
	"github.com/supernova-labs/supernova/params"
)

// AncestorContext carries the information about a header's would-be
// parent chain that layer A needs but cannot derive from the header
// itself: the median-time-past window and the timestamp validation is
// measured against.
type AncestorContext struct {
	// Timestamps holds up to params.MedianTimePastWindow ancestor
	// timestamps, most recent first or in any order (the median doesn't
	// depend on order).
	Timestamps []uint64
}

// ValidateHeader runs layer A: version recognition, bits-within-policy,
// timestamp bounds, proof-of-work, and merkle root consistency. now is
// threaded through rather than read from the clock so callers get
// deterministic, testable behavior.
func ValidateHeader(header *types.BlockHeader, block *types.Block, net params.NetworkParams, engine consensus.Engine, ancestors AncestorContext, now time.Time) error {
	if !recognizedVersion(header.Version, net.RecognizedHeaderVersions) {
		return newErr(CategoryHeader, "header version %d is not recognized", header.Version)
	}

	target, err := consensus.DecodeCompactTarget(header.Bits)
	if err != nil {
		return newErr(CategoryHeader, "decode bits: %w", err)
	}
	powLimit, err := consensus.DecodeCompactTarget(net.PowLimitBits)
	if err != nil {
		return newErr(CategoryConsensus, "decode network pow limit: %w", err)
	}
	if target.Cmp(powLimit) > 0 {
		return newErr(CategoryHeader, "bits 0x%08x decode to a target looser than network policy", header.Bits)
	}

	mtp := consensus.MedianTimePast(ancestors.Timestamps)
	if err := consensus.CheckHeaderTimestamp(header, mtp, now, params.MaxFutureDrift); err != nil {
		return newErr(CategoryHeader, "timestamp: %w", err)
	}

	if err := engine.VerifyHeaderPoW(header); err != nil {
		return newErr(CategoryHeader, "proof of work: %w", err)
	}

	if block != nil && !block.HasValidMerkleRoot() {
		return newErr(CategoryHeader, "merkle root %s does not match block transactions", header.MerkleRoot)
	}
	return nil
}

func recognizedVersion(version uint32, recognized []uint32) bool {
	for _, v := range recognized {
		if v == version {
			return true
		}
	}
	return false
}
