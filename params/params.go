// Package params holds the compile-time consensus constants and the
// per-network policy configuration supplied by the embedding node at
// construction time. Consensus constants are immutable; network policy
// (cache sizes, bloom sizing, mempool limits) is not part of consensus and
// may vary by deployment.
package params

import "time"

const (
	// CoinbaseMaturity is the number of confirmations a coinbase output
	// must accumulate before it is spendable.
	CoinbaseMaturity = 100

	// HalvingInterval is the number of blocks between subsidy halvings.
	HalvingInterval = 210_000

	// BaseSubsidy is the block reward at height 0, in base units.
	BaseSubsidy = 50 * 1_0000_0000

	// TreasuryFractionNum/Den express the 5% treasury allocation as a
	// fraction to avoid floating point in consensus code.
	TreasuryFractionNum = 5
	TreasuryFractionDen = 100

	// TreasuryToleranceNum/Den express the ±1% tolerance band.
	TreasuryToleranceNum = 1
	TreasuryToleranceDen = 100

	// TreasuryDustThreshold is the minimum treasury output that need not
	// be absorbed into the miner output.
	TreasuryDustThreshold = 1000

	// MaxForkDepth bounds how many blocks a reorg may revert.
	MaxForkDepth = 100

	// MaxBlockSize is the network message and storage ceiling for a
	// serialized block, in bytes.
	MaxBlockSize = 4 * 1024 * 1024

	// MaxScriptSize is the maximum size, in bytes, of a single script
	// (signature_script or pubkey_script).
	MaxScriptSize = 10_000

	// MaxFutureDrift is the maximum amount a header's timestamp may
	// exceed current wall-clock time.
	MaxFutureDrift = 2 * time.Hour

	// MedianTimePastWindow is the number of ancestor headers averaged
	// (by median) to bound a new header's timestamp from below.
	MedianTimePastWindow = 11
)

// NetworkParams bundles the policy knobs that vary by deployment (testnet
// vs. a hypothetical mainnet) but are not themselves consensus constants:
// genesis parameters and storage/cache/mempool sizing. The node
// constructs one NetworkParams and threads it through storage, the UTXO
// set, chain state, and the mempool.
type NetworkParams struct {
	Name string

	// GenesisBits is the compact target of the genesis header.
	GenesisBits uint32

	// PowLimitBits is the loosest (numerically largest) target the network
	// accepts: a header whose bits decode to a target above this is
	// rejected in layer A regardless of whether it meets its own
	// proof-of-work, since it would represent a difficulty drop below
	// network policy.
	PowLimitBits uint32

	// RecognizedHeaderVersions lists the header versions this network will
	// accept; any other version fails layer A.
	RecognizedHeaderVersions []uint32

	// MinFeeRate is the mempool admission floor, in base units per byte,
	// absent any eviction pressure.
	MinFeeRate float64

	// MaxMempoolBytes bounds total serialized size of mempool entries.
	MaxMempoolBytes uint64

	// UTXOCacheSize is the number of UtxoEntry values kept in the
	// in-memory LRU ahead of storage.
	UTXOCacheSize int

	// BloomFilterFalsePositiveRate upper-bounds the configured false
	// positive rate of the UTXO set's bloom filter pair (spec: ≤ 1%).
	BloomFilterFalsePositiveRate float64

	// ExpectedUTXOCount sizes the bloom filter pair; it should track the
	// expected steady-state UTXO set size to keep the false-positive
	// rate near BloomFilterFalsePositiveRate.
	ExpectedUTXOCount uint64
}

// Testnet returns the network parameters for the Supernova test network.
func Testnet() NetworkParams {
	return NetworkParams{
		Name:                         "supernova-testnet",
		GenesisBits:                  GenesisBitsTestnet,
		PowLimitBits:                 GenesisBitsTestnet,
		RecognizedHeaderVersions:     []uint32{1},
		MinFeeRate:                   1.0,
		MaxMempoolBytes:              300 * 1024 * 1024,
		UTXOCacheSize:                500_000,
		BloomFilterFalsePositiveRate: 0.01,
		ExpectedUTXOCount:            10_000_000,
	}
}

// GenesisBitsTestnet is the compact target of the hardcoded testnet
// genesis header.
const GenesisBitsTestnet = 0x207fffff
