// Package work builds block templates for an external miner and submits
// the miner's solved blocks back into the chain, the glue between
// mempool selection and the block processor described by
// build_block_template/submit_solved_block. It runs no loop of its own:
// the miner calls BuildBlockTemplate and SubmitSolvedBlock synchronously,
// the same thread-safe, no-implicit-event-loop shape as the rest of the
// core.
package work

import (
	"fmt"
	"time"

	"github.com/supernova-labs/supernova/blockchain"
	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/consensus"
	"github.com/supernova-labs/supernova/mempool"
	"github.com/supernova-labs/supernova/params"
)

// HeaderSkeleton is the unsolved portion of a candidate header: everything
// except the nonce the miner searches over.
type HeaderSkeleton struct {
	Version       uint32
	PrevBlockHash common.Hash
	MerkleRoot    common.Hash
	Timestamp     uint64
	Bits          uint32
}

// Template is the result of build_block_template: a header skeleton, the
// ordered transaction list (coinbase first), and the reward the coinbase
// is expected to create.
type Template struct {
	HeaderSkeleton HeaderSkeleton
	Transactions   []types.Transaction
	ExpectedReward uint64
}

// Limits bounds a template's assembly.
type Limits struct {
	// MaxBytes bounds the combined serialized size of the non-coinbase
	// transactions selected from the mempool.
	MaxBytes uint64
}

// now is a seam so tests can pin a template's timestamp.
var now = func() uint64 { return uint64(time.Now().Unix()) }

// Builder constructs block templates against a chain state and mempool.
type Builder struct {
	chain *blockchain.ChainState
	pool  *mempool.Pool
	net   params.NetworkParams
}

// NewBuilder returns a Builder reading from chain and pool.
func NewBuilder(chain *blockchain.ChainState, pool *mempool.Pool, net params.NetworkParams) *Builder {
	return &Builder{chain: chain, pool: pool, net: net}
}

// BuildBlockTemplate selects mempool transactions within limits, builds a
// coinbase paying the expected reward split between minerScript and
// treasuryScript, and returns the resulting header skeleton plus
// transaction list. The header's bits field is the network's fixed
// proof-of-work policy; Supernova's consensus performs no difficulty
// retargeting.
func (b *Builder) BuildBlockTemplate(minerScript, treasuryScript []byte, limits Limits) (*Template, error) {
	if len(minerScript) == 0 {
		return nil, ErrNoMinerScript
	}
	if len(treasuryScript) == 0 {
		return nil, ErrNoTreasuryScript
	}

	tipHash, tipHeight, _ := b.chain.BestTip()
	height := tipHeight + 1

	selected, err := b.pool.SelectForBlock(limits.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("work: select mempool transactions: %w", err)
	}

	var totalFees uint64
	for _, tx := range selected {
		if entry, ok := b.pool.Get(tx.Hash()); ok {
			totalFees += entry.Fee
		}
	}

	reward, ok := consensus.ExpectedReward(height, totalFees)
	if !ok {
		return nil, ErrRewardOverflow
	}
	minerShare, treasuryShare := consensus.TreasurySplit(reward)

	coinbase := types.Transaction{
		Version: 1,
		Inputs: []types.TransactionInput{{
			PrevTxHash:      common.ZeroHash,
			PrevOutputIndex: types.CoinbaseOutputIndex,
		}},
		Outputs: []types.TransactionOutput{
			{Amount: minerShare, PubkeyScript: minerScript},
			{Amount: treasuryShare, PubkeyScript: treasuryScript},
		},
	}

	txs := make([]types.Transaction, 0, len(selected)+1)
	txs = append(txs, coinbase)
	for _, tx := range selected {
		txs = append(txs, *tx)
	}

	block := &types.Block{
		Header: types.BlockHeader{
			Version:       1,
			PrevBlockHash: tipHash,
			Timestamp:     candidateTimestamp(b.chain.MedianTimePastAtTip()),
			Bits:          b.net.PowLimitBits,
		},
		Transactions: txs,
	}
	block.Header.MerkleRoot = block.ComputeMerkleRoot()

	return &Template{
		HeaderSkeleton: HeaderSkeleton{
			Version:       block.Header.Version,
			PrevBlockHash: block.Header.PrevBlockHash,
			MerkleRoot:    block.Header.MerkleRoot,
			Timestamp:     block.Header.Timestamp,
			Bits:          block.Header.Bits,
		},
		Transactions:   txs,
		ExpectedReward: reward,
	}, nil
}

// candidateTimestamp picks the later of wall-clock time and
// medianTimePast+1, so a template's timestamp always clears the
// validator's lower bound even if the local clock lags the chain.
func candidateTimestamp(medianTimePast uint64) uint64 {
	ts := now()
	if ts <= medianTimePast {
		return medianTimePast + 1
	}
	return ts
}
