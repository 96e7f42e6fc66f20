package blockchain

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/blockchain/utxo"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/consensus"
	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/params"
	"github.com/supernova-labs/supernova/storage/database"
)

// fakeEngine always accepts a header's proof-of-work and hands out a
// caller-chosen, deterministic per-block work value. Real mining
// difficulty is consensus's concern to test; chain-state tests only need
// a collaborator whose accepted/rejected and work outcomes are pinned.
type fakeEngine struct {
	work uint64
}

func (e fakeEngine) VerifyHeaderPoW(*types.BlockHeader) error { return nil }

func (e fakeEngine) Target(*types.BlockHeader) (*consensus.ChainWorkTarget, error) {
	return &consensus.ChainWorkTarget{Work: uint256.NewInt(e.work)}, nil
}

func newTestChainState(t *testing.T, pool TransactionPool) (*ChainState, *utxo.Set, *database.Manager) {
	t.Helper()
	mgr, _, err := database.Open(database.Config{DBType: database.MemoryDB})
	require.NoError(t, err)
	set, err := utxo.New(mgr, utxo.Options{
		CacheSize:           1024,
		ExpectedUTXOCount:   1024,
		ExpectedSpentCount:  1024,
		FilterFalsePositive: 0.01,
	})
	require.NoError(t, err)

	cs := New(Deps{
		Manager:  mgr,
		UTXOSet:  set,
		Net:      params.Testnet(),
		Engine:   fakeEngine{work: 1},
		Registry: sigscheme.DefaultRegistry(),
		Notifier: NewNotifier(),
		Pool:     pool,
	})
	return cs, set, mgr
}

// coinbaseFor builds a structurally-valid coinbase transaction paying the
// exact expected reward for height, split miner/treasury, with a unique
// output script per block (seed) so distinct blocks never collide on
// transaction hash.
func coinbaseFor(height uint32, seed byte) types.Transaction {
	expected, _ := consensus.ExpectedReward(height, 0)
	minerShare, treasuryShare := consensus.TreasurySplit(expected)
	return types.Transaction{
		Version: 1,
		Inputs: []types.TransactionInput{{
			PrevTxHash:      common.ZeroHash,
			PrevOutputIndex: types.CoinbaseOutputIndex,
		}},
		Outputs: []types.TransactionOutput{
			{Amount: minerShare, PubkeyScript: []byte{0x51, seed}},
			{Amount: treasuryShare, PubkeyScript: []byte{0x51, seed + 1}},
		},
	}
}

func buildBlock(t *testing.T, parent *types.BlockHeader, height uint32, seed byte, ts uint64) *types.Block {
	t.Helper()
	block := &types.Block{
		Header: types.BlockHeader{
			Version:       1,
			PrevBlockHash: common.ZeroHash,
			Timestamp:     ts,
			Bits:          0x207fffff,
			Nonce:         uint32(seed),
		},
		Transactions: []types.Transaction{coinbaseFor(height, seed)},
	}
	if parent != nil {
		block.Header.PrevBlockHash = parent.Hash()
	}
	block.Header.MerkleRoot = block.ComputeMerkleRoot()
	return block
}

func acceptGenesis(t *testing.T, cs *ChainState) *types.Block {
	t.Helper()
	genesis := buildBlock(t, nil, 0, 0, 1_700_000_000)
	require.NoError(t, cs.AcceptGenesis(genesis))
	return genesis
}

func TestChainStateAcceptGenesisSetsTip(t *testing.T) {
	cs, _, _ := newTestChainState(t, nil)
	genesis := acceptGenesis(t, cs)

	tip, height, work := cs.BestTip()
	require.Equal(t, genesis.Hash(), tip)
	require.Equal(t, uint32(0), height)
	require.Equal(t, uint64(1), work.Value().Uint64()) // genesis itself carries one unit of fake work
}

func TestChainStateExtendsTipOnDirectChild(t *testing.T) {
	now = func() time.Time { return time.Unix(1_700_100_000, 0) }
	defer func() { now = time.Now }()

	cs, set, _ := newTestChainState(t, nil)
	genesis := acceptGenesis(t, cs)

	next := buildBlock(t, &genesis.Header, 1, 1, 1_700_000_600)
	require.NoError(t, cs.ProcessBlock(next))

	tip, height, work := cs.BestTip()
	require.Equal(t, next.Hash(), tip)
	require.Equal(t, uint32(1), height)
	require.Equal(t, uint64(2), work.Value().Uint64())

	entry, err := set.Get(types.Outpoint{TxHash: next.Transactions[0].Hash(), Index: 0})
	require.NoError(t, err)
	require.Equal(t, uint32(1), entry.Height)
}

func TestChainStateReorgsToHeavierFork(t *testing.T) {
	now = func() time.Time { return time.Unix(1_700_200_000, 0) }
	defer func() { now = time.Now }()

	cs, set, _ := newTestChainState(t, nil)
	genesis := acceptGenesis(t, cs)

	// Short initial chain: genesis -> a1.
	a1 := buildBlock(t, &genesis.Header, 1, 1, 1_700_000_600)
	require.NoError(t, cs.ProcessBlock(a1))

	tip, height, _ := cs.BestTip()
	require.Equal(t, a1.Hash(), tip)
	require.Equal(t, uint32(1), height)

	// Competing fork from genesis: genesis -> b1 -> b2, arriving after a1
	// and carrying more accumulated work once both blocks are in.
	b1 := buildBlock(t, &genesis.Header, 1, 10, 1_700_000_500)
	require.NoError(t, cs.ProcessBlock(b1))

	// b1 alone ties a1's work and loses the tiebreak unless its hash is
	// smaller; process b2 so the fork strictly outweighs the active chain
	// regardless of the tie-break direction.
	b2 := buildBlock(t, &b1.Header, 2, 11, 1_700_000_560)
	require.NoError(t, cs.ProcessBlock(b2))

	tip, height, work := cs.BestTip()
	require.Equal(t, b2.Hash(), tip)
	require.Equal(t, uint32(2), height)
	require.Equal(t, uint64(3), work.Value().Uint64())

	// a1's coinbase output must have been reverted out of the live set.
	_, err := set.Get(types.Outpoint{TxHash: a1.Transactions[0].Hash(), Index: 0})
	require.ErrorIs(t, err, utxo.ErrNotFound)

	// b1 and b2's coinbase outputs must now be present.
	_, err = set.Get(types.Outpoint{TxHash: b1.Transactions[0].Hash(), Index: 0})
	require.NoError(t, err)
	_, err = set.Get(types.Outpoint{TxHash: b2.Transactions[0].Hash(), Index: 0})
	require.NoError(t, err)
}

type fakePool struct {
	resubmitted []common.Hash
	confirmed   []common.Hash
}

func (p *fakePool) Resubmit(txs []types.Transaction) {
	for _, tx := range txs {
		p.resubmitted = append(p.resubmitted, tx.Hash())
	}
}

func (p *fakePool) RemoveConfirmed(txs []types.Transaction) {
	for _, tx := range txs {
		p.confirmed = append(p.confirmed, tx.Hash())
	}
}

func TestChainStateNotifiesPoolOnExtendAndReorg(t *testing.T) {
	now = func() time.Time { return time.Unix(1_700_300_000, 0) }
	defer func() { now = time.Now }()

	pool := &fakePool{}
	cs, _, _ := newTestChainState(t, pool)
	genesis := acceptGenesis(t, cs)

	a1 := buildBlock(t, &genesis.Header, 1, 1, 1_700_000_600)
	require.NoError(t, cs.ProcessBlock(a1))
	require.Contains(t, pool.confirmed, a1.Transactions[0].Hash())

	b1 := buildBlock(t, &genesis.Header, 1, 10, 1_700_000_500)
	require.NoError(t, cs.ProcessBlock(b1))
	b2 := buildBlock(t, &b1.Header, 2, 11, 1_700_000_560)
	require.NoError(t, cs.ProcessBlock(b2))

	// a1 holds only its coinbase, which a reorg never hands back to the pool.
	require.NotContains(t, pool.resubmitted, a1.Transactions[0].Hash())
	require.Contains(t, pool.confirmed, b2.Transactions[0].Hash())
}

// failingPoWEngine always rejects a header's proof-of-work, regardless of
// bits or nonce, to exercise AcceptGenesis's PoW check in isolation from
// Target's chainwork bookkeeping.
var errFailingPoW = errors.New("test: proof of work always fails")

type failingPoWEngine struct{ fakeEngine }

func (failingPoWEngine) VerifyHeaderPoW(*types.BlockHeader) error {
	return errFailingPoW
}

func TestChainStateAcceptGenesisChecksProofOfWork(t *testing.T) {
	mgr, _, err := database.Open(database.Config{DBType: database.MemoryDB})
	require.NoError(t, err)
	set, err := utxo.New(mgr, utxo.Options{
		CacheSize:           1024,
		ExpectedUTXOCount:   1024,
		ExpectedSpentCount:  1024,
		FilterFalsePositive: 0.01,
	})
	require.NoError(t, err)

	cs := New(Deps{
		Manager:  mgr,
		UTXOSet:  set,
		Net:      params.Testnet(),
		Engine:   failingPoWEngine{fakeEngine{work: 1}},
		Registry: sigscheme.DefaultRegistry(),
		Notifier: NewNotifier(),
	})

	genesis := buildBlock(t, nil, 0, 0, 1_700_000_000)
	err = cs.AcceptGenesis(genesis)
	require.Error(t, err)

	_, err = mgr.ReadBestHash()
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestChainStateBuffersUnknownParentAndReplaysOnceParentArrives(t *testing.T) {
	now = func() time.Time { return time.Unix(1_700_400_000, 0) }
	defer func() { now = time.Now }()

	cs, _, mgr := newTestChainState(t, nil)
	genesis := acceptGenesis(t, cs)

	child := buildBlock(t, &genesis.Header, 1, 1, 1_700_000_600)
	grandchild := buildBlock(t, &child.Header, 2, 2, 1_700_000_700)

	// grandchild arrives first: its parent is not yet known, so it must be
	// buffered rather than rejected outright.
	require.NoError(t, cs.ProcessBlock(grandchild))

	tip, height, _ := cs.BestTip()
	require.Equal(t, genesis.Hash(), tip)
	require.Equal(t, uint32(0), height)

	pending, err := mgr.PendingBlocksFor(child.Hash())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, grandchild.Hash(), pending[0].Hash())

	// child arrives, completing the chain; grandchild should be replayed
	// automatically and the tip should advance past both blocks.
	require.NoError(t, cs.ProcessBlock(child))

	tip, height, _ = cs.BestTip()
	require.Equal(t, grandchild.Hash(), tip)
	require.Equal(t, uint32(2), height)

	pending, err = mgr.PendingBlocksFor(child.Hash())
	require.NoError(t, err)
	require.Empty(t, pending)
}
