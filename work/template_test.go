package work

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/supernova-labs/supernova/blockchain"
	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/blockchain/utxo"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/consensus"
	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/mempool"
	"github.com/supernova-labs/supernova/params"
	"github.com/supernova-labs/supernova/script"
	"github.com/supernova-labs/supernova/storage/database"
)

// fakeEngine always accepts PoW and reports a fixed per-block work value,
// the same stub shape blockchain's own tests use to avoid depending on
// real proof-of-work's probabilistic timing.
type fakeEngine struct{ work uint64 }

func (e fakeEngine) VerifyHeaderPoW(*types.BlockHeader) error { return nil }

func (e fakeEngine) Target(*types.BlockHeader) (*consensus.ChainWorkTarget, error) {
	return &consensus.ChainWorkTarget{Work: uint256.NewInt(e.work)}, nil
}

func p2pkhScript(pubkeyHash []byte) []byte {
	s := []byte{0x76, 0xa9, 0x14}
	s = append(s, pubkeyHash...)
	return append(s, 0x88, 0xac)
}

func signInput(t *testing.T, tx *types.Transaction, index int, prevScript []byte, priv *btcec.PrivateKey) []byte {
	t.Helper()
	msg := tx.SignatureHash(index, prevScript)
	sig := ecdsa.Sign(priv, msg.Bytes())
	der := sig.Serialize()
	blob := append([]byte{byte(sigscheme.Secp256k1)}, der...)

	var sigScript []byte
	sigScript = append(sigScript, byte(len(blob)))
	sigScript = append(sigScript, blob...)
	pub := priv.PubKey().SerializeCompressed()
	sigScript = append(sigScript, byte(len(pub)))
	sigScript = append(sigScript, pub...)
	return sigScript
}

func setup(t *testing.T) (*blockchain.ChainState, *mempool.Pool, *types.Block) {
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

	net := params.Testnet()
	cs := blockchain.New(blockchain.Deps{
		Manager:  mgr,
		UTXOSet:  set,
		Net:      net,
		Engine:   fakeEngine{work: 1},
		Registry: sigscheme.DefaultRegistry(),
		Notifier: blockchain.NewNotifier(),
	})

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubHash := script.Hash160(priv.PubKey().SerializeCompressed())
	coinbase := types.Transaction{
		Version: 1,
		Inputs:  []types.TransactionInput{{PrevTxHash: common.ZeroHash, PrevOutputIndex: types.CoinbaseOutputIndex}},
		Outputs: []types.TransactionOutput{{Amount: 50_0000_0000, PubkeyScript: p2pkhScript(pubHash)}},
	}
	genesis := &types.Block{
		Header: types.BlockHeader{
			Version:   1,
			Timestamp: 1_700_000_000,
			Bits:      net.PowLimitBits,
		},
		Transactions: []types.Transaction{coinbase},
	}
	genesis.Header.MerkleRoot = genesis.ComputeMerkleRoot()
	require.NoError(t, cs.AcceptGenesis(genesis))

	pool := mempool.New(net, set, sigscheme.DefaultRegistry(), mempool.NewNotifier(), mempool.DefaultOptions())

	spendOp := types.Outpoint{TxHash: coinbase.Hash(), Index: 0}
	spendTx := &types.Transaction{
		Version: 1,
		Inputs:  []types.TransactionInput{{PrevTxHash: spendOp.TxHash, PrevOutputIndex: 0, Sequence: 0xffffffff}},
		Outputs: []types.TransactionOutput{{Amount: 49_0000_0000, PubkeyScript: p2pkhScript(pubHash)}},
	}
	spendTx.Inputs[0].SignatureScript = signInput(t, spendTx, 0, p2pkhScript(pubHash), priv)
	require.NoError(t, pool.Admit(spendTx))

	return cs, pool, genesis
}

func TestBuildBlockTemplateIncludesMempoolTransactionAndReward(t *testing.T) {
	now = func() uint64 { return 1_700_000_600 }
	defer func() { now = func() uint64 { return uint64(time.Now().Unix()) } }()

	cs, pool, genesis := setup(t)
	builder := NewBuilder(cs, pool, params.Testnet())

	tmpl, err := builder.BuildBlockTemplate([]byte{0x51, 0xaa}, []byte{0x51, 0xbb}, Limits{MaxBytes: 1 << 20})
	require.NoError(t, err)

	require.Len(t, tmpl.Transactions, 2) // coinbase + the one pooled spend
	require.True(t, tmpl.Transactions[0].IsCoinbase())
	require.Equal(t, genesis.Hash(), tmpl.HeaderSkeleton.PrevBlockHash)

	expectedSubsidy := consensus.Subsidy(1)
	require.Equal(t, expectedSubsidy+1_0000_0000, tmpl.ExpectedReward) // subsidy plus the pooled tx's 1-NOVA fee

	minerShare, treasuryShare := consensus.TreasurySplit(tmpl.ExpectedReward)
	require.Equal(t, minerShare, tmpl.Transactions[0].Outputs[0].Amount)
	require.Equal(t, treasuryShare, tmpl.Transactions[0].Outputs[1].Amount)
}

func TestBuildBlockTemplateRequiresPayoutScripts(t *testing.T) {
	cs, pool, _ := setup(t)
	builder := NewBuilder(cs, pool, params.Testnet())

	_, err := builder.BuildBlockTemplate(nil, []byte{0x51}, Limits{MaxBytes: 1 << 20})
	require.ErrorIs(t, err, ErrNoMinerScript)

	_, err = builder.BuildBlockTemplate([]byte{0x51}, nil, Limits{MaxBytes: 1 << 20})
	require.ErrorIs(t, err, ErrNoTreasuryScript)
}

func TestSubmitSolvedBlockExtendsChain(t *testing.T) {
	now = func() uint64 { return 1_700_000_600 }
	defer func() { now = func() uint64 { return uint64(time.Now().Unix()) } }()

	cs, pool, _ := setup(t)
	builder := NewBuilder(cs, pool, params.Testnet())

	tmpl, err := builder.BuildBlockTemplate([]byte{0x51, 0xaa}, []byte{0x51, 0xbb}, Limits{MaxBytes: 1 << 20})
	require.NoError(t, err)

	block := &types.Block{
		Header: types.BlockHeader{
			Version:       tmpl.HeaderSkeleton.Version,
			PrevBlockHash: tmpl.HeaderSkeleton.PrevBlockHash,
			MerkleRoot:    tmpl.HeaderSkeleton.MerkleRoot,
			Timestamp:     tmpl.HeaderSkeleton.Timestamp,
			Bits:          tmpl.HeaderSkeleton.Bits,
			Nonce:         1,
		},
		Transactions: tmpl.Transactions,
	}

	require.NoError(t, builder.SubmitSolvedBlock(block))

	tip, height, _ := cs.BestTip()
	require.Equal(t, block.Hash(), tip)
	require.Equal(t, uint32(1), height)
}
