package mempool

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/blockchain/utxo"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/params"
	"github.com/supernova-labs/supernova/script"
	"github.com/supernova-labs/supernova/storage/database"
)

func newTestPool(t *testing.T, opts Options) (*Pool, *utxo.Set) {
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
	pool := New(params.Testnet(), set, sigscheme.DefaultRegistry(), NewNotifier(), opts)
	return pool, set
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

// seedCoin applies a single-output coinbase at height 0 directly to set, far
// enough in the past that its maturity never blocks a spend in these tests,
// and returns the key controlling it plus the outpoint/amount/script needed
// to build a spend.
func seedCoin(t *testing.T, set *utxo.Set, amount uint64) (*btcec.PrivateKey, types.Outpoint, []byte) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubHash := script.Hash160(priv.PubKey().SerializeCompressed())
	pkScript := p2pkhScript(pubHash)

	coinbase := types.Transaction{
		Version: 1,
		Inputs:  []types.TransactionInput{{PrevTxHash: common.ZeroHash, PrevOutputIndex: types.CoinbaseOutputIndex}},
		Outputs: []types.TransactionOutput{{Amount: amount, PubkeyScript: pkScript}},
	}
	block := &types.Block{Transactions: []types.Transaction{coinbase}}
	_, err = set.ApplyBlock(block, 0)
	require.NoError(t, err)
	return priv, types.Outpoint{TxHash: coinbase.Hash(), Index: 0}, pkScript
}

// spendTo builds a signed transaction spending spendOp (controlled by priv,
// locked by prevScript) entirely to a fresh key, paying amount-fee to that
// new output. Such a spend is about 212 bytes, so the tests below that use
// DefaultOptions (1.0 per byte) pay at least 300.
func spendTo(t *testing.T, spendOp types.Outpoint, prevScript []byte, priv *btcec.PrivateKey, amount, fee uint64) (*types.Transaction, *btcec.PrivateKey) {
	t.Helper()
	outPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	outHash := script.Hash160(outPriv.PubKey().SerializeCompressed())

	tx := &types.Transaction{
		Version: 1,
		Inputs:  []types.TransactionInput{{PrevTxHash: spendOp.TxHash, PrevOutputIndex: spendOp.Index, Sequence: finalSequence}},
		Outputs: []types.TransactionOutput{{Amount: amount - fee, PubkeyScript: p2pkhScript(outHash)}},
	}
	tx.Inputs[0].SignatureScript = signInput(t, tx, 0, prevScript, priv)
	return tx, outPriv
}

const finalSequence = 0xffffffff

func TestPoolAdmitAcceptsValidSpend(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv, op, prevScript := seedCoin(t, set, 100_000)
	tx, _ := spendTo(t, op, prevScript, priv, 100_000, 300)

	require.NoError(t, pool.Admit(tx))
	require.Equal(t, 1, pool.Size())

	entry, ok := pool.Get(tx.Hash())
	require.True(t, ok)
	require.Equal(t, uint64(300), entry.Fee)
}

func TestPoolAdmitRejectsDuplicate(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv, op, prevScript := seedCoin(t, set, 100_000)
	tx, _ := spendTo(t, op, prevScript, priv, 100_000, 300)

	require.NoError(t, pool.Admit(tx))
	require.ErrorIs(t, pool.Admit(tx), ErrAlreadyInPool)
}

func TestPoolAdmitRejectsFeeBelowFloor(t *testing.T) {
	opts := DefaultOptions()
	opts.MinFeeRate = 1_000_000 // unreachable floor
	pool, set := newTestPool(t, opts)
	priv, op, prevScript := seedCoin(t, set, 100_000)
	tx, _ := spendTo(t, op, prevScript, priv, 100_000, 200)

	err := pool.Admit(tx)
	require.ErrorIs(t, err, ErrFeeTooLow)
}

func TestPoolAdmitAllowsSpendingUnconfirmedParent(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv, op, prevScript := seedCoin(t, set, 100_000)
	parent, parentOutPriv := spendTo(t, op, prevScript, priv, 100_000, 300)
	require.NoError(t, pool.Admit(parent))

	parentOp := types.Outpoint{TxHash: parent.Hash(), Index: 0}
	parentOutScript := parent.Outputs[0].PubkeyScript
	child, _ := spendTo(t, parentOp, parentOutScript, parentOutPriv, parent.Outputs[0].Amount, 300)

	require.NoError(t, pool.Admit(child))
	require.Equal(t, 2, pool.Size())
}

func TestPoolRemoveWithDescendantsDropsChild(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv, op, prevScript := seedCoin(t, set, 100_000)
	parent, parentOutPriv := spendTo(t, op, prevScript, priv, 100_000, 300)
	require.NoError(t, pool.Admit(parent))

	parentOp := types.Outpoint{TxHash: parent.Hash(), Index: 0}
	child, _ := spendTo(t, parentOp, parent.Outputs[0].PubkeyScript, parentOutPriv, parent.Outputs[0].Amount, 300)
	require.NoError(t, pool.Admit(child))

	pool.RemoveWithDescendants(parent.Hash(), "conflict")
	require.Equal(t, 0, pool.Size())
}

func TestPoolRemoveConfirmedFeedsFeeEstimator(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv, op, prevScript := seedCoin(t, set, 100_000)
	tx, _ := spendTo(t, op, prevScript, priv, 100_000, 500)
	require.NoError(t, pool.Admit(tx))

	pool.RemoveConfirmed([]types.Transaction{*tx})
	require.Equal(t, 0, pool.Size())

	estimate := pool.EstimateFee(1)
	require.GreaterOrEqual(t, estimate, pool.MinFeeRate())
}

func TestPoolGetReadyExcludesDependentChildren(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv, op, prevScript := seedCoin(t, set, 100_000)
	parent, parentOutPriv := spendTo(t, op, prevScript, priv, 100_000, 300)
	require.NoError(t, pool.Admit(parent))

	parentOp := types.Outpoint{TxHash: parent.Hash(), Index: 0}
	child, _ := spendTo(t, parentOp, parent.Outputs[0].PubkeyScript, parentOutPriv, parent.Outputs[0].Amount, 300)
	require.NoError(t, pool.Admit(child))

	ready := pool.GetReady()
	require.Len(t, ready, 1)
	require.Equal(t, parent.Hash(), ready[0].Hash)
}

func TestPoolNotifiesAdmittedAndEvicted(t *testing.T) {
	notifier := NewNotifier()
	admitted := make(chan TxAdmitted, 4)
	evicted := make(chan TxEvicted, 4)
	notifier.SubscribeAdmitted(admitted)
	notifier.SubscribeEvicted(evicted)

	mgr, _, err := database.Open(database.Config{DBType: database.MemoryDB})
	require.NoError(t, err)
	set, err := utxo.New(mgr, utxo.Options{CacheSize: 1024, ExpectedUTXOCount: 1024, ExpectedSpentCount: 1024, FilterFalsePositive: 0.01})
	require.NoError(t, err)
	pool := New(params.Testnet(), set, sigscheme.DefaultRegistry(), notifier, DefaultOptions())

	priv, op, prevScript := seedCoin(t, set, 100_000)
	tx, _ := spendTo(t, op, prevScript, priv, 100_000, 300)
	require.NoError(t, pool.Admit(tx))

	select {
	case ev := <-admitted:
		require.Equal(t, tx.Hash(), ev.Hash)
	case <-time.After(time.Second):
		t.Fatal("expected admitted notification")
	}

	pool.RemoveWithDescendants(tx.Hash(), "test")
	select {
	case ev := <-evicted:
		require.Equal(t, tx.Hash(), ev.Hash)
	case <-time.After(time.Second):
		t.Fatal("expected evicted notification")
	}
}
