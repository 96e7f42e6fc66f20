package utxo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/storage/database"
)

func newTestSet(t *testing.T) (*Set, *database.Manager) {
	t.Helper()
	mgr, _, err := database.Open(database.Config{DBType: database.MemoryDB})
	require.NoError(t, err)
	set, err := New(mgr, Options{
		CacheSize:           1024,
		ExpectedUTXOCount:   1024,
		ExpectedSpentCount:  1024,
		FilterFalsePositive: 0.01,
	})
	require.NoError(t, err)
	return set, mgr
}

func coinbaseBlock(reward uint64, script []byte, height uint32) *types.Block {
	tx := types.Transaction{
		Version: 1,
		Inputs: []types.TransactionInput{{
			PrevTxHash:      common.ZeroHash,
			PrevOutputIndex: types.CoinbaseOutputIndex,
		}},
		Outputs: []types.TransactionOutput{{Amount: reward, PubkeyScript: script}},
	}
	return &types.Block{Transactions: []types.Transaction{tx}}
}

func TestApplyBlockCreatesCoinbaseOutput(t *testing.T) {
	set, _ := newTestSet(t)
	block := coinbaseBlock(50_0000_0000, []byte{0x51}, 0)

	undo, err := set.ApplyBlock(block, 0)
	require.NoError(t, err)
	require.Empty(t, undo.Spent)

	op := types.Outpoint{TxHash: block.Transactions[0].Hash(), Index: 0}
	entry, err := set.Get(op)
	require.NoError(t, err)
	require.Equal(t, uint64(50_0000_0000), entry.Amount)
	require.True(t, entry.IsCoinbase)
}

func TestSpendingImmatureCoinbaseFails(t *testing.T) {
	set, _ := newTestSet(t)
	block := coinbaseBlock(50_0000_0000, []byte{0x51}, 0)
	_, err := set.ApplyBlock(block, 0)
	require.NoError(t, err)

	coinbaseOp := types.Outpoint{TxHash: block.Transactions[0].Hash(), Index: 0}
	spendTx := types.Transaction{
		Version: 1,
		Inputs:  []types.TransactionInput{{PrevTxHash: coinbaseOp.TxHash, PrevOutputIndex: 0}},
		Outputs: []types.TransactionOutput{{Amount: 1, PubkeyScript: []byte{0x51}}},
	}
	spendBlock := &types.Block{Transactions: []types.Transaction{
		coinbaseBlock(0, nil, 1).Transactions[0],
		spendTx,
	}}

	_, err = set.ApplyBlock(spendBlock, 1)
	require.ErrorIs(t, err, ErrImmatureCoinbase)
}

func TestApplyThenRevertRestoresPriorState(t *testing.T) {
	set, _ := newTestSet(t)
	genesis := coinbaseBlock(50_0000_0000, []byte{0x51}, 0)
	_, err := set.ApplyBlock(genesis, 0)
	require.NoError(t, err)

	spendableOp := types.Outpoint{TxHash: genesis.Transactions[0].Hash(), Index: 0}

	spendTx := types.Transaction{
		Version: 1,
		Inputs:  []types.TransactionInput{{PrevTxHash: spendableOp.TxHash, PrevOutputIndex: 0}},
		Outputs: []types.TransactionOutput{{Amount: 49_0000_0000, PubkeyScript: []byte{0x51}}},
	}
	block := &types.Block{Transactions: []types.Transaction{
		coinbaseBlock(0, []byte{0x51}, 200).Transactions[0],
		spendTx,
	}}

	undo, err := set.ApplyBlock(block, 200)
	require.NoError(t, err)
	require.Len(t, undo.Spent, 1)

	_, err = set.Get(spendableOp)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, set.RevertBlock(block, undo))

	restored, err := set.Get(spendableOp)
	require.NoError(t, err)
	require.Equal(t, uint64(50_0000_0000), restored.Amount)

	newOutputOp := types.Outpoint{TxHash: block.Transactions[1].Hash(), Index: 0}
	_, err = set.Get(newOutputOp)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDoubleSpendWithinBlockRejected(t *testing.T) {
	set, _ := newTestSet(t)
	genesis := coinbaseBlock(50_0000_0000, []byte{0x51}, 0)
	_, err := set.ApplyBlock(genesis, 0)
	require.NoError(t, err)
	op := types.Outpoint{TxHash: genesis.Transactions[0].Hash(), Index: 0}

	spendOnce := func() types.Transaction {
		return types.Transaction{
			Version: 1,
			Inputs:  []types.TransactionInput{{PrevTxHash: op.TxHash, PrevOutputIndex: 0}},
			Outputs: []types.TransactionOutput{{Amount: 1, PubkeyScript: []byte{0x51}}},
		}
	}

	block := &types.Block{Transactions: []types.Transaction{
		coinbaseBlock(0, nil, 200).Transactions[0],
		spendOnce(),
		spendOnce(),
	}}

	_, err = set.ApplyBlock(block, 200)
	require.ErrorIs(t, err, ErrAlreadySpentInBlock)
}
