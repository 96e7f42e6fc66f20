package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/supernova-labs/supernova/blockchain/types"
)

func TestSelectForBlockOrdersAncestorsBeforeDescendants(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv, op, prevScript := seedCoin(t, set, 100_000)
	parent, parentOutPriv := spendTo(t, op, prevScript, priv, 100_000, 1000)
	require.NoError(t, pool.Admit(parent))

	parentOp := types.Outpoint{TxHash: parent.Hash(), Index: 0}
	child, _ := spendTo(t, parentOp, parent.Outputs[0].PubkeyScript, parentOutPriv, parent.Outputs[0].Amount, 300)
	require.NoError(t, pool.Admit(child))

	selected, err := pool.SelectForBlock(1 << 20)
	require.NoError(t, err)
	require.Len(t, selected, 2)

	positions := map[string]int{}
	for i, tx := range selected {
		positions[tx.Hash().String()] = i
	}
	require.Less(t, positions[parent.Hash().String()], positions[child.Hash().String()])
}

func TestSelectForBlockRespectsByteLimit(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv1, op1, prevScript1 := seedCoin(t, set, 100_000)
	tx1, _ := spendTo(t, op1, prevScript1, priv1, 100_000, 500)
	require.NoError(t, pool.Admit(tx1))

	priv2, op2, prevScript2 := seedCoin(t, set, 100_000)
	tx2, _ := spendTo(t, op2, prevScript2, priv2, 100_000, 500)
	require.NoError(t, pool.Admit(tx2))

	selected, err := pool.SelectForBlock(uint64(tx1.SerializedSize()))
	require.NoError(t, err)
	require.Len(t, selected, 1)
}

func TestPackageFeeRateIncludesAncestors(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv, op, prevScript := seedCoin(t, set, 100_000)
	parent, parentOutPriv := spendTo(t, op, prevScript, priv, 100_000, 1000)
	require.NoError(t, pool.Admit(parent))

	parentOp := types.Outpoint{TxHash: parent.Hash(), Index: 0}
	// The child alone just clears the floor; its parent pays over three times
	// its rate.
	child, _ := spendTo(t, parentOp, parent.Outputs[0].PubkeyScript, parentOutPriv, parent.Outputs[0].Amount, 300)
	require.NoError(t, pool.Admit(child))

	childRate, err := pool.PackageFeeRate(child.Hash())
	require.NoError(t, err)

	entry, ok := pool.Get(child.Hash())
	require.True(t, ok)
	require.Greater(t, childRate, entry.FeeRate) // package includes parent's fee, so it outranks the child alone
}

func TestTopologicalOrderNeverPlacesChildBeforeParent(t *testing.T) {
	pool, set := newTestPool(t, DefaultOptions())
	priv, op, prevScript := seedCoin(t, set, 100_000)
	parent, parentOutPriv := spendTo(t, op, prevScript, priv, 100_000, 1000)
	require.NoError(t, pool.Admit(parent))

	parentOp := types.Outpoint{TxHash: parent.Hash(), Index: 0}
	child, _ := spendTo(t, parentOp, parent.Outputs[0].PubkeyScript, parentOutPriv, parent.Outputs[0].Amount, 300)
	require.NoError(t, pool.Admit(child))

	order, err := pool.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, 2)
	require.Equal(t, parent.Hash(), order[0].Hash)
	require.Equal(t, child.Hash(), order[1].Hash)
}
