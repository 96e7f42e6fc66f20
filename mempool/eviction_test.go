package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/supernova-labs/supernova/blockchain/utxo"
	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/params"
	"github.com/supernova-labs/supernova/storage/database"
)

func TestMakeRoomEvictsLowerFeeRatePackage(t *testing.T) {
	mgr, _, err := database.Open(database.Config{DBType: database.MemoryDB})
	require.NoError(t, err)
	set, err := utxo.New(mgr, utxo.Options{CacheSize: 1024, ExpectedUTXOCount: 1024, ExpectedSpentCount: 1024, FilterFalsePositive: 0.01})
	require.NoError(t, err)

	priv1, op1, prevScript1 := seedCoin(t, set, 100_000)
	lowFee, _ := spendTo(t, op1, prevScript1, priv1, 100_000, 100)

	// MaxBytes holds lowFee but not a second spend of about the same size
	// (signature encodings differ by a byte or so), so admitting highFee
	// forces an eviction decision and highFee fits once lowFee is gone.
	opts := Options{MinFeeRate: 0, MaxBytes: uint64(lowFee.SerializedSize()) * 3 / 2}
	pool := New(params.Testnet(), set, sigscheme.DefaultRegistry(), NewNotifier(), opts)
	require.NoError(t, pool.Admit(lowFee))

	priv2, op2, prevScript2 := seedCoin(t, set, 100_000)
	highFee, _ := spendTo(t, op2, prevScript2, priv2, 100_000, 50_000)

	require.NoError(t, pool.Admit(highFee))
	require.Equal(t, 1, pool.Size())
	_, ok := pool.Get(lowFee.Hash())
	require.False(t, ok)
	_, ok = pool.Get(highFee.Hash())
	require.True(t, ok)
}

func TestMakeRoomRefusesWhenNothingCheaperToEvict(t *testing.T) {
	mgr, _, err := database.Open(database.Config{DBType: database.MemoryDB})
	require.NoError(t, err)
	set, err := utxo.New(mgr, utxo.Options{CacheSize: 1024, ExpectedUTXOCount: 1024, ExpectedSpentCount: 1024, FilterFalsePositive: 0.01})
	require.NoError(t, err)

	priv1, op1, prevScript1 := seedCoin(t, set, 100_000)
	highFee, _ := spendTo(t, op1, prevScript1, priv1, 100_000, 50_000)

	opts := Options{MinFeeRate: 0, MaxBytes: uint64(highFee.SerializedSize())}
	pool := New(params.Testnet(), set, sigscheme.DefaultRegistry(), NewNotifier(), opts)
	require.NoError(t, pool.Admit(highFee))

	priv2, op2, prevScript2 := seedCoin(t, set, 100_000)
	lowFee, _ := spendTo(t, op2, prevScript2, priv2, 100_000, 100)

	err = pool.Admit(lowFee)
	require.ErrorIs(t, err, ErrMempoolFull)
	require.Equal(t, 1, pool.Size())
	_, ok := pool.Get(highFee.Hash())
	require.True(t, ok)
}
