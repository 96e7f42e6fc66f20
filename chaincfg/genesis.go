// Package chaincfg assembles the hardcoded genesis block and the network
// parameter bundle that goes with it, the way btcsuite-family nodes keep a
// chaincfg.Params per network rather than deriving genesis at runtime.
package chaincfg

import (
	"github.com/supernova-labs/supernova/blockchain/types"
	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/params"
)

// genesisCoinbaseTag is embedded in the genesis coinbase's signature
// script alongside the height commitment (0, for genesis).
const genesisCoinbaseTag = "Genesis block for Supernova supernova-testnet"

// genesisPubkeyScript is an unspendable placeholder P2PKH-shaped script
// (OP_DUP OP_HASH160 <20 zero bytes> OP_EQUALVERIFY OP_CHECKSIG); the
// genesis output exists to satisfy the data model, not to be redeemed.
var genesisPubkeyScript = []byte{0x76, 0xa9, 0x14,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0x88, 0xac}

// TestnetGenesisMerkleRoot and TestnetGenesisHash are the literal
// constants the Supernova test network is pinned to. They are derived
// from (and must remain consistent with) TestnetGenesisBlock's canonical
// encoding; deviation from either is a consensus fault, not something a
// node may recompute at startup (spec §6, §9 Open Questions: the mining
// path that regenerates genesis on nonce==0 is a deployment error here).
var (
	TestnetGenesisMerkleRoot = mustHash("c4a0d6788a821c713524a6dfef6ecbe7150576fd91677c832ebd541b6f9b93b9")
	TestnetGenesisHash       = mustHash("2f69baf0f72e132cdedf2cd261ed6c6196f1324a55542dc0f109e576346b5a2c")
)

func mustHash(hexStr string) common.Hash {
	h, err := common.HashFromHex(hexStr)
	if err != nil {
		panic(err)
	}
	return h
}

// TestnetGenesisBlock returns the hardcoded Supernova test-network genesis
// block described in spec §6.
func TestnetGenesisBlock() *types.Block {
	coinbase := types.Transaction{
		Version: 1,
		Inputs: []types.TransactionInput{{
			PrevTxHash:      common.ZeroHash,
			PrevOutputIndex: types.CoinbaseOutputIndex,
			SignatureScript: genesisSignatureScript(),
			Sequence:        0xFFFFFFFF,
		}},
		Outputs: []types.TransactionOutput{{
			Amount:       params.BaseSubsidy,
			PubkeyScript: append([]byte(nil), genesisPubkeyScript...),
		}},
		LockTime: 0,
	}

	header := types.BlockHeader{
		Version:       1,
		PrevBlockHash: common.ZeroHash,
		MerkleRoot:    TestnetGenesisMerkleRoot,
		Timestamp:     1730044800,
		Bits:          params.GenesisBitsTestnet,
		Nonce:         0,
	}

	return &types.Block{
		Header:       header,
		Transactions: []types.Transaction{coinbase},
	}
}

func genesisSignatureScript() []byte {
	heightCommitment := []byte{0, 0, 0, 0} // height 0, little-endian
	return append(heightCommitment, []byte(genesisCoinbaseTag)...)
}
