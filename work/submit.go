package work

import "github.com/supernova-labs/supernova/blockchain/types"

// SubmitSolvedBlock hands a miner's completed block (the template's
// transactions under a header with a nonce the miner found) to the block
// processor. It does nothing a direct blockchain.ChainState.ProcessBlock
// call wouldn't: the indirection exists so a miner depends on the
// narrower work package rather than the whole chain-state surface.
func (b *Builder) SubmitSolvedBlock(block *types.Block) error {
	return b.chain.ProcessBlock(block)
}
