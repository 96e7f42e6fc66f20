package database

// Key prefixes partition the single keyspace every Store exposes, the
// same convention the teacher's accessors_chain.go uses (fixed-prefix
// byte slices concatenated with a hash or height).
var (
	prefixUTXO       = []byte("u")
	prefixBlock      = []byte("b")
	prefixHeader     = []byte("h")
	prefixHeightHash = []byte("n") // height -> canonical block hash
	prefixMeta       = []byte("m")
	prefixUndo       = []byte("o") // block hash -> serialized UndoSet
	prefixPending    = []byte("p") // parent_hash + block_hash -> serialized block, awaiting its parent
)

const (
	metaBestHash            = "best_hash"
	metaBestHeight          = "best_height"
	metaChainWork           = "chainwork"
	metaLastCleanShutdown   = "last_clean_shutdown"
	metaShutdownInProgress  = "shutdown_in_progress"
	metaOperationInProgress = "operation_in_progress"
)

func utxoKey(outpointKey []byte) []byte {
	return append(append([]byte{}, prefixUTXO...), outpointKey...)
}

func blockKey(hash []byte) []byte {
	return append(append([]byte{}, prefixBlock...), hash...)
}

func headerKey(hash []byte) []byte {
	return append(append([]byte{}, prefixHeader...), hash...)
}

func heightKey(height uint32) []byte {
	key := make([]byte, len(prefixHeightHash)+4)
	copy(key, prefixHeightHash)
	key[len(prefixHeightHash)+0] = byte(height >> 24)
	key[len(prefixHeightHash)+1] = byte(height >> 16)
	key[len(prefixHeightHash)+2] = byte(height >> 8)
	key[len(prefixHeightHash)+3] = byte(height)
	return key
}

func metaKey(name string) []byte {
	return append(append([]byte{}, prefixMeta...), []byte(name)...)
}

func undoKey(hash []byte) []byte {
	return append(append([]byte{}, prefixUndo...), hash...)
}

func pendingKey(parentHash, blockHash []byte) []byte {
	key := make([]byte, 0, len(prefixPending)+len(parentHash)+len(blockHash))
	key = append(key, prefixPending...)
	key = append(key, parentHash...)
	key = append(key, blockHash...)
	return key
}

func pendingPrefixForParent(parentHash []byte) []byte {
	return append(append([]byte{}, prefixPending...), parentHash...)
}

// UTXOKey, HeaderKey, BlockKey, HeightKey, and UndoKey expose the
// key-building functions above for packages (blockchain/utxo, blockchain)
// that need to batch raw writes through WriteBatch rather than the
// Manager's convenience accessors. BestHashKey/BestHeightKey/ChainWorkKey
// do the same for the three chain-metadata meta keys a reorg or block
// acceptance must write atomically alongside the UTXO mutation.
func UTXOKey(outpointBytes []byte) []byte { return utxoKey(outpointBytes) }
func HeaderKey(hashBytes []byte) []byte   { return headerKey(hashBytes) }
func BlockKey(hashBytes []byte) []byte    { return blockKey(hashBytes) }
func HeightKey(height uint32) []byte      { return heightKey(height) }
func UndoKey(hashBytes []byte) []byte     { return undoKey(hashBytes) }
func BestHashKey() []byte                 { return metaKey(metaBestHash) }
func BestHeightKey() []byte               { return metaKey(metaBestHeight) }
func ChainWorkKey() []byte                { return metaKey(metaChainWork) }
