package utxo

import (
	"encoding/binary"
	"fmt"

	"github.com/supernova-labs/supernova/blockchain/types"
)

// Bytes serializes an UndoSet for storage, so a block far behind the tip
// can still be reverted by a deep reorg without keeping every UndoSet in
// memory for the life of the process.
func (u *UndoSet) Bytes() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(u.Spent)))
	for _, e := range u.Spent {
		buf = append(buf, e.Outpoint.Bytes()...)
		entryBytes := e.Entry.Bytes()
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(entryBytes)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, entryBytes...)
	}
	return buf
}

// DecodeUndoSet reverses Bytes.
func DecodeUndoSet(b []byte) (*UndoSet, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("undo set: truncated count")
	}
	count := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]

	out := &UndoSet{Spent: make([]UndoEntry, 0, count)}
	for i := uint32(0); i < count; i++ {
		const opLen = 36
		if len(b) < opLen+4 {
			return nil, fmt.Errorf("undo set: truncated entry %d", i)
		}
		op, err := types.DecodeOutpoint(b[:opLen])
		if err != nil {
			return nil, fmt.Errorf("undo set: entry %d outpoint: %w", i, err)
		}
		b = b[opLen:]

		entryLen := binary.LittleEndian.Uint32(b[:4])
		b = b[4:]
		if uint32(len(b)) < entryLen {
			return nil, fmt.Errorf("undo set: truncated entry %d body", i)
		}
		entry, err := types.DecodeUtxoEntry(b[:entryLen])
		if err != nil {
			return nil, fmt.Errorf("undo set: entry %d: %w", i, err)
		}
		b = b[entryLen:]

		out.Spent = append(out.Spent, UndoEntry{Outpoint: op, Entry: entry})
	}
	return out, nil
}
