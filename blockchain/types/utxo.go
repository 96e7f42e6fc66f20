package types

import "github.com/supernova-labs/supernova/params"

// UtxoEntry is the authoritative record for a single unspent output.
type UtxoEntry struct {
	Amount       uint64
	PubkeyScript []byte
	Height       uint32
	IsCoinbase   bool
}

// MatureAt returns the first height at which a coinbase entry is
// spendable. Non-coinbase entries are always mature.
func (e *UtxoEntry) MatureAt() uint32 {
	if !e.IsCoinbase {
		return e.Height
	}
	return e.Height + params.CoinbaseMaturity
}

// IsMatureAt reports whether the entry can be spent by a transaction
// included at spendHeight.
func (e *UtxoEntry) IsMatureAt(spendHeight uint32) bool {
	return spendHeight >= e.MatureAt()
}

// Clone returns a deep copy of the entry.
func (e *UtxoEntry) Clone() *UtxoEntry {
	cp := *e
	cp.PubkeyScript = append([]byte(nil), e.PubkeyScript...)
	return &cp
}

// NewUtxoEntryFromOutput builds a UtxoEntry for output index idx of tx,
// applied at height h.
func NewUtxoEntryFromOutput(tx *Transaction, idx int, height uint32, isCoinbase bool) *UtxoEntry {
	out := tx.Outputs[idx]
	return &UtxoEntry{
		Amount:       out.Amount,
		PubkeyScript: append([]byte(nil), out.PubkeyScript...),
		Height:       height,
		IsCoinbase:   isCoinbase,
	}
}

// Bytes encodes the entry for storage. This is a persistence format, not
// a consensus hash input, but it reuses the canonical encoder for
// consistency with the rest of the wire types.
func (e *UtxoEntry) Bytes() []byte {
	enc := newEncoder().uint64(e.Amount).bytesField(e.PubkeyScript).uint32(e.Height)
	coinbase := byte(0)
	if e.IsCoinbase {
		coinbase = 1
	}
	enc.buf.WriteByte(coinbase)
	return enc.bytes()
}

// DecodeUtxoEntry reverses Bytes.
func DecodeUtxoEntry(b []byte) (*UtxoEntry, error) {
	d := newDecoder(b)
	amount, err := d.uint64()
	if err != nil {
		return nil, err
	}
	script, err := d.bytesField(params.MaxScriptSize)
	if err != nil {
		return nil, err
	}
	height, err := d.uint32()
	if err != nil {
		return nil, err
	}
	if d.pos >= len(d.b) {
		return nil, d.err()
	}
	coinbase := d.b[d.pos] != 0
	d.pos++
	if !d.done() {
		return nil, errTrailingBytes
	}
	return &UtxoEntry{Amount: amount, PubkeyScript: script, Height: height, IsCoinbase: coinbase}, nil
}
