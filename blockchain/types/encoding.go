package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// encoder accumulates the canonical length-prefixed little-endian encoding
// used for every hashed consensus object. Exact byte layout is a consensus
// fact: block and transaction ids are SHA-256 over these bytes.
type encoder struct {
	buf bytes.Buffer
}

func newEncoder() *encoder { return &encoder{} }

func (e *encoder) uint32(v uint32) *encoder {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
	return e
}

func (e *encoder) uint64(v uint64) *encoder {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
	return e
}

func (e *encoder) hash(h [32]byte) *encoder {
	e.buf.Write(h[:])
	return e
}

// bytesField writes a uint32 length prefix followed by the raw bytes.
func (e *encoder) bytesField(b []byte) *encoder {
	e.uint32(uint32(len(b)))
	e.buf.Write(b)
	return e
}

func (e *encoder) bytes() []byte { return e.buf.Bytes() }

// decoder reads the canonical encoding back out, validating length-prefix
// consistency so a truncated or malformed encoding is rejected rather than
// panicking.
type decoder struct {
	b   []byte
	pos int
}

func newDecoder(b []byte) *decoder { return &decoder{b: b} }

func (d *decoder) err() error {
	return fmt.Errorf("canonical decode: truncated input at offset %d (len %d)", d.pos, len(d.b))
}

func (d *decoder) uint32() (uint32, error) {
	if d.pos+4 > len(d.b) {
		return 0, d.err()
	}
	v := binary.LittleEndian.Uint32(d.b[d.pos : d.pos+4])
	d.pos += 4
	return v, nil
}

func (d *decoder) uint64() (uint64, error) {
	if d.pos+8 > len(d.b) {
		return 0, d.err()
	}
	v := binary.LittleEndian.Uint64(d.b[d.pos : d.pos+8])
	d.pos += 8
	return v, nil
}

func (d *decoder) hash() ([32]byte, error) {
	var h [32]byte
	if d.pos+32 > len(d.b) {
		return h, d.err()
	}
	copy(h[:], d.b[d.pos:d.pos+32])
	d.pos += 32
	return h, nil
}

func (d *decoder) bytesField(maxLen int) ([]byte, error) {
	n, err := d.uint32()
	if err != nil {
		return nil, err
	}
	if maxLen > 0 && int(n) > maxLen {
		return nil, fmt.Errorf("canonical decode: field length %d exceeds max %d", n, maxLen)
	}
	if d.pos+int(n) > len(d.b) {
		return nil, d.err()
	}
	out := make([]byte, n)
	copy(out, d.b[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return out, nil
}

func (d *decoder) done() bool { return d.pos == len(d.b) }

var errTrailingBytes = fmt.Errorf("canonical decode: trailing bytes after last field")
