package types

import (
	"fmt"

	"github.com/supernova-labs/supernova/common"
	"github.com/supernova-labs/supernova/params"
)

// TransactionInput spends a previously-created output.
type TransactionInput struct {
	PrevTxHash      common.Hash
	PrevOutputIndex uint32
	SignatureScript []byte
	Sequence        uint32
}

// Outpoint returns the output this input spends.
func (in *TransactionInput) Outpoint() Outpoint {
	return Outpoint{TxHash: in.PrevTxHash, Index: in.PrevOutputIndex}
}

// IsCoinbase reports whether this input carries the coinbase sentinel
// prevout.
func (in *TransactionInput) IsCoinbase() bool {
	return in.Outpoint().IsCoinbaseSentinel()
}

func (in *TransactionInput) bytes() []byte {
	return newEncoder().
		hash(in.PrevTxHash).
		uint32(in.PrevOutputIndex).
		bytesField(in.SignatureScript).
		uint32(in.Sequence).
		bytes()
}

func decodeInput(raw []byte) (TransactionInput, error) {
	d := newDecoder(raw)
	h, err := d.hash()
	if err != nil {
		return TransactionInput{}, err
	}
	idx, err := d.uint32()
	if err != nil {
		return TransactionInput{}, err
	}
	sig, err := d.bytesField(params.MaxScriptSize)
	if err != nil {
		return TransactionInput{}, err
	}
	seq, err := d.uint32()
	if err != nil {
		return TransactionInput{}, err
	}
	if !d.done() {
		return TransactionInput{}, errTrailingBytes
	}
	return TransactionInput{PrevTxHash: h, PrevOutputIndex: idx, SignatureScript: sig, Sequence: seq}, nil
}

// TransactionOutput assigns an amount to a spending script.
type TransactionOutput struct {
	Amount       uint64
	PubkeyScript []byte
}

func (out *TransactionOutput) bytes() []byte {
	return newEncoder().
		uint64(out.Amount).
		bytesField(out.PubkeyScript).
		bytes()
}

func decodeOutput(raw []byte) (TransactionOutput, error) {
	d := newDecoder(raw)
	amount, err := d.uint64()
	if err != nil {
		return TransactionOutput{}, err
	}
	script, err := d.bytesField(params.MaxScriptSize)
	if err != nil {
		return TransactionOutput{}, err
	}
	if !d.done() {
		return TransactionOutput{}, errTrailingBytes
	}
	return TransactionOutput{Amount: amount, PubkeyScript: script}, nil
}

// Transaction is an ordered list of inputs spending prior outputs and an
// ordered list of outputs creating new ones.
type Transaction struct {
	Version  uint32
	Inputs   []TransactionInput
	Outputs  []TransactionOutput
	LockTime uint32
}

// Bytes returns the canonical encoding of the transaction.
func (tx *Transaction) Bytes() []byte {
	e := newEncoder().uint32(tx.Version).uint32(uint32(len(tx.Inputs)))
	for i := range tx.Inputs {
		e.bytesField(tx.Inputs[i].bytes())
	}
	e.uint32(uint32(len(tx.Outputs)))
	for i := range tx.Outputs {
		e.bytesField(tx.Outputs[i].bytes())
	}
	e.uint32(tx.LockTime)
	return e.bytes()
}

// Hash returns the transaction id: SHA-256 of the canonical encoding.
func (tx *Transaction) Hash() common.Hash {
	return common.Sum256(tx.Bytes())
}

// DecodeTransaction parses a canonically-encoded transaction.
func DecodeTransaction(b []byte) (*Transaction, error) {
	d := newDecoder(b)
	version, err := d.uint32()
	if err != nil {
		return nil, err
	}
	numInputs, err := d.uint32()
	if err != nil {
		return nil, err
	}
	inputs := make([]TransactionInput, numInputs)
	for i := range inputs {
		raw, err := d.bytesField(0)
		if err != nil {
			return nil, err
		}
		inputs[i], err = decodeInput(raw)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	numOutputs, err := d.uint32()
	if err != nil {
		return nil, err
	}
	outputs := make([]TransactionOutput, numOutputs)
	for i := range outputs {
		raw, err := d.bytesField(0)
		if err != nil {
			return nil, err
		}
		outputs[i], err = decodeOutput(raw)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
	}
	lockTime, err := d.uint32()
	if err != nil {
		return nil, err
	}
	if !d.done() {
		return nil, errTrailingBytes
	}
	return &Transaction{Version: version, Inputs: inputs, Outputs: outputs, LockTime: lockTime}, nil
}

// IsCoinbase reports whether tx is a valid coinbase shape: exactly one
// input, whose prevout is the sentinel.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].IsCoinbase()
}

// TotalOutput sums every output amount with overflow checking. Returns
// (total, true) on success, or (0, false) if the sum overflows u64 — never
// a silently clamped or wrapped value.
func (tx *Transaction) TotalOutput() (uint64, bool) {
	var amounts []uint64
	for i := range tx.Outputs {
		amounts = append(amounts, tx.Outputs[i].Amount)
	}
	return common.SumAmounts(amounts)
}

// Fee returns sum(inputAmounts) - sum(outputAmounts) with checked
// arithmetic; ok is false if either sum overflows or inputs < outputs.
func (tx *Transaction) Fee(inputAmounts []uint64) (fee uint64, ok bool) {
	totalIn, ok := common.SumAmounts(inputAmounts)
	if !ok {
		return 0, false
	}
	totalOut, ok := tx.TotalOutput()
	if !ok {
		return 0, false
	}
	return common.CheckedSub(totalIn, totalOut)
}

// SerializedSize returns the canonical encoding length in bytes, used as
// the mempool's fee-rate denominator.
func (tx *Transaction) SerializedSize() int {
	return len(tx.Bytes())
}

// ExceedsMaxScriptSize reports whether any script attached to tx exceeds
// params.MaxScriptSize.
func (tx *Transaction) ExceedsMaxScriptSize() bool {
	for i := range tx.Inputs {
		if len(tx.Inputs[i].SignatureScript) > params.MaxScriptSize {
			return true
		}
	}
	for i := range tx.Outputs {
		if len(tx.Outputs[i].PubkeyScript) > params.MaxScriptSize {
			return true
		}
	}
	return false
}

// HasDuplicateOutpoints reports whether two inputs reference the same
// outpoint, which is always invalid within a single transaction.
func (tx *Transaction) HasDuplicateOutpoints() bool {
	seen := make(map[Outpoint]struct{}, len(tx.Inputs))
	for i := range tx.Inputs {
		op := tx.Inputs[i].Outpoint()
		if _, dup := seen[op]; dup {
			return true
		}
		seen[op] = struct{}{}
	}
	return false
}

// SignatureHash returns the digest input inputIndex's signature must
// authenticate: the transaction's canonical encoding with every input's
// signature_script cleared except inputIndex's, which is replaced by the
// pubkey_script of the output it spends. This is the classic
// sign-a-copy-with-substituted-script construction, covering the whole
// transaction (there is no partial-commitment sighash type).
func (tx *Transaction) SignatureHash(inputIndex int, prevPubkeyScript []byte) common.Hash {
	cp := &Transaction{
		Version:  tx.Version,
		Inputs:   make([]TransactionInput, len(tx.Inputs)),
		Outputs:  tx.Outputs,
		LockTime: tx.LockTime,
	}
	for i := range tx.Inputs {
		cp.Inputs[i] = tx.Inputs[i]
		if i == inputIndex {
			cp.Inputs[i].SignatureScript = prevPubkeyScript
		} else {
			cp.Inputs[i].SignatureScript = nil
		}
	}
	return common.Sum256(cp.Bytes())
}

func (tx *Transaction) String() string {
	return fmt.Sprintf("tx{%s ins=%d outs=%d}", tx.Hash(), len(tx.Inputs), len(tx.Outputs))
}
