// Package script implements a small stack-based interpreter for the
// pubkey/signature scripts carried by transaction inputs and outputs,
// restricted to the opcode set Pay-to-Pubkey-Hash spending requires.
package script

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/ripemd160"

	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/params"
)

// Hash160 computes RIPEMD160(SHA256(data)), the digest a P2PKH pubkey
// script compares a public key against.
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sum[:])
	return r.Sum(nil)
}

// Verify runs sigScript followed by pubkeyScript against a single shared
// stack, exactly as the input being spent requires, then checks that the
// final stack is non-empty and its top element is truthy. message is the
// signature hash the transaction's signer committed to; registry resolves
// OP_CHECKSIG's signature-scheme dispatch by the signature's prefix byte.
func Verify(sigScript, pubkeyScript []byte, message []byte, registry *sigscheme.Registry) error {
	if len(sigScript) > params.MaxScriptSize {
		return fmt.Errorf("%w: signature script is %d bytes", ErrScriptTooLarge, len(sigScript))
	}
	if len(pubkeyScript) > params.MaxScriptSize {
		return fmt.Errorf("%w: pubkey script is %d bytes", ErrScriptTooLarge, len(pubkeyScript))
	}
	if isWitnessOrP2SHShaped(pubkeyScript) {
		return ErrUnsupportedScript
	}

	var st stack
	if err := execute(sigScript, &st, message, registry); err != nil {
		return fmt.Errorf("signature script: %w", err)
	}
	if err := execute(pubkeyScript, &st, message, registry); err != nil {
		return fmt.Errorf("pubkey script: %w", err)
	}

	top, err := st.pop()
	if err != nil {
		return errEmptyFinalStack
	}
	if !castToBool(top) {
		return errFinalStackFalsy
	}
	return nil
}

// isWitnessOrP2SHShaped recognizes the two script templates this
// interpreter refuses to run: P2SH (OP_HASH160 <20 bytes> OP_EQUAL with
// nothing following) and the segwit v0 witness program marker
// (OP_0 <20 or 32 bytes> as the entire script).
func isWitnessOrP2SHShaped(pubkeyScript []byte) bool {
	if len(pubkeyScript) == 23 && Opcode(pubkeyScript[0]) == OP_HASH160 &&
		pubkeyScript[1] == 0x14 && Opcode(pubkeyScript[22]) == OP_EQUAL {
		return true
	}
	if len(pubkeyScript) >= 2 && Opcode(pubkeyScript[0]) == OP_0 {
		pushLen := int(pubkeyScript[1])
		if (pushLen == 20 || pushLen == 32) && len(pubkeyScript) == 2+pushLen {
			return true
		}
	}
	return false
}

func execute(code []byte, st *stack, message []byte, registry *sigscheme.Registry) error {
	pc := 0
	for pc < len(code) {
		op := Opcode(code[pc])
		pc++

		if disabledOpcodes[op] {
			return fmt.Errorf("%w: 0x%02x", ErrDisabledOpcode, byte(op))
		}

		switch {
		case op == OP_0:
			st.push(boolBytes(false))

		case op >= 0x01 && op <= 0x4b:
			n := int(op)
			if pc+n > len(code) {
				return errTruncatedPush
			}
			st.push(code[pc : pc+n])
			pc += n

		case op == OP_PUSHDATA1 || op == OP_PUSHDATA2 || op == OP_PUSHDATA4:
			var lenBytes int
			switch op {
			case OP_PUSHDATA1:
				lenBytes = 1
			case OP_PUSHDATA2:
				lenBytes = 2
			default:
				lenBytes = 4
			}
			if pc+lenBytes > len(code) {
				return errTruncatedPush
			}
			n := 0
			for i := 0; i < lenBytes; i++ {
				n |= int(code[pc+i]) << (8 * i)
			}
			pc += lenBytes
			if pc+n > len(code) {
				return errTruncatedPush
			}
			st.push(code[pc : pc+n])
			pc += n

		case op >= OP_1 && op <= OP_16:
			n, _ := smallIntValue(op)
			st.push([]byte{byte(n)})

		case op == OP_VERIFY:
			v, err := st.pop()
			if err != nil {
				return err
			}
			if !castToBool(v) {
				return errVerifyFailed
			}

		case op == OP_DUP:
			v, err := st.peek()
			if err != nil {
				return err
			}
			cp := make([]byte, len(v))
			copy(cp, v)
			st.push(cp)

		case op == OP_EQUAL, op == OP_EQUALVERIFY:
			a, err := st.pop()
			if err != nil {
				return err
			}
			b, err := st.pop()
			if err != nil {
				return err
			}
			eq := bytes.Equal(a, b)
			if op == OP_EQUALVERIFY {
				if !eq {
					return errVerifyFailed
				}
				continue
			}
			st.push(boolBytes(eq))

		case op == OP_HASH160:
			v, err := st.pop()
			if err != nil {
				return err
			}
			st.push(Hash160(v))

		case op == OP_CHECKSIG:
			pubkey, err := st.pop()
			if err != nil {
				return err
			}
			sig, err := st.pop()
			if err != nil {
				return err
			}
			ok, verr := registry.Verify(pubkey, message, sig)
			if verr != nil {
				ok = false
			}
			st.push(boolBytes(ok))

		default:
			return fmt.Errorf("%w: 0x%02x", errUnknownOpcode, byte(op))
		}
	}
	return nil
}
