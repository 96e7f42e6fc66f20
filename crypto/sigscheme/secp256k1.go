package sigscheme

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// secp256k1Scheme verifies classical ECDSA signatures over the secp256k1
// curve, the scheme every non-quantum wallet in the network uses.
type secp256k1Scheme struct{}

// NewSecp256k1Scheme returns the classical-signature Scheme.
func NewSecp256k1Scheme() Scheme { return secp256k1Scheme{} }

func (secp256k1Scheme) ID() ID { return Secp256k1 }

func (secp256k1Scheme) Verify(pubkeyBytes, message, sig []byte) (bool, error) {
	pubkey, err := btcec.ParsePubKey(pubkeyBytes)
	if err != nil {
		return false, fmt.Errorf("secp256k1: parse pubkey: %w", err)
	}
	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, fmt.Errorf("secp256k1: parse signature: %w", err)
	}
	if len(message) != 32 {
		return false, fmt.Errorf("secp256k1: message digest must be 32 bytes, got %d", len(message))
	}
	return signature.Verify(message, pubkey), nil
}
