package script

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/supernova-labs/supernova/crypto/sigscheme"
)

func pushData(b []byte) []byte {
	if len(b) > 0x4b {
		panic("pushData: test helper only supports direct pushes")
	}
	return append([]byte{byte(len(b))}, b...)
}

func p2pkhScript(pubkeyHash []byte) []byte {
	out := []byte{byte(OP_DUP), byte(OP_HASH160)}
	out = append(out, pushData(pubkeyHash)...)
	out = append(out, byte(OP_EQUALVERIFY), byte(OP_CHECKSIG))
	return out
}

func TestVerifyP2PKHValidSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubkeyBytes := priv.PubKey().SerializeCompressed()
	pubkeyHash := Hash160(pubkeyBytes)

	message := make([]byte, 32)
	message[0] = 0xab

	sig := ecdsa.Sign(priv, message)
	sigBytes := sig.Serialize()
	sigBytes = append([]byte{byte(sigscheme.Secp256k1)}, sigBytes...)

	sigScript := append(pushData(sigBytes), pushData(pubkeyBytes)...)
	pubkeyScript := p2pkhScript(pubkeyHash)

	reg := sigscheme.DefaultRegistry()
	err = Verify(sigScript, pubkeyScript, message, reg)
	require.NoError(t, err)
}

func TestVerifyP2PKHWrongKeyFails(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	pubkeyHash := Hash160(priv.PubKey().SerializeCompressed())

	message := make([]byte, 32)
	message[0] = 0x01

	sig := ecdsa.Sign(other, message)
	sigBytes := append([]byte{byte(sigscheme.Secp256k1)}, sig.Serialize()...)

	sigScript := append(pushData(sigBytes), pushData(other.PubKey().SerializeCompressed())...)
	pubkeyScript := p2pkhScript(pubkeyHash)

	reg := sigscheme.DefaultRegistry()
	err = Verify(sigScript, pubkeyScript, message, reg)
	require.Error(t, err)
}

func TestDisabledOpcodeRejected(t *testing.T) {
	reg := sigscheme.DefaultRegistry()
	code := []byte{byte(OP_1), byte(OP_1), byte(OP_CAT)}
	err := Verify(nil, code, nil, reg)
	require.ErrorIs(t, err, ErrDisabledOpcode)
}

func TestOversizedScriptRejected(t *testing.T) {
	reg := sigscheme.DefaultRegistry()
	big := make([]byte, 10_001)
	err := Verify(nil, big, nil, reg)
	require.ErrorIs(t, err, ErrScriptTooLarge)
}

func TestP2SHShapedScriptUnsupported(t *testing.T) {
	reg := sigscheme.DefaultRegistry()
	code := append([]byte{byte(OP_HASH160), 0x14}, make([]byte, 20)...)
	code = append(code, byte(OP_EQUAL))
	err := Verify(nil, code, nil, reg)
	require.ErrorIs(t, err, ErrUnsupportedScript)
}

func TestEmptyFinalStackFails(t *testing.T) {
	reg := sigscheme.DefaultRegistry()
	code := []byte{byte(OP_1), byte(OP_1), byte(OP_EQUALVERIFY)}
	err := Verify(nil, code, nil, reg)
	require.Error(t, err)
}
