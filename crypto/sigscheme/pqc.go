package sigscheme

import "fmt"

// Verifier is the shape of a collaborator-supplied post-quantum
// verification function: Dilithium, Falcon, and SPHINCS+ primitive
// implementations are explicitly out of the core's scope (spec §1) and
// are provided by an external cryptography package at node wiring time.
type Verifier func(pubkey, message, sig []byte) (bool, error)

// pqcScheme adapts an externally-supplied Verifier to the Scheme
// interface. Constructing one with a nil verifier is intentional: it
// models "no implementation available yet" and fails every verification
// with ErrSchemeUnavailable instead of silently approving or panicking —
// this is the real replacement for the placeholder hash-based "Falcon"
// signature flagged as non-normative in spec §9.
type pqcScheme struct {
	id       ID
	verifier Verifier
}

// NewPQCScheme wraps verify as the Scheme for id. Pass a nil verify to
// register the scheme ID as recognized-but-unavailable, so Registry.Verify
// reports ErrSchemeUnavailable rather than "unknown scheme" for it.
func NewPQCScheme(id ID, verify Verifier) Scheme {
	return pqcScheme{id: id, verifier: verify}
}

func (s pqcScheme) ID() ID { return s.id }

func (s pqcScheme) Verify(pubkey, message, sig []byte) (bool, error) {
	if s.verifier == nil {
		return false, fmt.Errorf("%w: %s", ErrSchemeUnavailable, s.id)
	}
	return s.verifier(pubkey, message, sig)
}

// HybridComponents splits a hybrid signature blob into its classical and
// quantum halves. Hybrid signatures are the concatenation of a
// length-prefixed classical signature followed by a length-prefixed
// quantum signature, per spec §4.4.C.
func HybridComponents(sig []byte) (classical, quantum []byte, err error) {
	if len(sig) < 4 {
		return nil, nil, fmt.Errorf("hybrid signature too short: %d bytes", len(sig))
	}
	classicalLen := int(sig[0])<<24 | int(sig[1])<<16 | int(sig[2])<<8 | int(sig[3])
	if 4+classicalLen > len(sig) {
		return nil, nil, fmt.Errorf("hybrid signature: classical length %d exceeds blob", classicalLen)
	}
	classical = sig[4 : 4+classicalLen]
	quantum = sig[4+classicalLen:]
	if len(quantum) == 0 {
		return nil, nil, fmt.Errorf("hybrid signature: missing quantum component")
	}
	return classical, quantum, nil
}

// hybridScheme verifies a hybrid signature by requiring BOTH the
// classical and quantum components to verify — a forged classical
// signature alone (e.g. from a future quantum break) is not sufficient.
type hybridScheme struct {
	classical Scheme
	quantum   Scheme
}

// NewHybridScheme builds the Hybrid Scheme from its two component
// schemes. Both must be real implementations; passing a
// scheme built with NewPQCScheme(id, nil) correctly fails hybrid
// verification closed rather than silently accepting the classical half
// alone.
func NewHybridScheme(classical, quantum Scheme) Scheme {
	return hybridScheme{classical: classical, quantum: quantum}
}

func (hybridScheme) ID() ID { return Hybrid }

func (s hybridScheme) Verify(pubkey, message, sig []byte) (bool, error) {
	classicalSig, quantumSig, err := HybridComponents(sig)
	if err != nil {
		return false, err
	}
	classicalOK, err := s.classical.Verify(pubkey, message, classicalSig)
	if err != nil {
		return false, fmt.Errorf("hybrid: classical component: %w", err)
	}
	if !classicalOK {
		return false, nil
	}
	quantumOK, err := s.quantum.Verify(pubkey, message, quantumSig)
	if err != nil {
		return false, fmt.Errorf("hybrid: quantum component: %w", err)
	}
	return quantumOK, nil
}
