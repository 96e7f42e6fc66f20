// Package sigscheme models signature verification as a closed set of
// variants dispatched by a prefix byte, per spec §4.4.C and §9's "dynamic
// dispatch" design note: classical secp256k1 ECDSA, three post-quantum
// schemes, and a hybrid concatenation, behind one minimal Verify contract.
package sigscheme

import (
	"errors"
	"fmt"
)

// ID identifies a signature scheme by the prefix byte carried in front of
// every signature blob.
type ID byte

const (
	Secp256k1 ID = 0x01
	Dilithium ID = 0x02
	Falcon    ID = 0x03
	SPHINCS   ID = 0x04
	Hybrid    ID = 0x05
)

func (id ID) String() string {
	switch id {
	case Secp256k1:
		return "secp256k1"
	case Dilithium:
		return "dilithium"
	case Falcon:
		return "falcon"
	case SPHINCS:
		return "sphincs+"
	case Hybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(id))
	}
}

// ErrSchemeUnavailable is returned when a signature blob names a scheme
// with no registered implementation. It is never treated as a passing
// verification — an unavailable scheme always fails closed.
var ErrSchemeUnavailable = errors.New("sigscheme: no verifier registered for scheme")

// ErrEmptySignature is returned for a zero-length signature blob, which
// cannot carry even a scheme prefix byte.
var ErrEmptySignature = errors.New("sigscheme: signature blob is empty")

// Scheme verifies signatures produced under one scheme. Scheme-specific
// configuration (curve parameters, PQC security level, etc.) lives on the
// concrete implementation, never in this interface.
type Scheme interface {
	ID() ID
	// Verify checks that sig authenticates message under pubkey. It
	// performs a real cryptographic check; there is no always-true path.
	Verify(pubkey, message, sig []byte) (bool, error)
}

// Registry dispatches verification to the Scheme registered for a
// signature blob's prefix byte.
type Registry struct {
	schemes map[ID]Scheme
}

// NewRegistry returns an empty registry. Use DefaultRegistry for one
// pre-populated with the schemes this module implements natively.
func NewRegistry() *Registry {
	return &Registry{schemes: make(map[ID]Scheme)}
}

// Register installs scheme, replacing any previous registration for the
// same ID.
func (r *Registry) Register(scheme Scheme) {
	r.schemes[scheme.ID()] = scheme
}

// Verify parses the scheme prefix off sig and dispatches to the
// registered Scheme. Returns ErrSchemeUnavailable, never true, if no
// implementation is registered for the named scheme.
func (r *Registry) Verify(pubkey, message, sig []byte) (bool, error) {
	if len(sig) == 0 {
		return false, ErrEmptySignature
	}
	id := ID(sig[0])
	scheme, ok := r.schemes[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrSchemeUnavailable, id)
	}
	return scheme.Verify(pubkey, message, sig[1:])
}

// DefaultRegistry returns a Registry with the classical secp256k1 scheme
// registered. PQC schemes (Dilithium, Falcon, SPHINCS+, Hybrid) are
// out of scope for the core per spec §1 — register a real
// collaborator-supplied implementation via Register (wrapping its
// verifier with NewPQCScheme or NewHybridScheme) before verifying
// transactions that use them.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewSecp256k1Scheme())
	return r
}
