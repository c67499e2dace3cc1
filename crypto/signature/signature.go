// Package signature implements the EdDSA schemes used to sign the vote
// value. Both schemes work on BabyJubJub and expose R8 in twisted Edwards
// (circom) coordinates.
package signature

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/franchise-proof/crypto/ecc"
)

// ErrUnsupportedScheme is returned when a scheme name is unknown.
var ErrUnsupportedScheme = errors.New("unsupported signature scheme")

// PrivateKey is the key material required to sign. The seed is the raw
// secret and the scalar is the derived private scalar.
type PrivateKey interface {
	Seed() []byte
	Scalar() *big.Int
}

// Signature is an EdDSA signature over BabyJubJub.
type Signature struct {
	S   *big.Int `json:"s"`
	R8x *big.Int `json:"r8x"`
	R8y *big.Int `json:"r8y"`
}

// Scheme signs and verifies field element messages.
type Scheme interface {
	// Sign signs msg, which must be a field element.
	Sign(key PrivateKey, msg *big.Int) (*Signature, error)
	// Verify checks sig against the public key and message.
	Verify(pub ecc.Point, msg *big.Int, sig *Signature) bool
	// Type returns the scheme identifier.
	Type() string
}

// New returns the scheme with the identifier provided.
func New(name string) (Scheme, error) {
	switch name {
	case PoseidonEdDSAType:
		return &PoseidonEdDSA{}, nil
	case MiMCEdDSAType:
		return &MiMCEdDSA{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, name)
	}
}

// Copy returns a deep copy of the signature.
func (s *Signature) Copy() *Signature {
	return &Signature{
		S:   new(big.Int).Set(s.S),
		R8x: new(big.Int).Set(s.R8x),
		R8y: new(big.Int).Set(s.R8y),
	}
}

// String returns the decimal representation "S,R8x,R8y".
func (s *Signature) String() string {
	return fmt.Sprintf("%s,%s,%s", s.S, s.R8x, s.R8y)
}
