// Package crypto bundles the cryptographic services used by the census
// authority and the voters. A Suite is built explicitly and passed to the
// components that need it; there is no package level hash or curve state.
package crypto

import (
	"errors"
	"fmt"

	"github.com/vocdoni/franchise-proof/crypto/ecc"
	"github.com/vocdoni/franchise-proof/crypto/ecc/curves"
	"github.com/vocdoni/franchise-proof/crypto/hash"
	"github.com/vocdoni/franchise-proof/crypto/hash/mimc"
	"github.com/vocdoni/franchise-proof/crypto/hash/poseidon"
	"github.com/vocdoni/franchise-proof/crypto/signature"
)

const (
	// SuiteCircom uses Poseidon, the iden3 curve and Poseidon EdDSA, the
	// primitives of the circom franchise circuit.
	SuiteCircom = "circom"
	// SuiteGnark uses MiMC, the gnark curve and MiMC EdDSA, the primitives
	// of the gnark franchise circuit.
	SuiteGnark = "gnark"
)

// ErrUnsupportedSuite is returned when the suite name is unknown.
var ErrUnsupportedSuite = errors.New("unsupported crypto suite")

// Suite groups the hash, curve and signature services of a deployment.
type Suite struct {
	Name   string
	Curve  curves.Type
	Hasher hash.Hasher
	Signer signature.Scheme
}

// NewSuite returns the suite with the name provided.
func NewSuite(name string) (*Suite, error) {
	switch name {
	case SuiteCircom:
		return &Suite{
			Name:   SuiteCircom,
			Curve:  curves.CurveTypeBabyJubJubIden3,
			Hasher: poseidon.New(),
			Signer: &signature.PoseidonEdDSA{},
		}, nil
	case SuiteGnark:
		return &Suite{
			Name:   SuiteGnark,
			Curve:  curves.CurveTypeBabyJubJubGnark,
			Hasher: mimc.New(),
			Signer: &signature.MiMCEdDSA{},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSuite, name)
	}
}

// MustSuite is like NewSuite but panics on error. Intended for tests and
// package level defaults built from constants.
func MustSuite(name string) *Suite {
	s, err := NewSuite(name)
	if err != nil {
		panic(err)
	}
	return s
}

// NewPoint returns the identity point of the suite curve.
func (s *Suite) NewPoint() ecc.Point {
	return curves.New(s.Curve)
}
