package franchise

import (
	"math/big"
	"sync"

	"github.com/vocdoni/franchise-proof/crypto/ecc/curves"
	"github.com/vocdoni/franchise-proof/crypto/ecc/format"
	"github.com/vocdoni/franchise-proof/crypto/signature"
	"github.com/vocdoni/franchise-proof/identity"
)

// overrideSeed is the seed of the key that signs the fixed tuple verified
// when the global nullifier override is active. The tuple is public, it only
// keeps the signature constraints satisfiable.
var overrideSeed = make([]byte, 32)

// signatureTuple is a public key, message and signature in reduced twisted
// Edwards coordinates.
type signatureTuple struct {
	ax, ay *big.Int
	rx, ry *big.Int
	s      *big.Int
	msg    *big.Int
}

var (
	fixedTuple     *signatureTuple
	fixedTupleOnce sync.Once
)

// overrideTuple returns the fixed valid signature tuple, built on first use.
func overrideTuple() *signatureTuple {
	fixedTupleOnce.Do(func() {
		key, err := identity.Derive(overrideSeed, curves.CurveTypeBabyJubJubGnark)
		if err != nil {
			panic(err)
		}
		msg := big.NewInt(0)
		sig, err := (&signature.MiMCEdDSA{}).Sign(key, msg)
		if err != nil {
			panic(err)
		}
		ax, ay := format.FromTEtoRTE(key.PublicXY())
		rx, ry := format.FromTEtoRTE(sig.R8x, sig.R8y)
		fixedTuple = &signatureTuple{ax: ax, ay: ay, rx: rx, ry: ry, s: sig.S, msg: msg}
	})
	return fixedTuple
}
