package signature

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/franchise-proof/crypto/ecc"
	"github.com/vocdoni/franchise-proof/util"
)

// PoseidonEdDSAType is the identifier of the Poseidon EdDSA scheme.
const PoseidonEdDSAType = "eddsa_poseidon"

// PoseidonEdDSA is the circomlib EdDSA scheme with Poseidon as message hash.
type PoseidonEdDSA struct{}

// Sign signs msg with the iden3 implementation, which derives the scalar
// from the seed exactly as identity keys do.
func (*PoseidonEdDSA) Sign(key PrivateKey, msg *big.Int) (sig *Signature, err error) {
	if !util.IsFieldElement(msg) {
		return nil, fmt.Errorf("message is not a field element")
	}
	seed := key.Seed()
	if len(seed) != 32 {
		return nil, fmt.Errorf("invalid seed length %d", len(seed))
	}
	var pk babyjub.PrivateKey
	copy(pk[:], seed)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poseidon signature failed: %v", r)
		}
	}()
	s := pk.SignPoseidon(msg)
	return &Signature{
		S:   new(big.Int).Set(s.S),
		R8x: new(big.Int).Set(s.R8.X),
		R8y: new(big.Int).Set(s.R8.Y),
	}, nil
}

// Verify checks the signature with the iden3 implementation.
func (*PoseidonEdDSA) Verify(pub ecc.Point, msg *big.Int, sig *Signature) bool {
	if sig == nil || sig.S == nil || sig.R8x == nil || sig.R8y == nil {
		return false
	}
	x, y := pub.Point()
	pk := babyjub.PublicKey{X: x, Y: y}
	return pk.VerifyPoseidon(msg, &babyjub.Signature{
		R8: &babyjub.Point{X: sig.R8x, Y: sig.R8y},
		S:  sig.S,
	})
}

// Type returns the scheme identifier.
func (*PoseidonEdDSA) Type() string {
	return PoseidonEdDSAType
}
