package signature

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/dchest/blake512"
	"github.com/vocdoni/franchise-proof/crypto/ecc"
	"github.com/vocdoni/franchise-proof/crypto/ecc/format"
	"github.com/vocdoni/franchise-proof/util"
)

// MiMCEdDSAType is the identifier of the MiMC EdDSA scheme.
const MiMCEdDSAType = "eddsa_mimc"

// MiMCEdDSA is the gnark-crypto EdDSA scheme over BN254 BabyJubJub with a
// MiMC challenge, MiMC(R.x, R.y, A.x, A.y, msg) in reduced twisted Edwards
// coordinates. It is the scheme verified by gnark std/signature/eddsa in the
// franchise circuit.
type MiMCEdDSA struct{}

// Sign signs msg with the private scalar of key. The gnark-crypto private
// key is built from the derived scalar, and its nonce source is the second
// half of blake512(seed), so signatures are deterministic.
func (*MiMCEdDSA) Sign(key PrivateKey, msg *big.Int) (*Signature, error) {
	if !util.IsFieldElement(msg) {
		return nil, fmt.Errorf("message is not a field element")
	}
	priv, err := gnarkPrivateKey(key)
	if err != nil {
		return nil, err
	}
	sigBytes, err := priv.Sign(fieldBytes(msg), mimc.NewMiMC())
	if err != nil {
		return nil, fmt.Errorf("cannot sign message: %w", err)
	}
	var sig eddsa.Signature
	if _, err := sig.SetBytes(sigBytes); err != nil {
		return nil, fmt.Errorf("cannot decode signature: %w", err)
	}
	rx, ry := new(big.Int), new(big.Int)
	sig.R.X.BigInt(rx)
	sig.R.Y.BigInt(ry)
	r8x, r8y := format.FromRTEtoTE(rx, ry)
	return &Signature{S: new(big.Int).SetBytes(sig.S[:]), R8x: r8x, R8y: r8y}, nil
}

// Verify checks sig with the gnark-crypto verifier. R must be a curve point,
// its compressed encoding would otherwise hide a tampered x coordinate.
func (*MiMCEdDSA) Verify(pub ecc.Point, msg *big.Int, sig *Signature) bool {
	if sig == nil || sig.S == nil || sig.R8x == nil || sig.R8y == nil {
		return false
	}
	curve := twistededwards.GetEdwardsCurve()
	if !util.IsFieldElement(msg) || sig.S.Sign() < 0 || sig.S.Cmp(&curve.Order) >= 0 {
		return false
	}
	var r twistededwards.PointAffine
	rx, ry := format.FromTEtoRTE(sig.R8x, sig.R8y)
	r.X.SetBigInt(rx)
	r.Y.SetBigInt(ry)
	if !r.IsOnCurve() {
		return false
	}
	var esig eddsa.Signature
	esig.R = r
	sig.S.FillBytes(esig.S[:])

	var epub eddsa.PublicKey
	epub.A = reducedPoint(pub)
	ok, err := epub.Verify(esig.Bytes(), fieldBytes(msg), mimc.NewMiMC())
	return err == nil && ok
}

// Type returns the scheme identifier.
func (*MiMCEdDSA) Type() string {
	return MiMCEdDSAType
}

// gnarkPrivateKey returns the gnark-crypto private key with the scalar of
// key. The encoding is compressed(A) || scalar || nonce source.
func gnarkPrivateKey(key PrivateKey) (*eddsa.PrivateKey, error) {
	scalar := key.Scalar()
	if scalar == nil || scalar.Sign() <= 0 || scalar.BitLen() > fr.Bits {
		return nil, fmt.Errorf("invalid private scalar")
	}
	var pub twistededwards.PointAffine
	base := twistededwards.GetEdwardsCurve().Base
	pub.ScalarMultiplication(&base, scalar)
	pubBytes := pub.Bytes()

	h := blake512.New()
	h.Write(key.Seed())
	nonceSrc := h.Sum(nil)[32:64]

	buf := make([]byte, 0, 3*fr.Bytes)
	buf = append(buf, pubBytes[:]...)
	buf = append(buf, scalar.FillBytes(make([]byte, fr.Bytes))...)
	buf = append(buf, nonceSrc...)
	priv := new(eddsa.PrivateKey)
	if _, err := priv.SetBytes(buf); err != nil {
		return nil, fmt.Errorf("cannot build private key: %w", err)
	}
	return priv, nil
}

// reducedPoint returns pub in reduced twisted Edwards form.
func reducedPoint(pub ecc.Point) twistededwards.PointAffine {
	var p twistededwards.PointAffine
	x, y := format.FromTEtoRTE(pub.Point())
	p.X.SetBigInt(x)
	p.Y.SetBigInt(y)
	return p
}

// fieldBytes encodes a field element as a single MiMC block.
func fieldBytes(v *big.Int) []byte {
	return v.FillBytes(make([]byte, fr.Bytes))
}
