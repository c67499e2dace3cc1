// Package franchise defines the franchise proof circuit for the gnark
// crypto suite (MiMC hash, reduced BabyJubJub, MiMC EdDSA). A valid witness
// proves that the prover knows a private key whose public key hash is
// registered in the census at CensusIdx, that Nullifier is derived from that
// key and VotingID, and that the same key signed VoteValue.
package franchise

import (
	"fmt"

	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/signature/eddsa"
	"github.com/vocdoni/franchise-proof/circuits"
	"github.com/vocdoni/franchise-proof/crypto/ecc/format"
	"github.com/vocdoni/gnark-crypto-primitives/tree/smt"
	"github.com/vocdoni/gnark-crypto-primitives/utils"
)

// HashFn is the in-circuit hash, MiMC over the native field.
var HashFn = utils.MiMCHasher

var (
	teToRTE = format.TEtoRTEFactor()
	rteToTE = format.RTEtoTEFactor()
)

// Circuit is the franchise proof circuit. CensusSiblings has one entry per
// census level.
type Circuit struct {
	// ---------------------------------------------------------------------------------------------
	// PUBLIC INPUTS
	VotingID         frontend.Variable `gnark:",public"`
	CensusRoot       frontend.Variable `gnark:",public"`
	VoteValue        frontend.Variable `gnark:",public"`
	GlobalCommitment frontend.Variable `gnark:",public"`
	GlobalNullifier  frontend.Variable `gnark:",public"`

	// ---------------------------------------------------------------------------------------------
	// SECRET INPUTS
	PrivateKey     frontend.Variable
	Nullifier      frontend.Variable
	CensusSiblings []frontend.Variable
	CensusIdx      frontend.Variable
	VoteSigS       frontend.Variable
	VoteSigR8x     frontend.Variable
	VoteSigR8y     frontend.Variable
}

// Placeholder returns an empty circuit for a census of the depth provided,
// ready to be compiled.
func Placeholder(levels int) *Circuit {
	return &Circuit{CensusSiblings: make([]frontend.Variable, levels)}
}

// Assign returns the circuit assignment of a ballot input.
func Assign(input *circuits.BallotInput) *Circuit {
	siblings := make([]frontend.Variable, len(input.CensusSiblings))
	for i, s := range input.CensusSiblings {
		siblings[i] = s
	}
	return &Circuit{
		VotingID:         input.VotingID,
		CensusRoot:       input.CensusRoot,
		VoteValue:        input.VoteValue,
		GlobalCommitment: input.GlobalCommitment,
		GlobalNullifier:  input.GlobalNullifier,
		PrivateKey:       input.PrivateKey,
		Nullifier:        input.Nullifier,
		CensusSiblings:   siblings,
		CensusIdx:        input.CensusIdx,
		VoteSigS:         input.VoteSigS,
		VoteSigR8x:       input.VoteSigR8x,
		VoteSigR8y:       input.VoteSigR8y,
	}
}

func (c *Circuit) Define(api frontend.API) error {
	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		return fmt.Errorf("cannot init curve: %w", err)
	}
	params := curve.Params()
	base := twistededwards.Point{X: params.Base[0], Y: params.Base[1]}

	// public key of the voter, in reduced form
	pub := curve.ScalarMul(base, c.PrivateKey)
	if err := c.verifyCensus(api, pub); err != nil {
		return err
	}
	if err := c.verifyNullifier(api); err != nil {
		return err
	}
	override := c.globalOverride(api, curve, base)
	return c.verifySignature(api, curve, pub, override)
}

// verifyCensus checks that H(pub.x, pub.y), with pub in twisted Edwards
// coordinates, is the leaf at CensusIdx of the census with root CensusRoot.
func (c *Circuit) verifyCensus(api frontend.API, pub twistededwards.Point) error {
	pkHash, err := HashFn(api, api.Mul(pub.X, rteToTE), pub.Y)
	if err != nil {
		return fmt.Errorf("cannot hash public key: %w", err)
	}
	leafHash, err := HashFn(api, c.CensusIdx, pkHash, 1)
	if err != nil {
		return fmt.Errorf("cannot hash census leaf: %w", err)
	}
	smt.VerifierWithLeafHash(api, HashFn,
		1,
		c.CensusRoot,
		c.CensusSiblings,
		c.CensusIdx,
		leafHash,
		0,
		c.CensusIdx,
		leafHash,
		0, // inclusion
	)
	return nil
}

// verifyNullifier checks that Nullifier == H(PrivateKey, VotingID).
func (c *Circuit) verifyNullifier(api frontend.API) error {
	nullifier, err := HashFn(api, c.PrivateKey, c.VotingID)
	if err != nil {
		return fmt.Errorf("cannot hash nullifier: %w", err)
	}
	api.AssertIsEqual(c.Nullifier, nullifier)
	return nil
}

// verifySignature checks that (VoteSigS, VoteSigR8x, VoteSigR8y) is a MiMC
// EdDSA signature of VoteValue by pub. R is received in twisted Edwards
// coordinates and converted to reduced form. When override is 1 the
// signature, key and message are replaced by a fixed valid tuple, so the
// check always passes.
func (c *Circuit) verifySignature(api frontend.API, curve twistededwards.Curve,
	pub twistededwards.Point, override frontend.Variable,
) error {
	fixed := overrideTuple()
	sig := eddsa.Signature{
		R: twistededwards.Point{
			X: api.Select(override, fixed.rx, api.Mul(c.VoteSigR8x, teToRTE)),
			Y: api.Select(override, fixed.ry, c.VoteSigR8y),
		},
		S: api.Select(override, fixed.s, c.VoteSigS),
	}
	pubKey := eddsa.PublicKey{A: twistededwards.Point{
		X: api.Select(override, fixed.ax, pub.X),
		Y: api.Select(override, fixed.ay, pub.Y),
	}}
	msg := api.Select(override, fixed.msg, c.VoteValue)

	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return fmt.Errorf("cannot init signature hasher: %w", err)
	}
	if err := eddsa.Verify(curve, sig, msg, pubKey, &hasher); err != nil {
		return fmt.Errorf("cannot verify vote signature: %w", err)
	}
	return nil
}

// globalOverride returns 1 when GlobalNullifier is not zero and is the
// private scalar of the public key whose x coordinate is GlobalCommitment.
func (c *Circuit) globalOverride(api frontend.API, curve twistededwards.Curve, base twistededwards.Point) frontend.Variable {
	authority := curve.ScalarMul(base, c.GlobalNullifier)
	matches := api.IsZero(api.Sub(api.Mul(authority.X, rteToTE), c.GlobalCommitment))
	notZero := api.Sub(1, api.IsZero(c.GlobalNullifier))
	return api.And(notZero, matches)
}
