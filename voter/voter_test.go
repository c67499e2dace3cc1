package voter

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/franchise-proof/census"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/crypto/signature"
	"github.com/vocdoni/franchise-proof/identity"
)

const demoSeed = "0001020304050607080900010203040506070809000102030405060708090021"

func testCensus(c *qt.C, suite *crypto.Suite, s *Session) *census.Authority {
	tree, err := census.NewTree(nil, 10, suite.Hasher)
	c.Assert(err, qt.IsNil)
	authority, err := census.NewAuthority(identity.Random(suite.Curve), tree)
	c.Assert(err, qt.IsNil)
	pkHash, err := s.PublicKeyHash()
	c.Assert(err, qt.IsNil)
	c.Assert(authority.Register(s.Index, pkHash), qt.IsNil)
	return authority
}

func TestNullifier(t *testing.T) {
	c := qt.New(t)
	for _, name := range []string{crypto.SuiteCircom, crypto.SuiteGnark} {
		suite := crypto.MustSuite(name)
		s, err := NewSessionFromSeed(suite, 1337, demoSeed)
		c.Assert(err, qt.IsNil)

		n1, err := s.Nullifier(big.NewInt(1))
		c.Assert(err, qt.IsNil)
		again, err := s.Nullifier(big.NewInt(1))
		c.Assert(err, qt.IsNil)
		c.Assert(n1.Cmp(again), qt.Equals, 0)

		n2, err := s.Nullifier(big.NewInt(2))
		c.Assert(err, qt.IsNil)
		c.Assert(n1.Cmp(n2), qt.Not(qt.Equals), 0)

		other := NewSession(suite, 1, identity.Random(suite.Curve))
		n3, err := other.Nullifier(big.NewInt(1))
		c.Assert(err, qt.IsNil)
		c.Assert(n1.Cmp(n3), qt.Not(qt.Equals), 0)

		expected, err := suite.Hasher.Hash(s.Key.Scalar(), big.NewInt(1))
		c.Assert(err, qt.IsNil)
		c.Assert(n1.Cmp(expected), qt.Equals, 0)
	}
}

func TestBuildInput(t *testing.T) {
	c := qt.New(t)
	for _, name := range []string{crypto.SuiteCircom, crypto.SuiteGnark} {
		suite := crypto.MustSuite(name)
		s, err := NewSessionFromSeed(suite, 1337, demoSeed)
		c.Assert(err, qt.IsNil)
		authority := testCensus(c, suite, s)
		proof, err := authority.ProofOfInclusion(1337)
		c.Assert(err, qt.IsNil)

		input, err := s.BuildInput(big.NewInt(1), big.NewInt(2), proof)
		c.Assert(err, qt.IsNil)
		c.Assert(input.Validate(), qt.IsNil)
		c.Assert(input.Levels(), qt.Equals, 10)
		c.Assert(input.CensusIdx.Uint64(), qt.Equals, uint64(1337))
		c.Assert(input.GlobalNullifier.Sign(), qt.Equals, 0)
		c.Assert(input.GlobalCommitment.Cmp(authority.GlobalCommitment()), qt.Equals, 0)
		c.Assert(input.PrivateKey.Cmp(s.Key.Scalar()), qt.Equals, 0)

		sig := &signature.Signature{S: input.VoteSigS, R8x: input.VoteSigR8x, R8y: input.VoteSigR8y}
		ok := suite.Signer.Verify(s.Key.Public(), input.VoteValue, sig)
		c.Assert(ok, qt.IsTrue, qt.Commentf("suite %s", name))

		pkHash, err := s.PublicKeyHash()
		c.Assert(err, qt.IsNil)
		ok, err = census.VerifyInclusion(suite.Hasher, proof, pkHash)
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsTrue)

		withOverride, err := s.BuildInput(big.NewInt(1), big.NewInt(2), proof,
			WithGlobalNullifier(authority.GlobalNullifier()))
		c.Assert(err, qt.IsNil)
		c.Assert(withOverride.GlobalNullifier.Cmp(authority.GlobalNullifier()), qt.Equals, 0)
	}
}

func TestNullifierIndependentOfVote(t *testing.T) {
	c := qt.New(t)
	for _, name := range []string{crypto.SuiteCircom, crypto.SuiteGnark} {
		suite := crypto.MustSuite(name)
		s, err := NewSessionFromSeed(suite, 1337, demoSeed)
		c.Assert(err, qt.IsNil)
		proof, err := testCensus(c, suite, s).ProofOfInclusion(1337)
		c.Assert(err, qt.IsNil)

		first, err := s.BuildInput(big.NewInt(1), big.NewInt(2), proof)
		c.Assert(err, qt.IsNil)
		second, err := s.BuildInput(big.NewInt(1), big.NewInt(3), proof)
		c.Assert(err, qt.IsNil)

		// a second vote in the same voting is caught by its nullifier
		c.Assert(first.Nullifier.Cmp(second.Nullifier), qt.Equals, 0, qt.Commentf("suite %s", name))
		c.Assert(first.VoteSigS.Cmp(second.VoteSigS), qt.Not(qt.Equals), 0)
		c.Assert(first.VoteSigR8x.Cmp(second.VoteSigR8x), qt.Not(qt.Equals), 0)

		other, err := s.BuildInput(big.NewInt(2), big.NewInt(2), proof)
		c.Assert(err, qt.IsNil)
		c.Assert(first.Nullifier.Cmp(other.Nullifier), qt.Not(qt.Equals), 0)
	}
}

func TestBuildInputErrors(t *testing.T) {
	c := qt.New(t)
	suite := crypto.MustSuite(crypto.SuiteGnark)
	s, err := NewSessionFromSeed(suite, 1337, demoSeed)
	c.Assert(err, qt.IsNil)
	authority := testCensus(c, suite, s)

	_, err = authority.ProofOfInclusion(7)
	c.Assert(err, qt.ErrorIs, census.ErrLeafNotFound)

	proof, err := authority.ProofOfInclusion(1337)
	c.Assert(err, qt.IsNil)
	_, err = s.BuildInput(big.NewInt(1), big.NewInt(2), nil)
	c.Assert(err, qt.IsNotNil)

	other := NewSession(suite, 5, s.Key)
	_, err = other.BuildInput(big.NewInt(1), big.NewInt(2), proof)
	c.Assert(err, qt.IsNotNil)

	_, err = s.BuildInput(big.NewInt(-1), big.NewInt(2), proof)
	c.Assert(err, qt.IsNotNil)

	_, err = NewSessionFromSeed(suite, 1, "00ff")
	c.Assert(err, qt.ErrorIs, identity.ErrInvalidSeedLength)
}
