// Package voter builds the franchise proof inputs on the voter side: the
// nullifier of a voting, the signature of the vote value and the complete
// ballot input bundle.
package voter

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/franchise-proof/census"
	"github.com/vocdoni/franchise-proof/circuits"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/crypto/hash"
	"github.com/vocdoni/franchise-proof/identity"
	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/util"
)

// Session holds a voter identity and its position in the census.
type Session struct {
	Index uint64
	Key   *identity.Key
	Suite *crypto.Suite
}

// NewSession returns a voter session.
func NewSession(suite *crypto.Suite, index uint64, key *identity.Key) *Session {
	return &Session{Index: index, Key: key, Suite: suite}
}

// NewSessionFromSeed derives the voter identity from a hex encoded seed.
func NewSessionFromSeed(suite *crypto.Suite, index uint64, seedHex string) (*Session, error) {
	key, err := identity.FromHex(seedHex, suite.Curve)
	if err != nil {
		return nil, err
	}
	return NewSession(suite, index, key), nil
}

// Nullifier returns H(privateScalar, votingID). It is unique per voter and
// voting, and does not reveal the voter.
func Nullifier(hasher hash.Hasher, privateScalar, votingID *big.Int) (*big.Int, error) {
	return hasher.Hash(privateScalar, votingID)
}

// PublicKeyHash returns the value the census authority registers for this
// voter.
func (s *Session) PublicKeyHash() (*big.Int, error) {
	return s.Key.PublicKeyHash(s.Suite.Hasher)
}

// Nullifier returns the nullifier of the voter for votingID.
func (s *Session) Nullifier(votingID *big.Int) (*big.Int, error) {
	return Nullifier(s.Suite.Hasher, s.Key.Scalar(), votingID)
}

type buildOptions struct {
	globalNullifier *big.Int
}

// Option configures BuildInput.
type Option func(*buildOptions)

// WithGlobalNullifier sets the global nullifier public signal. It defaults
// to zero. When set to the census authority private scalar, the ballot
// circuit accepts the input without checking the voter signature.
func WithGlobalNullifier(v *big.Int) Option {
	return func(o *buildOptions) {
		o.globalNullifier = v
	}
}

// BuildInput assembles the ballot input of a vote for voteValue in votingID,
// using the inclusion proof provided by the census authority.
func (s *Session) BuildInput(votingID, voteValue *big.Int, proof *census.InclusionProof, opts ...Option) (*circuits.BallotInput, error) {
	o := buildOptions{globalNullifier: big.NewInt(0)}
	for _, opt := range opts {
		opt(&o)
	}
	if proof == nil || proof.Root == nil {
		return nil, fmt.Errorf("missing inclusion proof")
	}
	if proof.Index != s.Index {
		return nil, fmt.Errorf("inclusion proof is for index %d, voter index is %d", proof.Index, s.Index)
	}
	if len(proof.Siblings) == 0 {
		return nil, fmt.Errorf("inclusion proof without siblings")
	}
	for _, v := range []*big.Int{votingID, voteValue, o.globalNullifier} {
		if !util.IsFieldElement(v) {
			return nil, fmt.Errorf("value %v is not a field element", v)
		}
	}

	nullifier, err := s.Nullifier(votingID)
	if err != nil {
		return nil, fmt.Errorf("cannot compute nullifier: %w", err)
	}
	sig, err := s.Suite.Signer.Sign(s.Key, voteValue)
	if err != nil {
		return nil, fmt.Errorf("cannot sign vote: %w", err)
	}
	globalCommitment := proof.GlobalCommitment
	if globalCommitment == nil {
		globalCommitment = big.NewInt(0)
	}
	log.Debugw("ballot input built",
		"index", s.Index,
		"votingId", votingID.String(),
		"nullifier", util.PrettyHex(nullifier),
		"root", util.PrettyHex(proof.Root),
		"levels", len(proof.Siblings))

	return &circuits.BallotInput{
		PrivateKey:       s.Key.Scalar(),
		VotingID:         new(big.Int).Set(votingID),
		Nullifier:        nullifier,
		CensusRoot:       new(big.Int).Set(proof.Root),
		CensusSiblings:   circuits.BigIntArrayToN(proof.Siblings, len(proof.Siblings)),
		CensusIdx:        new(big.Int).SetUint64(s.Index),
		VoteSigS:         sig.S,
		VoteSigR8x:       sig.R8x,
		VoteSigR8y:       sig.R8y,
		VoteValue:        new(big.Int).Set(voteValue),
		GlobalCommitment: new(big.Int).Set(globalCommitment),
		GlobalNullifier:  new(big.Int).Set(o.globalNullifier),
	}, nil
}
