// Package testutil builds franchise proof inputs for tests and demos.
package testutil

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/franchise-proof/census"
	"github.com/vocdoni/franchise-proof/circuits"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/identity"
	"github.com/vocdoni/franchise-proof/voter"
)

// Default values of the end to end scenario.
const (
	DemoSeed   = "0001020304050607080900010203040506070809000102030405060708090021"
	DemoIndex  = 1337
	DemoLevels = 10
)

var (
	DemoVotingID  = big.NewInt(1)
	DemoVoteValue = big.NewInt(2)
)

// Ballot bundles a ballot input with the census authority that issued its
// inclusion proof.
type Ballot struct {
	Input     *circuits.BallotInput
	Authority *census.Authority
	Voter     *voter.Session
}

// DemoBallot registers the demo voter in a new census and builds its ballot
// input for the demo voting.
func DemoBallot(suite *crypto.Suite, levels int) (*Ballot, error) {
	return NewBallot(suite, levels, DemoSeed, DemoIndex, DemoVotingID, DemoVoteValue)
}

// NewBallot registers the voter of seedHex at index in a new census of the
// depth provided, managed by a random authority, and builds the ballot input
// of a vote for voteValue in votingID.
func NewBallot(suite *crypto.Suite, levels int, seedHex string, index uint64,
	votingID, voteValue *big.Int, opts ...voter.Option,
) (*Ballot, error) {
	session, err := voter.NewSessionFromSeed(suite, index, seedHex)
	if err != nil {
		return nil, err
	}
	tree, err := census.NewTree(nil, levels, suite.Hasher)
	if err != nil {
		return nil, err
	}
	authority, err := census.NewAuthority(identity.Random(suite.Curve), tree)
	if err != nil {
		return nil, err
	}
	pkHash, err := session.PublicKeyHash()
	if err != nil {
		return nil, err
	}
	if err := authority.Register(index, pkHash); err != nil {
		return nil, fmt.Errorf("cannot register voter: %w", err)
	}
	proof, err := authority.ProofOfInclusion(index)
	if err != nil {
		return nil, err
	}
	input, err := session.BuildInput(votingID, voteValue, proof, opts...)
	if err != nil {
		return nil, err
	}
	return &Ballot{Input: input, Authority: authority, Voter: session}, nil
}
