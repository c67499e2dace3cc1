package storage

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Vote is an accepted vote: its public signals and the proof that backed
// it.
type Vote struct {
	VotingID   *types.BigInt  `cbor:"votingId" json:"votingId"`
	Nullifier  *types.BigInt  `cbor:"nullifier" json:"nullifier"`
	VoteValue  *types.BigInt  `cbor:"voteValue" json:"voteValue"`
	CensusRoot *types.BigInt  `cbor:"censusRoot" json:"censusRoot"`
	Protocol   string         `cbor:"protocol" json:"protocol"`
	Proof      types.HexBytes `cbor:"proof" json:"proof"`
}

// AcceptVote spends the nullifier of the vote and stores it. It returns
// ErrNullifierUsed if the voter already voted.
func (s *Storage) AcceptVote(v *Vote) error {
	if v == nil || v.VotingID == nil || v.Nullifier == nil {
		return fmt.Errorf("incomplete vote")
	}
	key, err := fieldKeys(v.VotingID.MathBigInt(), v.Nullifier.MathBigInt())
	if err != nil {
		return err
	}
	if err := s.RegisterNullifier(v.VotingID.MathBigInt(), v.Nullifier.MathBigInt()); err != nil {
		return err
	}
	if err := s.setArtifact(votePrefix, key, v); err != nil {
		return fmt.Errorf("store vote: %w", err)
	}
	log.Infow("vote accepted", "votingId", v.VotingID.String(), "value", v.VoteValue.String())
	return nil
}

// Vote returns the vote cast with nullifier on votingID, or ErrNotFound.
func (s *Storage) Vote(votingID, nullifier *big.Int) (*Vote, error) {
	key, err := fieldKeys(votingID, nullifier)
	if err != nil {
		return nil, err
	}
	v := &Vote{}
	if err := s.getArtifact(votePrefix, key, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Votes returns the votes accepted on votingID.
func (s *Storage) Votes(votingID *big.Int) ([]*Vote, error) {
	prefix, err := fieldKey(votingID)
	if err != nil {
		return nil, err
	}
	var votes []*Vote
	rd := prefixeddb.NewPrefixedReader(s.db, votePrefix)
	if err := rd.Iterate(prefix, func(k, data []byte) bool {
		v := &Vote{}
		if err := decodeArtifact(data, v); err != nil {
			log.Warnw("failed to decode vote", "key", fmt.Sprintf("%x", k), "error", err)
			return true
		}
		votes = append(votes, v)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}
	return votes, nil
}
