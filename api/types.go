package api

import (
	"github.com/google/uuid"
	"github.com/vocdoni/franchise-proof/prover"
	"github.com/vocdoni/franchise-proof/types"
)

// Info describes the census authority served by the API.
type Info struct {
	GlobalCommitment *types.BigInt `json:"globalCommitment"`
	Levels           int           `json:"levels"`
	Suite            string        `json:"suite"`
	LevelPresets     []int         `json:"levelPresets"`
}

// NewCensusRequest is the optional body of a census creation request.
// Zero values select the defaults of the node.
type NewCensusRequest struct {
	Levels int    `json:"levels,omitempty"`
	Suite  string `json:"suite,omitempty"`
}

// NewCensus is the response to a new census creation request.
type NewCensus struct {
	Census uuid.UUID `json:"census"`
	Levels int       `json:"levels"`
	Suite  string    `json:"suite"`
}

// CensusRoot is the response to a census root request.
type CensusRoot struct {
	Root *types.BigInt `json:"root"`
}

// CensusSize is the response to a census size request.
type CensusSize struct {
	Size int `json:"size"`
}

// CensusParticipant is a voter of a census.
type CensusParticipant struct {
	Index         uint64        `json:"index"`
	PublicKeyHash *types.BigInt `json:"publicKeyHash"`
}

// CensusParticipants is a list of participants in a census.
type CensusParticipants struct {
	Participants []*CensusParticipant `json:"participants"`
}

// AddParticipantsResponse lists the participants that could not be added.
type AddParticipantsResponse struct {
	Added    int      `json:"added"`
	Rejected []uint64 `json:"rejected,omitempty"`
}

// Vote is a franchise proof submitted to cast a vote. The nullifier is
// not among the public signals of the circuit, so it is sent alongside the
// proof for the double vote registry.
type Vote struct {
	Nullifier *types.BigInt `json:"nullifier"`
	Levels    int           `json:"levels"`
	Proof     *prover.Proof `json:"proof"`
}

// VoteResponse is the response to an accepted vote.
type VoteResponse struct {
	VotingID  *types.BigInt `json:"votingId"`
	VoteValue *types.BigInt `json:"voteValue"`
}

// Votes is the list of votes accepted on a voting.
type Votes struct {
	Votes []*VoteResponse `json:"votes"`
}
