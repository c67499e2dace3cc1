package client

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/vocdoni/franchise-proof/api"
	"github.com/vocdoni/franchise-proof/census"
	"github.com/vocdoni/franchise-proof/storage"
	"github.com/vocdoni/franchise-proof/types"
)

// Info returns the census authority parameters.
func (c *HTTPclient) Info() (*api.Info, error) {
	info := &api.Info{}
	if err := c.call(HTTPGET, nil, info, nil, api.InfoEndpoint); err != nil {
		return nil, err
	}
	return info, nil
}

// NewCensus creates a census. Zero levels or an empty suite select the
// defaults of the node.
func (c *HTTPclient) NewCensus(levels int, suite string) (*api.NewCensus, error) {
	res := &api.NewCensus{}
	req := &api.NewCensusRequest{Levels: levels, Suite: suite}
	if err := c.call(HTTPPOST, req, res, nil, api.CensusesEndpoint); err != nil {
		return nil, err
	}
	return res, nil
}

func censusPath(id uuid.UUID, sub string) string {
	return api.CensusesEndpoint + "/" + id.String() + sub
}

// AddParticipants registers voters in a census.
func (c *HTTPclient) AddParticipants(id uuid.UUID, participants ...*api.CensusParticipant) (*api.AddParticipantsResponse, error) {
	res := &api.AddParticipantsResponse{}
	req := &api.CensusParticipants{Participants: participants}
	if err := c.call(HTTPPOST, req, res, nil, censusPath(id, "/participants")); err != nil {
		return nil, err
	}
	return res, nil
}

// Participants lists the voters of a census.
func (c *HTTPclient) Participants(id uuid.UUID) ([]*api.CensusParticipant, error) {
	res := &api.CensusParticipants{}
	if err := c.call(HTTPGET, nil, res, nil, censusPath(id, "/participants")); err != nil {
		return nil, err
	}
	return res.Participants, nil
}

// CensusRoot returns the current root of a census.
func (c *HTTPclient) CensusRoot(id uuid.UUID) (*big.Int, error) {
	res := &api.CensusRoot{}
	if err := c.call(HTTPGET, nil, res, nil, censusPath(id, "/root")); err != nil {
		return nil, err
	}
	if res.Root == nil {
		return nil, fmt.Errorf("empty census root")
	}
	return res.Root.MathBigInt(), nil
}

// CensusSize returns the number of voters of a census.
func (c *HTTPclient) CensusSize(id uuid.UUID) (int, error) {
	res := &api.CensusSize{}
	if err := c.call(HTTPGET, nil, res, nil, censusPath(id, "/size")); err != nil {
		return 0, err
	}
	return res.Size, nil
}

// DeleteCensus removes a census.
func (c *HTTPclient) DeleteCensus(id uuid.UUID) error {
	return c.call(HTTPDELETE, nil, nil, nil, censusPath(id, ""))
}

// CensusProof returns the inclusion proof of the voter at index in the
// census with the root provided.
func (c *HTTPclient) CensusProof(root *big.Int, index uint64) (*census.InclusionProof, error) {
	res := &types.CensusProof{}
	params := []string{"root", root.String(), "index", strconv.FormatUint(index, 10)}
	if err := c.call(HTTPGET, nil, res, params, api.CensusProofEndpoint); err != nil {
		return nil, err
	}
	return census.ProofFromCensusProof(res)
}

// SetVerifyingKey uploads a verification key of the franchise circuit.
func (c *HTTPclient) SetVerifyingKey(vk *storage.VerifyingKey) error {
	return c.call(HTTPPOST, vk, nil, nil, api.VerifyingKeysEndpoint)
}

// VerifyingKey downloads a stored verification key.
func (c *HTTPclient) VerifyingKey(protocol string, levels int) (*storage.VerifyingKey, error) {
	vk := &storage.VerifyingKey{}
	path := api.VerifyingKeysEndpoint + "/" + protocol + "/" + strconv.Itoa(levels)
	if err := c.call(HTTPGET, nil, vk, nil, path); err != nil {
		return nil, err
	}
	return vk, nil
}

// SubmitVote casts a vote backed by a franchise proof.
func (c *HTTPclient) SubmitVote(vote *api.Vote) (*api.VoteResponse, error) {
	res := &api.VoteResponse{}
	if err := c.call(HTTPPOST, vote, res, nil, api.VotesEndpoint); err != nil {
		return nil, err
	}
	return res, nil
}

// Votes lists the votes accepted on a voting.
func (c *HTTPclient) Votes(votingID *big.Int) ([]*api.VoteResponse, error) {
	res := &api.Votes{}
	if err := c.call(HTTPGET, nil, res, nil, api.VotesEndpoint+"/"+votingID.String()); err != nil {
		return nil, err
	}
	return res.Votes, nil
}
