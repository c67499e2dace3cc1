package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/franchise-proof/circuits"
	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/prover/gnarkprover"
	"github.com/vocdoni/franchise-proof/storage"
	"github.com/vocdoni/franchise-proof/types"
)

// newVote verifies a franchise proof with the stored verification key and
// registers its nullifier.
//
// The nullifier is advisory. It is sent next to the proof, it is not one of
// the public signals and the proof does not bind it. The endpoint only
// rejects a nullifier it already registered for the voting, so the same
// proof submitted again with a fresh nullifier is accepted as another vote.
// The endpoint does not enforce one vote per voter.
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	vote := &Vote{}
	if err := json.NewDecoder(r.Body).Decode(vote); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if vote.Proof == nil || vote.Nullifier == nil {
		ErrMalformedBody.With("missing proof or nullifier").Write(w)
		return
	}
	if vote.Levels == 0 {
		vote.Levels = a.levels
	}
	signals := vote.Proof.PublicSignals
	if len(signals) != circuits.BallotPublicSignals {
		ErrInvalidProof.Withf("expected %d public signals, got %d", circuits.BallotPublicSignals, len(signals)).Write(w)
		return
	}
	for _, s := range signals {
		if s == nil {
			ErrInvalidProof.With("missing public signal").Write(w)
			return
		}
	}

	system, err := gnarkprover.New(vote.Proof.Protocol)
	if err != nil {
		ErrUnsupportedProtocol.WithErr(err).Write(w)
		return
	}
	stored, err := a.storage.VerifyingKey(vote.Proof.Protocol.String(), vote.Levels)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrVerifyingKeyNotFound.Withf("%s with %d levels", vote.Proof.Protocol, vote.Levels).Write(w)
		} else {
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}
	vk, err := gnarkprover.ReadVerifyingKey(vote.Proof.Protocol, stored.Key)
	if err != nil {
		ErrGenericInternalServerError.Withf("cannot decode verification key: %v", err).Write(w)
		return
	}

	// the proof must be about a census of this authority
	root := signals[circuits.SignalCensusRoot]
	if _, err := a.storage.Censuses().SizeByRoot(root); err != nil {
		ErrUnknownCensusRoot.WithErr(err).Write(w)
		return
	}
	if signals[circuits.SignalGlobalCommitment].Cmp(a.globalCommitment()) != 0 {
		ErrWrongGlobalCommitment.Write(w)
		return
	}

	ok, err := system.Verify(vk, vote.Proof)
	if err != nil {
		ErrInvalidProof.WithErr(err).Write(w)
		return
	}
	if !ok {
		ErrInvalidProof.With("verification failed").Write(w)
		return
	}

	votingID := signals[circuits.SignalVotingID]
	voteValue := signals[circuits.SignalVoteValue]
	if err := a.storage.AcceptVote(&storage.Vote{
		VotingID:   (*types.BigInt)(votingID),
		Nullifier:  vote.Nullifier,
		VoteValue:  (*types.BigInt)(voteValue),
		CensusRoot: (*types.BigInt)(root),
		Protocol:   vote.Proof.Protocol.String(),
		Proof:      vote.Proof.Data,
	}); err != nil {
		if errors.Is(err, storage.ErrNullifierUsed) {
			ErrNullifierUsed.WithErr(err).Write(w)
		} else {
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}
	if signals[circuits.SignalGlobalNullifier].Sign() != 0 {
		log.Warnw("vote accepted through the global nullifier override", "votingId", votingID.String())
	}
	httpWriteJSON(w, &VoteResponse{
		VotingID:  (*types.BigInt)(votingID),
		VoteValue: (*types.BigInt)(voteValue),
	})
}

// votes lists the votes accepted on a voting.
// GET /votes/{votingId}
func (a *API) votes(w http.ResponseWriter, r *http.Request) {
	votingID, err := parseField(chi.URLParam(r, VotingURLParam))
	if err != nil {
		ErrInvalidVotingID.WithErr(err).Write(w)
		return
	}
	stored, err := a.storage.Votes(votingID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	res := &Votes{Votes: make([]*VoteResponse, 0, len(stored))}
	for _, v := range stored {
		res.Votes = append(res.Votes, &VoteResponse{VotingID: v.VotingID, VoteValue: v.VoteValue})
	}
	httpWriteJSON(w, res)
}
