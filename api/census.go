package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	fcensus "github.com/vocdoni/franchise-proof/census"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/storage/census"
	"github.com/vocdoni/franchise-proof/types"
)

// newCensus creates a new empty census.
// POST /censuses
func (a *API) newCensus(w http.ResponseWriter, r *http.Request) {
	req := &NewCensusRequest{}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
			ErrMalformedBody.WithErr(err).Write(w)
			return
		}
	}
	if req.Levels == 0 {
		req.Levels = a.levels
	}
	if req.Suite == "" {
		req.Suite = a.suite
	}
	censusID := uuid.New()
	if _, err := a.storage.Censuses().New(censusID, req.Levels, req.Suite); err != nil {
		switch {
		case errors.Is(err, crypto.ErrUnsupportedSuite):
			ErrUnsupportedSuite.WithErr(err).Write(w)
		case errors.Is(err, fcensus.ErrInvalidLevels):
			ErrInvalidCensusLevels.WithErr(err).Write(w)
		default:
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}
	httpWriteJSON(w, &NewCensus{Census: censusID, Levels: req.Levels, Suite: req.Suite})
}

// loadCensus loads the census of the request URL, writing the error
// response if it cannot.
func (a *API) loadCensus(w http.ResponseWriter, r *http.Request) (*census.CensusRef, bool) {
	censusID, err := censusIDParam(r)
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return nil, false
	}
	ref, err := a.storage.Censuses().Load(censusID)
	if err != nil {
		if errors.Is(err, census.ErrCensusNotFound) {
			ErrCensusNotFound.WithErr(err).Write(w)
		} else {
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return nil, false
	}
	return ref, true
}

// addCensusParticipants registers voters in a census. Participants with an
// index already in use, colliding or out of range are returned as rejected.
// POST /censuses/{censusId}/participants
func (a *API) addCensusParticipants(w http.ResponseWriter, r *http.Request) {
	var participants CensusParticipants
	if err := json.NewDecoder(r.Body).Decode(&participants); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if len(participants.Participants) == 0 {
		ErrMalformedBody.WithErr(fmt.Errorf("no participants provided")).Write(w)
		return
	}
	ref, ok := a.loadCensus(w, r)
	if !ok {
		return
	}

	indexes := make([]uint64, 0, len(participants.Participants))
	hashes := make([]*big.Int, 0, len(participants.Participants))
	for _, p := range participants.Participants {
		if p == nil || p.PublicKeyHash == nil {
			ErrMalformedBody.WithErr(fmt.Errorf("participant without public key hash")).Write(w)
			return
		}
		indexes = append(indexes, p.Index)
		hashes = append(hashes, p.PublicKeyHash.MathBigInt())
	}

	// a single participant gets a precise error
	if len(indexes) == 1 {
		if err := ref.Insert(indexes[0], hashes[0]); err != nil {
			switch {
			case errors.Is(err, fcensus.ErrDuplicateIndex):
				ErrDuplicateIndex.WithErr(err).Write(w)
			case errors.Is(err, fcensus.ErrIndexOutOfRange), errors.Is(err, fcensus.ErrIndexCollision):
				ErrInvalidCensusIndex.WithErr(err).Write(w)
			default:
				ErrMalformedBody.WithErr(err).Write(w)
			}
			return
		}
		httpWriteJSON(w, &AddParticipantsResponse{Added: 1})
		return
	}

	rejected, err := ref.InsertBatch(indexes, hashes)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &AddParticipantsResponse{
		Added:    len(indexes) - len(rejected),
		Rejected: rejected,
	})
}

// censusParticipants lists the voters of a census.
// GET /censuses/{censusId}/participants
func (a *API) censusParticipants(w http.ResponseWriter, r *http.Request) {
	ref, ok := a.loadCensus(w, r)
	if !ok {
		return
	}
	participants := &CensusParticipants{Participants: []*CensusParticipant{}}
	if err := ref.Leaves(func(index uint64, publicKeyHash *big.Int) {
		participants.Participants = append(participants.Participants, &CensusParticipant{
			Index:         index,
			PublicKeyHash: (*types.BigInt)(publicKeyHash),
		})
	}); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, participants)
}

// censusRoot returns the current root of a census.
// GET /censuses/{censusId}/root
func (a *API) censusRoot(w http.ResponseWriter, r *http.Request) {
	ref, ok := a.loadCensus(w, r)
	if !ok {
		return
	}
	root, err := ref.Root()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &CensusRoot{Root: (*types.BigInt)(root)})
}

// censusSize returns the number of voters of a census.
// GET /censuses/{censusId}/size
func (a *API) censusSize(w http.ResponseWriter, r *http.Request) {
	ref, ok := a.loadCensus(w, r)
	if !ok {
		return
	}
	size, err := ref.Size()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &CensusSize{Size: size})
}

// deleteCensus removes a census.
// DELETE /censuses/{censusId}
func (a *API) deleteCensus(w http.ResponseWriter, r *http.Request) {
	censusID, err := censusIDParam(r)
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return
	}
	if err := a.storage.Censuses().Del(censusID); err != nil {
		if errors.Is(err, census.ErrCensusNotFound) {
			ErrCensusNotFound.WithErr(err).Write(w)
		} else {
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}
	httpWriteOK(w)
}

// censusProof returns the inclusion proof of a voter, with the global
// commitment of the authority.
// GET /censuses/proof?root=<root>&index=<index>
func (a *API) censusProof(w http.ResponseWriter, r *http.Request) {
	root, err := parseField(r.URL.Query().Get("root"))
	if err != nil {
		ErrInvalidCensusRoot.WithErr(err).Write(w)
		return
	}
	index, err := strconv.ParseUint(r.URL.Query().Get("index"), 10, 64)
	if err != nil {
		ErrInvalidCensusIndex.WithErr(err).Write(w)
		return
	}
	proof, err := a.storage.Censuses().ProofByRoot(root, index)
	if err != nil {
		switch {
		case errors.Is(err, census.ErrRootNotFound), errors.Is(err, fcensus.ErrLeafNotFound):
			ErrResourceNotFound.WithErr(err).Write(w)
		case errors.Is(err, fcensus.ErrIndexOutOfRange):
			ErrInvalidCensusIndex.WithErr(err).Write(w)
		default:
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}
	proof.GlobalCommitment = a.globalCommitment()
	httpWriteJSON(w, proof.CensusProof())
}
