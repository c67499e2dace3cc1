package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/franchise-proof/prover"
	"github.com/vocdoni/franchise-proof/prover/gnarkprover"
	"github.com/vocdoni/franchise-proof/storage"
)

// setVerifyingKey stores the verification key of the franchise circuit for
// a protocol and census depth. The key must decode as a gnark key of the
// protocol.
// POST /verifyingkeys
func (a *API) setVerifyingKey(w http.ResponseWriter, r *http.Request) {
	vk := &storage.VerifyingKey{}
	if err := json.NewDecoder(r.Body).Decode(vk); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	protocol, err := prover.ParseProtocol(vk.Protocol)
	if err != nil {
		ErrUnsupportedProtocol.WithErr(err).Write(w)
		return
	}
	vk.Protocol = protocol.String()
	if vk.Levels <= 0 {
		ErrInvalidCensusLevels.Withf("%d", vk.Levels).Write(w)
		return
	}
	if _, err := gnarkprover.ReadVerifyingKey(protocol, vk.Key); err != nil {
		ErrMalformedBody.Withf("invalid verification key: %v", err).Write(w)
		return
	}
	if err := a.storage.SetVerifyingKey(vk); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// verifyingKey returns a stored verification key.
// GET /verifyingkeys/{protocol}/{levels}
func (a *API) verifyingKey(w http.ResponseWriter, r *http.Request) {
	protocol, err := prover.ParseProtocol(chi.URLParam(r, ProtocolURLParam))
	if err != nil {
		ErrUnsupportedProtocol.WithErr(err).Write(w)
		return
	}
	levels, err := strconv.Atoi(chi.URLParam(r, LevelsURLParam))
	if err != nil {
		ErrInvalidCensusLevels.WithErr(err).Write(w)
		return
	}
	vk, err := a.storage.VerifyingKey(protocol.String(), levels)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrVerifyingKeyNotFound.Withf("%s with %d levels", protocol, levels).Write(w)
		} else {
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}
	httpWriteJSON(w, vk)
}
