package api

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/identity"
	"github.com/vocdoni/franchise-proof/prover"
	"github.com/vocdoni/franchise-proof/storage"
	"github.com/vocdoni/franchise-proof/types"
	"go.vocdoni.io/dvote/db/metadb"
)

func newTestAPI(t *testing.T) *API {
	stg := storage.New(metadb.NewTest(t))
	t.Cleanup(stg.Close)
	a, err := newAPI(&APIConfig{
		Storage:   stg,
		Authority: identity.Random(crypto.MustSuite(crypto.SuiteGnark).Curve),
	})
	qt.Assert(t, err, qt.IsNil)
	return a
}

// request sends a request to the router and decodes the response into out
// if the status is 200.
func request(t *testing.T, a *API, method, path string, body, out any) int {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		qt.Assert(t, err, qt.IsNil)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	if w.Code == http.StatusOK && out != nil {
		qt.Assert(t, json.Unmarshal(w.Body.Bytes(), out), qt.IsNil)
	}
	return w.Code
}

// errorCode sends a request expected to fail and returns the error code.
func errorCode(t *testing.T, a *API, method, path string, body any) int {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		qt.Assert(t, err, qt.IsNil)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	qt.Assert(t, w.Code, qt.Not(qt.Equals), http.StatusOK)
	var res struct {
		Code int `json:"code"`
	}
	qt.Assert(t, json.Unmarshal(w.Body.Bytes(), &res), qt.IsNil)
	return res.Code
}

func TestNewAPIConfig(t *testing.T) {
	c := qt.New(t)
	_, err := newAPI(nil)
	c.Assert(err, qt.ErrorMatches, "missing API configuration")
	_, err = newAPI(&APIConfig{})
	c.Assert(err, qt.ErrorMatches, "missing storage instance")
	stg := storage.New(metadb.NewTest(t))
	defer stg.Close()
	_, err = newAPI(&APIConfig{Storage: stg})
	c.Assert(err, qt.ErrorMatches, "missing census authority key")
}

func TestInfo(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(t)
	c.Assert(request(t, a, http.MethodGet, PingEndpoint, nil, nil), qt.Equals, http.StatusOK)

	info := &Info{}
	c.Assert(request(t, a, http.MethodGet, InfoEndpoint, nil, info), qt.Equals, http.StatusOK)
	c.Assert(info.Levels, qt.Equals, types.DefaultCensusLevels)
	c.Assert(info.Suite, qt.Equals, crypto.SuiteGnark)
	c.Assert(info.LevelPresets, qt.DeepEquals, types.CensusLevelPresets)
	x, _ := a.authority.PublicXY()
	c.Assert(info.GlobalCommitment.MathBigInt().Cmp(x), qt.Equals, 0)
}

func TestCensusLifecycle(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(t)

	nc := &NewCensus{}
	c.Assert(request(t, a, http.MethodPost, CensusesEndpoint, nil, nc), qt.Equals, http.StatusOK)
	c.Assert(nc.Levels, qt.Equals, types.DefaultCensusLevels)
	c.Assert(nc.Suite, qt.Equals, crypto.SuiteGnark)
	base := CensusesEndpoint + "/" + nc.Census.String()

	size := &CensusSize{}
	c.Assert(request(t, a, http.MethodGet, base+"/size", nil, size), qt.Equals, http.StatusOK)
	c.Assert(size.Size, qt.Equals, 0)

	// single participant
	one := &CensusParticipants{Participants: []*CensusParticipant{
		{Index: 1337, PublicKeyHash: types.NewInt(1000)},
	}}
	added := &AddParticipantsResponse{}
	c.Assert(request(t, a, http.MethodPost, base+"/participants", one, added), qt.Equals, http.StatusOK)
	c.Assert(added.Added, qt.Equals, 1)
	c.Assert(errorCode(t, a, http.MethodPost, base+"/participants", one), qt.Equals, ErrDuplicateIndex.Code)

	outOfRange := &CensusParticipants{Participants: []*CensusParticipant{
		{Index: 1 << 16, PublicKeyHash: types.NewInt(1)},
	}}
	c.Assert(errorCode(t, a, http.MethodPost, base+"/participants", outOfRange), qt.Equals, ErrInvalidCensusIndex.Code)

	// batch with a duplicate
	batch := &CensusParticipants{Participants: []*CensusParticipant{
		{Index: 1, PublicKeyHash: types.NewInt(1001)},
		{Index: 2, PublicKeyHash: types.NewInt(1002)},
		{Index: 1337, PublicKeyHash: types.NewInt(1003)},
	}}
	added = &AddParticipantsResponse{}
	c.Assert(request(t, a, http.MethodPost, base+"/participants", batch, added), qt.Equals, http.StatusOK)
	c.Assert(added.Added, qt.Equals, 2)
	c.Assert(added.Rejected, qt.DeepEquals, []uint64{1337})

	participants := &CensusParticipants{}
	c.Assert(request(t, a, http.MethodGet, base+"/participants", nil, participants), qt.Equals, http.StatusOK)
	c.Assert(participants.Participants, qt.HasLen, 3)
	byIndex := map[uint64]int64{}
	for _, p := range participants.Participants {
		byIndex[p.Index] = p.PublicKeyHash.MathBigInt().Int64()
	}
	c.Assert(byIndex, qt.DeepEquals, map[uint64]int64{1: 1001, 2: 1002, 1337: 1000})

	c.Assert(request(t, a, http.MethodGet, base+"/size", nil, size), qt.Equals, http.StatusOK)
	c.Assert(size.Size, qt.Equals, 3)

	root := &CensusRoot{}
	c.Assert(request(t, a, http.MethodGet, base+"/root", nil, root), qt.Equals, http.StatusOK)
	c.Assert(root.Root.MathBigInt().Sign(), qt.Equals, 1)

	// inclusion proof by root, always padded to the census depth
	proof := &types.CensusProof{}
	path := CensusProofEndpoint + "?root=" + root.Root.String() + "&index=1337"
	c.Assert(request(t, a, http.MethodGet, path, nil, proof), qt.Equals, http.StatusOK)
	c.Assert(proof.Index, qt.Equals, uint64(1337))
	c.Assert(proof.Root.Equal(root.Root), qt.IsTrue)
	c.Assert(proof.Siblings, qt.HasLen, types.DefaultCensusLevels)
	x, _ := a.authority.PublicXY()
	c.Assert(proof.GlobalCommitment.MathBigInt().Cmp(x), qt.Equals, 0)

	c.Assert(errorCode(t, a, http.MethodGet, CensusProofEndpoint+"?root=12345&index=1", nil),
		qt.Equals, ErrResourceNotFound.Code)
	c.Assert(errorCode(t, a, http.MethodGet, CensusProofEndpoint+"?root=abc&index=1", nil),
		qt.Equals, ErrInvalidCensusRoot.Code)
	c.Assert(errorCode(t, a, http.MethodGet, CensusProofEndpoint+"?root="+root.Root.String()+"&index=x", nil),
		qt.Equals, ErrInvalidCensusIndex.Code)
	c.Assert(errorCode(t, a, http.MethodGet, CensusProofEndpoint+"?root="+root.Root.String()+"&index=3", nil),
		qt.Equals, ErrResourceNotFound.Code)

	// delete
	c.Assert(request(t, a, http.MethodDelete, base, nil, nil), qt.Equals, http.StatusOK)
	c.Assert(errorCode(t, a, http.MethodGet, base+"/root", nil), qt.Equals, ErrCensusNotFound.Code)
	c.Assert(errorCode(t, a, http.MethodDelete, base, nil), qt.Equals, ErrCensusNotFound.Code)
}

func TestCensusErrors(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(t)

	c.Assert(errorCode(t, a, http.MethodGet, CensusesEndpoint+"/not-a-uuid/root", nil),
		qt.Equals, ErrInvalidCensusID.Code)
	c.Assert(errorCode(t, a, http.MethodPost, CensusesEndpoint, &NewCensusRequest{Suite: "sha256"}),
		qt.Equals, ErrUnsupportedSuite.Code)
	c.Assert(errorCode(t, a, http.MethodPost, CensusesEndpoint, &NewCensusRequest{Levels: types.CensusTreeMaxLevels + 1}),
		qt.Equals, ErrInvalidCensusLevels.Code)

	nc := &NewCensus{}
	c.Assert(request(t, a, http.MethodPost, CensusesEndpoint, &NewCensusRequest{Levels: 16, Suite: crypto.SuiteCircom}, nc),
		qt.Equals, http.StatusOK)
	c.Assert(nc.Levels, qt.Equals, 16)
	c.Assert(nc.Suite, qt.Equals, crypto.SuiteCircom)
	base := CensusesEndpoint + "/" + nc.Census.String()
	c.Assert(errorCode(t, a, http.MethodPost, base+"/participants", &CensusParticipants{}),
		qt.Equals, ErrMalformedBody.Code)
	c.Assert(errorCode(t, a, http.MethodPost, base+"/participants",
		&CensusParticipants{Participants: []*CensusParticipant{{Index: 1}}}),
		qt.Equals, ErrMalformedBody.Code)
}

func TestVerifyingKeyErrors(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(t)

	c.Assert(errorCode(t, a, http.MethodPost, VerifyingKeysEndpoint,
		&storage.VerifyingKey{Protocol: "stark", Levels: 10, Key: []byte{1}}),
		qt.Equals, ErrUnsupportedProtocol.Code)
	c.Assert(errorCode(t, a, http.MethodPost, VerifyingKeysEndpoint,
		&storage.VerifyingKey{Protocol: "groth16", Levels: 0, Key: []byte{1}}),
		qt.Equals, ErrInvalidCensusLevels.Code)
	c.Assert(errorCode(t, a, http.MethodPost, VerifyingKeysEndpoint,
		&storage.VerifyingKey{Protocol: "groth16", Levels: 10, Key: []byte{1, 2, 3}}),
		qt.Equals, ErrMalformedBody.Code)
	c.Assert(errorCode(t, a, http.MethodGet, VerifyingKeysEndpoint+"/groth16/10", nil),
		qt.Equals, ErrVerifyingKeyNotFound.Code)
	c.Assert(errorCode(t, a, http.MethodGet, VerifyingKeysEndpoint+"/stark/10", nil),
		qt.Equals, ErrUnsupportedProtocol.Code)
	c.Assert(errorCode(t, a, http.MethodGet, VerifyingKeysEndpoint+"/plonk/ten", nil),
		qt.Equals, ErrInvalidCensusLevels.Code)
}

func TestVoteErrors(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(t)

	c.Assert(errorCode(t, a, http.MethodPost, VotesEndpoint, &Vote{}), qt.Equals, ErrMalformedBody.Code)

	proof := &prover.Proof{
		Protocol:      prover.Groth16,
		Data:          []byte{1},
		PublicSignals: []*big.Int{big.NewInt(1), big.NewInt(2)},
	}
	vote := &Vote{Nullifier: types.NewInt(1), Proof: proof}
	c.Assert(errorCode(t, a, http.MethodPost, VotesEndpoint, vote), qt.Equals, ErrInvalidProof.Code)

	proof.PublicSignals = []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(0)}
	c.Assert(errorCode(t, a, http.MethodPost, VotesEndpoint, vote), qt.Equals, ErrVerifyingKeyNotFound.Code)

	c.Assert(errorCode(t, a, http.MethodGet, VotesEndpoint+"/abc", nil), qt.Equals, ErrInvalidVotingID.Code)
	votes := &Votes{}
	c.Assert(request(t, a, http.MethodGet, VotesEndpoint+"/1", nil, votes), qt.Equals, http.StatusOK)
	c.Assert(votes.Votes, qt.HasLen, 0)
}

func TestParseField(t *testing.T) {
	c := qt.New(t)
	v, err := parseField("0x10")
	c.Assert(err, qt.IsNil)
	c.Assert(v.Int64(), qt.Equals, int64(16))
	v, err = parseField("42")
	c.Assert(err, qt.IsNil)
	c.Assert(v.Int64(), qt.Equals, int64(42))
	_, err = parseField("")
	c.Assert(err, qt.IsNotNil)
	_, err = parseField("-1")
	c.Assert(err, qt.IsNotNil)
	_, err = parseField(strings.Repeat("9", 80))
	c.Assert(err, qt.IsNotNil)
}
