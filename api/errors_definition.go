//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404 (or even 204), whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 4010, 4011 and 4013 exist, 4012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status,
// for example the fact that Code 4045 returns HTTP Status 404 Not Found is just a coincidence
var (
	ErrResourceNotFound      = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody         = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidCensusID       = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid census ID")}
	ErrCensusNotFound        = Error{Code: 40009, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("census not found")}
	ErrInvalidCensusRoot     = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid census root")}
	ErrInvalidCensusIndex    = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid census index")}
	ErrDuplicateIndex        = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("duplicate census index")}
	ErrInvalidCensusLevels   = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid census levels")}
	ErrUnsupportedSuite      = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unsupported crypto suite")}
	ErrUnsupportedProtocol   = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unsupported proving protocol")}
	ErrVerifyingKeyNotFound  = Error{Code: 40016, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("verification key not found")}
	ErrInvalidProof          = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid proof")}
	ErrUnknownCensusRoot     = Error{Code: 40018, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown census root")}
	ErrWrongGlobalCommitment = Error{Code: 40019, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("wrong global commitment")}
	ErrNullifierUsed         = Error{Code: 40020, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("nullifier already used")}
	ErrInvalidVotingID       = Error{Code: 40021, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid voting ID")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
