package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestErrorWrite(t *testing.T) {
	c := qt.New(t)
	w := httptest.NewRecorder()
	ErrCensusNotFound.Withf("census %d", 7).Write(w)
	c.Assert(w.Code, qt.Equals, http.StatusNotFound)
	c.Assert(w.Header().Get("Content-Type"), qt.Equals, "application/json")
	c.Assert(w.Body.String(), qt.Equals, `{"error":"census not found: census 7","code":40009}`+"\n")
}

func TestErrorUnwrap(t *testing.T) {
	c := qt.New(t)
	err := error(ErrNullifierUsed.WithErr(errors.New("twice")))
	c.Assert(errors.Is(err, ErrNullifierUsed.Err), qt.IsTrue)
	c.Assert(errors.Is(err, ErrCensusNotFound.Err), qt.IsFalse)
	c.Assert(err.Error(), qt.Equals, "nullifier already used: twice")
}
