package prover

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseProtocol(t *testing.T) {
	c := qt.New(t)
	for in, want := range map[string]Protocol{
		"groth16": Groth16,
		"Groth16": Groth16,
		"groth":   Groth16,
		" plonk ": Plonk,
		"PLONK":   Plonk,
	} {
		p, err := ParseProtocol(in)
		c.Assert(err, qt.IsNil, qt.Commentf("input %q", in))
		c.Assert(p, qt.Equals, want)
	}
	for _, in := range []string{"", "stark", "fflonk"} {
		_, err := ParseProtocol(in)
		c.Assert(errors.Is(err, ErrUnsupportedProtocol), qt.IsTrue, qt.Commentf("input %q", in))
	}
}

func TestProofJSON(t *testing.T) {
	c := qt.New(t)
	proof := &Proof{
		Protocol:      Groth16,
		Data:          []byte{0xde, 0xad, 0xbe, 0xef},
		PublicSignals: []*big.Int{big.NewInt(1), big.NewInt(0), big.NewInt(2)},
	}
	data, err := json.Marshal(proof)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Contains, `"publicSignals":["1","0","2"]`)

	var decoded Proof
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded.Protocol, qt.Equals, Groth16)
	c.Assert([]byte(decoded.Data), qt.DeepEquals, proof.Data)
	c.Assert(SameSignals(decoded.PublicSignals, proof.PublicSignals), qt.IsTrue)

	err = json.Unmarshal([]byte(`{"protocol":"stark","data":"0x00","publicSignals":[]}`), &decoded)
	c.Assert(errors.Is(err, ErrUnsupportedProtocol), qt.IsTrue)
}

func TestSameSignals(t *testing.T) {
	c := qt.New(t)
	a := []*big.Int{big.NewInt(1), big.NewInt(2)}
	c.Assert(SameSignals(a, []*big.Int{big.NewInt(1), big.NewInt(2)}), qt.IsTrue)
	c.Assert(SameSignals(a, []*big.Int{big.NewInt(1)}), qt.IsFalse)
	c.Assert(SameSignals(a, []*big.Int{big.NewInt(1), nil}), qt.IsFalse)
	c.Assert(SameSignals(a, []*big.Int{big.NewInt(2), big.NewInt(1)}), qt.IsFalse)
}
