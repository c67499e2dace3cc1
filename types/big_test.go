package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

// a field element close to the BN254 modulus, larger than any machine word
var fieldElement, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495616", 10)

func TestCensusProofJSON(t *testing.T) {
	c := qt.New(t)
	proof := &CensusProof{
		Index:            1337,
		Root:             (*BigInt)(fieldElement),
		Siblings:         BigIntSlice([]*big.Int{big.NewInt(7), big.NewInt(0)}),
		GlobalCommitment: NewInt(42),
	}
	data, err := json.Marshal(proof)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals,
		`{"index":1337,"root":"`+fieldElement.String()+`","siblings":["7","0"],"globalCommitment":"42"}`)

	decoded := &CensusProof{}
	c.Assert(json.Unmarshal(data, decoded), qt.IsNil)
	c.Assert(decoded.Root.Equal(proof.Root), qt.IsTrue)
	c.Assert(MathBigIntSlice(decoded.Siblings)[0].Int64(), qt.Equals, int64(7))
}

func TestBigIntCBOR(t *testing.T) {
	c := qt.New(t)
	type leaf struct {
		Index uint64  `cbor:"index"`
		Hash  *BigInt `cbor:"hash"`
	}
	data, err := cbor.Marshal(&leaf{Index: 1, Hash: (*BigInt)(fieldElement)})
	c.Assert(err, qt.IsNil)

	var decoded leaf
	c.Assert(cbor.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded.Hash.MathBigInt().Cmp(fieldElement), qt.Equals, 0)
}

func TestBigIntSetters(t *testing.T) {
	c := qt.New(t)
	v := new(BigInt).SetUint64(5)
	c.Assert(v.String(), qt.Equals, "5")
	c.Assert(v.Equal(NewInt(5)), qt.IsTrue)
	v.SetBigInt(big.NewInt(6))
	c.Assert(v.Equal(NewInt(5)), qt.IsFalse)
	c.Assert(new(BigInt).UnmarshalText([]byte("0x10")), qt.IsNotNil)
}
