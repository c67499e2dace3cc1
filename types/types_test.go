package types

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestHexBytesJSON(t *testing.T) {
	c := qt.New(t)
	b := HexBytes{0x01, 0x02, 0xff}
	data, err := json.Marshal(b)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"0x0102ff"`)

	var decoded HexBytes
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded, qt.DeepEquals, b)

	// the prefix is optional
	c.Assert(json.Unmarshal([]byte(`"0102ff"`), &decoded), qt.IsNil)
	c.Assert(decoded, qt.DeepEquals, b)

	c.Assert(json.Unmarshal([]byte(`"0x"`), &decoded), qt.IsNil)
	c.Assert(decoded, qt.HasLen, 0)

	c.Assert(json.Unmarshal([]byte(`"0xzz"`), &decoded), qt.IsNotNil)
}

func TestBigIntDecimalString(t *testing.T) {
	c := qt.New(t)
	data, err := json.Marshal(NewInt(1337))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"1337"`)

	bi := new(BigInt)
	c.Assert(json.Unmarshal([]byte(`"21888242871839275222246405745257275088548364400416034343698204186575808495616"`), bi), qt.IsNil)
	c.Assert(bi.String(), qt.Equals, "21888242871839275222246405745257275088548364400416034343698204186575808495616")
	c.Assert(json.Unmarshal([]byte(`"12a"`), bi), qt.IsNotNil)
}
