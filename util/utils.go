package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// RandomSeed generates a random 32-byte identity seed.
func RandomSeed() []byte {
	return RandomBytes(32)
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// bn254ScalarField is the scalar field of BN254, which is the base field of
// the BabyJubJub curve and the field every circuit signal lives in.
var bn254ScalarField = ecc.BN254.ScalarField()

// BigToFF returns the finite field representation of the big.Int provided,
// using the BN254 scalar field as modulus.
func BigToFF(iv *big.Int) *big.Int {
	z := big.NewInt(0)
	if c := iv.Cmp(bn254ScalarField); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return iv
	}
	return z.Mod(iv, bn254ScalarField)
}

// IsFieldElement reports whether v is a canonical BN254 scalar field element.
func IsFieldElement(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(bn254ScalarField) < 0
}

// PrettyHex returns a short hex representation of a field element or circuit
// variable, useful for logs and api.Println calls.
func PrettyHex(v frontend.Variable) string {
	switch t := v.(type) {
	case *big.Int:
		return prettyHexString(t.Text(16))
	case big.Int:
		return prettyHexString(t.Text(16))
	case int:
		return prettyHexString(fmt.Sprintf("%x", t))
	case uint64:
		return prettyHexString(fmt.Sprintf("%x", t))
	case []byte:
		return prettyHexString(fmt.Sprintf("%x", t))
	default:
		return fmt.Sprint(v)
	}
}

func prettyHexString(s string) string {
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0x0"
	}
	if len(s) > 8 {
		return "0x" + s[:4] + ".." + s[len(s)-4:]
	}
	return "0x" + s
}
