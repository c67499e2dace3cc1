package poseidon

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/arbo"
)

// HashType is the identifier of the Poseidon hasher.
const HashType = "poseidon"

// Hasher is the circomlib compatible Poseidon hash over BN254.
type Hasher struct{}

// New returns a Poseidon hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the Poseidon hash of the inputs. Inputs beyond 16 elements
// are hashed with MultiPoseidon.
func (*Hasher) Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) > maxInputs {
		return MultiPoseidon(inputs...)
	}
	return poseidon.Hash(inputs)
}

// Arbo returns the arbo Poseidon hash function.
func (*Hasher) Arbo() arbo.HashFunction {
	return arbo.HashFunctionPoseidon
}

// Type returns the hash identifier.
func (*Hasher) Type() string {
	return HashType
}
