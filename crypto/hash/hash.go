// Package hash defines the field hash service used by the census tree, the
// voter key hashing and the nullifier derivation. Implementations live in the
// poseidon and mimc subpackages and are injected where needed.
package hash

import (
	"math/big"

	"github.com/vocdoni/arbo"
)

// Hasher hashes BN254 field elements into a field element.
type Hasher interface {
	// Hash returns the hash of the inputs provided. Every input must be a
	// canonical field element.
	Hash(inputs ...*big.Int) (*big.Int, error)
	// Arbo returns the equivalent arbo hash function, used to build merkle
	// trees whose nodes match Hash.
	Arbo() arbo.HashFunction
	// Type returns the hash function identifier.
	Type() string
}
