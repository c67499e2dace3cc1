// Package mimc implements the MiMC hash over BN254 used by the gnark circuits.
// It produces the same values as gnark std/hash/mimc when every input is
// written as a single field element.
package mimc

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/franchise-proof/util"
)

// HashType is the identifier of the MiMC hasher.
const HashType = "mimc_bn254"

// Hasher is the MiMC BN254 hash.
type Hasher struct {
	fn arbo.HashMiMC_BN254
}

// New returns a MiMC hasher.
func New() *Hasher {
	return &Hasher{fn: arbo.HashMiMC_BN254{}}
}

// Hash returns the MiMC hash of the inputs.
func (h *Hasher) Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	b := make([][]byte, len(inputs))
	for i, in := range inputs {
		if !util.IsFieldElement(in) {
			return nil, fmt.Errorf("input %d is not a field element", i)
		}
		b[i] = arbo.BigIntToBytes(h.fn.Len(), in)
	}
	res, err := h.fn.Hash(b...)
	if err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(res), nil
}

// Arbo returns the arbo MiMC BN254 hash function.
func (h *Hasher) Arbo() arbo.HashFunction {
	return h.fn
}

// Type returns the hash identifier.
func (*Hasher) Type() string {
	return HashType
}
