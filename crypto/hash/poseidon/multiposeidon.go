package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// maxInputs is the number of inputs supported by a single Poseidon call.
const maxInputs = 16

// MultiPoseidon hashes up to 256 inputs. Inputs are split into chunks of 16
// elements, each chunk is hashed and, if there is more than one chunk, the
// chunk hashes are hashed together.
func MultiPoseidon(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) > maxInputs*maxInputs {
		return nil, fmt.Errorf("too many inputs: %d", len(inputs))
	} else if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	hashes := []*big.Int{}
	for start := 0; start < len(inputs); start += maxInputs {
		end := min(start+maxInputs, len(inputs))
		h, err := poseidon.Hash(inputs[start:end])
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	if len(hashes) == 1 {
		return hashes[0], nil
	}
	return poseidon.Hash(hashes)
}
