package census

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/franchise-proof/crypto/hash"
	"github.com/vocdoni/franchise-proof/types"
)

// InclusionProof proves that a public key hash is registered at Index in the
// census with root Root. Siblings always has one entry per tree level, padded
// with zeros after the last real sibling.
type InclusionProof struct {
	Index            uint64
	Root             *big.Int
	Siblings         []*big.Int
	PublicKeyHash    *big.Int
	GlobalCommitment *big.Int
}

// Levels returns the depth of the tree the proof was generated from.
func (p *InclusionProof) Levels() int {
	return len(p.Siblings)
}

// CensusProof returns the wire representation of the proof.
func (p *InclusionProof) CensusProof() *types.CensusProof {
	cp := &types.CensusProof{
		Index:            p.Index,
		Root:             new(types.BigInt).SetBigInt(p.Root),
		Siblings:         types.BigIntSlice(p.Siblings),
		GlobalCommitment: new(types.BigInt).SetBigInt(bigOrZero(p.GlobalCommitment)),
	}
	return cp
}

// ProofFromCensusProof converts a wire census proof back into an
// InclusionProof. The public key hash is not part of the wire format and
// must be set by the caller when needed.
func ProofFromCensusProof(cp *types.CensusProof) (*InclusionProof, error) {
	if cp == nil || cp.Root == nil {
		return nil, fmt.Errorf("missing census proof root")
	}
	if len(cp.Siblings) == 0 {
		return nil, fmt.Errorf("census proof without siblings")
	}
	p := &InclusionProof{
		Index:    cp.Index,
		Root:     cp.Root.MathBigInt(),
		Siblings: types.MathBigIntSlice(cp.Siblings),
	}
	if cp.GlobalCommitment != nil {
		p.GlobalCommitment = cp.GlobalCommitment.MathBigInt()
	} else {
		p.GlobalCommitment = big.NewInt(0)
	}
	return p, nil
}

// VerifyInclusion recomputes the root from the leaf (index, publicKeyHash)
// and the proof siblings, and compares it with the proof root. The leaf hash
// and the node hashes follow the arbo tree layout: leaf = H(index, value, 1)
// and node = H(left, right), with bit i of the index selecting the side at
// level i. Proofs with a non-zero last sibling are rejected.
func VerifyInclusion(hasher hash.Hasher, proof *InclusionProof, publicKeyHash *big.Int) (bool, error) {
	if proof == nil || proof.Root == nil {
		return false, fmt.Errorf("missing proof")
	}
	if publicKeyHash == nil {
		return false, fmt.Errorf("missing public key hash")
	}
	// the last level is reserved, a proof using it cannot be verified by
	// the circuit
	if n := len(proof.Siblings); n > 0 && proof.Siblings[n-1] != nil && proof.Siblings[n-1].Sign() != 0 {
		return false, nil
	}
	siblings := trimZeroSiblings(proof.Siblings)
	if len(siblings) > types.CensusTreeMaxLevels {
		return false, fmt.Errorf("too many siblings: %d", len(siblings))
	}
	index := new(big.Int).SetUint64(proof.Index)
	node, err := hasher.Hash(index, publicKeyHash, big.NewInt(1))
	if err != nil {
		return false, fmt.Errorf("cannot hash leaf: %w", err)
	}
	for i := len(siblings) - 1; i >= 0; i-- {
		if index.Bit(i) == 1 {
			node, err = hasher.Hash(siblings[i], node)
		} else {
			node, err = hasher.Hash(node, siblings[i])
		}
		if err != nil {
			return false, fmt.Errorf("cannot hash level %d: %w", i, err)
		}
	}
	return node.Cmp(proof.Root) == 0, nil
}

// trimZeroSiblings drops the zero padding at the end of siblings.
func trimZeroSiblings(siblings []*big.Int) []*big.Int {
	n := len(siblings)
	for n > 0 && (siblings[n-1] == nil || siblings[n-1].Sign() == 0) {
		n--
	}
	return siblings[:n]
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
