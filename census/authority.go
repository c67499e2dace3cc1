package census

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/franchise-proof/identity"
	"github.com/vocdoni/franchise-proof/log"
)

// Authority is the party that owns a census tree. It registers voters and
// hands out inclusion proofs carrying its global commitment, the x
// coordinate of its own public key.
type Authority struct {
	key  *identity.Key
	tree *Tree
}

// NewAuthority returns an authority with the identity key and census tree
// provided.
func NewAuthority(key *identity.Key, tree *Tree) (*Authority, error) {
	if key == nil {
		return nil, fmt.Errorf("missing authority key")
	}
	if tree == nil {
		return nil, fmt.Errorf("missing census tree")
	}
	return &Authority{key: key, tree: tree}, nil
}

// Tree returns the census tree of the authority.
func (a *Authority) Tree() *Tree {
	return a.tree
}

// GlobalCommitment returns the x coordinate of the authority public key.
func (a *Authority) GlobalCommitment() *big.Int {
	x, _ := a.key.PublicXY()
	return x
}

// GlobalNullifier returns the authority private scalar. Ballot inputs built
// with it as global nullifier are accepted by the ballot circuit regardless
// of the voter signature.
func (a *Authority) GlobalNullifier() *big.Int {
	return a.key.Scalar()
}

// Register adds the public key hash of a voter at index.
func (a *Authority) Register(index uint64, publicKeyHash *big.Int) error {
	if err := a.tree.Add(index, publicKeyHash); err != nil {
		return err
	}
	log.Infow("voter registered", "index", index)
	return nil
}

// RegisterKey adds the public key of the voter identity at index.
func (a *Authority) RegisterKey(index uint64, voter *identity.Key) error {
	pkHash, err := voter.PublicKeyHash(a.tree.Hasher())
	if err != nil {
		return fmt.Errorf("cannot hash voter key: %w", err)
	}
	return a.Register(index, pkHash)
}

// ProofOfInclusion returns the inclusion proof of index, carrying the
// authority global commitment.
func (a *Authority) ProofOfInclusion(index uint64) (*InclusionProof, error) {
	proof, err := a.tree.ProofOfInclusion(index)
	if err != nil {
		return nil, err
	}
	proof.GlobalCommitment = a.GlobalCommitment()
	return proof, nil
}
