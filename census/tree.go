// Package census implements the census membership commitment: a sparse
// merkle tree mapping voter indexes to the hash of their public key, and the
// census authority that owns it.
package census

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/franchise-proof/crypto/hash"
	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/types"
	"github.com/vocdoni/franchise-proof/util"
	"go.vocdoni.io/dvote/db"
)

var (
	// ErrLeafNotFound is returned when a proof is requested for an index
	// that was never added.
	ErrLeafNotFound = errors.New("leaf not found")
	// ErrDuplicateIndex is returned when an index already holds a leaf.
	ErrDuplicateIndex = errors.New("duplicate index")
	// ErrIndexOutOfRange is returned when an index does not fit the key
	// length of the tree.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrIndexCollision is returned when an index shares its lowest
	// levels-1 bits with a registered index, so both leaves would need the
	// last tree level, which the circuit verifier reserves.
	ErrIndexCollision = errors.New("index collides with a registered index")
	// ErrInvalidLevels is returned for a tree depth outside [2, 160].
	ErrInvalidLevels = errors.New("invalid number of levels")
)

// Tree is the census sparse merkle tree. The underlying arbo tree is created
// on the first insertion. Writes are serialized with a single lock held for
// the whole mutate and commit sequence.
//
// The arbo tree is built one level shorter than the census depth: the SMT
// verifier of the circuit requires the last sibling of every proof to be
// zero, so leaves never go below level levels-1.
type Tree struct {
	mu     sync.RWMutex
	db     db.Database
	levels int
	hasher hash.Hasher
	tree   *arbo.Tree
}

// NewTree returns a census tree with the depth provided. If database is nil
// an in-memory database is used.
func NewTree(database db.Database, levels int, hasher hash.Hasher) (*Tree, error) {
	if levels < types.CensusTreeMinLevels || levels > types.CensusTreeMaxLevels {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevels, levels)
	}
	if hasher == nil {
		return nil, fmt.Errorf("missing hasher")
	}
	return &Tree{
		db:     database,
		levels: levels,
		hasher: hasher,
	}, nil
}

// OpenTree returns a census tree over a database that may already hold
// leaves. Unlike NewTree, the arbo tree is opened right away so the stored
// root and leaves are visible before the first insertion.
func OpenTree(database db.Database, levels int, hasher hash.Hasher) (*Tree, error) {
	if database == nil {
		return nil, fmt.Errorf("missing census database")
	}
	t, err := NewTree(database, levels, hasher)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.initTree(); err != nil {
		return nil, err
	}
	return t, nil
}

// Levels returns the depth of the tree.
func (t *Tree) Levels() int {
	return t.levels
}

// Hasher returns the hash service of the tree.
func (t *Tree) Hasher() hash.Hasher {
	return t.hasher
}

// arboLevels is the depth of the underlying arbo tree.
func (t *Tree) arboLevels() int {
	return t.levels - 1
}

// keyLen is the length in bytes of the tree keys.
func (t *Tree) keyLen() int {
	return (t.arboLevels() + 7) / 8
}

// initTree creates the arbo tree if needed. The caller must hold the write
// lock.
func (t *Tree) initTree() error {
	if t.tree != nil {
		return nil
	}
	if t.db == nil {
		t.db = memdb.New()
	}
	tree, err := arbo.NewTree(arbo.Config{
		Database:     t.db,
		MaxLevels:    t.arboLevels(),
		HashFunction: t.hasher.Arbo(),
	})
	if err != nil {
		return fmt.Errorf("cannot create census tree: %w", err)
	}
	t.tree = tree
	return nil
}

// indexKey encodes an index as a tree key.
func (t *Tree) indexKey(index uint64) ([]byte, error) {
	bi := new(big.Int).SetUint64(index)
	if bi.BitLen() > t.keyLen()*8 {
		return nil, fmt.Errorf("%w: %d does not fit in %d bytes", ErrIndexOutOfRange, index, t.keyLen())
	}
	return arbo.BigIntToBytes(t.keyLen(), bi), nil
}

// leafValue encodes a public key hash as a tree value.
func (t *Tree) leafValue(publicKeyHash *big.Int) ([]byte, error) {
	if !util.IsFieldElement(publicKeyHash) {
		return nil, fmt.Errorf("public key hash is not a field element")
	}
	return arbo.BigIntToBytes(t.hasher.Arbo().Len(), publicKeyHash), nil
}

// exists reports whether key holds a leaf. The caller must hold a lock and
// the tree must be initialized.
func (t *Tree) exists(key []byte) (bool, error) {
	_, _, _, exists, err := t.tree.GenProof(key)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Add registers publicKeyHash at index. It fails with ErrDuplicateIndex if
// the index already holds a leaf.
func (t *Tree) Add(index uint64, publicKeyHash *big.Int) error {
	key, err := t.indexKey(index)
	if err != nil {
		return err
	}
	value, err := t.leafValue(publicKeyHash)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.initTree(); err != nil {
		return err
	}
	exists, err := t.exists(key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %d", ErrDuplicateIndex, index)
	}
	if err := t.tree.Add(key, value); err != nil {
		if errors.Is(err, arbo.ErrMaxVirtualLevel) || errors.Is(err, arbo.ErrMaxLevel) {
			return fmt.Errorf("%w: %d", ErrIndexCollision, index)
		}
		return fmt.Errorf("cannot add index %d: %w", index, err)
	}
	log.Debugw("census leaf added", "index", index, "levels", t.levels)
	return nil
}

// AddBatch registers several leaves at once. It returns the indexes that
// could not be added (duplicates, collisions or arbo failures) without
// aborting the rest of the batch.
func (t *Tree) AddBatch(indexes []uint64, publicKeyHashes []*big.Int) ([]uint64, error) {
	if len(indexes) != len(publicKeyHashes) {
		return nil, fmt.Errorf("indexes and hashes length mismatch: %d != %d", len(indexes), len(publicKeyHashes))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.initTree(); err != nil {
		return nil, err
	}

	var rejected []uint64
	seen := make(map[uint64]struct{}, len(indexes))
	keys := make([][]byte, 0, len(indexes))
	values := make([][]byte, 0, len(indexes))
	accepted := make([]uint64, 0, len(indexes))
	for i, index := range indexes {
		key, err := t.indexKey(index)
		if err != nil {
			rejected = append(rejected, index)
			continue
		}
		value, err := t.leafValue(publicKeyHashes[i])
		if err != nil {
			rejected = append(rejected, index)
			continue
		}
		if _, dup := seen[index]; dup {
			rejected = append(rejected, index)
			continue
		}
		exists, err := t.exists(key)
		if err != nil {
			return nil, err
		}
		if exists {
			rejected = append(rejected, index)
			continue
		}
		seen[index] = struct{}{}
		keys = append(keys, key)
		values = append(values, value)
		accepted = append(accepted, index)
	}
	if len(keys) == 0 {
		return rejected, nil
	}
	invalid, err := t.tree.AddBatch(keys, values)
	if err != nil {
		return nil, fmt.Errorf("cannot add census batch: %w", err)
	}
	for _, inv := range invalid {
		log.Warnw("census leaf rejected", "index", accepted[inv.Index], "error", inv.Error)
		rejected = append(rejected, accepted[inv.Index])
	}
	log.Debugw("census batch added", "added", len(keys)-len(invalid), "rejected", len(rejected))
	return rejected, nil
}

// Root returns the current root. The root of a tree without leaves is zero.
func (t *Tree) Root() (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.tree == nil {
		return big.NewInt(0), nil
	}
	root, err := t.tree.Root()
	if err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

// Size returns the number of leaves.
func (t *Tree) Size() (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.tree == nil {
		return 0, nil
	}
	return t.tree.GetNLeafs()
}

// Leaves calls fn for every leaf of the tree, in tree order.
func (t *Tree) Leaves(fn func(index uint64, publicKeyHash *big.Int)) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.tree == nil {
		return nil
	}
	return t.tree.IterateWithStop(nil, func(_ int, k, v []byte) bool {
		if len(v) == 0 || v[0] != arbo.PrefixValueLeaf {
			return false
		}
		leafK, leafV := arbo.ReadLeafValue(v)
		fn(arbo.BytesToBigInt(leafK).Uint64(), arbo.BytesToBigInt(leafV))
		return false
	})
}

// ProofOfInclusion returns the inclusion proof of the leaf at index, with
// the siblings padded with zeros up to the tree depth. The global commitment
// of the proof is left unset; the Authority fills it.
func (t *Tree) ProofOfInclusion(index uint64) (*InclusionProof, error) {
	key, err := t.indexKey(index)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.tree == nil {
		return nil, fmt.Errorf("%w: %d", ErrLeafNotFound, index)
	}
	_, value, packedSiblings, exists, err := t.tree.GenProof(key)
	if err != nil {
		return nil, fmt.Errorf("cannot generate proof for index %d: %w", index, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrLeafNotFound, index)
	}
	unpacked, err := arbo.UnpackSiblings(t.hasher.Arbo(), packedSiblings)
	if err != nil {
		return nil, fmt.Errorf("cannot unpack siblings: %w", err)
	}
	if len(unpacked) > t.arboLevels() {
		return nil, fmt.Errorf("proof has %d siblings, more than %d levels", len(unpacked), t.arboLevels())
	}
	siblings := make([]*big.Int, t.levels)
	for i := range siblings {
		if i < len(unpacked) {
			siblings[i] = arbo.BytesToBigInt(unpacked[i])
		} else {
			siblings[i] = big.NewInt(0)
		}
	}
	root, err := t.tree.Root()
	if err != nil {
		return nil, err
	}
	return &InclusionProof{
		Index:         index,
		Root:          arbo.BytesToBigInt(root),
		Siblings:      siblings,
		PublicKeyHash: arbo.BytesToBigInt(value),
	}, nil
}
