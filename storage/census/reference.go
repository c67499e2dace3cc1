package census

import (
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	fcensus "github.com/vocdoni/franchise-proof/census"
)

// CensusRef is a reference to a census. Only the exported fields are
// persisted; the tree is reopened from the database when loaded.
type CensusRef struct {
	ID       uuid.UUID `cbor:"id"`
	Levels   int       `cbor:"levels"`
	Suite    string    `cbor:"suite"`
	LastUsed time.Time `cbor:"lastUsed"`

	tree *fcensus.Tree
	// rootMu protects currentRoot.
	rootMu      sync.Mutex
	currentRoot *big.Int
	// updateRootRequest is the channel to send asynchronous root update requests.
	updateRootRequest chan *updateRootRequest
}

// Tree returns the census tree.
func (cr *CensusRef) Tree() *fcensus.Tree {
	return cr.tree
}

// CurrentRoot returns the last root known to the root index.
func (cr *CensusRef) CurrentRoot() *big.Int {
	cr.rootMu.Lock()
	defer cr.rootMu.Unlock()
	return new(big.Int).Set(cr.currentRoot)
}

// sendUpdateRoot sends an update request over the channel and waits until processed.
func (cr *CensusRef) sendUpdateRoot() error {
	done := make(chan struct{})
	cr.updateRootRequest <- &updateRootRequest{
		censusID: cr.ID,
		done:     done,
	}
	<-done
	return nil
}

// Insert adds the public key hash of a voter at index and updates the root
// index.
func (cr *CensusRef) Insert(index uint64, publicKeyHash *big.Int) error {
	if err := cr.tree.Add(index, publicKeyHash); err != nil {
		return err
	}
	return cr.sendUpdateRoot()
}

// InsertBatch adds several voters and updates the root index. It returns
// the indexes that could not be added.
func (cr *CensusRef) InsertBatch(indexes []uint64, publicKeyHashes []*big.Int) ([]uint64, error) {
	rejected, err := cr.tree.AddBatch(indexes, publicKeyHashes)
	if err != nil {
		return rejected, err
	}
	return rejected, cr.sendUpdateRoot()
}

// Root returns the current root of the census tree.
func (cr *CensusRef) Root() (*big.Int, error) {
	return cr.tree.Root()
}

// Size returns the number of leaves of the census tree.
func (cr *CensusRef) Size() (int, error) {
	return cr.tree.Size()
}

// ProofOfInclusion returns the inclusion proof of the leaf at index.
func (cr *CensusRef) ProofOfInclusion(index uint64) (*fcensus.InclusionProof, error) {
	return cr.tree.ProofOfInclusion(index)
}

// Leaves calls fn for every registered voter.
func (cr *CensusRef) Leaves(fn func(index uint64, publicKeyHash *big.Int)) error {
	return cr.tree.Leaves(fn)
}
