// Package census keeps the census trees of an authority node in a persistent
// key-value database, indexed by census identifier and by current root.
package census

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	fcensus "github.com/vocdoni/franchise-proof/census"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/log"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	censusDBprefix          = "cs_"
	censusDBreferencePrefix = "cr_"
)

var (
	// ErrCensusNotFound is returned when a census is not found in the database.
	ErrCensusNotFound = errors.New("census not found in the local database")
	// ErrCensusAlreadyExists is returned by New() if the census already exists.
	ErrCensusAlreadyExists = errors.New("census already exists in the local database")
	// ErrRootNotFound is returned when no census has the root requested.
	ErrRootNotFound = errors.New("no census found with the provided root")
)

// updateRootRequest asks the root update worker to reindex a census.
type updateRootRequest struct {
	censusID uuid.UUID
	done     chan struct{}
}

// rootKey converts a root to its canonical hexadecimal string.
func rootKey(root *big.Int) string {
	if root == nil {
		return "0"
	}
	return root.Text(16)
}

// CensusDB is a safe and persistent database of census trees. It maintains
// an in-memory index mapping census tree roots to census IDs.
type CensusDB struct {
	mu           sync.RWMutex
	db           db.Database
	loadedCensus map[uuid.UUID]*CensusRef
	rootIndex    map[string]uuid.UUID

	updateRootChan chan *updateRootRequest
	closeOnce      sync.Once
}

// NewCensusDB creates a new CensusDB object, indexes the roots of the
// censuses already stored in db and starts its root update worker.
func NewCensusDB(db db.Database) *CensusDB {
	c := &CensusDB{
		db:             db,
		loadedCensus:   make(map[uuid.UUID]*CensusRef),
		rootIndex:      make(map[string]uuid.UUID),
		updateRootChan: make(chan *updateRootRequest, 100),
	}

	go func() {
		for req := range c.updateRootChan {
			if err := c.updateRoot(req.censusID); err != nil {
				log.Warnw("error updating census root",
					"id", req.censusID.String(),
					"error", err)
			}
			if req.done != nil {
				close(req.done)
			}
		}
	}()

	c.loadStored()
	return c
}

// loadStored loads every census reference found in the database, so the
// roots of censuses created before a restart can be resolved.
func (c *CensusDB) loadStored() {
	var ids []uuid.UUID
	err := c.db.Iterate([]byte(censusDBreferencePrefix), func(k, _ []byte) bool {
		id, err := uuid.FromBytes(k)
		if err != nil {
			log.Warnw("invalid census reference key", "key", hex.EncodeToString(k))
			return true
		}
		ids = append(ids, id)
		return true
	})
	if err != nil {
		log.Warnw("cannot list stored censuses", "error", err)
		return
	}
	for _, id := range ids {
		if _, err := c.Load(id); err != nil {
			log.Warnw("cannot load stored census", "id", id.String(), "error", err)
		}
	}
	if len(ids) > 0 {
		log.Infow("stored censuses loaded", "count", len(ids))
	}
}

// Close stops the root update worker. The database is not closed.
func (c *CensusDB) Close() {
	c.closeOnce.Do(func() { close(c.updateRootChan) })
}

// New creates a new census of the depth and crypto suite provided. It
// returns ErrCensusAlreadyExists if a census with the given ID is already
// present.
func (c *CensusDB) New(censusID uuid.UUID, levels int, suiteName string) (*CensusRef, error) {
	suite, err := crypto.NewSuite(suiteName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.loadedCensus[censusID]; exists {
		return nil, ErrCensusAlreadyExists
	}
	if _, err := c.db.Get(referenceKey(censusID)); err == nil {
		return nil, ErrCensusAlreadyExists
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, err
	}

	ref := &CensusRef{
		ID:       censusID,
		Levels:   levels,
		Suite:    suite.Name,
		LastUsed: time.Now(),
	}
	if err := c.openTree(ref, suite); err != nil {
		return nil, err
	}
	if err := c.writeReference(ref); err != nil {
		return nil, err
	}

	c.loadedCensus[censusID] = ref
	rk := rootKey(ref.currentRoot)
	if _, exists := c.rootIndex[rk]; !exists {
		c.rootIndex[rk] = censusID
	}
	log.Infow("census created", "id", censusID.String(), "levels", levels, "suite", suite.Name)
	return ref, nil
}

// openTree opens the census tree of ref over its prefixed database and
// reads its current root.
func (c *CensusDB) openTree(ref *CensusRef, suite *crypto.Suite) error {
	tree, err := fcensus.OpenTree(
		prefixeddb.NewPrefixedDatabase(c.db, censusPrefix(ref.ID)),
		ref.Levels,
		suite.Hasher,
	)
	if err != nil {
		return err
	}
	root, err := tree.Root()
	if err != nil {
		return err
	}
	ref.tree = tree
	ref.currentRoot = root
	ref.updateRootRequest = c.updateRootChan
	return nil
}

// writeReference writes a census reference to the database.
func (c *CensusDB) writeReference(ref *CensusRef) error {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return err
	}
	data, err := em.Marshal(ref)
	if err != nil {
		return fmt.Errorf("cannot encode census reference: %w", err)
	}
	wtx := c.db.WriteTx()
	defer wtx.Discard()
	if err := wtx.Set(referenceKey(ref.ID), data); err != nil {
		return err
	}
	return wtx.Commit()
}

// Exists returns true if the censusID exists in the local database.
func (c *CensusDB) Exists(censusID uuid.UUID) bool {
	c.mu.RLock()
	_, exists := c.loadedCensus[censusID]
	c.mu.RUnlock()
	if exists {
		return true
	}
	_, err := c.db.Get(referenceKey(censusID))
	return err == nil
}

// Load returns a census from memory or from the persistent database.
func (c *CensusDB) Load(censusID uuid.UUID) (*CensusRef, error) {
	c.mu.RLock()
	if ref, exists := c.loadedCensus[censusID]; exists {
		c.mu.RUnlock()
		return ref, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	// another goroutine may have loaded it meanwhile
	if ref, exists := c.loadedCensus[censusID]; exists {
		return ref, nil
	}

	b, err := c.db.Get(referenceKey(censusID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCensusNotFound, censusID)
		}
		return nil, err
	}
	ref := &CensusRef{}
	if err := cbor.Unmarshal(b, ref); err != nil {
		return nil, fmt.Errorf("cannot decode census reference: %w", err)
	}
	suite, err := crypto.NewSuite(ref.Suite)
	if err != nil {
		return nil, err
	}
	if err := c.openTree(ref, suite); err != nil {
		return nil, err
	}

	ref.LastUsed = time.Now()
	if err := c.writeReference(ref); err != nil {
		return nil, err
	}

	c.loadedCensus[censusID] = ref
	rk := rootKey(ref.currentRoot)
	if _, exists := c.rootIndex[rk]; !exists {
		c.rootIndex[rk] = censusID
	}
	return ref, nil
}

// Del removes a census from the database and memory. The census tree nodes
// are removed in the background.
func (c *CensusDB) Del(censusID uuid.UUID) error {
	if !c.Exists(censusID) {
		return fmt.Errorf("%w: %s", ErrCensusNotFound, censusID)
	}
	wtx := c.db.WriteTx()
	if err := wtx.Delete(referenceKey(censusID)); err != nil {
		wtx.Discard()
		return err
	}
	if err := wtx.Commit(); err != nil {
		return err
	}

	c.mu.Lock()
	if ref, exists := c.loadedCensus[censusID]; exists {
		rk := rootKey(ref.CurrentRoot())
		if c.rootIndex[rk] == censusID {
			delete(c.rootIndex, rk)
		}
		delete(c.loadedCensus, censusID)
	}
	c.mu.Unlock()

	go func(id uuid.UUID) {
		n, err := deleteCensusTreeFromDatabase(c.db, censusPrefix(id))
		if err != nil {
			log.Warnw("error deleting census tree", "id", id.String(), "error", err)
			return
		}
		log.Debugw("census tree deleted", "id", id.String(), "keys", n)
	}(censusID)

	return nil
}

// deleteCensusTreeFromDatabase removes all keys belonging to a census tree
// from the database.
func deleteCensusTreeFromDatabase(kv db.Database, prefix []byte) (int, error) {
	database := prefixeddb.NewPrefixedDatabase(kv, prefix)
	wtx := database.WriteTx()
	count := 0
	err := database.Iterate(nil, func(k, _ []byte) bool {
		if err := wtx.Delete(k); err != nil {
			log.Warnw("could not remove key from database", "key", hex.EncodeToString(k))
		} else {
			count++
		}
		return true
	})
	if err != nil {
		wtx.Discard()
		return 0, err
	}
	return count, wtx.Commit()
}

// byRoot returns the census whose current root is root.
func (c *CensusDB) byRoot(root *big.Int) (*CensusRef, error) {
	c.mu.RLock()
	censusID, exists := c.rootIndex[rootKey(root)]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	return c.Load(censusID)
}

// ProofByRoot finds a census by its root and generates the inclusion proof
// of the leaf at index.
func (c *CensusDB) ProofByRoot(root *big.Int, index uint64) (*fcensus.InclusionProof, error) {
	ref, err := c.byRoot(root)
	if err != nil {
		return nil, err
	}
	proof, err := ref.ProofOfInclusion(index)
	if err != nil {
		return nil, err
	}
	// the census may have changed since the root was indexed
	if proof.Root.Cmp(root) != 0 {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	return proof, nil
}

// SizeByRoot returns the number of leaves in the census with the given root.
func (c *CensusDB) SizeByRoot(root *big.Int) (int, error) {
	ref, err := c.byRoot(root)
	if err != nil {
		return 0, err
	}
	return ref.Size()
}

// updateRoot moves the root index entry of a census to its current root.
// The root is read from the tree here, so concurrent requests never leave a
// stale root indexed.
func (c *CensusDB) updateRoot(censusID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref, exists := c.loadedCensus[censusID]
	if !exists {
		return ErrCensusNotFound
	}
	newRoot, err := ref.tree.Root()
	if err != nil {
		return err
	}
	newKey := rootKey(newRoot)

	ref.rootMu.Lock()
	oldKey := rootKey(ref.currentRoot)
	if oldKey == newKey {
		ref.rootMu.Unlock()
		return nil
	}
	ref.currentRoot = newRoot
	ref.rootMu.Unlock()

	if c.rootIndex[oldKey] == censusID {
		delete(c.rootIndex, oldKey)
	}
	c.rootIndex[newKey] = censusID
	return nil
}

// referenceKey returns the database key of a census reference.
func referenceKey(censusID uuid.UUID) []byte {
	return append([]byte(censusDBreferencePrefix), censusID[:]...)
}

// censusPrefix returns the prefix used for the census tree in the database.
func censusPrefix(censusID uuid.UUID) []byte {
	return append([]byte(censusDBprefix), censusID[:]...)
}
