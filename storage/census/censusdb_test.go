package census

import (
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	fcensus "github.com/vocdoni/franchise-proof/census"
	"github.com/vocdoni/franchise-proof/crypto"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

const testLevels = 10

// newDatabase returns a new in-memory test database.
func newDatabase(t *testing.T) db.Database {
	return metadb.NewTest(t)
}

func newCensusDB(t *testing.T, database db.Database) *CensusDB {
	censusDB := NewCensusDB(database)
	t.Cleanup(censusDB.Close)
	return censusDB
}

func newCensus(t *testing.T, censusDB *CensusDB) *CensusRef {
	ref, err := censusDB.New(uuid.New(), testLevels, crypto.SuiteGnark)
	qt.Assert(t, err, qt.IsNil)
	return ref
}

func TestCensusDBNew(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))
	censusID := uuid.New()

	ref, err := censusDB.New(censusID, testLevels, crypto.SuiteGnark)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ref.Tree(), qt.IsNotNil)
	qt.Assert(t, ref.Tree().Levels(), qt.Equals, testLevels)
	qt.Assert(t, ref.CurrentRoot().Sign(), qt.Equals, 0)

	_, err = censusDB.New(censusID, testLevels, crypto.SuiteGnark)
	qt.Assert(t, err, qt.Equals, ErrCensusAlreadyExists)
	_, err = censusDB.New(uuid.New(), testLevels, "sha256")
	qt.Assert(t, errors.Is(err, crypto.ErrUnsupportedSuite), qt.IsTrue)
	_, err = censusDB.New(uuid.New(), 0, crypto.SuiteGnark)
	qt.Assert(t, errors.Is(err, fcensus.ErrInvalidLevels), qt.IsTrue)
}

func TestCensusDBExists(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))
	censusID := uuid.New()

	qt.Assert(t, censusDB.Exists(censusID), qt.IsFalse)
	_, err := censusDB.New(censusID, testLevels, crypto.SuiteCircom)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, censusDB.Exists(censusID), qt.IsTrue)
}

func TestCensusDBDel(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))
	ref := newCensus(t, censusDB)
	qt.Assert(t, ref.Insert(1, big.NewInt(100)), qt.IsNil)
	root := ref.CurrentRoot()

	qt.Assert(t, censusDB.Del(ref.ID), qt.IsNil)
	qt.Assert(t, censusDB.Exists(ref.ID), qt.IsFalse)
	_, err := censusDB.Load(ref.ID)
	qt.Assert(t, errors.Is(err, ErrCensusNotFound), qt.IsTrue)
	_, err = censusDB.SizeByRoot(root)
	qt.Assert(t, errors.Is(err, ErrRootNotFound), qt.IsTrue)

	err = censusDB.Del(ref.ID)
	qt.Assert(t, errors.Is(err, ErrCensusNotFound), qt.IsTrue)

	// the tree nodes are removed in the background
	treeKeys := func() int {
		n := 0
		_ = censusDB.db.Iterate(censusPrefix(ref.ID), func(_, _ []byte) bool {
			n++
			return true
		})
		return n
	}
	deadline := time.Now().Add(5 * time.Second)
	for treeKeys() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	qt.Assert(t, treeKeys(), qt.Equals, 0)
}

func TestSequentialLoadReturnsSamePointer(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))
	ref1 := newCensus(t, censusDB)

	ref2, err := censusDB.Load(ref1.ID)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ref1, qt.Equals, ref2)
}

func TestLoadNonExistingCensus(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))

	ref, err := censusDB.Load(uuid.New())
	qt.Assert(t, ref, qt.IsNil)
	qt.Assert(t, err, qt.ErrorMatches, "census not found.*")
}

func TestPersistenceAcrossCensusDBInstances(t *testing.T) {
	t.Parallel()
	database := newDatabase(t)

	censusDB1 := newCensusDB(t, database)
	ref1 := newCensus(t, censusDB1)
	qt.Assert(t, ref1.Insert(7, big.NewInt(77)), qt.IsNil)
	qt.Assert(t, ref1.Insert(9, big.NewInt(99)), qt.IsNil)
	root1, err := ref1.Root()
	qt.Assert(t, err, qt.IsNil)

	// a new CensusDB sharing the same database sees the stored census
	censusDB2 := newCensusDB(t, database)
	ref2, err := censusDB2.Load(ref1.ID)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ref2.Suite, qt.Equals, crypto.SuiteGnark)
	qt.Assert(t, ref2.Levels, qt.Equals, testLevels)
	root2, err := ref2.Root()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, root2.Cmp(root1), qt.Equals, 0)
	size, err := censusDB2.SizeByRoot(root1)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, size, qt.Equals, 2)
}

func TestRootsIndexedAfterRestart(t *testing.T) {
	t.Parallel()
	database := newDatabase(t)

	censusDB1 := NewCensusDB(database)
	ref := newCensus(t, censusDB1)
	qt.Assert(t, ref.Insert(3, big.NewInt(33)), qt.IsNil)
	qt.Assert(t, ref.Insert(5, big.NewInt(55)), qt.IsNil)
	root, err := ref.Root()
	qt.Assert(t, err, qt.IsNil)
	empty := newCensus(t, censusDB1)
	censusDB1.Close()

	// the roots resolve without loading the censuses by ID first
	censusDB2 := newCensusDB(t, database)
	size, err := censusDB2.SizeByRoot(root)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, size, qt.Equals, 2)
	proof, err := censusDB2.ProofByRoot(root, 5)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, proof.Root.Cmp(root), qt.Equals, 0)
	qt.Assert(t, proof.PublicKeyHash.Cmp(big.NewInt(55)), qt.Equals, 0)
	qt.Assert(t, censusDB2.Exists(empty.ID), qt.IsTrue)

	// a deleted census is not loaded again
	qt.Assert(t, censusDB2.Del(ref.ID), qt.IsNil)
	censusDB3 := newCensusDB(t, database)
	_, err = censusDB3.SizeByRoot(root)
	qt.Assert(t, errors.Is(err, ErrRootNotFound), qt.IsTrue)
}

func TestCensusDBConcurrentLoad(t *testing.T) {
	censusDB := newCensusDB(t, newDatabase(t))
	// a second instance started before the census exists has nothing loaded
	other := newCensusDB(t, censusDB.db)
	ref := newCensus(t, censusDB)

	const numGoroutines = 20
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	errs := make(chan error, numGoroutines)
	refs := make(chan *CensusRef, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			r, err := other.Load(ref.ID)
			if err != nil {
				errs <- err
			} else {
				refs <- r
			}
		}()
	}
	wg.Wait()
	close(errs)
	close(refs)

	for err := range errs {
		qt.Assert(t, err, qt.IsNil)
	}
	var firstRef *CensusRef
	for r := range refs {
		if firstRef == nil {
			firstRef = r
		} else {
			qt.Assert(t, r, qt.Equals, firstRef)
		}
	}
}

func TestCensusDBConcurrentNew(t *testing.T) {
	censusDB := newCensusDB(t, newDatabase(t))
	censusID := uuid.New()
	const numGoroutines = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	var successCount, failureCount atomic.Int32
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			_, err := censusDB.New(censusID, testLevels, crypto.SuiteGnark)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, ErrCensusAlreadyExists):
				failureCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	qt.Assert(t, successCount.Load(), qt.Equals, int32(1))
	qt.Assert(t, failureCount.Load(), qt.Equals, int32(numGoroutines-1))
}

func TestProofByRootNonExistentRoot(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))
	proof, err := censusDB.ProofByRoot(big.NewInt(0xdeadbeef), 1)
	qt.Assert(t, proof, qt.IsNil)
	qt.Assert(t, errors.Is(err, ErrRootNotFound), qt.IsTrue)
}

func TestProofByRootNonExistentLeaf(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))
	ref := newCensus(t, censusDB)
	qt.Assert(t, ref.Insert(1, big.NewInt(100)), qt.IsNil)

	proof, err := censusDB.ProofByRoot(ref.CurrentRoot(), 2)
	qt.Assert(t, proof, qt.IsNil)
	qt.Assert(t, errors.Is(err, fcensus.ErrLeafNotFound), qt.IsTrue)
}

func TestProofByRootValid(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))
	ref := newCensus(t, censusDB)
	suite := crypto.MustSuite(crypto.SuiteGnark)

	rejected, err := ref.InsertBatch([]uint64{1, 2, 3, 2}, []*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30), big.NewInt(40)})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, rejected, qt.DeepEquals, []uint64{2})

	root := ref.CurrentRoot()
	proof, err := censusDB.ProofByRoot(root, 3)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, proof.Index, qt.Equals, uint64(3))
	qt.Assert(t, proof.Siblings, qt.HasLen, testLevels)
	ok, err := fcensus.VerifyInclusion(suite.Hasher, proof, big.NewInt(30))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ok, qt.IsTrue)

	// an old root is no longer indexed
	qt.Assert(t, ref.Insert(4, big.NewInt(40)), qt.IsNil)
	_, err = censusDB.ProofByRoot(root, 3)
	qt.Assert(t, errors.Is(err, ErrRootNotFound), qt.IsTrue)

	var leaves []uint64
	qt.Assert(t, ref.Leaves(func(index uint64, _ *big.Int) { leaves = append(leaves, index) }), qt.IsNil)
	qt.Assert(t, leaves, qt.HasLen, 4)
}

func TestUpdateRootConcurrent(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))
	ref := newCensus(t, censusDB)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			r, err := censusDB.Load(ref.ID)
			if err != nil {
				t.Errorf("load: %v", err)
				return
			}
			for j := 0; j < 10; j++ {
				index := uint64(i*10 + j)
				if err := r.Insert(index, big.NewInt(int64(index+1))); err != nil {
					t.Errorf("insert %d: %v", index, err)
				}
			}
		}(i)
	}
	wg.Wait()

	// the index holds the final root
	root, err := ref.Root()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ref.CurrentRoot().Cmp(root), qt.Equals, 0)
	proof, err := censusDB.ProofByRoot(root, 0)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, proof, qt.IsNotNil)
	size, err := censusDB.SizeByRoot(root)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, size, qt.Equals, numGoroutines*10)
}

func TestSameRootForMultipleCensuses(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t, newDatabase(t))
	ref1 := newCensus(t, censusDB)
	ref2 := newCensus(t, censusDB)

	qt.Assert(t, ref1.Insert(5, big.NewInt(55)), qt.IsNil)
	qt.Assert(t, ref2.Insert(5, big.NewInt(55)), qt.IsNil)

	root1, root2 := ref1.CurrentRoot(), ref2.CurrentRoot()
	qt.Assert(t, root1.Cmp(root2), qt.Equals, 0)

	proof, err := censusDB.ProofByRoot(root1, 5)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, proof.Root.Cmp(root1), qt.Equals, 0)
}
