package storage

import (
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func TestNullifiers(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	votingID, nullifier := big.NewInt(1), big.NewInt(12345)
	used, err := stg.NullifierUsed(votingID, nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(used, qt.IsFalse)

	c.Assert(stg.RegisterNullifier(votingID, nullifier), qt.IsNil)
	used, err = stg.NullifierUsed(votingID, nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(used, qt.IsTrue)

	err = stg.RegisterNullifier(votingID, nullifier)
	c.Assert(errors.Is(err, ErrNullifierUsed), qt.IsTrue)

	// the same nullifier on another voting is a different one
	c.Assert(stg.RegisterNullifier(big.NewInt(2), nullifier), qt.IsNil)
	c.Assert(stg.RegisterNullifier(votingID, big.NewInt(1)), qt.IsNil)

	n, err := stg.CountNullifiers(votingID)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 2)
	n, err = stg.CountNullifiers(big.NewInt(3))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 0)

	err = stg.RegisterNullifier(big.NewInt(-1), nullifier)
	c.Assert(err, qt.IsNotNil)
}

func TestVotes(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	vote := &Vote{
		VotingID:   types.NewInt(1),
		Nullifier:  types.NewInt(999),
		VoteValue:  types.NewInt(2),
		CensusRoot: types.NewInt(777),
		Protocol:   "groth16",
		Proof:      types.HexBytes{1, 2, 3},
	}
	c.Assert(stg.AcceptVote(vote), qt.IsNil)
	err := stg.AcceptVote(vote)
	c.Assert(errors.Is(err, ErrNullifierUsed), qt.IsTrue)

	got, err := stg.Vote(big.NewInt(1), big.NewInt(999))
	c.Assert(err, qt.IsNil)
	c.Assert(got.VoteValue.Equal(vote.VoteValue), qt.IsTrue)
	c.Assert(got.CensusRoot.Equal(vote.CensusRoot), qt.IsTrue)
	c.Assert(got.Proof, qt.DeepEquals, vote.Proof)

	_, err = stg.Vote(big.NewInt(1), big.NewInt(1000))
	c.Assert(err, qt.Equals, ErrNotFound)

	votes, err := stg.Votes(big.NewInt(1))
	c.Assert(err, qt.IsNil)
	c.Assert(votes, qt.HasLen, 1)
	votes, err = stg.Votes(big.NewInt(2))
	c.Assert(err, qt.IsNil)
	c.Assert(votes, qt.HasLen, 0)
}

func TestVerifyingKeys(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, err := stg.VerifyingKey("groth16", 10)
	c.Assert(err, qt.Equals, ErrNotFound)
	c.Assert(stg.SetVerifyingKey(&VerifyingKey{Protocol: "groth16", Levels: 10}), qt.IsNotNil)

	vk := &VerifyingKey{Protocol: "groth16", Levels: 10, Key: types.HexBytes{0xca, 0xfe}}
	c.Assert(stg.SetVerifyingKey(vk), qt.IsNil)
	got, err := stg.VerifyingKey("groth16", 10)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, vk)

	_, err = stg.VerifyingKey("groth16", 20)
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestPersistence(t *testing.T) {
	c := qt.New(t)
	dbPath := filepath.Join(t.TempDir(), "db")

	database, err := metadb.New(db.TypePebble, dbPath)
	c.Assert(err, qt.IsNil)
	stg := New(database)
	ref, err := stg.Censuses().New(uuid.New(), 10, crypto.SuiteGnark)
	c.Assert(err, qt.IsNil)
	c.Assert(ref.Insert(3, big.NewInt(33)), qt.IsNil)
	root := ref.CurrentRoot()
	c.Assert(stg.RegisterNullifier(big.NewInt(1), big.NewInt(5)), qt.IsNil)
	stg.Close()

	database, err = metadb.New(db.TypePebble, dbPath)
	c.Assert(err, qt.IsNil)
	stg = New(database)
	defer stg.Close()

	loaded, err := stg.Censuses().Load(ref.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(loaded.CurrentRoot().Cmp(root), qt.Equals, 0)
	proof, err := stg.Censuses().ProofByRoot(root, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Siblings, qt.HasLen, 10)

	used, err := stg.NullifierUsed(big.NewInt(1), big.NewInt(5))
	c.Assert(err, qt.IsNil)
	c.Assert(used, qt.IsTrue)
}
