// Package storage keeps the state of a census authority node in a prefixed
// key-value database. The following prefixes are used:
//   - 'c/' for census trees and references (see the census subpackage)
//   - 'n/' for the nullifiers spent on each voting
//   - 'k/' for the verification keys of the franchise circuit
//   - 'v/' for the accepted votes
package storage

import (
	"errors"
	"sync"

	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/storage/census"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	censusPrefix    = []byte("c/")
	nullifierPrefix = []byte("n/")
	vkeyPrefix      = []byte("k/")
	votePrefix      = []byte("v/")
)

var (
	// ErrNotFound is returned when an artifact is not in the database.
	ErrNotFound = errors.New("not found")
	// ErrNullifierUsed is returned when a nullifier was already spent on a
	// voting.
	ErrNullifierUsed = errors.New("nullifier already used")
)

// Storage is the database of a census authority node.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	censuses   *census.CensusDB
}

// New creates a new Storage instance over the database provided.
func New(database db.Database) *Storage {
	return &Storage{
		db:       database,
		censuses: census.NewCensusDB(prefixeddb.NewPrefixedDatabase(database, censusPrefix)),
	}
}

// Censuses returns the census database.
func (s *Storage) Censuses() *census.CensusDB {
	return s.censuses
}

// Close stops the census database and closes the underlying database.
func (s *Storage) Close() {
	s.censuses.Close()
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing database", "error", err)
	}
}
