package storage

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/franchise-proof/log"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// RegisterNullifier marks nullifier as spent on votingID. It returns
// ErrNullifierUsed if it was already spent there.
func (s *Storage) RegisterNullifier(votingID, nullifier *big.Int) error {
	key, err := fieldKeys(votingID, nullifier)
	if err != nil {
		return err
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if _, err := s.getRaw(nullifierPrefix, key); err == nil {
		return fmt.Errorf("%w: voting %s", ErrNullifierUsed, votingID)
	} else if err != ErrNotFound {
		return err
	}
	if err := s.setRaw(nullifierPrefix, key, []byte{1}); err != nil {
		return err
	}
	log.Debugw("nullifier registered", "votingId", votingID.String(), "nullifier", nullifier.String())
	return nil
}

// NullifierUsed reports whether nullifier was spent on votingID.
func (s *Storage) NullifierUsed(votingID, nullifier *big.Int) (bool, error) {
	key, err := fieldKeys(votingID, nullifier)
	if err != nil {
		return false, err
	}
	if _, err := s.getRaw(nullifierPrefix, key); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountNullifiers returns the number of nullifiers spent on votingID.
func (s *Storage) CountNullifiers(votingID *big.Int) (int, error) {
	prefix, err := fieldKey(votingID)
	if err != nil {
		return 0, err
	}
	count := 0
	rd := prefixeddb.NewPrefixedReader(s.db, nullifierPrefix)
	if err := rd.Iterate(prefix, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		return 0, fmt.Errorf("iterate nullifiers: %w", err)
	}
	return count, nil
}
