package storage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// fieldKeyLen is the length of a field element encoded as a database key.
const fieldKeyLen = 32

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// fieldKey encodes a field element as a fixed length big endian key, so
// that keys sharing a leading element also share a prefix.
func fieldKey(v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() < 0 || v.BitLen() > fieldKeyLen*8 {
		return nil, fmt.Errorf("invalid key element %v", v)
	}
	return v.FillBytes(make([]byte, fieldKeyLen)), nil
}

// fieldKeys concatenates the keys of several field elements.
func fieldKeys(values ...*big.Int) ([]byte, error) {
	key := make([]byte, 0, fieldKeyLen*len(values))
	for _, v := range values {
		k, err := fieldKey(v)
		if err != nil {
			return nil, err
		}
		key = append(key, k...)
	}
	return key, nil
}

// getArtifact reads and decodes the artifact at prefix/key into out. It
// returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := s.getRaw(prefix, key)
	if err != nil {
		return err
	}
	return decodeArtifact(data, out)
}

// setArtifact encodes and writes an artifact at prefix/key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	return s.setRaw(prefix, key, data)
}

// setRaw writes data at prefix/key.
func (s *Storage) setRaw(prefix, key, data []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getRaw reads the data at prefix/key, or ErrNotFound.
func (s *Storage) getRaw(prefix, key []byte) ([]byte, error) {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}
