// Package identity derives BabyJubJub identity keys from raw secret seeds.
// The private scalar is the circomlib EdDSA scalar of the seed, as computed
// by go-iden3-crypto.
package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/franchise-proof/crypto/ecc"
	"github.com/vocdoni/franchise-proof/crypto/ecc/curves"
	"github.com/vocdoni/franchise-proof/crypto/hash"
	"github.com/vocdoni/franchise-proof/types"
	"github.com/vocdoni/franchise-proof/util"
)

// ErrInvalidSeedLength is returned when the seed is not types.SeedLength
// bytes long.
var ErrInvalidSeedLength = errors.New("invalid seed length")

// Key is an identity key. The seed never leaves the party that derived it;
// only the public point, or its hash, is shared.
type Key struct {
	seed   []byte
	scalar *big.Int
	public ecc.Point
}

// Derive derives the identity key of the seed provided, computing the public
// point with the curve implementation requested.
func Derive(seed []byte, curve curves.Type) (*Key, error) {
	if len(seed) != types.SeedLength {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidSeedLength, len(seed), types.SeedLength)
	}
	scalar := DeriveScalar(seed)
	public := curves.New(curve)
	public.ScalarBaseMult(scalar)
	return &Key{
		seed:   append([]byte{}, seed...),
		scalar: scalar,
		public: public,
	}, nil
}

// FromHex derives the identity key of a hex encoded seed.
func FromHex(seedHex string, curve curves.Type) (*Key, error) {
	seed, err := hex.DecodeString(util.TrimHex(seedHex))
	if err != nil {
		return nil, fmt.Errorf("invalid seed hex: %w", err)
	}
	return Derive(seed, curve)
}

// Random derives the identity key of a new random seed.
func Random(curve curves.Type) *Key {
	k, err := Derive(util.RandomSeed(), curve)
	if err != nil {
		panic(err)
	}
	return k
}

// DeriveScalar computes the private scalar of a seed with the iden3
// BabyJubJub key derivation. Seeds longer than 32 bytes are truncated.
func DeriveScalar(seed []byte) *big.Int {
	var pk babyjub.PrivateKey
	copy(pk[:], seed)
	return babyjub.SkToBigInt(&pk)
}

// Seed returns a copy of the raw seed.
func (k *Key) Seed() []byte {
	return append([]byte{}, k.seed...)
}

// Scalar returns a copy of the private scalar.
func (k *Key) Scalar() *big.Int {
	return new(big.Int).Set(k.scalar)
}

// Public returns the public point.
func (k *Key) Public() ecc.Point {
	p := k.public.New()
	p.Set(k.public)
	return p
}

// PublicXY returns the twisted Edwards coordinates of the public point.
func (k *Key) PublicXY() (*big.Int, *big.Int) {
	return k.public.Point()
}

// PublicKeyHash returns H(x, y) of the public point, the value registered in
// the census for this key.
func (k *Key) PublicKeyHash(hasher hash.Hasher) (*big.Int, error) {
	x, y := k.public.Point()
	return hasher.Hash(x, y)
}

// Equal reports whether both keys derive from the same seed.
func (k *Key) Equal(o *Key) bool {
	return k.scalar.Cmp(o.scalar) == 0 && k.public.Equal(o.public)
}
