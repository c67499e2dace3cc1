package ecc

import (
	"math/big"

	"github.com/vocdoni/franchise-proof/types"
)

// Point defines the operations available on a BabyJubJub group element. The
// coordinates exchanged through Point and SetPoint are always expressed in
// the circom twisted Edwards form, whatever the internal representation of
// the implementation is.
type Point interface {
	// New returns a new point of the same implementation, set to the
	// identity element.
	New() Point

	// Order returns the order of the prime subgroup generated by the base
	// point.
	Order() *big.Int

	// Add adds a and b and stores the result in the receiver.
	Add(a, b Point)

	// SafeAdd is like Add but holds a lock on the receiver.
	SafeAdd(a, b Point)

	// ScalarMult multiplies a by scalar and stores the result in the receiver.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult multiplies the base point by scalar and stores the
	// result in the receiver.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the point into a byte slice.
	Marshal() []byte

	// Unmarshal deserializes a byte slice produced by Marshal.
	Unmarshal(buf []byte) error

	// Equal reports whether a is the same point as the receiver.
	Equal(a Point) bool

	// Neg sets the receiver to -a.
	Neg(a Point)

	// SetZero sets the receiver to the identity element (0, 1).
	SetZero()

	// Set sets the receiver to a.
	Set(a Point)

	// SetGenerator sets the receiver to the base point.
	SetGenerator()

	// String returns the "x,y" decimal representation of the point.
	String() string

	// Point returns the twisted Edwards coordinates of the point.
	Point() (*big.Int, *big.Int)

	// SetPoint returns a new point of the same implementation with the
	// twisted Edwards coordinates provided.
	SetPoint(x, y *big.Int) Point

	// Type returns the curve implementation identifier.
	Type() string
}

// PointEC is the JSON representation of a curve point.
type PointEC struct {
	X types.BigInt `json:"x"`
	Y types.BigInt `json:"y"`
}
