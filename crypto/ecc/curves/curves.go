package curves

import (
	"errors"
	"fmt"

	"github.com/vocdoni/franchise-proof/crypto/ecc"
	bjj_gnark "github.com/vocdoni/franchise-proof/crypto/ecc/bjj_gnark"
	bjj_iden3 "github.com/vocdoni/franchise-proof/crypto/ecc/bjj_iden3"
)

// Type identifies one of the supported BabyJubJub implementations.
type Type string

const (
	CurveTypeBabyJubJubGnark Type = bjj_gnark.CurveType
	CurveTypeBabyJubJubIden3 Type = bjj_iden3.CurveType
)

// ErrUnsupportedCurve is returned when the curve type is unknown.
var ErrUnsupportedCurve = errors.New("unsupported curve type")

// Parse returns the curve Type with the name provided.
func Parse(name string) (Type, error) {
	switch Type(name) {
	case CurveTypeBabyJubJubGnark, CurveTypeBabyJubJubIden3:
		return Type(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurve, name)
	}
}

// New returns a new identity point of the curve implementation provided.
// It panics on an unknown type, use Parse to validate external input.
func New(curveType Type) ecc.Point {
	switch curveType {
	case CurveTypeBabyJubJubGnark:
		return bjj_gnark.New()
	case CurveTypeBabyJubJubIden3:
		return bjj_iden3.New()
	default:
		panic(fmt.Sprintf("%v: %q", ErrUnsupportedCurve, curveType))
	}
}
