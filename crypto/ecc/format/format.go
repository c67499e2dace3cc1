// Package format converts BabyJubJub coordinates between the twisted Edwards
// form used by circom and iden3 (a = 168700, d = 168696) and the reduced
// twisted Edwards form used by gnark (a = -1). Only the x coordinate changes:
// x_rte = x_te * g and x_te = x_rte * g^-1, with g^2 = -168700 (mod p).
package format

import "math/big"

var (
	// fieldModulus is the BN254 scalar field, base field of BabyJubJub.
	fieldModulus, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	// teToRTE is the x scaling factor from twisted Edwards to reduced form.
	teToRTE, _ = new(big.Int).SetString("15527681003928902128179717624703512672403908117992798440346960750464748824729", 10)
	// rteToTE is the inverse of teToRTE.
	rteToTE, _ = new(big.Int).SetString("1911982854305225074381251344103329931637610209014896889891168275855466657090", 10)
)

// FromTEtoRTE converts a point from twisted Edwards to reduced twisted
// Edwards coordinates.
func FromTEtoRTE(x, y *big.Int) (*big.Int, *big.Int) {
	xRTE := new(big.Int).Mul(x, teToRTE)
	xRTE.Mod(xRTE, fieldModulus)
	return xRTE, new(big.Int).Set(y)
}

// FromRTEtoTE converts a point from reduced twisted Edwards to twisted
// Edwards coordinates.
func FromRTEtoTE(x, y *big.Int) (*big.Int, *big.Int) {
	xTE := new(big.Int).Mul(x, rteToTE)
	xTE.Mod(xTE, fieldModulus)
	return xTE, new(big.Int).Set(y)
}

// TEtoRTEFactor returns a copy of the x scaling factor, so circuits can apply
// the same conversion on variables.
func TEtoRTEFactor() *big.Int {
	return new(big.Int).Set(teToRTE)
}

// RTEtoTEFactor returns a copy of the inverse x scaling factor.
func RTEtoTEFactor() *big.Int {
	return new(big.Int).Set(rteToTE)
}
