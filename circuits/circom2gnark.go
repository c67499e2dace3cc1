package circuits

import (
	"fmt"

	"github.com/vocdoni/circom2gnark/parser"
)

// Circom2GnarkProof parses a circom proof and its public signals, as snarkjs
// and rapidsnark return them, into the circom2gnark format.
func Circom2GnarkProof(circomProof, pubSignals string) (*parser.CircomProof, []string, error) {
	proofData, err := parser.UnmarshalCircomProofJSON([]byte(circomProof))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid circom proof: %w", err)
	}
	pubSignalsData, err := parser.UnmarshalCircomPublicSignalsJSON([]byte(pubSignals))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid circom public signals: %w", err)
	}
	return proofData, pubSignalsData, nil
}

// VerifyCircomProof converts a circom Groth16 proof to gnark and verifies it
// against the snarkjs verification key provided.
func VerifyCircomProof(vkey []byte, proof *parser.CircomProof, pubSignals []string) (bool, error) {
	gnarkVKeyData, err := parser.UnmarshalCircomVerificationKeyJSON(vkey)
	if err != nil {
		return false, fmt.Errorf("invalid circom verification key: %w", err)
	}
	gnarkProof, err := parser.ConvertCircomToGnark(proof, gnarkVKeyData, pubSignals)
	if err != nil {
		return false, fmt.Errorf("cannot convert circom proof: %w", err)
	}
	return parser.VerifyProof(gnarkProof)
}
