// Package circomprover implements the proving pipeline over precompiled
// circom artifacts: the circuit wasm, the snarkjs proving key (zkey) and the
// snarkjs verification key. Witnesses are computed with the wasm witness
// calculator and proofs are generated with rapidsnark. Only Groth16 is
// supported.
package circomprover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/iden3/go-rapidsnark/prover"
	"github.com/iden3/go-rapidsnark/witness"
	"github.com/vocdoni/franchise-proof/circuits"
	"github.com/vocdoni/franchise-proof/log"
	fprover "github.com/vocdoni/franchise-proof/prover"
)

// System is the circom proving backend.
type System struct {
	artifacts *circuits.CircuitArtifacts
	levels    int
}

// New returns a circom backend over the artifacts provided. The artifacts
// are compiled for a fixed census depth, given by levels.
func New(protocol fprover.Protocol, artifacts *circuits.CircuitArtifacts, levels int) (*System, error) {
	if protocol != fprover.Groth16 {
		return nil, fmt.Errorf("%w: %q", fprover.ErrUnsupportedProtocol, protocol)
	}
	if artifacts == nil {
		return nil, fmt.Errorf("missing circuit artifacts")
	}
	return &System{artifacts: artifacts, levels: levels}, nil
}

// Circuit is a circom witness calculator wasm.
type Circuit struct {
	Wasm   []byte
	levels int
}

// Levels returns the census depth of the circuit.
func (c *Circuit) Levels() int {
	return c.levels
}

// NbConstraints is unknown for circom circuits and returns zero.
func (*Circuit) NbConstraints() int {
	return 0
}

// Key is a raw snarkjs key: a zkey proving key or a JSON verification key.
type Key []byte

// WriteTo writes the raw key.
func (k Key) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(k)
	return int64(n), err
}

// Witness is a binary wtns witness with its public signals.
type Witness struct {
	WTNS   []byte
	public []*big.Int
}

// PublicSignals returns the public signals of the witness input.
func (w *Witness) PublicSignals() []*big.Int {
	return w.public
}

// Protocol returns Groth16.
func (*System) Protocol() fprover.Protocol {
	return fprover.Groth16
}

// Compile loads the circuit wasm. The circom compilation itself happens
// offline.
func (s *System) Compile(ctx context.Context, levels int) (fprover.Circuit, error) {
	if levels != s.levels {
		return nil, fmt.Errorf("artifacts are compiled for %d levels, requested %d", s.levels, levels)
	}
	if err := s.artifacts.LoadAll(ctx); err != nil {
		return nil, err
	}
	wasm := s.artifacts.CircuitDefinition()
	if len(wasm) == 0 {
		return nil, fmt.Errorf("circuit wasm: %w", circuits.ErrEmptyPayload)
	}
	return &Circuit{Wasm: wasm, levels: levels}, nil
}

// Setup returns the proving and verification keys of the artifacts. The
// trusted setup itself happens offline.
func (s *System) Setup(ctx context.Context, _ fprover.Circuit) (fprover.ProvingKey, fprover.VerifyingKey, error) {
	if err := s.artifacts.LoadAll(ctx); err != nil {
		return nil, nil, err
	}
	pk, vk := s.artifacts.ProvingKey(), s.artifacts.VerifyingKey()
	if len(pk) == 0 || len(vk) == 0 {
		return nil, nil, fmt.Errorf("circuit keys: %w", circuits.ErrEmptyPayload)
	}
	return Key(pk), Key(vk), nil
}

// ComputeWitness runs the witness calculator over the input signals.
func (s *System) ComputeWitness(c fprover.Circuit, input *circuits.BallotInput) (fprover.Witness, error) {
	circuit, ok := c.(*Circuit)
	if !ok {
		return nil, fmt.Errorf("unexpected circuit type %T", c)
	}
	if err := fprover.CheckLevels(circuit, input); err != nil {
		return nil, err
	}
	bInputs, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	inputs, err := witness.ParseInputs(bInputs)
	if err != nil {
		return nil, fmt.Errorf("circom inputs: %w", err)
	}
	calc, err := witness.NewCircom2WitnessCalculator(circuit.Wasm, true)
	if err != nil {
		return nil, fmt.Errorf("instance witness calculator: %w", err)
	}
	wtns, err := calc.CalculateWTNSBin(inputs, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fprover.ErrWitnessUnsatisfiable, err)
	}
	return &Witness{WTNS: wtns, public: input.PublicSignals()}, nil
}

// Prove generates a Groth16 proof with rapidsnark.
func (s *System) Prove(ctx context.Context, _ fprover.Circuit, pk fprover.ProvingKey, w fprover.Witness) (*fprover.Proof, error) {
	zkey, ok := pk.(Key)
	if !ok {
		return nil, fmt.Errorf("unexpected proving key type %T", pk)
	}
	wit, ok := w.(*Witness)
	if !ok {
		return nil, fmt.Errorf("unexpected witness type %T", w)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proofJSON, pubJSON, err := prover.Groth16ProverRaw(zkey, wit.WTNS)
	if err != nil {
		return nil, err
	}
	_, pubSignals, err := circuits.Circom2GnarkProof(proofJSON, pubJSON)
	if err != nil {
		return nil, err
	}
	public := make([]*big.Int, len(pubSignals))
	for i, sig := range pubSignals {
		v, ok := new(big.Int).SetString(sig, 10)
		if !ok {
			return nil, fmt.Errorf("invalid public signal %q", sig)
		}
		public[i] = v
	}
	if !fprover.SameSignals(public, wit.PublicSignals()) {
		log.Warnw("rapidsnark public signals differ from the input", "rapidsnark", pubSignals)
	}
	return &fprover.Proof{
		Protocol:      fprover.Groth16,
		Data:          []byte(proofJSON),
		PublicSignals: public,
	}, nil
}

// Verify checks the proof with circom2gnark.
func (s *System) Verify(vk fprover.VerifyingKey, proof *fprover.Proof) (bool, error) {
	key, ok := vk.(Key)
	if !ok {
		return false, fmt.Errorf("unexpected verification key type %T", vk)
	}
	if proof.Protocol != fprover.Groth16 {
		return false, fmt.Errorf("%w: proof protocol %q", fprover.ErrUnsupportedProtocol, proof.Protocol)
	}
	circomProof, _, err := circuits.Circom2GnarkProof(string(proof.Data), publicSignalsJSON(proof.PublicSignals))
	if err != nil {
		return false, err
	}
	return circuits.VerifyCircomProof(key, circomProof, circuits.BigIntArrayToStringArray(proof.PublicSignals, len(proof.PublicSignals)))
}

// publicSignalsJSON encodes signals as a snarkjs public.json document.
func publicSignalsJSON(signals []*big.Int) string {
	b, _ := json.Marshal(circuits.BigIntArrayToStringArray(signals, len(signals)))
	return string(b)
}
