// Package gnarkprover implements the proving pipeline with gnark, for both
// Groth16 and PLONK over BN254. PLONK keys use an unsafe KZG setup, valid for
// tests and demos only.
package gnarkprover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
	"github.com/vocdoni/franchise-proof/circuits"
	"github.com/vocdoni/franchise-proof/circuits/franchise"
	"github.com/vocdoni/franchise-proof/prover"
)

// Curve is the curve of the franchise circuit.
var Curve = ecc.BN254

// System is the gnark proving backend.
type System struct {
	protocol prover.Protocol
}

// New returns a gnark backend for the protocol provided.
func New(protocol prover.Protocol) (*System, error) {
	switch protocol {
	case prover.Groth16, prover.Plonk:
		return &System{protocol: protocol}, nil
	default:
		return nil, fmt.Errorf("%w: %q", prover.ErrUnsupportedProtocol, protocol)
	}
}

// Circuit is a compiled constraint system.
type Circuit struct {
	CS     constraint.ConstraintSystem
	levels int
}

// Levels returns the census depth of the circuit.
func (c *Circuit) Levels() int {
	return c.levels
}

// NbConstraints returns the number of constraints of the circuit.
func (c *Circuit) NbConstraints() int {
	return c.CS.GetNbConstraints()
}

// Witness wraps a gnark full witness.
type Witness struct {
	Full witness.Witness
}

// PublicSignals returns the public part of the witness.
func (w *Witness) PublicSignals() []*big.Int {
	public, err := w.Full.Public()
	if err != nil {
		return nil
	}
	signals, err := vectorToBigInts(public)
	if err != nil {
		return nil
	}
	return signals
}

// Protocol returns the proving protocol of the backend.
func (s *System) Protocol() prover.Protocol {
	return s.protocol
}

// Compile compiles the franchise circuit for a census of the depth
// provided, as R1CS for Groth16 and as SCS for PLONK.
func (s *System) Compile(ctx context.Context, levels int) (prover.Circuit, error) {
	builder := r1cs.NewBuilder
	if s.protocol == prover.Plonk {
		builder = scs.NewBuilder
	}
	cs, err := await(ctx, func() (constraint.ConstraintSystem, error) {
		return frontend.Compile(Curve.ScalarField(), builder, franchise.Placeholder(levels))
	})
	if err != nil {
		return nil, err
	}
	return &Circuit{CS: cs, levels: levels}, nil
}

// keyPair is the result of a key setup.
type keyPair struct {
	pk prover.ProvingKey
	vk prover.VerifyingKey
}

// Setup generates the proving and verification keys of the circuit.
func (s *System) Setup(ctx context.Context, c prover.Circuit) (prover.ProvingKey, prover.VerifyingKey, error) {
	circuit, err := asCircuit(c)
	if err != nil {
		return nil, nil, err
	}
	keys, err := await(ctx, func() (keyPair, error) {
		switch s.protocol {
		case prover.Groth16:
			pk, vk, err := groth16.Setup(circuit.CS)
			return keyPair{pk, vk}, err
		case prover.Plonk:
			srs, srsLagrange, err := unsafekzg.NewSRS(circuit.CS)
			if err != nil {
				return keyPair{}, fmt.Errorf("cannot generate kzg srs: %w", err)
			}
			pk, vk, err := plonk.Setup(circuit.CS, srs, srsLagrange)
			return keyPair{pk, vk}, err
		default:
			return keyPair{}, prover.ErrUnsupportedProtocol
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return keys.pk, keys.vk, nil
}

// await runs f in its own goroutine and waits for its result or for ctx to
// be done. gnark cannot be interrupted, so on cancellation f keeps running
// until it returns and its result is dropped.
func await[T any](ctx context.Context, f func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := f()
		done <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-done:
		return r.v, r.err
	}
}

// ComputeWitness assigns the input to the circuit and solves it.
func (s *System) ComputeWitness(c prover.Circuit, input *circuits.BallotInput) (prover.Witness, error) {
	circuit, err := asCircuit(c)
	if err != nil {
		return nil, err
	}
	if err := prover.CheckLevels(circuit, input); err != nil {
		return nil, err
	}
	full, err := frontend.NewWitness(franchise.Assign(input), Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("cannot create witness: %w", err)
	}
	if err := circuit.CS.IsSolved(full); err != nil {
		return nil, fmt.Errorf("%w: %v", prover.ErrWitnessUnsatisfiable, err)
	}
	return &Witness{Full: full}, nil
}

// Prove generates a proof of the witness. A cancelled context stops the
// wait, not the gnark prover.
func (s *System) Prove(ctx context.Context, c prover.Circuit, pk prover.ProvingKey, w prover.Witness) (*prover.Proof, error) {
	circuit, err := asCircuit(c)
	if err != nil {
		return nil, err
	}
	wit, ok := w.(*Witness)
	if !ok {
		return nil, fmt.Errorf("unexpected witness type %T", w)
	}

	proof, err := await(ctx, func() (io.WriterTo, error) {
		switch s.protocol {
		case prover.Groth16:
			key, ok := pk.(groth16.ProvingKey)
			if !ok {
				return nil, fmt.Errorf("unexpected proving key type %T", pk)
			}
			return groth16.Prove(circuit.CS, key, wit.Full)
		case prover.Plonk:
			key, ok := pk.(plonk.ProvingKey)
			if !ok {
				return nil, fmt.Errorf("unexpected proving key type %T", pk)
			}
			return plonk.Prove(circuit.CS, key, wit.Full)
		default:
			return nil, prover.ErrUnsupportedProtocol
		}
	})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("cannot encode proof: %w", err)
	}
	return &prover.Proof{
		Protocol:      s.protocol,
		Data:          buf.Bytes(),
		PublicSignals: wit.PublicSignals(),
	}, nil
}

// Verify checks the proof against the verification key.
func (s *System) Verify(vk prover.VerifyingKey, proof *prover.Proof) (bool, error) {
	if proof.Protocol != s.protocol {
		return false, fmt.Errorf("%w: proof protocol %q", prover.ErrUnsupportedProtocol, proof.Protocol)
	}
	public, err := PublicWitness(proof.PublicSignals)
	if err != nil {
		return false, err
	}
	switch s.protocol {
	case prover.Groth16:
		key, ok := vk.(groth16.VerifyingKey)
		if !ok {
			return false, fmt.Errorf("unexpected verification key type %T", vk)
		}
		p := groth16.NewProof(Curve)
		if _, err := p.ReadFrom(bytes.NewReader(proof.Data)); err != nil {
			return false, fmt.Errorf("cannot decode proof: %w", err)
		}
		return groth16.Verify(p, key, public) == nil, nil
	case prover.Plonk:
		key, ok := vk.(plonk.VerifyingKey)
		if !ok {
			return false, fmt.Errorf("unexpected verification key type %T", vk)
		}
		p := plonk.NewProof(Curve)
		if _, err := p.ReadFrom(bytes.NewReader(proof.Data)); err != nil {
			return false, fmt.Errorf("cannot decode proof: %w", err)
		}
		return plonk.Verify(p, key, public) == nil, nil
	default:
		return false, prover.ErrUnsupportedProtocol
	}
}

// ReadVerifyingKey decodes a verification key written with WriteTo.
func ReadVerifyingKey(protocol prover.Protocol, data []byte) (prover.VerifyingKey, error) {
	switch protocol {
	case prover.Groth16:
		vk := groth16.NewVerifyingKey(Curve)
		if _, err := vk.ReadFrom(bytes.NewReader(data)); err != nil {
			return nil, err
		}
		return vk, nil
	case prover.Plonk:
		vk := plonk.NewVerifyingKey(Curve)
		if _, err := vk.ReadFrom(bytes.NewReader(data)); err != nil {
			return nil, err
		}
		return vk, nil
	default:
		return nil, fmt.Errorf("%w: %q", prover.ErrUnsupportedProtocol, protocol)
	}
}

// PublicWitness builds the gnark public witness of the public signals, in
// circuit order.
func PublicWitness(signals []*big.Int) (witness.Witness, error) {
	if len(signals) != circuits.BallotPublicSignals {
		return nil, fmt.Errorf("expected %d public signals, got %d", circuits.BallotPublicSignals, len(signals))
	}
	assignment := &franchise.Circuit{
		VotingID:         signals[0],
		CensusRoot:       signals[1],
		VoteValue:        signals[2],
		GlobalCommitment: signals[3],
		GlobalNullifier:  signals[4],
	}
	return frontend.NewWitness(assignment, Curve.ScalarField(), frontend.PublicOnly())
}

func asCircuit(c prover.Circuit) (*Circuit, error) {
	circuit, ok := c.(*Circuit)
	if !ok {
		return nil, fmt.Errorf("unexpected circuit type %T", c)
	}
	return circuit, nil
}

func vectorToBigInts(w witness.Witness) ([]*big.Int, error) {
	vector, ok := w.Vector().(fr.Vector)
	if !ok {
		return nil, errors.New("unexpected witness vector type")
	}
	out := make([]*big.Int, len(vector))
	for i := range vector {
		out[i] = vector[i].BigInt(new(big.Int))
	}
	return out, nil
}
