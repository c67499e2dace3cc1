// Package prover defines the proving pipeline of the franchise circuit:
// compile, setup, witness computation, proof generation and verification.
// The gnarkprover and circomprover subpackages implement it with gnark and
// with circom artifacts and rapidsnark.
package prover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/vocdoni/franchise-proof/circuits"
	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/types"
)

var (
	// ErrUnsupportedProtocol is returned for proving protocols a backend
	// does not implement.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	// ErrWitnessUnsatisfiable is returned when the ballot input does not
	// satisfy the circuit constraints: the ballot or the census membership is
	// invalid.
	ErrWitnessUnsatisfiable = errors.New("witness unsatisfiable")
)

// Protocol is a zkSNARK proving protocol.
type Protocol string

const (
	Groth16 Protocol = "groth16"
	Plonk   Protocol = "plonk"
)

// ParseProtocol returns the protocol named s. Names are case insensitive;
// "groth" is accepted as an alias of groth16.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "groth16", "groth":
		return Groth16, nil
	case "plonk":
		return Plonk, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, s)
	}
}

func (p Protocol) String() string {
	return string(p)
}

// Circuit is a compiled franchise circuit.
type Circuit interface {
	// Levels returns the census depth the circuit was compiled for.
	Levels() int
	// NbConstraints returns the number of constraints, if known.
	NbConstraints() int
}

// ProvingKey is a backend specific proving key.
type ProvingKey interface {
	io.WriterTo
}

// VerifyingKey is a backend specific verification key.
type VerifyingKey interface {
	io.WriterTo
}

// Witness is a computed full witness.
type Witness interface {
	// PublicSignals returns the public part of the witness.
	PublicSignals() []*big.Int
}

// Proof is a serialized proof with the public signals it proves. Data is
// the gnark binary encoding for gnark proofs and the snarkjs JSON document
// for circom proofs.
type Proof struct {
	Protocol      Protocol
	Data          []byte
	PublicSignals []*big.Int
}

type proofJSON struct {
	Protocol      Protocol        `json:"protocol"`
	Data          types.HexBytes  `json:"data"`
	PublicSignals []*types.BigInt `json:"publicSignals"`
}

// MarshalJSON encodes the proof data as hex and the signals as decimal
// strings.
func (p *Proof) MarshalJSON() ([]byte, error) {
	return json.Marshal(&proofJSON{
		Protocol:      p.Protocol,
		Data:          p.Data,
		PublicSignals: types.BigIntSlice(p.PublicSignals),
	})
}

// UnmarshalJSON decodes a proof encoded by MarshalJSON.
func (p *Proof) UnmarshalJSON(data []byte) error {
	var w proofJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if _, err := ParseProtocol(string(w.Protocol)); err != nil {
		return err
	}
	p.Protocol = w.Protocol
	p.Data = w.Data
	p.PublicSignals = types.MathBigIntSlice(w.PublicSignals)
	return nil
}

// System is a proving backend.
type System interface {
	// Protocol returns the proving protocol of the backend.
	Protocol() Protocol
	// Compile returns the franchise circuit for a census of the depth
	// provided.
	Compile(ctx context.Context, levels int) (Circuit, error)
	// Setup returns the proving and verification keys of the circuit.
	Setup(ctx context.Context, circuit Circuit) (ProvingKey, VerifyingKey, error)
	// ComputeWitness computes the witness of the input. It returns an error
	// wrapping ErrWitnessUnsatisfiable if the input does not satisfy the
	// circuit.
	ComputeWitness(circuit Circuit, input *circuits.BallotInput) (Witness, error)
	// Prove generates a proof of the witness.
	Prove(ctx context.Context, circuit Circuit, pk ProvingKey, witness Witness) (*Proof, error)
	// Verify checks a proof against the verification key.
	Verify(vk VerifyingKey, proof *Proof) (bool, error)
}

// Result is the outcome of Run.
type Result struct {
	Circuit      Circuit
	ProvingKey   ProvingKey
	VerifyingKey VerifyingKey
	Proof        *Proof
	Verified     bool
}

// Run executes the full pipeline for a single input: compile, setup,
// witness, prove and verify. If timeout is not zero, it bounds the whole
// pipeline.
func Run(ctx context.Context, system System, input *circuits.BallotInput, timeout time.Duration) (*Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ballot input: %w", err)
	}
	res := &Result{}
	var err error

	startTime := time.Now()
	if res.Circuit, err = system.Compile(ctx, input.Levels()); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	log.Debugw("circuit compiled", "protocol", system.Protocol(), "levels", input.Levels(),
		"constraints", res.Circuit.NbConstraints(), "took", time.Since(startTime).String())

	startTime = time.Now()
	if res.ProvingKey, res.VerifyingKey, err = system.Setup(ctx, res.Circuit); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	log.Debugw("circuit setup done", "took", time.Since(startTime).String())

	startTime = time.Now()
	witness, err := system.ComputeWitness(res.Circuit, input)
	if err != nil {
		return nil, err
	}
	log.Debugw("witness computed", "took", time.Since(startTime).String())

	startTime = time.Now()
	if res.Proof, err = system.Prove(ctx, res.Circuit, res.ProvingKey, witness); err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	log.Debugw("proof generated", "took", time.Since(startTime).String())

	if res.Verified, err = system.Verify(res.VerifyingKey, res.Proof); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	log.Infow("franchise proof done", "protocol", system.Protocol(), "verified", res.Verified)
	return res, nil
}

// CheckLevels returns an error if the circuit and the input census depths
// differ.
func CheckLevels(circuit Circuit, input *circuits.BallotInput) error {
	if circuit.Levels() != input.Levels() {
		return fmt.Errorf("circuit has %d census levels, input has %d", circuit.Levels(), input.Levels())
	}
	return nil
}

// SameSignals reports whether two public signal lists are equal.
func SameSignals(a, b []*big.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == nil || b[i] == nil || a[i].Cmp(b[i]) != 0 {
			return false
		}
	}
	return true
}
