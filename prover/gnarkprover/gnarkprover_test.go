package gnarkprover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/franchise-proof/circuits/testutil"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/prover"
)

func demoBallot(c *qt.C) *testutil.Ballot {
	ballot, err := testutil.DemoBallot(crypto.MustSuite(crypto.SuiteGnark), testutil.DemoLevels)
	c.Assert(err, qt.IsNil)
	return ballot
}

func TestNew(t *testing.T) {
	c := qt.New(t)
	_, err := New(prover.Groth16)
	c.Assert(err, qt.IsNil)
	_, err = New(prover.Plonk)
	c.Assert(err, qt.IsNil)
	_, err = New(prover.Protocol("stark"))
	c.Assert(errors.Is(err, prover.ErrUnsupportedProtocol), qt.IsTrue)
}

func TestWitnessUnsatisfiable(t *testing.T) {
	c := qt.New(t)
	ballot := demoBallot(c)
	system, err := New(prover.Groth16)
	c.Assert(err, qt.IsNil)
	circuit, err := system.Compile(context.Background(), testutil.DemoLevels)
	c.Assert(err, qt.IsNil)

	w, err := system.ComputeWitness(circuit, ballot.Input)
	c.Assert(err, qt.IsNil)
	c.Assert(prover.SameSignals(w.PublicSignals(), ballot.Input.PublicSignals()), qt.IsTrue)

	// a corrupted signature without the global nullifier cannot be proven
	input := ballot.Input.Copy()
	input.VoteSigR8x.Add(input.VoteSigR8x, big.NewInt(1))
	c.Assert(input.GlobalNullifier.Sign(), qt.Equals, 0)
	_, err = system.ComputeWitness(circuit, input)
	c.Assert(errors.Is(err, prover.ErrWitnessUnsatisfiable), qt.IsTrue)

	// census depth mismatch
	other, err := system.Compile(context.Background(), testutil.DemoLevels+1)
	c.Assert(err, qt.IsNil)
	_, err = system.ComputeWitness(other, ballot.Input)
	c.Assert(err, qt.IsNotNil)
}

func TestRunGroth16(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping groth16 end to end proof in short mode")
	}
	c := qt.New(t)
	ballot := demoBallot(c)
	system, err := New(prover.Groth16)
	c.Assert(err, qt.IsNil)

	res, err := prover.Run(context.Background(), system, ballot.Input, 10*time.Minute)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Verified, qt.IsTrue)
	c.Assert(prover.SameSignals(res.Proof.PublicSignals, ballot.Input.PublicSignals()), qt.IsTrue)

	// the verification key survives a write and read
	var buf bytes.Buffer
	_, err = res.VerifyingKey.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	vk, err := ReadVerifyingKey(prover.Groth16, buf.Bytes())
	c.Assert(err, qt.IsNil)

	// and so does the proof
	data, err := json.Marshal(res.Proof)
	c.Assert(err, qt.IsNil)
	var proof prover.Proof
	c.Assert(json.Unmarshal(data, &proof), qt.IsNil)
	ok, err := system.Verify(vk, &proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// a proof does not verify with other public signals
	proof.PublicSignals[2] = big.NewInt(3)
	ok, err = system.Verify(vk, &proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	// nor with another protocol
	proof.Protocol = prover.Plonk
	_, err = system.Verify(vk, &proof)
	c.Assert(errors.Is(err, prover.ErrUnsupportedProtocol), qt.IsTrue)
}

func TestRunPlonk(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping plonk end to end proof in short mode")
	}
	c := qt.New(t)
	ballot := demoBallot(c)
	system, err := New(prover.Plonk)
	c.Assert(err, qt.IsNil)

	res, err := prover.Run(context.Background(), system, ballot.Input, 10*time.Minute)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Verified, qt.IsTrue)
	c.Assert(res.Proof.Protocol, qt.Equals, prover.Plonk)
}

func TestRunCancelled(t *testing.T) {
	c := qt.New(t)
	ballot := demoBallot(c)
	system, err := New(prover.Groth16)
	c.Assert(err, qt.IsNil)
	circuit, err := system.Compile(context.Background(), testutil.DemoLevels)
	c.Assert(err, qt.IsNil)
	w, err := system.ComputeWitness(circuit, ballot.Input)
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = system.Prove(ctx, circuit, nil, w)
	c.Assert(errors.Is(err, context.Canceled), qt.IsTrue)
	_, _, err = system.Setup(ctx, circuit)
	c.Assert(errors.Is(err, context.Canceled), qt.IsTrue)
	_, err = system.Compile(ctx, testutil.DemoLevels)
	c.Assert(errors.Is(err, context.Canceled), qt.IsTrue)
}

func TestRunTimeout(t *testing.T) {
	c := qt.New(t)
	ballot := demoBallot(c)
	for _, protocol := range []prover.Protocol{prover.Groth16, prover.Plonk} {
		system, err := New(protocol)
		c.Assert(err, qt.IsNil)
		start := time.Now()
		_, err = prover.Run(context.Background(), system, ballot.Input, time.Millisecond)
		c.Assert(errors.Is(err, context.DeadlineExceeded), qt.IsTrue, qt.Commentf("%s: %v", protocol, err))
		// Run returns without waiting for gnark to finish
		c.Assert(time.Since(start) < 5*time.Second, qt.IsTrue)
	}
}

func TestPublicWitness(t *testing.T) {
	c := qt.New(t)
	_, err := PublicWitness([]*big.Int{big.NewInt(1)})
	c.Assert(err, qt.IsNotNil)
	signals := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(0)}
	w, err := PublicWitness(signals)
	c.Assert(err, qt.IsNil)
	got, err := vectorToBigInts(w)
	c.Assert(err, qt.IsNil)
	c.Assert(prover.SameSignals(got, signals), qt.IsTrue)
}
