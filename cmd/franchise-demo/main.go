// Command franchise-demo runs the franchise proof pipeline end to end: it
// registers a voter in a census, builds its ballot input, proves and
// verifies it, and writes the resulting artifacts. With --node the census
// is managed by a running authority node and the vote is submitted to it.
package main

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/franchise-proof/api"
	"github.com/vocdoni/franchise-proof/api/client"
	"github.com/vocdoni/franchise-proof/circuits"
	"github.com/vocdoni/franchise-proof/circuits/artifact"
	"github.com/vocdoni/franchise-proof/circuits/testutil"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/prover"
	"github.com/vocdoni/franchise-proof/prover/circomprover"
	"github.com/vocdoni/franchise-proof/prover/gnarkprover"
	"github.com/vocdoni/franchise-proof/service"
	"github.com/vocdoni/franchise-proof/storage"
	"github.com/vocdoni/franchise-proof/types"
	"github.com/vocdoni/franchise-proof/util"
	"github.com/vocdoni/franchise-proof/voter"
)

const (
	backendGnark  = "gnark"
	backendCircom = "circom"
)

type options struct {
	seed            string
	index           uint64
	levels          int
	votingID        *big.Int
	voteValue       *big.Int
	protocol        prover.Protocol
	backend         string
	globalNullifier bool
	node            string
	outDir          string
	encoding        artifact.Encoding
	rawKeys         bool
	timeout         time.Duration
	circomWasm      string
	circomZkey      string
	circomVkey      string
}

func parseFlags() (*options, error) {
	o := &options{}
	var votingID, voteValue, protocol string
	var compress bool
	flag.StringVar(&o.seed, "seed", testutil.DemoSeed, "hex encoded voter seed")
	flag.Uint64Var(&o.index, "index", testutil.DemoIndex, "voter census index")
	flag.IntVar(&o.levels, "levels", testutil.DemoLevels, "census depth")
	flag.StringVar(&votingID, "voting-id", testutil.DemoVotingID.String(), "voting identifier")
	flag.StringVar(&voteValue, "vote-value", testutil.DemoVoteValue.String(), "vote value")
	flag.StringVar(&protocol, "protocol", prover.Groth16.String(), "proving protocol (groth16 or plonk)")
	flag.StringVar(&o.backend, "backend", backendGnark, "proving backend (gnark or circom)")
	flag.BoolVar(&o.globalNullifier, "global-nullifier", false, "set the global nullifier override (local census only)")
	flag.StringVar(&o.node, "node", "", "authority node URL; a local census is used if empty")
	flag.StringVar(&o.outDir, "out", "", "directory to write the input, proof and verification key to")
	flag.BoolVar(&compress, "compress", false, "write the artifacts zstd compressed")
	flag.BoolVar(&o.rawKeys, "raw-keys", false, "also write the binary proving and verification keys")
	flag.DurationVar(&o.timeout, "timeout", 10*time.Minute, "pipeline timeout")
	flag.StringVar(&o.circomWasm, "circom.wasm", "", "circom circuit wasm path")
	flag.StringVar(&o.circomZkey, "circom.zkey", "", "circom proving key path")
	flag.StringVar(&o.circomVkey, "circom.vkey", "", "circom verification key path")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	var ok bool
	if o.votingID, ok = new(big.Int).SetString(votingID, 0); !ok {
		return nil, fmt.Errorf("invalid voting id %q", votingID)
	}
	if o.voteValue, ok = new(big.Int).SetString(voteValue, 0); !ok {
		return nil, fmt.Errorf("invalid vote value %q", voteValue)
	}
	// arbitrary integers are reduced to the circuit field
	o.votingID, o.voteValue = util.BigToFF(o.votingID), util.BigToFF(o.voteValue)
	var err error
	if o.protocol, err = prover.ParseProtocol(protocol); err != nil {
		return nil, err
	}
	o.encoding = artifact.EncodingPlain
	if compress {
		o.encoding = artifact.EncodingCompressed
	}
	return o, nil
}

func main() {
	o, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx := context.Background()

	suite, system, err := newSystem(o)
	if err != nil {
		log.Fatal(err)
	}

	var (
		input *circuits.BallotInput
		cli   *client.HTTPclient
	)
	if o.node != "" {
		if cli, err = client.New(o.node); err != nil {
			log.Fatalf("cannot connect to node: %v", err)
		}
		if input, err = remoteBallot(cli, suite, o); err != nil {
			log.Fatal(err)
		}
	} else {
		if input, err = localBallot(suite, o); err != nil {
			log.Fatal(err)
		}
	}

	res, err := prover.Run(ctx, system, input, o.timeout)
	if err != nil {
		log.Fatal(err)
	}
	if !res.Verified {
		log.Fatal("franchise proof does not verify")
	}
	log.Infow("franchise proof verified",
		"protocol", res.Proof.Protocol,
		"backend", o.backend,
		"votingId", input.VotingID.String(),
		"voteValue", input.VoteValue.String())

	var vkBuf bytes.Buffer
	if _, err := res.VerifyingKey.WriteTo(&vkBuf); err != nil {
		log.Fatal(err)
	}
	vk := &storage.VerifyingKey{Protocol: res.Proof.Protocol.String(), Levels: o.levels, Key: vkBuf.Bytes()}

	if o.outDir != "" {
		if err := writeArtifacts(o, input, res.Proof, vk); err != nil {
			log.Fatal(err)
		}
		if o.rawKeys {
			if err := circuits.StoreProvingKey(res.ProvingKey, filepath.Join(o.outDir, "pkey.bin")); err != nil {
				log.Fatal(err)
			}
			if err := circuits.StoreVerificationKey(res.VerifyingKey, filepath.Join(o.outDir, "vkey.bin")); err != nil {
				log.Fatal(err)
			}
		}
	}

	if cli != nil {
		if o.backend != backendGnark {
			log.Warnw("the node only verifies gnark proofs, vote not submitted", "backend", o.backend)
			return
		}
		if err := submitVote(cli, vk, input, res.Proof); err != nil {
			log.Fatal(err)
		}
	}
}

// newSystem returns the crypto suite and proving backend selected.
func newSystem(o *options) (*crypto.Suite, prover.System, error) {
	switch o.backend {
	case backendGnark:
		system, err := gnarkprover.New(o.protocol)
		if err != nil {
			return nil, nil, err
		}
		return crypto.MustSuite(crypto.SuiteGnark), system, nil
	case backendCircom:
		artifacts, err := circomArtifacts(o)
		if err != nil {
			return nil, nil, err
		}
		system, err := circomprover.New(o.protocol, artifacts, o.levels)
		if err != nil {
			return nil, nil, err
		}
		return crypto.MustSuite(crypto.SuiteCircom), system, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", o.backend)
	}
}

// circomArtifacts reads the circom artifacts from the paths provided and
// stores them in the artifact cache.
func circomArtifacts(o *options) (*circuits.CircuitArtifacts, error) {
	if o.circomWasm == "" || o.circomZkey == "" || o.circomVkey == "" {
		return nil, fmt.Errorf("circom backend requires --circom.wasm, --circom.zkey and --circom.vkey")
	}
	var loaded []*circuits.Artifact
	for _, p := range []string{o.circomWasm, o.circomZkey, o.circomVkey} {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, circuits.NewLocalArtifact(filepath.Base(p), content))
	}
	artifacts := circuits.NewCircuitArtifacts(loaded[0], loaded[1], loaded[2])
	if err := service.LoadArtifacts(time.Minute, artifacts); err != nil {
		return nil, err
	}
	if err := artifacts.StoreAll(); err != nil {
		log.Warnw("cannot cache circom artifacts", "error", err)
	}
	return artifacts, nil
}

// localBallot registers the voter in an in-memory census of a random
// authority.
func localBallot(suite *crypto.Suite, o *options) (*circuits.BallotInput, error) {
	ballot, err := testutil.NewBallot(suite, o.levels, o.seed, o.index, o.votingID, o.voteValue)
	if err != nil {
		return nil, err
	}
	if o.globalNullifier {
		log.Warn("using the global nullifier override")
		ballot.Input.GlobalNullifier = ballot.Authority.GlobalNullifier()
	}
	return ballot.Input, nil
}

// remoteBallot registers the voter in a new census of the node and builds
// the ballot input with the inclusion proof it returns.
func remoteBallot(cli *client.HTTPclient, suite *crypto.Suite, o *options) (*circuits.BallotInput, error) {
	if o.globalNullifier {
		return nil, fmt.Errorf("the global nullifier override needs the authority key, use a local census")
	}
	info, err := cli.Info()
	if err != nil {
		return nil, err
	}
	log.Infow("connected to census authority", "globalCommitment", info.GlobalCommitment.String())

	session, err := voter.NewSessionFromSeed(suite, o.index, o.seed)
	if err != nil {
		return nil, err
	}
	pkHash, err := session.PublicKeyHash()
	if err != nil {
		return nil, err
	}
	nc, err := cli.NewCensus(o.levels, suite.Name)
	if err != nil {
		return nil, fmt.Errorf("cannot create census: %w", err)
	}
	if _, err := cli.AddParticipants(nc.Census, &api.CensusParticipant{
		Index:         o.index,
		PublicKeyHash: (*types.BigInt)(pkHash),
	}); err != nil {
		return nil, fmt.Errorf("cannot register voter: %w", err)
	}
	root, err := cli.CensusRoot(nc.Census)
	if err != nil {
		return nil, err
	}
	proof, err := cli.CensusProof(root, o.index)
	if err != nil {
		return nil, err
	}
	log.Infow("voter registered", "census", nc.Census.String(), "root", root.String(), "index", o.index)
	return session.BuildInput(o.votingID, o.voteValue, proof)
}

// submitVote uploads the verification key and casts the vote.
func submitVote(cli *client.HTTPclient, vk *storage.VerifyingKey, input *circuits.BallotInput, proof *prover.Proof) error {
	if err := cli.SetVerifyingKey(vk); err != nil {
		return fmt.Errorf("cannot upload verification key: %w", err)
	}
	res, err := cli.SubmitVote(&api.Vote{
		Nullifier: (*types.BigInt)(input.Nullifier),
		Levels:    vk.Levels,
		Proof:     proof,
	})
	if err != nil {
		return fmt.Errorf("vote rejected: %w", err)
	}
	log.Infow("vote accepted", "votingId", res.VotingID.String(), "voteValue", res.VoteValue.String())
	return nil
}

// writeArtifacts writes the ballot input, the proof and the verification
// key with the artifact codec.
func writeArtifacts(o *options, input *circuits.BallotInput, proof *prover.Proof, vk *storage.VerifyingKey) error {
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return err
	}
	files := map[string]any{
		"input.json": input,
		"proof.json": proof,
		"vkey.json":  vk,
	}
	for name, v := range files {
		path := filepath.Join(o.outDir, name)
		if err := artifact.WriteFile(path, v, o.encoding); err != nil {
			return fmt.Errorf("cannot write %s: %w", name, err)
		}
		log.Infow("artifact written", "path", path)
	}
	return nil
}
