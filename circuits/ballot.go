package circuits

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vocdoni/franchise-proof/circuits/artifact"
	"github.com/vocdoni/franchise-proof/types"
	"github.com/vocdoni/franchise-proof/util"
)

// BallotPublicSignals is the number of public signals of the franchise
// circuits.
const BallotPublicSignals = 5

// Positions of each public signal, in circuit order.
const (
	SignalVotingID = iota
	SignalCensusRoot
	SignalVoteValue
	SignalGlobalCommitment
	SignalGlobalNullifier
)

// BallotInput is the complete signal bundle of a franchise proof. It embeds
// the voter private key, so it must be handed to the witness calculator once
// and then dropped.
//
// Private signals: PrivateKey, Nullifier, CensusSiblings, CensusIdx,
// VoteSigS, VoteSigR8x and VoteSigR8y. Public signals: VotingID, CensusRoot,
// VoteValue, GlobalCommitment and GlobalNullifier.
type BallotInput struct {
	PrivateKey       *big.Int
	VotingID         *big.Int
	Nullifier        *big.Int
	CensusRoot       *big.Int
	CensusSiblings   []*big.Int
	CensusIdx        *big.Int
	VoteSigS         *big.Int
	VoteSigR8x       *big.Int
	VoteSigR8y       *big.Int
	VoteValue        *big.Int
	GlobalCommitment *big.Int
	GlobalNullifier  *big.Int
}

// ballotInputJSON is the wire format of BallotInput, using the circom signal
// names.
type ballotInputJSON struct {
	PrivateKey       *types.BigInt   `json:"privateKey"`
	VotingID         *types.BigInt   `json:"votingId"`
	Nullifier        *types.BigInt   `json:"nullifier"`
	CensusRoot       *types.BigInt   `json:"censusRoot"`
	CensusSiblings   []*types.BigInt `json:"censusSiblings"`
	CensusIdx        *types.BigInt   `json:"censusIdx"`
	VoteSigS         *types.BigInt   `json:"voteSigS"`
	VoteSigR8x       *types.BigInt   `json:"voteSigR8x"`
	VoteSigR8y       *types.BigInt   `json:"voteSigR8y"`
	VoteValue        *types.BigInt   `json:"voteValue"`
	GlobalCommitment *types.BigInt   `json:"globalCommitment"`
	GlobalNullifier  *types.BigInt   `json:"globalNullifier"`
}

// Levels returns the census depth the input was built for.
func (bi *BallotInput) Levels() int {
	return len(bi.CensusSiblings)
}

// Validate checks that every signal is set and is a BN254 field element.
func (bi *BallotInput) Validate() error {
	signals := map[string]*big.Int{
		"privateKey":       bi.PrivateKey,
		"votingId":         bi.VotingID,
		"nullifier":        bi.Nullifier,
		"censusRoot":       bi.CensusRoot,
		"censusIdx":        bi.CensusIdx,
		"voteSigS":         bi.VoteSigS,
		"voteSigR8x":       bi.VoteSigR8x,
		"voteSigR8y":       bi.VoteSigR8y,
		"voteValue":        bi.VoteValue,
		"globalCommitment": bi.GlobalCommitment,
		"globalNullifier":  bi.GlobalNullifier,
	}
	for name, v := range signals {
		if !util.IsFieldElement(v) {
			return fmt.Errorf("signal %s is not a field element", name)
		}
	}
	if len(bi.CensusSiblings) == 0 {
		return fmt.Errorf("no census siblings")
	}
	for i, s := range bi.CensusSiblings {
		if !util.IsFieldElement(s) {
			return fmt.Errorf("census sibling %d is not a field element", i)
		}
	}
	return nil
}

// PublicSignals returns the public signals in circuit order: votingId,
// censusRoot, voteValue, globalCommitment and globalNullifier.
func (bi *BallotInput) PublicSignals() []*big.Int {
	return []*big.Int{
		bi.VotingID,
		bi.CensusRoot,
		bi.VoteValue,
		bi.GlobalCommitment,
		bi.GlobalNullifier,
	}
}

// PublicSignalsStrings returns PublicSignals as decimal strings, the format
// of a snarkjs public.json file.
func (bi *BallotInput) PublicSignalsStrings() []string {
	return BigIntArrayToStringArray(bi.PublicSignals(), BallotPublicSignals)
}

// Copy returns a deep copy of the input.
func (bi *BallotInput) Copy() *BallotInput {
	cp := func(v *big.Int) *big.Int {
		if v == nil {
			return nil
		}
		return new(big.Int).Set(v)
	}
	siblings := make([]*big.Int, len(bi.CensusSiblings))
	for i := range siblings {
		siblings[i] = cp(bi.CensusSiblings[i])
	}
	return &BallotInput{
		PrivateKey:       cp(bi.PrivateKey),
		VotingID:         cp(bi.VotingID),
		Nullifier:        cp(bi.Nullifier),
		CensusRoot:       cp(bi.CensusRoot),
		CensusSiblings:   siblings,
		CensusIdx:        cp(bi.CensusIdx),
		VoteSigS:         cp(bi.VoteSigS),
		VoteSigR8x:       cp(bi.VoteSigR8x),
		VoteSigR8y:       cp(bi.VoteSigR8y),
		VoteValue:        cp(bi.VoteValue),
		GlobalCommitment: cp(bi.GlobalCommitment),
		GlobalNullifier:  cp(bi.GlobalNullifier),
	}
}

// MarshalJSON encodes the input with circom signal names and decimal string
// values.
func (bi *BallotInput) MarshalJSON() ([]byte, error) {
	w := func(v *big.Int) *types.BigInt {
		if v == nil {
			return nil
		}
		return new(types.BigInt).SetBigInt(v)
	}
	return json.Marshal(&ballotInputJSON{
		PrivateKey:       w(bi.PrivateKey),
		VotingID:         w(bi.VotingID),
		Nullifier:        w(bi.Nullifier),
		CensusRoot:       w(bi.CensusRoot),
		CensusSiblings:   types.BigIntSlice(bi.CensusSiblings),
		CensusIdx:        w(bi.CensusIdx),
		VoteSigS:         w(bi.VoteSigS),
		VoteSigR8x:       w(bi.VoteSigR8x),
		VoteSigR8y:       w(bi.VoteSigR8y),
		VoteValue:        w(bi.VoteValue),
		GlobalCommitment: w(bi.GlobalCommitment),
		GlobalNullifier:  w(bi.GlobalNullifier),
	})
}

// UnmarshalJSON decodes an input in any of the layouts understood by the
// artifact codec.
func (bi *BallotInput) UnmarshalJSON(data []byte) error {
	var w ballotInputJSON
	if err := artifact.Decode(data, &w); err != nil {
		return err
	}
	r := func(v *types.BigInt) *big.Int {
		if v == nil {
			return nil
		}
		return new(big.Int).Set(v.MathBigInt())
	}
	*bi = BallotInput{
		PrivateKey:       r(w.PrivateKey),
		VotingID:         r(w.VotingID),
		Nullifier:        r(w.Nullifier),
		CensusRoot:       r(w.CensusRoot),
		CensusSiblings:   types.MathBigIntSlice(w.CensusSiblings),
		CensusIdx:        r(w.CensusIdx),
		VoteSigS:         r(w.VoteSigS),
		VoteSigR8x:       r(w.VoteSigR8x),
		VoteSigR8y:       r(w.VoteSigR8y),
		VoteValue:        r(w.VoteValue),
		GlobalCommitment: r(w.GlobalCommitment),
		GlobalNullifier:  r(w.GlobalNullifier),
	}
	return nil
}
