package types

// CensusProof is the wire representation of a census inclusion proof. It is
// provided by the census authority to a voter, who uses it to build the
// inputs of the ballot proof.
type CensusProof struct {
	Index            uint64    `json:"index"`
	Root             *BigInt   `json:"root"`
	Siblings         []*BigInt `json:"siblings"`
	GlobalCommitment *BigInt   `json:"globalCommitment"`
}
