package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// InfoEndpoint returns the census authority parameters
	InfoEndpoint = "/info"

	// CensusURLParam is the census identifier URL parameter
	CensusURLParam = "censusId"
	// CensusesEndpoint is the endpoint for creating a new census
	CensusesEndpoint = "/censuses"
	// CensusEndpoint is the endpoint of a census, used to delete it
	CensusEndpoint = "/censuses/{" + CensusURLParam + "}"
	// CensusParticipantsEndpoint adds and lists the voters of a census
	CensusParticipantsEndpoint = "/censuses/{" + CensusURLParam + "}/participants"
	// CensusRootEndpoint returns the current root of a census
	CensusRootEndpoint = "/censuses/{" + CensusURLParam + "}/root"
	// CensusSizeEndpoint returns the number of voters of a census
	CensusSizeEndpoint = "/censuses/{" + CensusURLParam + "}/size"
	// CensusProofEndpoint returns an inclusion proof, with the root and
	// index as query parameters
	CensusProofEndpoint = "/censuses/proof"

	// ProtocolURLParam and LevelsURLParam identify a verification key
	ProtocolURLParam = "protocol"
	LevelsURLParam   = "levels"
	// VerifyingKeysEndpoint is the endpoint for storing a verification key
	VerifyingKeysEndpoint = "/verifyingkeys"
	// VerifyingKeyEndpoint returns a stored verification key
	VerifyingKeyEndpoint = "/verifyingkeys/{" + ProtocolURLParam + "}/{" + LevelsURLParam + "}"

	// VotingURLParam is the voting identifier URL parameter
	VotingURLParam = "votingId"
	// VotesEndpoint is the endpoint for submitting a vote
	VotesEndpoint = "/votes"
	// VotesByVotingEndpoint lists the votes accepted on a voting
	VotesByVotingEndpoint = "/votes/{" + VotingURLParam + "}"
)
