package types

const (
	// SeedLength is the length in bytes of a raw identity seed.
	SeedLength = 32
	// DefaultCensusLevels is the default number of levels of a census tree.
	DefaultCensusLevels = 10
	// CensusTreeMinLevels is the minimum number of levels in the census
	// merkle tree. The last level is always empty.
	CensusTreeMinLevels = 2
	// CensusTreeMaxLevels is the maximum number of levels in the census
	// merkle tree.
	CensusTreeMaxLevels = 160
	// CensusKeyMaxLen is the maximum length of a census key in bytes.
	CensusKeyMaxLen = CensusTreeMaxLevels / 8
	// FieldElementSize is the size in bytes of a serialized field element.
	FieldElementSize = 32
)

// CensusLevelPresets are the census depths used by known deployments. The
// depth must exceed log2 of the maximum number of registered voters.
var CensusLevelPresets = []int{10, 20, 140}
