package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as opposed to the
// base64 default. It accepts input with or without the 0x prefix.
type HexBytes []byte

// String returns the 0x prefixed hexadecimal representation.
func (b HexBytes) String() string {
	return hexutil.Encode(b)
}

// MarshalJSON implements the json.Marshaler interface.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", hexutil.Encode(b))), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	s := string(data[1 : len(data)-1])
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		decoded, err := hex.DecodeString(s)
		if err != nil {
			return fmt.Errorf("invalid hex string %q: %w", s, err)
		}
		*b = decoded
		return nil
	}
	decoded, err := hexutil.Decode(s)
	if err != nil {
		// hexutil rejects the empty 0x prefix, which is a valid empty value here
		if s == "0x" || s == "0X" {
			*b = HexBytes{}
			return nil
		}
		return fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	*b = decoded
	return nil
}

// HexStringToHexBytes converts a hex string (with or without 0x) to HexBytes.
func HexStringToHexBytes(s string) (HexBytes, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}
