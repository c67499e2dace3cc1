package storage

import (
	"fmt"

	"github.com/vocdoni/franchise-proof/circuits/artifact"
	"github.com/vocdoni/franchise-proof/types"
)

// VerifyingKey is a stored verification key of the franchise circuit.
type VerifyingKey struct {
	Protocol string         `json:"protocol"`
	Levels   int            `json:"levels"`
	Key      types.HexBytes `json:"key"`
}

func vkeyKey(protocol string, levels int) []byte {
	return []byte(fmt.Sprintf("%s/%d", protocol, levels))
}

// SetVerifyingKey stores the verification key of the circuit for the
// protocol and census depth provided. The key is kept in the compressed
// artifact envelope.
func (s *Storage) SetVerifyingKey(vk *VerifyingKey) error {
	if vk == nil || len(vk.Key) == 0 {
		return fmt.Errorf("verification key: %w", artifact.ErrEmptyPayload)
	}
	data, err := artifact.MarshalCompressed(vk)
	if err != nil {
		return fmt.Errorf("encode verification key: %w", err)
	}
	return s.setRaw(vkeyPrefix, vkeyKey(vk.Protocol, vk.Levels), data)
}

// VerifyingKey returns the stored verification key for the protocol and
// census depth provided, or ErrNotFound.
func (s *Storage) VerifyingKey(protocol string, levels int) (*VerifyingKey, error) {
	data, err := s.getRaw(vkeyPrefix, vkeyKey(protocol, levels))
	if err != nil {
		return nil, err
	}
	vk := &VerifyingKey{}
	if err := artifact.Decode(data, vk); err != nil {
		return nil, fmt.Errorf("decode verification key: %w", err)
	}
	return vk, nil
}
