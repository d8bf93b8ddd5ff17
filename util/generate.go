package util

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// GenerateProducerID returns a random 64-bit producer identity. Uniqueness
// matters only within one broker connection, so uuid entropy is plenty.
func GenerateProducerID() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8])
}

// GenerateClientID returns a random string identity for a client instance.
func GenerateClientID() string {
	return uuid.New().String()
}
