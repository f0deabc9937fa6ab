package serialization

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChecksumKey is the metadata key holding the hex SHA-256 of the data section.
const ChecksumKey = "sha256"

// ComputeChecksum computes the hex-encoded SHA-256 checksum of data.
func ComputeChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidateChecksum compares the checksum of data against stored.
// Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(data []byte, stored string) error {
	if got := ComputeChecksum(data); got != stored {
		return &ValidationError{
			Err:     ErrChecksumMismatch,
			Details: "stored " + stored + ", computed " + got,
		}
	}
	return nil
}
