package bars

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum computes a SHA256 checksum for a day-file payload.
func Checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// VerifyChecksum verifies that data matches the expected checksum.
func VerifyChecksum(data []byte, expected string) bool {
	return Checksum(data) == expected
}
