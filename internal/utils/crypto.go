// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// FileChecksum returns the hex SHA-256 of an uploaded file's bytes. Stored
// with attachments so consumers can verify downloads.
func FileChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether data matches a previously recorded checksum.
func VerifyChecksum(data []byte, checksum string) bool {
	return FileChecksum(data) == checksum
}
