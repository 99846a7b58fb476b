package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSecret hashes a raw token secret the same way issuance does.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
