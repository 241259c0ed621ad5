package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomTokenHex returns n random bytes, hex encoded.
func RandomTokenHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
