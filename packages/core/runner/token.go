package runner

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the number of random bytes in a token.
const TokenBytes = 16

// NewToken returns a fresh token of the form FLAG{<32 hex chars>}.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return "FLAG{" + hex.EncodeToString(b) + "}", nil
}
