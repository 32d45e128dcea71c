package testutil

import (
	"tt-go/internal/encryption"
	"tt-go/internal/tt"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() tt.Encryptor {
	return encryption.NewTestEncryptor()
}
