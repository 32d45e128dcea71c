package testutil

import (
	"tt-go/internal/tt"
	"tt-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() tt.Vault {
	return vault.NewMemoryVault("test-vault")
}
