package encryption

import (
	"bytes"
	"fmt"
	"io"

	"tt-go/internal/tt"
)

// testHeader marks snapshots written by TestEncryptor.
var testHeader = []byte("TTENC\x00\x00\x00")

// TestEncryptor is a deterministic stand-in for AgeEncryptor. It prepends a
// fixed header on Encrypt and strips it on Decrypt. Once Setup has run,
// Unlock only accepts the same passphrase.
type TestEncryptor struct {
	passphrase string
	configured bool
}

var _ tt.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	if e.configured {
		return ErrKeysExist
	}
	e.passphrase = passphrase
	e.configured = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (tt.DecryptionContext, error) {
	if e.configured && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

// IsConfigured is always true so tests need no Setup.
func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the test header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ tt.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
