package tt

import "io"

// Encryptor protects replica snapshots before they leave the machine.
// Encryption uses the public key only. Decryption needs the passphrase that
// unlocks the private key.
type Encryptor interface {
	// Setup generates the key pair. Called during `tt config init`.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a context that can decrypt
	// snapshots for the rest of the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory only.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
