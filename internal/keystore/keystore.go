// Package keystore holds the gate's hardware-key abstraction. Keys
// live behind named aliases and never leave the store; callers only
// encrypt and decrypt through them. The gate treats a decrypt failure
// the same as a wrong gesture, so implementations must fail closed.
package keystore

import "errors"

var (
	// ErrNoKey is returned when an alias has no key behind it.
	ErrNoKey = errors.New("keystore: no key for alias")
	// ErrDecrypt is returned when a ciphertext does not authenticate
	// under the alias key, including ciphertexts sealed by a key that
	// has since been rotated away.
	ErrDecrypt = errors.New("keystore: decryption failed")
)

// Tier names the strongest protection level a store actually provides.
// Stores report what they are, not what was asked for; a caller that
// requested StrongBox can inspect the tier and decide whether a softer
// store is acceptable.
type Tier string

const (
	TierSoftware  Tier = "software"
	TierOS        Tier = "os"
	TierTEE       Tier = "tee"
	TierStrongBox Tier = "strongbox"
)

// Store is the contract the gate manager drives. Generate on an
// existing alias rotates the key, which silently orphans everything
// sealed under the old one.
type Store interface {
	Generate(alias string, useStrongBox bool) error
	Encrypt(alias string, plaintext []byte) ([]byte, error)
	Decrypt(alias string, ciphertext []byte) ([]byte, error)
	Delete(alias string) error
	DeleteAll(prefix string) error
	Tier() Tier
}
