// Package identity derives user key material from the gate's identity
// seed. The seed itself is the only durable secret; everything here is
// recomputable from it, which is what makes a 12-word recovery phrase
// sufficient to restore a whole identity.
package identity

import (
	"crypto/ed25519"
	"errors"

	"golang.org/x/crypto/curve25519"

	"github.com/Magdyz/void-keygate/internal/crypto"
)

const (
	hkdfInfoSigning    = "void/identity/signing/v1"
	hkdfInfoEncryption = "void/identity/encryption/v1"
)

var ErrSeedSize = errors.New("identity seed must be 16 or 32 bytes")

// DerivedKeys is the working key set expanded from one identity seed.
type DerivedKeys struct {
	SigningPrivateKey   []byte // Ed25519 private key bytes (64)
	SigningPublicKey    []byte // Ed25519 public key bytes (32)
	EncryptionSeed      []byte // X25519 private scalar bytes (32)
	EncryptionPublicKey []byte // X25519 public key bytes (32)
}

// DeriveKeys expands an identity seed into signing and encryption
// keys. Derivation is deterministic: the same seed always yields the
// same keys, on any install.
func DeriveKeys(seed []byte) (*DerivedKeys, error) {
	if len(seed) != 16 && len(seed) != 32 {
		return nil, ErrSeedSize
	}

	signingSeed := crypto.DeriveKey(seed, hkdfInfoSigning, ed25519.SeedSize)
	encryptionSeed := crypto.DeriveKey(seed, hkdfInfoEncryption, curve25519.ScalarSize)

	signingPriv := ed25519.NewKeyFromSeed(signingSeed)
	signingPub := signingPriv.Public().(ed25519.PublicKey)
	encryptionPub, err := curve25519.X25519(encryptionSeed, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}

	return &DerivedKeys{
		SigningPrivateKey:   signingPriv,
		SigningPublicKey:    signingPub,
		EncryptionSeed:      encryptionSeed,
		EncryptionPublicKey: encryptionPub,
	}, nil
}

// Zero wipes the private halves in place.
func (k *DerivedKeys) Zero() {
	if k == nil {
		return
	}
	crypto.Zero(k.SigningPrivateKey)
	crypto.Zero(k.EncryptionSeed)
}
