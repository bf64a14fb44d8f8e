package identity

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

// idPrefix marks gate identity IDs in transcripts and QR payloads.
const idPrefix = "void1"

// BuildIdentityID renders a stable public identifier from the signing
// public key. The ID commits to the key, so peers can pin it and
// detect key substitution later.
func BuildIdentityID(signingPublicKey []byte) (string, error) {
	if len(signingPublicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid signing public key size: %d", len(signingPublicKey))
	}
	h := blake2b.Sum256(signingPublicKey)
	return idPrefix + base58.Encode(h[:]), nil
}

// VerifyIdentityID reports whether id commits to signingPublicKey.
func VerifyIdentityID(id string, signingPublicKey []byte) (bool, error) {
	expected, err := BuildIdentityID(signingPublicKey)
	if err != nil {
		return false, err
	}
	return id == expected, nil
}
