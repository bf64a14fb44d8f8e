package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrKeySize    = errors.New("key must be 32 bytes")
	ErrCiphertext = errors.New("ciphertext too short")
	ErrOpenFailed = errors.New("authenticated decryption failed")
)

// KeySize is the symmetric key size used throughout the gate.
const KeySize = chacha20poly1305.KeySize

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Hash is SHA-256.
func Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// DeriveKey expands secret into size bytes bound to the given info
// string via HKDF-SHA256. Distinct info strings yield independent keys
// from the same secret.
func DeriveKey(secret []byte, info string, size int) []byte {
	reader := hkdf.New(sha256.New, secret, nil, []byte(info))
	out := make([]byte, size)
	_, _ = io.ReadFull(reader, out)
	return out
}

// Seal encrypts plaintext under key with XChaCha20-Poly1305 and binds
// the additional data. The random nonce is prepended to the returned
// ciphertext.
func Seal(key, plaintext, additional []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, additional), nil
}

// Open reverses Seal. Any tampering with ciphertext or additional data
// fails with ErrOpenFailed and no plaintext.
func Open(key, sealed, additional []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, ErrCiphertext
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, ciphertext := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

// Zero overwrites b in place. Go gives no guarantee copies do not
// exist elsewhere, but key material should not outlive its use in
// buffers we control.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
