package securestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	vcrypto "github.com/Magdyz/void-keygate/internal/crypto"
)

const (
	envelopeVersion = 1
	saltSize        = 16
	filePrefix      = "VOIDSEC1\n"

	kdfTime     = 2
	kdfMemoryKB = 64 * 1024
	kdfThreads  = 1

	// Decode-side ceilings for the stored KDF parameters. A crafted
	// envelope must not be able to demand gigabytes of memory.
	maxKDFTime     = 16
	maxKDFMemoryKB = 512 * 1024
)

var (
	ErrAuthFailed = errors.New("securestore authentication failed")
	ErrInvalid    = errors.New("securestore envelope is invalid")
)

// envelope is the at-rest frame for passphrase-protected payloads. KDF
// parameters travel with the ciphertext so they can be raised later
// without stranding old files.
type envelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// sealSnapshot encrypts plaintext under a passphrase-derived key and
// binds aad, so a snapshot cannot be replayed into a different slot.
func sealSnapshot(passphrase string, plaintext, aad []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := passphraseKey(passphrase, salt, kdfTime, kdfMemoryKB, kdfThreads)
	defer vcrypto.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	env := envelope{
		Version:     envelopeVersion,
		KDF:         "argon2id",
		KDFTime:     kdfTime,
		KDFMemoryKB: kdfMemoryKB,
		KDFThreads:  kdfThreads,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, plaintext, aad),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

// openSnapshot reverses sealSnapshot. Wrong passphrase, wrong aad and
// tampered data are indistinguishable: all fail as ErrAuthFailed.
func openSnapshot(passphrase string, data, aad []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return nil, ErrInvalid
	}
	var env envelope
	if err := json.Unmarshal(data[len(filePrefix):], &env); err != nil {
		return nil, ErrInvalid
	}
	if env.Version != envelopeVersion || env.KDF != "argon2id" || len(env.Salt) != saltSize || len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrInvalid
	}
	if env.KDFTime == 0 || env.KDFTime > maxKDFTime || env.KDFMemoryKB == 0 || env.KDFMemoryKB > maxKDFMemoryKB || env.KDFThreads == 0 {
		return nil, ErrInvalid
	}

	key := passphraseKey(passphrase, env.Salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads)
	defer vcrypto.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, aad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func passphraseKey(passphrase string, salt []byte, time, memoryKB uint32, threads uint8) []byte {
	return argon2.IDKey([]byte(passphrase), salt, time, memoryKB, threads, chacha20poly1305.KeySize)
}
