package keystore

import (
	"strings"
	"sync"

	"github.com/Magdyz/void-keygate/internal/crypto"
)

// SoftwareStore keeps alias keys in process memory. It exists for
// tests and for platforms with no OS keychain; everything sealed
// through it dies with the process unless a key survives elsewhere.
type SoftwareStore struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func NewSoftwareStore() *SoftwareStore {
	return &SoftwareStore{keys: make(map[string][]byte)}
}

// Generate creates a fresh random key for alias, replacing any
// existing one. The StrongBox request is ignored; the reported tier
// stays honest about that.
func (s *SoftwareStore) Generate(alias string, useStrongBox bool) error {
	key, err := crypto.RandomBytes(crypto.KeySize)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.keys[alias]; ok {
		crypto.Zero(old)
	}
	s.keys[alias] = key
	return nil
}

func (s *SoftwareStore) Encrypt(alias string, plaintext []byte) ([]byte, error) {
	key, err := s.keyFor(alias)
	if err != nil {
		return nil, err
	}
	return crypto.Seal(key, plaintext, []byte(alias))
}

func (s *SoftwareStore) Decrypt(alias string, ciphertext []byte) ([]byte, error) {
	key, err := s.keyFor(alias)
	if err != nil {
		return nil, err
	}
	plaintext, err := crypto.Open(key, ciphertext, []byte(alias))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func (s *SoftwareStore) Delete(alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keys[alias]; ok {
		crypto.Zero(key)
		delete(s.keys, alias)
	}
	return nil
}

func (s *SoftwareStore) DeleteAll(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for alias, key := range s.keys {
		if strings.HasPrefix(alias, prefix) {
			crypto.Zero(key)
			delete(s.keys, alias)
		}
	}
	return nil
}

func (s *SoftwareStore) Tier() Tier {
	return TierSoftware
}

func (s *SoftwareStore) keyFor(alias string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[alias]
	if !ok {
		return nil, ErrNoKey
	}
	return append([]byte(nil), key...), nil
}
