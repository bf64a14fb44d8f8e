package keystore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"

	"github.com/Magdyz/void-keygate/internal/crypto"
)

// KeyringConfig selects where alias keys live when the OS keychain is
// in play.
type KeyringConfig struct {
	// ServiceName namespaces the gate's entries inside the keychain.
	ServiceName string
	// FileDir is where the encrypted file backend keeps items when no
	// OS keychain is usable.
	FileDir string
	// FilePassphrase unlocks the file backend without prompting. Leave
	// empty to prompt on the terminal.
	FilePassphrase string
	// FileOnly forces the file backend, for headless machines and
	// tests. The reported tier drops to software accordingly.
	FileOnly bool
}

// KeyringStore keeps alias keys in the OS keychain through the keyring
// library, falling back to its encrypted file backend. The data sealed
// by Encrypt never enters the keychain; only the 32-byte alias keys do.
type KeyringStore struct {
	ring keyring.Keyring
	tier Tier
}

func OpenKeyring(cfg KeyringConfig) (*KeyringStore, error) {
	service := cfg.ServiceName
	if service == "" {
		service = "void-keygate"
	}

	kc := keyring.Config{
		ServiceName: service,
		FileDir:     cfg.FileDir,
	}
	if cfg.FilePassphrase != "" {
		kc.FilePasswordFunc = keyring.FixedStringPrompt(cfg.FilePassphrase)
	} else {
		kc.FilePasswordFunc = keyring.TerminalPrompt
	}

	tier := TierOS
	if cfg.FileOnly {
		kc.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		tier = TierSoftware
	}

	ring, err := keyring.Open(kc)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &KeyringStore{ring: ring, tier: tier}, nil
}

// Generate rotates the alias to a fresh random key. StrongBox is not
// reachable from here and is ignored.
func (s *KeyringStore) Generate(alias string, useStrongBox bool) error {
	key, err := crypto.RandomBytes(crypto.KeySize)
	if err != nil {
		return err
	}
	defer crypto.Zero(key)
	err = s.ring.Set(keyring.Item{
		Key:         alias,
		Data:        key,
		Label:       alias,
		Description: "void-keygate alias key",
	})
	if err != nil {
		return fmt.Errorf("store alias key: %w", err)
	}
	return nil
}

func (s *KeyringStore) Encrypt(alias string, plaintext []byte) ([]byte, error) {
	key, err := s.keyFor(alias)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(key)
	return crypto.Seal(key, plaintext, []byte(alias))
}

func (s *KeyringStore) Decrypt(alias string, ciphertext []byte) ([]byte, error) {
	key, err := s.keyFor(alias)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(key)
	plaintext, err := crypto.Open(key, ciphertext, []byte(alias))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func (s *KeyringStore) Delete(alias string) error {
	err := s.ring.Remove(alias)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("remove alias key: %w", err)
	}
	return nil
}

func (s *KeyringStore) DeleteAll(prefix string) error {
	keys, err := s.ring.Keys()
	if err != nil {
		return fmt.Errorf("list alias keys: %w", err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("remove alias key: %w", err)
		}
	}
	return nil
}

func (s *KeyringStore) Tier() Tier {
	return s.tier
}

func (s *KeyringStore) keyFor(alias string) ([]byte, error) {
	item, err := s.ring.Get(alias)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNoKey
		}
		return nil, fmt.Errorf("load alias key: %w", err)
	}
	if len(item.Data) != crypto.KeySize {
		return nil, ErrNoKey
	}
	return item.Data, nil
}
