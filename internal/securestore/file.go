package securestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileStoreAAD = "void/securestore/file/v1"

// FileStore keeps the whole key-value map as one encrypted snapshot on
// disk, rewritten atomically on every mutation. The value set of a gate
// is a handful of small blobs, so whole-snapshot writes stay cheap and
// keep crash states trivially consistent: either the old snapshot or
// the new one, never a mix.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase string
	values     map[string][]byte
}

// OpenFile loads the snapshot at path, creating an empty store when the
// file does not exist yet. A wrong passphrase fails with ErrAuthFailed
// rather than presenting an empty store.
func OpenFile(path, passphrase string) (*FileStore, error) {
	s := &FileStore{
		path:       path,
		passphrase: passphrase,
		values:     make(map[string][]byte),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store snapshot: %w", err)
	}
	plaintext, err := openSnapshot(passphrase, raw, []byte(fileStoreAAD))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plaintext, &s.values); err != nil {
		return nil, ErrInvalid
	}
	return s, nil
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *FileStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return s.persistLocked()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.persistLocked()
}

func (s *FileStore) Contains(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string][]byte)
	return s.persistLocked()
}

func (s *FileStore) persistLocked() error {
	payload, err := json.Marshal(s.values)
	if err != nil {
		return err
	}
	sealed, err := sealSnapshot(s.passphrase, payload, []byte(fileStoreAAD))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
