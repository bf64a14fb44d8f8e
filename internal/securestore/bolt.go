package securestore

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	vcrypto "github.com/Magdyz/void-keygate/internal/crypto"
)

const (
	metaBucket   = "meta"
	valuesBucket = "values"

	metaSaltKey    = "salt"
	metaCheckKey   = "check"
	metaVersionKey = "version"

	boltStoreVersion = 1
)

var boltCheckPlaintext = []byte("void/securestore/bolt/check/v1")

// BoltStore keeps values in a bbolt file. The passphrase is stretched
// once at open into a store key that seals every value individually,
// so single-value reads and writes do not pay the argon2 cost and do
// not rewrite the rest of the file.
type BoltStore struct {
	db  *bolt.DB
	key []byte
}

// OpenBolt creates or loads the store at path. A check value written at
// creation time lets a reopen with the wrong passphrase fail up front
// with ErrAuthFailed instead of failing lazily on first Get.
func OpenBolt(path, passphrase string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	s := &BoltStore{db: db}
	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(valuesBucket)); err != nil {
			return err
		}

		if v := meta.Get([]byte(metaVersionKey)); v != nil {
			if len(v) != 1 || v[0] != boltStoreVersion {
				return ErrInvalid
			}
			salt := meta.Get([]byte(metaSaltKey))
			if len(salt) != saltSize {
				return ErrInvalid
			}
			s.key = passphraseKey(passphrase, salt, kdfTime, kdfMemoryKB, kdfThreads)
			check := meta.Get([]byte(metaCheckKey))
			if _, err := vcrypto.Open(s.key, check, []byte(metaCheckKey)); err != nil {
				return ErrAuthFailed
			}
			return nil
		}

		salt, err := vcrypto.RandomBytes(saltSize)
		if err != nil {
			return err
		}
		s.key = passphraseKey(passphrase, salt, kdfTime, kdfMemoryKB, kdfThreads)
		check, err := vcrypto.Seal(s.key, boltCheckPlaintext, []byte(metaCheckKey))
		if err != nil {
			return err
		}
		if err := meta.Put([]byte(metaSaltKey), salt); err != nil {
			return err
		}
		if err := meta.Put([]byte(metaCheckKey), check); err != nil {
			return err
		}
		return meta.Put([]byte(metaVersionKey), []byte{boltStoreVersion})
	})
	if err != nil {
		db.Close()
		if s.key != nil {
			vcrypto.Zero(s.key)
		}
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) Get(key string) ([]byte, bool, error) {
	var sealed []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(valuesBucket)).Get([]byte(key)); v != nil {
			sealed = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if sealed == nil {
		return nil, false, nil
	}
	value, err := vcrypto.Open(s.key, sealed, []byte(key))
	if err != nil {
		return nil, false, ErrAuthFailed
	}
	return value, true, nil
}

func (s *BoltStore) Put(key string, value []byte) error {
	sealed, err := vcrypto.Seal(s.key, value, []byte(key))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(valuesBucket)).Put([]byte(key), sealed)
	})
}

func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(valuesBucket)).Delete([]byte(key))
	})
}

func (s *BoltStore) Contains(key string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket([]byte(valuesBucket)).Get([]byte(key)) != nil
		return nil
	})
	return ok, err
}

func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(valuesBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(valuesBucket))
		return err
	})
}

func (s *BoltStore) Close() error {
	vcrypto.Zero(s.key)
	return s.db.Close()
}
