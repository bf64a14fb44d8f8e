package gateshell

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	storagePassphraseEnv = "VOID_STORAGE_PASSPHRASE"
	envModeVar           = "VOID_ENV"
)

var ErrInsecurePassphraseMode = errors.New("generated storage passphrase is forbidden in production")

// StoragePassphrase resolves the secret that seals local storage:
// environment first, then data-dir/storage.key, then a freshly
// generated one persisted for next time. Production refuses the
// generated path, since a passphrase sitting next to the data it
// protects only guards against casual copying.
func StoragePassphrase(dataDir string) (string, error) {
	if secret := strings.TrimSpace(os.Getenv(storagePassphraseEnv)); secret != "" {
		return secret, nil
	}

	keyPath := filepath.Join(dataDir, "storage.key")
	existing, err := os.ReadFile(keyPath)
	if err == nil {
		if secret := strings.TrimSpace(string(existing)); secret != "" {
			return secret, nil
		}
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	if isProductionEnv() {
		return "", fmt.Errorf("%w: set %s", ErrInsecurePassphraseMode, storagePassphraseEnv)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	secret := base64.RawStdEncoding.EncodeToString(buf)
	if err := writeStorageKey(keyPath, secret); err != nil {
		return "", err
	}
	return secret, nil
}

func writeStorageKey(keyPath, secret string) error {
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(keyPath, []byte(secret), 0o600)
}

func isProductionEnv() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envModeVar))) {
	case "prod", "production":
		return true
	default:
		return false
	}
}
