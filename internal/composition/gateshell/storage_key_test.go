package gateshell

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Magdyz/void-keygate/internal/testutil/fsperm"
)

func TestStoragePassphraseEnvWins(t *testing.T) {
	t.Setenv(storagePassphraseEnv, "from-env")
	dir := t.TempDir()

	secret, err := StoragePassphrase(dir)
	if err != nil {
		t.Fatalf("StoragePassphrase: %v", err)
	}
	if secret != "from-env" {
		t.Fatalf("secret = %q, want env value", secret)
	}
	if _, err := os.Stat(filepath.Join(dir, "storage.key")); !os.IsNotExist(err) {
		t.Fatal("env-provided passphrase should not touch the key file")
	}
}

func TestStoragePassphraseGeneratesAndPersists(t *testing.T) {
	t.Setenv(storagePassphraseEnv, "")
	dir := filepath.Join(t.TempDir(), "data")

	first, err := StoragePassphrase(dir)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first == "" {
		t.Fatal("generated passphrase is empty")
	}

	fsperm.AssertPrivateDirPerm(t, dir)
	fsperm.AssertPrivateFilePerm(t, filepath.Join(dir, "storage.key"))

	second, err := StoragePassphrase(dir)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second != first {
		t.Fatal("second call did not reuse the persisted passphrase")
	}
}

func TestStoragePassphraseProductionPolicy(t *testing.T) {
	t.Setenv(storagePassphraseEnv, "")
	t.Setenv(envModeVar, "production")
	dir := t.TempDir()

	if _, err := StoragePassphrase(dir); !errors.Is(err, ErrInsecurePassphraseMode) {
		t.Fatalf("error = %v, want ErrInsecurePassphraseMode", err)
	}

	// An existing key file is still honored; only generation is gated.
	if err := os.WriteFile(filepath.Join(dir, "storage.key"), []byte("operator-placed"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	secret, err := StoragePassphrase(dir)
	if err != nil {
		t.Fatalf("StoragePassphrase with key file: %v", err)
	}
	if secret != "operator-placed" {
		t.Fatalf("secret = %q, want file contents", secret)
	}
}
