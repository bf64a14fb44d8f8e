package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestRandomBytesLengthAndVariety(t *testing.T) {
	a, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("random bytes failed: %v", err)
	}
	b, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("random bytes failed: %v", err)
	}
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("wrong lengths: %d, %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatal("two random draws should not collide")
	}
}

func TestHashIsStable(t *testing.T) {
	h1 := Hash([]byte("gate"))
	h2 := Hash([]byte("gate"))
	if len(h1) != 32 {
		t.Fatalf("hash length: got %d, want 32", len(h1))
	}
	if !bytes.Equal(h1, h2) {
		t.Fatal("hash must be deterministic")
	}
	if bytes.Equal(h1, Hash([]byte("gates"))) {
		t.Fatal("different inputs should hash differently")
	}
}

func TestDeriveKeySeparatesByInfo(t *testing.T) {
	secret := []byte("master-secret-material")
	k1 := DeriveKey(secret, "void/test/a/v1", KeySize)
	k2 := DeriveKey(secret, "void/test/b/v1", KeySize)
	k1again := DeriveKey(secret, "void/test/a/v1", KeySize)

	if len(k1) != KeySize {
		t.Fatalf("derived key length: got %d, want %d", len(k1), KeySize)
	}
	if bytes.Equal(k1, k2) {
		t.Fatal("different info strings must derive different keys")
	}
	if !bytes.Equal(k1, k1again) {
		t.Fatal("same info string must derive the same key")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := RandomBytes(KeySize)
	if err != nil {
		t.Fatalf("random key failed: %v", err)
	}
	plaintext := []byte("canonical template bytes")
	ad := []byte("alias:void.gate.real")

	sealed, err := Seal(key, plaintext, ad)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	got, err := Open(key, sealed, ad)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatal("round trip lost plaintext")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	key, _ := RandomBytes(KeySize)
	sealed, err := Seal(key, []byte("secret"), []byte("ad"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	flipped := append([]byte(nil), sealed...)
	flipped[len(flipped)-1] ^= 0x01
	if _, err := Open(key, flipped, []byte("ad")); !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("expected ErrOpenFailed for flipped byte, got %v", err)
	}

	if _, err := Open(key, sealed, []byte("other-ad")); !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("expected ErrOpenFailed for wrong additional data, got %v", err)
	}

	otherKey, _ := RandomBytes(KeySize)
	if _, err := Open(otherKey, sealed, []byte("ad")); !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("expected ErrOpenFailed for wrong key, got %v", err)
	}

	if _, err := Open(key, []byte("short"), []byte("ad")); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("expected ErrCiphertext for truncated input, got %v", err)
	}
	if _, err := Seal([]byte("short-key"), []byte("x"), nil); !errors.Is(err, ErrKeySize) {
		t.Fatalf("expected ErrKeySize, got %v", err)
	}
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, v)
		}
	}
}
