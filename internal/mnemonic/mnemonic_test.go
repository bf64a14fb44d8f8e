package mnemonic

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestEncodeKnownVectors(t *testing.T) {
	words, err := Encode(make([]byte, 16))
	if err != nil {
		t.Fatalf("encode 16 zero bytes failed: %v", err)
	}
	want := strings.Fields("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	if len(words) != 12 {
		t.Fatalf("expected 12 words, got %d", len(words))
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("word %d: got %q, want %q", i, words[i], want[i])
		}
	}

	long, err := Encode(make([]byte, 32))
	if err != nil {
		t.Fatalf("encode 32 zero bytes failed: %v", err)
	}
	if len(long) != 24 {
		t.Fatalf("expected 24 words, got %d", len(long))
	}
	if long[23] != "art" {
		t.Fatalf("last word of zero 32-byte phrase: got %q, want %q", long[23], "art")
	}
}

func TestRoundTripBothSizes(t *testing.T) {
	for _, size := range []int{EntropyShort, EntropyLong} {
		entropy := make([]byte, size)
		for i := range entropy {
			entropy[i] = byte(i*37 + 11)
		}
		words, err := Encode(entropy)
		if err != nil {
			t.Fatalf("encode %d bytes failed: %v", size, err)
		}
		got, err := Decode(words)
		if err != nil {
			t.Fatalf("decode %d-word phrase failed: %v", len(words), err)
		}
		if !bytes.Equal(got, entropy) {
			t.Fatalf("round trip lost entropy for size %d", size)
		}
	}
}

func TestEncodeRejectsOddSizes(t *testing.T) {
	for _, size := range []int{0, 8, 20, 24, 33} {
		if _, err := Encode(make([]byte, size)); !errors.Is(err, ErrEntropySize) {
			t.Fatalf("size %d: expected ErrEntropySize, got %v", size, err)
		}
	}
}

func TestDecodeWordCount(t *testing.T) {
	words := strings.Fields("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon")
	if _, err := Decode(words); !errors.Is(err, ErrInvalidWordCount) {
		t.Fatalf("expected ErrInvalidWordCount for 11 words, got %v", err)
	}
	if _, err := DecodePhrase(""); !errors.Is(err, ErrInvalidWordCount) {
		t.Fatalf("expected ErrInvalidWordCount for empty phrase, got %v", err)
	}
}

func TestDecodeUnknownWordReportsPosition(t *testing.T) {
	phrase, err := EncodePhrase(make([]byte, 16))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	words := strings.Fields(phrase)
	words[2] = "xylophone"

	_, err = Decode(words)
	if !errors.Is(err, ErrUnknownWord) {
		t.Fatalf("expected ErrUnknownWord, got %v", err)
	}
	if !strings.Contains(err.Error(), "word 3") {
		t.Fatalf("unknown-word error should name position 3: %v", err)
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	// The valid zero-entropy phrase ends in "about"; flattening it to
	// twelve identical dictionary words breaks only the checksum.
	words := strings.Fields(strings.Repeat("abandon ", 12))
	if _, err := Decode(words); !errors.Is(err, ErrInvalidChecksum) {
		t.Fatalf("expected ErrInvalidChecksum, got %v", err)
	}
}

func TestDecodeForgivesCaseAndSpace(t *testing.T) {
	entropy := make([]byte, 16)
	entropy[0] = 0x5a
	phrase, err := EncodePhrase(entropy)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := DecodePhrase("  " + strings.ToUpper(phrase) + "\n")
	if err != nil {
		t.Fatalf("decode of shouted phrase failed: %v", err)
	}
	if !bytes.Equal(got, entropy) {
		t.Fatal("case-folded decode should recover identical entropy")
	}
	if !Valid(phrase) {
		t.Fatal("valid phrase reported invalid")
	}
	if Valid(phrase + " abandon") {
		t.Fatal("13-word phrase reported valid")
	}
}
