// Package mnemonic encodes identity seeds as recovery phrases and
// decodes them back. Phrases follow the BIP-39 construction over the
// standard 2048-word English dictionary: entropy plus a SHA-256 derived
// checksum, split into 11-bit groups, one word per group. The checksum
// is the only integrity check a phrase carries.
package mnemonic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

var (
	ErrInvalidWordCount = errors.New("recovery phrase must be 12 or 24 words")
	ErrUnknownWord      = errors.New("word not in recovery dictionary")
	ErrInvalidChecksum  = errors.New("recovery phrase checksum mismatch")
	ErrEntropySize      = errors.New("entropy must be 16 or 32 bytes")
)

const (
	// EntropyShort is the seed size that encodes to 12 words.
	EntropyShort = 16
	// EntropyLong is the seed size that encodes to 24 words.
	EntropyLong = 32

	wordsShort = 12
	wordsLong  = 24
)

// Encode turns entropy into an ordered word list. Only the two
// supported entropy sizes are accepted.
func Encode(entropy []byte) ([]string, error) {
	if len(entropy) != EntropyShort && len(entropy) != EntropyLong {
		return nil, fmt.Errorf("%w: got %d", ErrEntropySize, len(entropy))
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("encode recovery phrase: %w", err)
	}
	return strings.Fields(phrase), nil
}

// EncodePhrase is Encode joined with single spaces, the display form.
func EncodePhrase(entropy []byte) (string, error) {
	words, err := Encode(entropy)
	if err != nil {
		return "", err
	}
	return strings.Join(words, " "), nil
}

// Decode validates a word list and recovers the entropy it encodes.
// Validation is layered so each failure reports its own variant: word
// count first, then dictionary membership word by word, then the
// checksum. The unknown-word error names the 1-based position only;
// the user already knows what they typed there.
func Decode(words []string) ([]byte, error) {
	if len(words) != wordsShort && len(words) != wordsLong {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWordCount, len(words))
	}

	cleaned := make([]string, len(words))
	for i, w := range words {
		cleaned[i] = strings.ToLower(strings.TrimSpace(w))
		if _, ok := bip39.GetWordIndex(cleaned[i]); !ok {
			return nil, fmt.Errorf("%w: word %d", ErrUnknownWord, i+1)
		}
	}

	entropy, err := bip39.EntropyFromMnemonic(strings.Join(cleaned, " "))
	if err != nil {
		if errors.Is(err, bip39.ErrChecksumIncorrect) {
			return nil, ErrInvalidChecksum
		}
		return nil, fmt.Errorf("decode recovery phrase: %w", err)
	}
	return entropy, nil
}

// DecodePhrase splits on any whitespace and decodes. Case and
// surrounding space are forgiven; word order is not.
func DecodePhrase(phrase string) ([]byte, error) {
	return Decode(strings.Fields(phrase))
}

// Valid reports whether a phrase would decode cleanly.
func Valid(phrase string) bool {
	_, err := DecodePhrase(phrase)
	return err == nil
}
