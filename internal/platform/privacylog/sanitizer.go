// Package privacylog keeps gesture and key material out of log output.
// The gate logs outcomes, never content: a tap sequence in a debug line
// is as good as a pattern written to disk. Call sites use plain slog;
// the wrapping handler applies the rules.
package privacylog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Magdyz/void-keygate/pkg/models"
)

const redactedValue = "[REDACTED]"

var (
	bootNonce = randomNonce()

	// Keys whose values correlate log lines to an identity or a key
	// slot. Fingerprinting keeps them correlatable within one process
	// run and useless across runs.
	fingerprintKeys = map[string]struct{}{
		"identity_id": {},
		"alias":       {},
		"device_id":   {},
	}

	// Key fragments that mark a value as gesture or key material.
	sensitiveKeyParts = []string{
		"pattern", "tap", "rhythm", "gesture", "landmark", "interval",
		"seed", "phrase", "mnemonic", "entropy", "confidence",
		"secret", "token", "password", "passphrase",
	}
)

// SanitizingHandler rewrites attributes before the wrapped handler sees
// them. Redaction works by key and by value type, so a pattern logged
// under a harmless key still never appears.
type SanitizingHandler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SanitizingHandler{next: h.next.WithAttrs(sanitizeAttrs(attrs))}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

// SanitizeAttr applies the redaction and fingerprint rules to a single
// attribute. Groups are sanitized recursively.
func SanitizeAttr(attr slog.Attr) slog.Attr {
	key := strings.TrimSpace(attr.Key)
	lower := strings.ToLower(key)
	switch {
	case isSensitiveKey(lower) || isSensitiveValue(attr.Value):
		return slog.String(key, redactedValue)
	case shouldFingerprint(lower):
		return slog.String(fingerprintKeyName(key), FingerprintID(valueString(attr.Value)))
	case attr.Value.Kind() == slog.KindGroup:
		return slog.Attr{Key: key, Value: slog.GroupValue(sanitizeAttrs(attr.Value.Group())...)}
	default:
		return attr
	}
}

// SanitizeArgs rewrites the alternating key/value list that slog call
// sites pass, for code that builds argument slices before logging.
func SanitizeArgs(args ...any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, 0, len(args))
	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			out = append(out, args[i])
			continue
		}
		value := args[i+1]
		i++
		lower := strings.ToLower(strings.TrimSpace(key))
		switch {
		case isSensitiveKey(lower) || isSensitiveValue(slog.AnyValue(value)):
			out = append(out, key, redactedValue)
		case shouldFingerprint(lower):
			out = append(out, fingerprintKeyName(key), FingerprintID(fmt.Sprint(value)))
		default:
			out = append(out, key, value)
		}
	}
	return out
}

// FingerprintID hashes an identifier with a per-process nonce. Equal
// inputs collide within one run and diverge across restarts, which is
// enough to follow a session without building a durable profile.
func FingerprintID(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed + "|" + bootNonce))
	return "fp_" + hex.EncodeToString(sum[:8])
}

func sanitizeAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, SanitizeAttr(attr))
	}
	return out
}

// isSensitiveValue catches gesture material travelling under an
// unremarkable key. Raw byte slices are treated as key material; this
// codebase has no legitimate reason to log one.
func isSensitiveValue(v slog.Value) bool {
	if v.Kind() != slog.KindAny {
		return false
	}
	switch v.Any().(type) {
	case models.Pattern, *models.Pattern,
		models.CanonicalPattern, *models.CanonicalPattern,
		[]models.Tap, []models.CanonicalTap, []byte:
		return true
	}
	return false
}

func shouldFingerprint(key string) bool {
	_, ok := fingerprintKeys[key]
	return ok
}

func fingerprintKeyName(key string) string {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(key)), "_fp") {
		return key
	}
	return key + "_fp"
}

func isSensitiveKey(key string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func valueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return fmt.Sprintf("%d", v.Int64())
	case slog.KindUint64:
		return fmt.Sprintf("%d", v.Uint64())
	case slog.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return fmt.Sprint(v.Any())
	}
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback_nonce"
	}
	return hex.EncodeToString(buf)
}
