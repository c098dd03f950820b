// Package redact masks personal data and secrets before they reach logs or
// error diagnostics.
package redact

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Placeholder replaces values that must not be shown at all.
const Placeholder = "[REDACTED]"

// MaxLen is the longest masked value emitted.
const MaxLen = 32

var (
	// piiKeyFragments identify keys that carry client-identifying data.
	piiKeyFragments = []string{
		"name", "email", "phone", "location", "address", "description",
		"message", "content", "text", "opposing", "question", "input",
	}

	// secretKeyFragments identify keys that carry credentials.
	secretKeyFragments = []string{
		"secret", "password", "authorization", "cookie", "credential", "api_key", "apikey", "token",
	}

	// nonSensitiveKeys contain a fragment above but never carry PII.
	nonSensitiveKeys = map[string]struct{}{
		"tool_name":     {},
		"tool":          {},
		"unit_name":     {},
		"persona_name":  {},
		"provider_name": {},
		"matter_type":   {},
		"file_name":     {},
		"input_tokens":  {},
		"output_tokens": {},
		"max_tokens":    {},
		"context_key":   {},
		"content_type":  {},
		"content_len":   {},
		"text_len":      {},
	}
)

// IsSecretKey reports whether the key names credential material.
func IsSecretKey(key string) bool {
	k := normalize(key)
	if k == "" {
		return false
	}
	if _, ok := nonSensitiveKeys[k]; ok {
		return false
	}
	for _, frag := range secretKeyFragments {
		if strings.Contains(k, frag) {
			return true
		}
	}
	return false
}

// IsSensitiveKey reports whether values stored under key must be masked.
func IsSensitiveKey(key string) bool {
	k := normalize(key)
	if k == "" {
		return false
	}
	if _, ok := nonSensitiveKeys[k]; ok {
		return false
	}
	if IsSecretKey(k) {
		return true
	}
	for _, frag := range piiKeyFragments {
		if strings.Contains(k, frag) {
			return true
		}
	}
	return false
}

// Mask keeps the first and last rune of s and replaces the middle with
// asterisks. The result is truncated to MaxLen runes.
func Mask(s string) string {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return ""
	case n <= 2:
		return strings.Repeat("*", n)
	}

	runes := []rune(s)
	middle := n - 2
	truncated := false
	if middle > MaxLen-2 {
		middle = MaxLen - 3
		truncated = true
	}

	var b strings.Builder
	b.WriteRune(runes[0])
	b.WriteString(strings.Repeat("*", middle))
	if truncated {
		b.WriteString("…")
	} else {
		b.WriteRune(runes[n-1])
	}
	return b.String()
}

// Value redacts value according to key: secrets become Placeholder,
// PII is masked, everything else passes through truncated.
func Value(key, value string) string {
	if value == "" {
		return value
	}
	if IsSecretKey(key) {
		return Placeholder
	}
	if IsSensitiveKey(key) {
		return Mask(value)
	}
	return Truncate(value, 256)
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

// Map returns a redacted deep copy of values. Nested maps and string
// slices are walked; other values under sensitive keys become Placeholder.
func Map(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = redactAny(k, v)
	}
	return out
}

func redactAny(key string, v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return Value(key, t)
	case []string:
		cp := make([]string, len(t))
		for i, s := range t {
			cp[i] = Value(key, s)
		}
		return cp
	case map[string]any:
		return Map(t)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = Value(k, s)
		}
		return m
	case bool, int, int32, int64, float32, float64:
		return t
	case fmt.Stringer:
		return Value(key, t.String())
	default:
		if IsSensitiveKey(key) {
			return Placeholder
		}
		return t
	}
}

// Keys returns the sorted keys of m; used for stable log output.
func Keys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
