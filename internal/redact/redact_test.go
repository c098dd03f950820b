package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"name", true},
		{"client_name", true},
		{"email", true},
		{"Phone", true},
		{"location", true},
		{"description", true},
		{"api_key", true},
		{"tool_name", false},
		{"matter_type", false},
		{"session_id", false},
		{"input_tokens", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSensitiveKey(tt.key))
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "**", Mask("ab"))
	assert.Equal(t, "J********h", Mask("John Smith"))

	long := strings.Repeat("x", 200)
	masked := Mask(long)
	assert.LessOrEqual(t, len([]rune(masked)), MaxLen)
	assert.True(t, strings.HasSuffix(masked, "…"))
}

func TestValue(t *testing.T) {
	assert.Equal(t, Placeholder, Value("api_key", "sk-live-123"))
	assert.Equal(t, "j**************m", Value("email", "john@example.com"))
	assert.Equal(t, "create_matter", Value("tool_name", "create_matter"))
	assert.Equal(t, "", Value("email", ""))
}

func TestMapRedactsNestedValues(t *testing.T) {
	in := map[string]any{
		"name":  "John Smith",
		"count": 3,
		"contact": map[string]any{
			"phone": "(555) 234-5678",
		},
		"tags": []string{"a"},
	}
	out := Map(in)

	assert.Equal(t, "J********h", out["name"])
	assert.Equal(t, 3, out["count"])
	nested, ok := out["contact"].(map[string]any)
	if assert.True(t, ok) {
		assert.NotEqual(t, "(555) 234-5678", nested["phone"])
	}
	// The input map is not modified.
	assert.Equal(t, "John Smith", in["name"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab…", Truncate("abcdef", 2))
}
