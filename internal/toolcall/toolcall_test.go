package toolcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreateMatter(t *testing.T) {
	reply := "Thanks John, I have everything I need.\n\n" +
		"TOOL_CALL: create_matter\n" +
		`PARAMETERS: {"name": "John Smith", "matter_type": "Employment Law", "description": "Boss forcing overtime", "email": "john@example.com", "phone": "(555) 234-5678"}`

	inv, ok := Parse(reply)
	require.True(t, ok)
	assert.Equal(t, CreateMatter, inv.Name)
	assert.Equal(t, "Thanks John, I have everything I need.", inv.Preamble)
	assert.Equal(t, CreateMatterParams{
		Name:        "John Smith",
		MatterType:  "Employment Law",
		Description: "Boss forcing overtime",
		Email:       "john@example.com",
		Phone:       "(555) 234-5678",
	}, inv.Params)
}

func TestParseMultilineObject(t *testing.T) {
	reply := "TOOL_CALL: analyze_document\nPARAMETERS: {\n  \"file_id\": \"file-abc123\",\n  \"specific_question\": \"Is this lease valid?\"\n}\n"
	inv, ok := Parse(reply)
	require.True(t, ok)
	assert.Equal(t, AnalyzeDocumentParams{FileID: "file-abc123", SpecificQuestion: "Is this lease valid?"}, inv.Params)
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"no directive":     "Just a normal reply.",
		"trailing comma":   "TOOL_CALL: create_matter\nPARAMETERS: {\"name\": \"John\",}",
		"comment":          "TOOL_CALL: create_matter\nPARAMETERS: {\"name\": \"John\" /* hi */}",
		"unknown tool":     "TOOL_CALL: delete_everything\nPARAMETERS: {}",
		"array":            "TOOL_CALL: request_lawyer_review\nPARAMETERS: [1, 2]",
		"extra field":      "TOOL_CALL: collect_contact_info\nPARAMETERS: {\"name\": \"John\", \"ssn\": \"123\"}",
		"wrong type":       "TOOL_CALL: collect_contact_info\nPARAMETERS: {\"name\": 42}",
		"truncated":        "TOOL_CALL: collect_contact_info\nPARAMETERS: {\"name\": \"Jo",
		"missing params":   "TOOL_CALL: collect_contact_info\nsomething else",
		"params same line": "TOOL_CALL: collect_contact_info PARAMETERS: {\"name\": \"John\"}",
		"folded key case":  "TOOL_CALL: collect_contact_info\nPARAMETERS: {\"NAME\": \"John Smith\", \"Email\": \"a@b.com\"}",
		"duplicate key":    "TOOL_CALL: collect_contact_info\nPARAMETERS: {\"name\": \"John Smith\", \"name\": \"Evil\"}",
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := Parse(reply)
				assert.False(t, ok)
			})
		})
	}
}

func TestOnlyFirstDirectiveIsHonoured(t *testing.T) {
	reply := "TOOL_CALL: request_lawyer_review\nPARAMETERS: {\"urgency\": \"high\"}\n" +
		"TOOL_CALL: create_matter\nPARAMETERS: {\"name\": \"John Smith\"}"
	inv, ok := Parse(reply)
	require.True(t, ok)
	assert.Equal(t, RequestLawyerReview, inv.Name)

	// A broken first directive is not rescued by a valid second one.
	broken := "TOOL_CALL: request_lawyer_review\nPARAMETERS: {\"urgency\": \"high\",}\n" +
		"TOOL_CALL: collect_contact_info\nPARAMETERS: {\"name\": \"John Smith\"}"
	_, ok = Parse(broken)
	assert.False(t, ok)
}

func TestFormatRoundTrips(t *testing.T) {
	in := Invocation{
		Name:     CollectContactInfo,
		Params:   CollectContactInfoParams{Name: "Jane Doe", Email: "jane@example.com"},
		Preamble: "Let me save that.",
	}
	text, err := Format(in)
	require.NoError(t, err)
	assert.Contains(t, text, "TOOL_CALL: collect_contact_info\nPARAMETERS: {")

	out, ok := Parse(text)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "Sure thing.", Strip("Sure thing.\nTOOL_CALL: create_matter\nPARAMETERS: {}"))
	assert.Equal(t, "plain", Strip("plain"))
}
