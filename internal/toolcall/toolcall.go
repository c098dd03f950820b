// Package toolcall parses the two-line tool directive the assistant embeds in
// its replies:
//
//	TOOL_CALL: <tool_name>
//	PARAMETERS: <json-object>
//
// Parsing never fails loudly. Anything malformed is reported as "no tool
// call" and the reply is treated as plain conversation.
package toolcall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Name identifies a tool in the closed tool set.
type Name string

const (
	CreateMatter        Name = "create_matter"
	CollectContactInfo  Name = "collect_contact_info"
	RequestLawyerReview Name = "request_lawyer_review"
	AnalyzeDocument     Name = "analyze_document"
)

// Names lists every known tool.
var Names = []Name{CreateMatter, CollectContactInfo, RequestLawyerReview, AnalyzeDocument}

// Known reports whether n is in the tool set.
func Known(n Name) bool {
	for _, k := range Names {
		if k == n {
			return true
		}
	}
	return false
}

// Params is implemented only by the parameter structs in this package.
type Params interface {
	Tool() Name
	sealed()
}

// CreateMatterParams opens a matter for the client.
type CreateMatterParams struct {
	Name          string `json:"name"`
	MatterType    string `json:"matter_type"`
	Description   string `json:"description"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Location      string `json:"location,omitempty"`
	OpposingParty string `json:"opposing_party,omitempty"`
}

// CollectContactInfoParams records the client's contact details.
type CollectContactInfoParams struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// RequestLawyerReviewParams escalates the conversation to a human.
type RequestLawyerReviewParams struct {
	Urgency    string `json:"urgency,omitempty"`
	Complexity string `json:"complexity,omitempty"`
	MatterType string `json:"matter_type,omitempty"`
}

// AnalyzeDocumentParams asks for an uploaded file to be analysed.
type AnalyzeDocumentParams struct {
	FileID           string `json:"file_id"`
	AnalysisType     string `json:"analysis_type,omitempty"`
	SpecificQuestion string `json:"specific_question,omitempty"`
}

func (CreateMatterParams) Tool() Name        { return CreateMatter }
func (CollectContactInfoParams) Tool() Name  { return CollectContactInfo }
func (RequestLawyerReviewParams) Tool() Name { return RequestLawyerReview }
func (AnalyzeDocumentParams) Tool() Name     { return AnalyzeDocument }

func (CreateMatterParams) sealed()        {}
func (CollectContactInfoParams) sealed()  {}
func (RequestLawyerReviewParams) sealed() {}
func (AnalyzeDocumentParams) sealed()     {}

// Invocation is one parsed tool directive. It lives for a single turn.
type Invocation struct {
	Name   Name
	Params Params
	// Preamble is the prose the assistant wrote before the directive.
	Preamble string
}

var directivePattern = regexp.MustCompile(`TOOL_CALL:[ \t]*([A-Za-z_][A-Za-z0-9_]*)[ \t]*\r?\n[ \t]*PARAMETERS:[ \t]*`)

// Parse extracts the first tool directive from reply. Only the first one is
// honoured; if it is malformed the reply has no tool call, even when a later
// directive would parse.
func Parse(reply string) (Invocation, bool) {
	loc := directivePattern.FindStringSubmatchIndex(reply)
	if loc == nil {
		return Invocation{}, false
	}
	name := Name(reply[loc[2]:loc[3]])
	if !Known(name) {
		return Invocation{}, false
	}

	params, err := decodeParams(name, reply[loc[1]:])
	if err != nil {
		return Invocation{}, false
	}
	return Invocation{
		Name:     name,
		Params:   params,
		Preamble: strings.TrimSpace(reply[:loc[0]]),
	}, true
}

// decodeParams strictly decodes the JSON object at the start of raw into
// the parameter struct for name. Keys must match a field exactly, at most
// once; unknown fields are rejected.
func decodeParams(name Name, raw string) (Params, error) {
	raw = strings.TrimLeft(raw, " \t")
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("parameters for %s are not a JSON object", name)
	}

	var obj json.RawMessage
	if err := json.NewDecoder(strings.NewReader(raw)).Decode(&obj); err != nil {
		return nil, err
	}

	switch name {
	case CreateMatter:
		return decodeStrict[CreateMatterParams](obj)
	case CollectContactInfo:
		return decodeStrict[CollectContactInfoParams](obj)
	case RequestLawyerReview:
		return decodeStrict[RequestLawyerReviewParams](obj)
	case AnalyzeDocument:
		return decodeStrict[AnalyzeDocumentParams](obj)
	}
	return nil, fmt.Errorf("unknown tool %q", name)
}

func decodeStrict[T Params](obj json.RawMessage) (Params, error) {
	var p T
	if err := checkKeys(obj, fieldNames(reflect.TypeOf(p))); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(obj))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

// checkKeys walks the top-level keys of obj. encoding/json folds case and
// keeps the last duplicate, so both are caught here.
func checkKeys(obj json.RawMessage, allowed map[string]bool) error {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(allowed))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if !allowed[key] {
			return fmt.Errorf("unknown parameter %q", key)
		}
		if seen[key] {
			return fmt.Errorf("duplicate parameter %q", key)
		}
		seen[key] = true
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
	}
	return nil
}

// fieldNames returns the JSON names of t's fields.
func fieldNames(t reflect.Type) map[string]bool {
	out := make(map[string]bool, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			out[name] = true
		}
	}
	return out
}

// Format renders inv as a directive that Parse accepts.
func Format(inv Invocation) (string, error) {
	if inv.Params == nil {
		return "", fmt.Errorf("invocation %s has no parameters", inv.Name)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(inv.Params); err != nil {
		return "", fmt.Errorf("encoding %s parameters: %w", inv.Name, err)
	}

	var sb strings.Builder
	if inv.Preamble != "" {
		sb.WriteString(inv.Preamble)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "TOOL_CALL: %s\nPARAMETERS: %s", inv.Name, strings.TrimRight(buf.String(), "\n"))
	return sb.String(), nil
}

// Strip removes everything from the first directive onward so the prose can
// be shown to the user.
func Strip(reply string) string {
	loc := directivePattern.FindStringIndex(reply)
	if loc == nil {
		return reply
	}
	return strings.TrimSpace(reply[:loc[0]])
}
