// Package validation checks tool parameters before any handler runs. Checks
// run in a fixed order and only the first failure is reported.
package validation

import (
	"fmt"
	"strings"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
)

// field is one parameter of a tool together with its contract.
type field struct {
	key      string
	label    string
	value    *string
	required bool
	check    func(string) bool
	code     errs.Code
	message  string
}

var (
	checkName = func(f *field) {
		f.check, f.code = Name, errs.CodeInvalidName
		f.message = "Please provide your full name using letters only, for example \"Jane Smith\"."
	}
	checkEmail = func(f *field) {
		f.check, f.code = Email, errs.CodeInvalidEmail
		f.message = "Please provide a valid email address, for example name@example.com."
	}
	checkPhone = func(f *field) {
		f.check, f.code = Phone, errs.CodeInvalidPhone
		f.message = "Please provide a valid phone number with 10 to 15 digits, for example (555) 234-5678."
	}
	checkLocation = func(f *field) {
		f.check, f.code = Location, errs.CodeInvalidLocation
		f.message = "Please provide your location as a city and state, for example Austin, TX."
	}
)

func newField(key, label string, value *string, required bool, opts ...func(*field)) field {
	f := field{key: key, label: label, value: value, required: required}
	for _, o := range opts {
		o(&f)
	}
	return f
}

func constrained(check func(string) bool, message string) func(*field) {
	return func(f *field) {
		f.check, f.code, f.message = check, errs.CodeInvalidField, message
	}
}

// Validate checks inv against its tool's parameter contract in this order:
// required fields, placeholder values, field formats, cross-field rules.
// Placeholder values in optional fields are cleared rather than rejected;
// the returned invocation carries the cleaned parameters.
func Validate(inv toolcall.Invocation) errs.Result[toolcall.Invocation] {
	if !toolcall.Known(inv.Name) {
		return errs.Fail[toolcall.Invocation](errs.New(errs.CodeUnknownTool,
			"I'm not able to do that here.", errs.WithContext(map[string]any{"tool": string(inv.Name)})))
	}
	if inv.Params == nil || inv.Params.Tool() != inv.Name {
		return errs.Fail[toolcall.Invocation](errs.New(errs.CodeInvalidParameters,
			"I couldn't read those details. Could you share them again?",
			errs.WithContext(map[string]any{"tool": string(inv.Name)})))
	}

	switch p := inv.Params.(type) {
	case toolcall.CreateMatterParams:
		fields := []field{
			newField("name", "full name", &p.Name, true, checkName),
			newField("matter_type", "type of legal matter", &p.MatterType, true,
				constrained(maxRunes(100), "Please describe the type of legal matter in a few words.")),
			newField("description", "description of the issue", &p.Description, true,
				constrained(maxRunes(5000), "Please keep the description of your issue under 5000 characters.")),
			newField("email", "email address", &p.Email, false, checkEmail),
			newField("phone", "phone number", &p.Phone, false, checkPhone),
			newField("location", "location", &p.Location, false, checkLocation),
			newField("opposing_party", "opposing party", &p.OpposingParty, false,
				constrained(maxRunes(200), "Please keep the opposing party's name under 200 characters.")),
		}
		if e := run(fields); e != nil {
			return errs.Fail[toolcall.Invocation](e)
		}
		if p.Email == "" && p.Phone == "" {
			return errs.Fail[toolcall.Invocation](errs.Validation(errs.CodeMissingContactMethod, "email",
				"Please provide an email address or phone number so a lawyer can reach you."))
		}
		inv.Params = p

	case toolcall.CollectContactInfoParams:
		fields := []field{
			newField("name", "full name", &p.Name, true, checkName),
			newField("email", "email address", &p.Email, false, checkEmail),
			newField("phone", "phone number", &p.Phone, false, checkPhone),
			newField("location", "location", &p.Location, false, checkLocation),
		}
		if e := run(fields); e != nil {
			return errs.Fail[toolcall.Invocation](e)
		}
		inv.Params = p

	case toolcall.RequestLawyerReviewParams:
		fields := []field{
			newField("urgency", "urgency", &p.Urgency, false,
				constrained(oneOf("low", "medium", "high", "urgent"), "Urgency should be low, medium, high or urgent.")),
			newField("complexity", "complexity", &p.Complexity, false,
				constrained(oneOf("low", "medium", "high", "simple", "moderate", "complex"), "Complexity should be low, medium or high.")),
			newField("matter_type", "type of legal matter", &p.MatterType, false,
				constrained(maxRunes(100), "Please describe the type of legal matter in a few words.")),
		}
		if e := run(fields); e != nil {
			return errs.Fail[toolcall.Invocation](e)
		}
		p.Urgency = strings.ToLower(p.Urgency)
		p.Complexity = strings.ToLower(p.Complexity)
		inv.Params = p

	case toolcall.AnalyzeDocumentParams:
		fields := []field{
			newField("file_id", "file", &p.FileID, true,
				constrained(FileID, "I couldn't find that file. Please upload it again.")),
			newField("analysis_type", "analysis type", &p.AnalysisType, false,
				constrained(maxRunes(50), "Please choose a shorter analysis type.")),
			newField("specific_question", "question", &p.SpecificQuestion, false,
				constrained(maxRunes(1000), "Please keep your question under 1000 characters.")),
		}
		if e := run(fields); e != nil {
			return errs.Fail[toolcall.Invocation](e)
		}
		inv.Params = p

	default:
		return errs.Fail[toolcall.Invocation](errs.New(errs.CodeInvalidParameters,
			"I couldn't read those details. Could you share them again?"))
	}
	return errs.Ok(inv)
}

// run applies each check phase across all fields before moving to the next
// phase, returning the first failure.
func run(fields []field) *errs.Error {
	for i := range fields {
		*fields[i].value = strings.TrimSpace(*fields[i].value)
	}

	for _, f := range fields {
		if f.required && *f.value == "" {
			return errs.Validation(errs.CodeMissingRequiredField, f.key,
				fmt.Sprintf("Please provide your %s.", f.label))
		}
	}

	for _, f := range fields {
		if !IsPlaceholder(*f.value) {
			continue
		}
		if f.required {
			return errs.Validation(errs.CodePlaceholderValue, f.key,
				fmt.Sprintf("It looks like the %s is a placeholder. Please provide your real %s.", f.label, f.label))
		}
		*f.value = ""
	}

	for _, f := range fields {
		if *f.value == "" || f.check == nil {
			continue
		}
		if !f.check(*f.value) {
			return errs.Validation(f.code, f.key, f.message)
		}
	}
	return nil
}
