package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/gazetteer"
)

var (
	namePattern   = regexp.MustCompile(`^\p{L}[\p{L}'.\-]*(?:\s+\p{L}[\p{L}'.\-]*)*$`)
	emailPattern  = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)
	fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)
	bracketed     = regexp.MustCompile(`^(\[.*\]|<.*>|\{.*\})$`)
)

var placeholders = map[string]struct{}{
	"n/a": {}, "na": {}, "none": {}, "null": {}, "nil": {}, "unknown": {}, "tbd": {},
	"test": {}, "testing": {}, "placeholder": {}, "xxx": {}, "-": {}, "?": {},
	"not provided": {}, "not specified": {}, "not given": {},
	"test@test.com": {}, "test@example.com": {}, "example@example.com": {},
	"email@example.com": {}, "user@example.com": {}, "name@example.com": {},
	"john doe": {}, "jane doe": {}, "your name": {}, "first last": {}, "full name": {},
	"city, state": {}, "your location": {},
}

var placeholderPhones = map[string]struct{}{
	"0000000000": {}, "1111111111": {}, "1234567890": {}, "5555555555": {}, "9999999999": {},
}

// IsPlaceholder reports whether v is a dummy value that should be treated
// as absent.
func IsPlaceholder(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	if s == "" {
		return false
	}
	if _, ok := placeholders[s]; ok {
		return true
	}
	if bracketed.MatchString(s) {
		return true
	}
	if strings.Trim(s, "x") == "" {
		return true
	}
	if d, ok := phoneDigits(s); ok {
		if _, bad := placeholderPhones[lastTen(d)]; bad {
			return true
		}
	}
	return false
}

// Name reports whether v looks like a human name.
func Name(v string) bool {
	v = strings.TrimSpace(v)
	n := utf8.RuneCountInString(v)
	if n < 2 || n > 100 {
		return false
	}
	return namePattern.MatchString(v)
}

// Email reports whether v has a standard address shape.
func Email(v string) bool {
	v = strings.TrimSpace(v)
	if len(v) > 254 || strings.Contains(v, "..") {
		return false
	}
	return emailPattern.MatchString(v)
}

// Phone reports whether v holds 10 to 15 digits separated only by common
// punctuation.
func Phone(v string) bool {
	d, ok := phoneDigits(v)
	return ok && len(d) >= 10 && len(d) <= 15
}

// NormalizePhone returns the digits of a valid phone number.
func NormalizePhone(v string) string {
	d, _ := phoneDigits(v)
	return d
}

func phoneDigits(v string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(v) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')' || r == '+':
		default:
			return "", false
		}
	}
	return b.String(), b.Len() > 0
}

func lastTen(d string) string {
	if len(d) > 10 {
		return d[len(d)-10:]
	}
	return d
}

// Location reports whether v resolves against the state or country
// gazetteer, e.g. "Austin, TX", "Ohio" or "Toronto, Canada".
func Location(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || utf8.RuneCountInString(v) > 120 {
		return false
	}
	if _, ok := gazetteer.FindState(v); ok {
		return true
	}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if _, ok := gazetteer.LookupState(part); ok || gazetteer.IsCountry(part) {
			return true
		}
		fields := strings.Fields(part)
		if len(fields) > 1 {
			last := fields[len(fields)-1]
			if _, ok := gazetteer.LookupState(last); ok {
				return true
			}
		}
	}
	return false
}

// FileID reports whether v is a plausible upload identifier.
func FileID(v string) bool {
	return fileIDPattern.MatchString(strings.TrimSpace(v)) && !strings.Contains(v, "..")
}

func oneOf(allowed ...string) func(string) bool {
	return func(v string) bool {
		v = strings.ToLower(strings.TrimSpace(v))
		for _, a := range allowed {
			if v == a {
				return true
			}
		}
		return false
	}
}

func maxRunes(n int) func(string) bool {
	return func(v string) bool {
		return utf8.RuneCountInString(v) <= n
	}
}
