// Package gazetteer lists the places the intake flow recognises: US states
// for jurisdiction detection and states plus countries for location checks.
package gazetteer

import (
	"regexp"
	"strings"
)

// State is a US state or district.
type State struct {
	Name string
	Abbr string
}

// States is ordered alphabetically. Jurisdiction detection walks it in this
// order, so the first listed state found in the text wins.
var States = []State{
	{"Alabama", "AL"}, {"Alaska", "AK"}, {"Arizona", "AZ"}, {"Arkansas", "AR"},
	{"California", "CA"}, {"Colorado", "CO"}, {"Connecticut", "CT"}, {"Delaware", "DE"},
	{"District of Columbia", "DC"}, {"Florida", "FL"}, {"Georgia", "GA"}, {"Hawaii", "HI"},
	{"Idaho", "ID"}, {"Illinois", "IL"}, {"Indiana", "IN"}, {"Iowa", "IA"},
	{"Kansas", "KS"}, {"Kentucky", "KY"}, {"Louisiana", "LA"}, {"Maine", "ME"},
	{"Maryland", "MD"}, {"Massachusetts", "MA"}, {"Michigan", "MI"}, {"Minnesota", "MN"},
	{"Mississippi", "MS"}, {"Missouri", "MO"}, {"Montana", "MT"}, {"Nebraska", "NE"},
	{"Nevada", "NV"}, {"New Hampshire", "NH"}, {"New Jersey", "NJ"}, {"New Mexico", "NM"},
	{"New York", "NY"}, {"North Carolina", "NC"}, {"North Dakota", "ND"}, {"Ohio", "OH"},
	{"Oklahoma", "OK"}, {"Oregon", "OR"}, {"Pennsylvania", "PA"}, {"Rhode Island", "RI"},
	{"South Carolina", "SC"}, {"South Dakota", "SD"}, {"Tennessee", "TN"}, {"Texas", "TX"},
	{"Utah", "UT"}, {"Vermont", "VT"}, {"Virginia", "VA"}, {"Washington", "WA"},
	{"West Virginia", "WV"}, {"Wisconsin", "WI"}, {"Wyoming", "WY"},
}

// Countries accepted as a location on their own.
var Countries = []string{
	"United States", "USA", "US", "Canada", "Mexico", "United Kingdom", "UK",
	"Ireland", "Australia", "New Zealand", "Germany", "France", "Spain", "Italy",
	"India", "Philippines", "Japan", "China", "Brazil",
}

type statePattern struct {
	state State
	re    *regexp.Regexp
	// longer holds state names that contain this one, e.g. West Virginia
	// for Virginia.
	longer []string
}

var statePatterns = buildStatePatterns()

func buildStatePatterns() []statePattern {
	out := make([]statePattern, 0, len(States))
	for _, s := range States {
		p := statePattern{
			state: s,
			re:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(s.Name) + `\b`),
		}
		for _, other := range States {
			if other.Name != s.Name && strings.Contains(strings.ToLower(other.Name), strings.ToLower(s.Name)) {
				p.longer = append(p.longer, strings.ToLower(other.Name))
			}
		}
		out = append(out, p)
	}
	return out
}

// FindState returns the first state, in gazetteer order, whose full name
// appears in text.
func FindState(text string) (State, bool) {
	lower := strings.ToLower(text)
	for _, p := range statePatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if !insideLonger(lower, loc[0], loc[1], p.longer) {
				return p.state, true
			}
		}
	}
	return State{}, false
}

func insideLonger(lower string, start, end int, longer []string) bool {
	for _, l := range longer {
		for i := 0; i+len(l) <= len(lower); {
			j := strings.Index(lower[i:], l)
			if j < 0 {
				break
			}
			j += i
			if j <= start && end <= j+len(l) {
				return true
			}
			i = j + 1
		}
	}
	return false
}

// LookupState resolves a full name or two-letter abbreviation.
func LookupState(s string) (State, bool) {
	s = strings.TrimSpace(s)
	for _, st := range States {
		if strings.EqualFold(st.Name, s) || strings.EqualFold(st.Abbr, s) {
			return st, true
		}
	}
	return State{}, false
}

// IsCountry reports whether s names a known country.
func IsCountry(s string) bool {
	s = strings.TrimSpace(s)
	for _, c := range Countries {
		if strings.EqualFold(c, s) {
			return true
		}
	}
	return false
}
