package normalize

import (
	"regexp"
	"strings"
)

var (
	// unitRe matches sub-premise designators: "suite 200", "ste. b", "#4", "floor 3".
	unitRe = regexp.MustCompile(`(?:\b(?:suite|ste|apt|unit|floor|fl|room|rm)\b\.?\s*#?\s*[a-z0-9-]+|#\s*[a-z0-9-]+)`)
	// stateZipRe matches a trailing "tx", "tx 78701" or "tx 78701-1234" segment.
	stateZipRe = regexp.MustCompile(`^([a-z]{2})(?:\s+(\d{5}(?:-\d{4})?))?$`)
	zipTailRe  = regexp.MustCompile(`\s+\d{5}(?:-\d{4})?$`)

	streetTypes = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"boulevard": "blvd",
		"suite":     "ste",
		"road":      "rd",
		"drive":     "dr",
		"lane":      "ln",
	}

	countries = map[string]bool{
		"usa": true, "us": true, "u.s.a.": true, "u.s.": true, "united states": true,
		"united states of america": true,
	}
)

// segments splits a folded address on commas, dropping empty parts and a
// trailing country.
func segments(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if n := len(out); n > 0 && countries[out[n-1]] {
		out = out[:n-1]
	}
	return out
}

// AddressCore canonicalises a postal address for equality comparison:
// unit designators are removed, street types abbreviated and punctuation
// collapsed. "100 Main Street, Suite 5, Austin, TX" -> "100 main st, austin, tx".
func AddressCore(raw string) string {
	s := fold(raw)
	if s == "" {
		return ""
	}

	var parts []string
	for _, seg := range segments(s) {
		// A bare state code such as "fl 33101" is not a floor designator.
		if !stateZipRe.MatchString(seg) {
			seg = unitRe.ReplaceAllString(seg, " ")
		}
		seg = strings.ReplaceAll(seg, ".", "")
		words := strings.Fields(seg)
		for i, w := range words {
			if abbr, ok := streetTypes[w]; ok {
				words[i] = abbr
			}
		}
		if len(words) > 0 {
			parts = append(parts, strings.Join(words, " "))
		}
	}
	return strings.Join(parts, ", ")
}

// CityState extracts the city and two-letter state from a trailing
// "..., City, ST[ zip]" shape. Both are lower-cased; either may be "".
func CityState(raw string) (city, state string) {
	segs := segments(strings.ReplaceAll(fold(raw), ".", ""))
	if len(segs) < 2 {
		return "", ""
	}

	last := zipTailRe.ReplaceAllString(segs[len(segs)-1], "")
	state = StateCode(last)
	if state == "" {
		return "", ""
	}
	return segs[len(segs)-2], state
}
