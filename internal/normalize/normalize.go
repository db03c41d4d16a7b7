// Package normalize turns raw business identifiers (website, name, postal
// address) into canonical comparison keys. Every function is pure and total:
// garbage in yields "" out, and "" never matches anything downstream.
package normalize

import (
	"regexp"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	schemeRe = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)
	// hostRe matches a registrable-looking label.tld run inside a host string.
	hostRe = regexp.MustCompile(`[a-z0-9](?:[a-z0-9-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]*[a-z0-9])?)*\.[a-z]{2,63}`)

	legalSuffixRe = regexp.MustCompile(`[\s,]+(?:inc|llc|ltd|corp|corporation|co|company|limited)\.?$`)
)

// fold applies NFKC and locale-independent lower-casing, then collapses
// whitespace. A Caser is stateful, so one is built per call.
func fold(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Domain reduces a URL-like string to its registrable domain, e.g.
// "https://www.Example.com/about" -> "example.com". Inputs without a
// label.tld shape ("LLC", "n/a") yield "".
func Domain(raw string) string {
	s := fold(raw)
	if s == "" {
		return ""
	}
	s = schemeRe.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/.")

	host := hostRe.FindString(s)
	if host == "" {
		return ""
	}
	host = strings.TrimPrefix(host, "www.")

	if d, err := publicsuffix.Domain(host); err == nil && d != "" {
		return d
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// Name lower-cases and trims a business name and strips one trailing legal
// entity suffix: "Acme, Inc." -> "acme".
func Name(raw string) string {
	s := fold(raw)
	if s == "" {
		return ""
	}
	s = legalSuffixRe.ReplaceAllString(s, "")
	return strings.TrimRight(strings.TrimSpace(s), ", ")
}

// CareerLink derives a best-guess careers page from a website.
func CareerLink(website string) string {
	d := Domain(website)
	if d == "" {
		return ""
	}
	return "https://" + d + "/careers"
}
