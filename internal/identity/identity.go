// Package identity decides whether two business records refer to the same
// real-world entity. Matching is a best-effort cascade over normalized keys:
//
//  1. Registrable domain
//  2. Normalized name
//  3. Normalized address core, falling back to city + state
//
// The first rule that matches wins. Absence of a match is never an error.
package identity

import (
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/normalize"
)

// Rule names the cascade step that produced a match.
type Rule int

const (
	RuleNone Rule = iota
	RuleDomain
	RuleName
	RuleAddress
)

func (r Rule) String() string {
	switch r {
	case RuleDomain:
		return "domain"
	case RuleName:
		return "name"
	case RuleAddress:
		return "address"
	default:
		return "none"
	}
}

// Key holds the normalized comparison keys of a record. Empty fields never match.
type Key struct {
	Domain      string
	Name        string
	AddressCore string
	City        string
	State       string
}

// KeyOf derives the comparison keys of rec.
func KeyOf(rec model.BusinessRecord) Key {
	k := Key{
		Domain:      normalize.Domain(rec.Website),
		Name:        normalize.Name(rec.Name),
		AddressCore: normalize.AddressCore(rec.Location),
	}
	if k.AddressCore != "" {
		k.City, k.State = normalize.CityState(rec.Location)
	}
	return k
}

// Compare applies the cascade to two keys.
func Compare(a, b Key) Rule {
	if a.Domain != "" && a.Domain == b.Domain {
		return RuleDomain
	}
	if a.Name != "" && a.Name == b.Name {
		return RuleName
	}
	if addressMatch(a, b) {
		return RuleAddress
	}
	return RuleNone
}

// addressMatch compares full address cores, then falls back to city + state.
// Both sides must carry an address core for either check to apply.
func addressMatch(a, b Key) bool {
	if a.AddressCore == "" || b.AddressCore == "" {
		return false
	}
	if a.AddressCore == b.AddressCore {
		return true
	}
	return a.City != "" && a.State != "" && a.City == b.City && a.State == b.State
}

// FindMatch returns the index in corpus of the first record matching
// candidate, and the rule that matched. It returns -1, RuleNone otherwise.
func FindMatch(candidate model.BusinessRecord, corpus []model.BusinessRecord) (int, Rule) {
	ck := KeyOf(candidate)
	for i := range corpus {
		if r := Compare(ck, KeyOf(corpus[i])); r != RuleNone {
			return i, r
		}
	}
	return -1, RuleNone
}

// Resolve reports whether candidate duplicates any record in corpus.
func Resolve(candidate model.BusinessRecord, corpus []model.BusinessRecord) bool {
	i, _ := FindMatch(candidate, corpus)
	return i >= 0
}
