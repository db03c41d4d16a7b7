package identity

import (
	"github.com/sells-group/leadscout/internal/model"
)

type cityState struct {
	city, state string
}

// Index is an incrementally built corpus with constant-time lookup by
// domain, name, address core and city + state. An Index is not safe for
// concurrent use.
type Index struct {
	keys     []Key
	byDomain map[string]int
	byName   map[string]int
	byCore   map[string]int
	byCity   map[cityState]int
}

// NewIndex builds an index over corpus, preserving its order.
func NewIndex(corpus []model.BusinessRecord) *Index {
	idx := &Index{
		byDomain: make(map[string]int),
		byName:   make(map[string]int),
		byCore:   make(map[string]int),
		byCity:   make(map[cityState]int),
	}
	for _, rec := range corpus {
		idx.Add(rec)
	}
	return idx
}

// Len returns the number of records added.
func (x *Index) Len() int { return len(x.keys) }

// Add appends rec and returns its position. Earlier records keep
// precedence for lookups on the same key.
func (x *Index) Add(rec model.BusinessRecord) int {
	return x.addKey(KeyOf(rec))
}

func (x *Index) addKey(k Key) int {
	pos := len(x.keys)
	x.keys = append(x.keys, k)
	if k.Domain != "" {
		if _, ok := x.byDomain[k.Domain]; !ok {
			x.byDomain[k.Domain] = pos
		}
	}
	if k.Name != "" {
		if _, ok := x.byName[k.Name]; !ok {
			x.byName[k.Name] = pos
		}
	}
	if k.AddressCore != "" {
		if _, ok := x.byCore[k.AddressCore]; !ok {
			x.byCore[k.AddressCore] = pos
		}
		if k.City != "" && k.State != "" {
			cs := cityState{k.City, k.State}
			if _, ok := x.byCity[cs]; !ok {
				x.byCity[cs] = pos
			}
		}
	}
	return pos
}

// Match returns the position of the record rec duplicates and the rule
// that matched, or -1, RuleNone.
func (x *Index) Match(rec model.BusinessRecord) (int, Rule) {
	return x.matchKey(KeyOf(rec))
}

func (x *Index) matchKey(k Key) (int, Rule) {
	if k.Domain != "" {
		if pos, ok := x.byDomain[k.Domain]; ok {
			return pos, RuleDomain
		}
	}
	if k.Name != "" {
		if pos, ok := x.byName[k.Name]; ok {
			return pos, RuleName
		}
	}
	if k.AddressCore == "" {
		return -1, RuleNone
	}
	pos, ok := x.byCore[k.AddressCore]
	if k.City != "" && k.State != "" {
		if cp, cok := x.byCity[cityState{k.City, k.State}]; cok && (!ok || cp < pos) {
			pos, ok = cp, true
		}
	}
	if !ok {
		return -1, RuleNone
	}
	return pos, RuleAddress
}

// MarkDuplicates recomputes IsDuplicate on every record of batch, in order.
// A record is a duplicate when it matches a saved record or an earlier record
// of the batch; the first-seen record of a group is never flagged. It returns
// the number of records flagged.
func MarkDuplicates(batch []model.BusinessRecord, saved []model.BusinessRecord) int {
	idx := NewIndex(saved)
	flagged := 0
	for i := range batch {
		k := KeyOf(batch[i])
		pos, _ := idx.matchKey(k)
		batch[i].IsDuplicate = pos >= 0
		if batch[i].IsDuplicate {
			flagged++
		}
		idx.addKey(k)
	}
	return flagged
}
