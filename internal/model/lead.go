package model

// Source describes where a BusinessRecord came from.
type Source string

const (
	SourceLive     Source = "live"     // Produced by a crawl
	SourceSaved    Source = "saved"    // A user's persisted lead
	SourceImported Source = "imported" // Parsed from a bulk-import file
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceLive, SourceSaved, SourceImported:
		return true
	default:
		return false
	}
}

// BusinessRecord is a candidate business (lead). Identity for dedup purposes
// is derived from normalized keys, never from ID.
type BusinessRecord struct {
	ID            string `json:"id,omitempty"`
	PlaceID       string `json:"place_id,omitempty"`
	Name          string `json:"name"`
	Website       string `json:"website,omitempty"`
	Location      string `json:"location,omitempty"`
	DistanceLabel string `json:"distance_label,omitempty"`
	IsBadLead     bool   `json:"is_bad_lead"`
	Notes         string `json:"notes"`
	CareerLink    string `json:"career_link,omitempty"`
	IsDuplicate   bool   `json:"is_duplicate"`
	Source        Source `json:"source"`
}

// CloneRecords returns a copy of recs that shares no backing array with it.
// BusinessRecord holds only value fields, so a slice copy is a deep copy.
func CloneRecords(recs []BusinessRecord) []BusinessRecord {
	if recs == nil {
		return nil
	}
	out := make([]BusinessRecord, len(recs))
	copy(out, recs)
	return out
}

// ImportPolicy selects what happens when an imported record matches a saved one.
type ImportPolicy string

const (
	ImportSkipDuplicates    ImportPolicy = "skip"
	ImportReplaceDuplicates ImportPolicy = "replace"
)

// ParseImportPolicy maps user input to an ImportPolicy. Empty input means skip.
func ParseImportPolicy(s string) (ImportPolicy, error) {
	switch ImportPolicy(s) {
	case "", ImportSkipDuplicates:
		return ImportSkipDuplicates, nil
	case ImportReplaceDuplicates:
		return ImportReplaceDuplicates, nil
	default:
		return "", invalidf("unknown import policy %q", s)
	}
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Replaced int `json:"replaced"`
}
