package searchcache

import (
	"context"
	"time"

	"github.com/sells-group/leadscout/internal/model"
)

// TTL is the fixed lifetime of a cache entry.
const TTL = 48 * time.Hour

// Entry is a cached result set. Entries are immutable once written.
type Entry struct {
	Fingerprint string                 `json:"fingerprint"`
	Businesses  []model.BusinessRecord `json:"businesses"`
	CreatedAt   time.Time              `json:"created_at"`
	ExpiresAt   time.Time              `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

func (e *Entry) clone() *Entry {
	cp := *e
	cp.Businesses = model.CloneRecords(e.Businesses)
	return &cp
}

// NewEntry builds an entry created at now holding a private copy of businesses.
func NewEntry(fp string, businesses []model.BusinessRecord, now time.Time) *Entry {
	return &Entry{
		Fingerprint: fp,
		Businesses:  model.CloneRecords(businesses),
		CreatedAt:   now,
		ExpiresAt:   now.Add(TTL),
	}
}

// Cache looks up and stores result sets by fingerprint. Get returns
// ok=false when no live entry exists; the returned entry is always a copy
// the caller may modify.
type Cache interface {
	Get(ctx context.Context, fp string) (*Entry, bool, error)
	Put(ctx context.Context, fp string, businesses []model.BusinessRecord) (*Entry, error)
}

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time
