package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/searchcache"
)

var _ searchcache.Cache = (*SQLiteSearchCache)(nil)

// SQLiteSearchCache stores search results in the search_cache table so they
// survive restarts of a single-node deployment.
type SQLiteSearchCache struct {
	db  *sql.DB
	now func() time.Time
}

// SearchCache returns a searchcache.Cache backed by this database.
func (s *SQLiteStore) SearchCache() *SQLiteSearchCache {
	return &SQLiteSearchCache{db: s.db, now: s.now}
}

// WithClock replaces the cache clock.
func (c *SQLiteSearchCache) WithClock(now func() time.Time) *SQLiteSearchCache {
	c.now = now
	return c
}

// Get implements searchcache.Cache.
func (c *SQLiteSearchCache) Get(ctx context.Context, fp string) (*searchcache.Entry, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT businesses, created_at, expires_at FROM search_cache WHERE fingerprint = ?`, fp)

	var (
		payload string
		entry   = searchcache.Entry{Fingerprint: fp}
	)
	err := row.Scan(&payload, &entry.CreatedAt, &entry.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get search cache")
	}
	if entry.Expired(c.now()) {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(payload), &entry.Businesses); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: unmarshal cached businesses")
	}
	return &entry, true, nil
}

// Put implements searchcache.Cache.
func (c *SQLiteSearchCache) Put(ctx context.Context, fp string, businesses []model.BusinessRecord) (*searchcache.Entry, error) {
	entry := searchcache.NewEntry(fp, businesses, c.now().UTC())
	payload, err := json.Marshal(entry.Businesses)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal cached businesses")
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO search_cache (fingerprint, businesses, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			businesses = excluded.businesses,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		fp, string(payload), entry.CreatedAt, entry.ExpiresAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: put search cache")
	}
	return entry, nil
}

// Purge deletes expired entries and returns how many were removed.
func (c *SQLiteSearchCache) Purge(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM search_cache WHERE expires_at <= ?`, c.now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge search cache")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
