package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/normalize"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS saved_businesses (
	id             TEXT PRIMARY KEY,
	owner_id       TEXT NOT NULL,
	name           TEXT NOT NULL,
	website        TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	distance_label TEXT NOT NULL DEFAULT '',
	is_bad_lead    INTEGER NOT NULL DEFAULT 0,
	notes          TEXT NOT NULL DEFAULT '',
	career_link    TEXT NOT NULL DEFAULT '',
	domain         TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS current_results (
	id             TEXT PRIMARY KEY,
	position       INTEGER NOT NULL,
	place_id       TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL,
	website        TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	distance_label TEXT NOT NULL DEFAULT '',
	is_bad_lead    INTEGER NOT NULL DEFAULT 0,
	notes          TEXT NOT NULL DEFAULT '',
	career_link    TEXT NOT NULL DEFAULT '',
	is_duplicate   INTEGER NOT NULL DEFAULT 0,
	source         TEXT NOT NULL DEFAULT 'live'
);

CREATE TABLE IF NOT EXISTS search_cache (
	fingerprint TEXT PRIMARY KEY,
	businesses  TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saved_businesses_owner ON saved_businesses(owner_id);
CREATE INDEX IF NOT EXISTS idx_saved_businesses_owner_domain ON saved_businesses(owner_id, domain);
CREATE INDEX IF NOT EXISTS idx_current_results_position ON current_results(position);
CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListSaved(ctx context.Context, ownerID string) ([]model.BusinessRecord, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, website, location, distance_label, is_bad_lead, notes, career_link
		 FROM saved_businesses WHERE owner_id = ? ORDER BY created_at, rowid`,
		ownerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list saved")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.BusinessRecord
	for rows.Next() {
		r, err := scanSaved(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan saved")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate saved")
}

func (s *SQLiteStore) UpsertSaved(ctx context.Context, ownerID string, rec model.BusinessRecord) (string, error) {
	if err := requireOwner(ownerID); err != nil {
		return "", err
	}
	now := s.now().UTC()
	domain := normalize.Domain(rec.Website)

	if rec.ID == "" {
		id := uuid.New().String()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO saved_businesses
			 (id, owner_id, name, website, location, distance_label, is_bad_lead, notes, career_link, domain, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, ownerID, rec.Name, rec.Website, rec.Location, rec.DistanceLabel,
			rec.IsBadLead, rec.Notes, rec.CareerLink, domain, now, now,
		)
		if err != nil {
			return "", eris.Wrap(err, "sqlite: insert saved")
		}
		return id, nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE saved_businesses SET name = ?, website = ?, location = ?, distance_label = ?,
		 is_bad_lead = ?, notes = ?, career_link = ?, domain = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		rec.Name, rec.Website, rec.Location, rec.DistanceLabel,
		rec.IsBadLead, rec.Notes, rec.CareerLink, domain, now, rec.ID, ownerID,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: update saved %s", rec.ID)
	}
	return rec.ID, checkRowsAffected(res, "saved business", rec.ID)
}

func (s *SQLiteStore) ListCurrentSearchResults(ctx context.Context) ([]model.BusinessRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, place_id, name, website, location, distance_label, is_bad_lead, notes, career_link, is_duplicate, source
		 FROM current_results ORDER BY position`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list current results")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.BusinessRecord
	for rows.Next() {
		r, err := scanCurrent(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan current result")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate current results")
}

func (s *SQLiteStore) ReplaceCurrentSearchResults(ctx context.Context, records []model.BusinessRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace current results")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM current_results`); err != nil {
		return eris.Wrap(err, "sqlite: clear current results")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO current_results
		 (id, position, place_id, name, website, location, distance_label, is_bad_lead, notes, career_link, is_duplicate, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert current result")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, currentRow(i, r)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert current result %d", i)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit current results")
}

func (s *SQLiteStore) MarkDuplicate(ctx context.Context, id string, duplicate bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE current_results SET is_duplicate = ? WHERE id = ?`,
		duplicate, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark duplicate %s", id)
	}
	return checkRowsAffected(res, "current result", id)
}

// currentRow lays out a current result in currentColumns order, assigning an
// id when the record has none.
func currentRow(position int, r model.BusinessRecord) []any {
	id := r.ID
	if id == "" {
		id = uuid.New().String()
	}
	source := r.Source
	if source == "" {
		source = model.SourceLive
	}
	return []any{
		id, position, r.PlaceID, r.Name, r.Website, r.Location, r.DistanceLabel,
		r.IsBadLead, r.Notes, r.CareerLink, r.IsDuplicate, string(source),
	}
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
