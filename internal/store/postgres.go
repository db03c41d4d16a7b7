package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/db"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/normalize"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS saved_businesses (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	owner_id       TEXT NOT NULL,
	name           TEXT NOT NULL,
	website        TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	distance_label TEXT NOT NULL DEFAULT '',
	is_bad_lead    BOOLEAN NOT NULL DEFAULT false,
	notes          TEXT NOT NULL DEFAULT '',
	career_link    TEXT NOT NULL DEFAULT '',
	domain         TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS current_results (
	id             TEXT PRIMARY KEY,
	position       INTEGER NOT NULL,
	place_id       TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL,
	website        TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	distance_label TEXT NOT NULL DEFAULT '',
	is_bad_lead    BOOLEAN NOT NULL DEFAULT false,
	notes          TEXT NOT NULL DEFAULT '',
	career_link    TEXT NOT NULL DEFAULT '',
	is_duplicate   BOOLEAN NOT NULL DEFAULT false,
	source         TEXT NOT NULL DEFAULT 'live'
);

CREATE INDEX IF NOT EXISTS idx_saved_businesses_owner ON saved_businesses(owner_id);
CREATE INDEX IF NOT EXISTS idx_saved_businesses_owner_domain ON saved_businesses(owner_id, domain);
CREATE INDEX IF NOT EXISTS idx_current_results_position ON current_results(position);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListSaved(ctx context.Context, ownerID string) ([]model.BusinessRecord, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, website, location, distance_label, is_bad_lead, notes, career_link
		 FROM saved_businesses WHERE owner_id = $1 ORDER BY created_at, id`,
		ownerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list saved")
	}
	defer rows.Close()

	var out []model.BusinessRecord
	for rows.Next() {
		r, err := scanSaved(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan saved")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate saved")
}

func (s *PostgresStore) UpsertSaved(ctx context.Context, ownerID string, rec model.BusinessRecord) (string, error) {
	if err := requireOwner(ownerID); err != nil {
		return "", err
	}
	now := s.now().UTC()
	domain := normalize.Domain(rec.Website)

	if rec.ID == "" {
		id := uuid.New().String()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO saved_businesses
			 (id, owner_id, name, website, location, distance_label, is_bad_lead, notes, career_link, domain, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			id, ownerID, rec.Name, rec.Website, rec.Location, rec.DistanceLabel,
			rec.IsBadLead, rec.Notes, rec.CareerLink, domain, now, now,
		)
		if err != nil {
			return "", eris.Wrap(err, "postgres: insert saved")
		}
		return id, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE saved_businesses SET name = $1, website = $2, location = $3, distance_label = $4,
		 is_bad_lead = $5, notes = $6, career_link = $7, domain = $8, updated_at = $9
		 WHERE id = $10 AND owner_id = $11`,
		rec.Name, rec.Website, rec.Location, rec.DistanceLabel,
		rec.IsBadLead, rec.Notes, rec.CareerLink, domain, now, rec.ID, ownerID,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: update saved %s", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return "", eris.Wrapf(ErrNotFound, "saved business %s", rec.ID)
	}
	return rec.ID, nil
}

func (s *PostgresStore) ListCurrentSearchResults(ctx context.Context) ([]model.BusinessRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, place_id, name, website, location, distance_label, is_bad_lead, notes, career_link, is_duplicate, source
		 FROM current_results ORDER BY position`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list current results")
	}
	defer rows.Close()

	var out []model.BusinessRecord
	for rows.Next() {
		r, err := scanCurrent(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan current result")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate current results")
}

// ReplaceCurrentSearchResults swaps the whole list in one transaction using COPY.
func (s *PostgresStore) ReplaceCurrentSearchResults(ctx context.Context, records []model.BusinessRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace current results")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM current_results`); err != nil {
		return eris.Wrap(err, "postgres: clear current results")
	}

	rows := make([][]any, 0, len(records))
	for i, r := range records {
		rows = append(rows, currentRow(i, r))
	}
	if _, err := db.CopyFrom(ctx, tx, "current_results", currentColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: copy current results")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit current results")
}

func (s *PostgresStore) MarkDuplicate(ctx context.Context, id string, duplicate bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE current_results SET is_duplicate = $1 WHERE id = $2`,
		duplicate, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark duplicate %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "current result %s", id)
	}
	return nil
}
