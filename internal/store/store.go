// Package store persists saved leads per owner and the shared list of current
// search results.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

// ErrNotFound is returned when an update targets a record that does not exist.
var ErrNotFound = eris.New("store: record not found")

// Store is the corpus store consumed by search and import.
type Store interface {
	// Saved leads
	ListSaved(ctx context.Context, ownerID string) ([]model.BusinessRecord, error)
	// UpsertSaved inserts rec when rec.ID is empty and otherwise overwrites
	// the owner's record with that id. It returns the record id.
	UpsertSaved(ctx context.Context, ownerID string, rec model.BusinessRecord) (string, error)

	// Current search results
	ListCurrentSearchResults(ctx context.Context) ([]model.BusinessRecord, error)
	ReplaceCurrentSearchResults(ctx context.Context, records []model.BusinessRecord) error
	MarkDuplicate(ctx context.Context, id string, duplicate bool) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var currentColumns = []string{
	"id", "position", "place_id", "name", "website", "location", "distance_label",
	"is_bad_lead", "notes", "career_link", "is_duplicate", "source",
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSaved(row scannable) (model.BusinessRecord, error) {
	r := model.BusinessRecord{Source: model.SourceSaved}
	err := row.Scan(&r.ID, &r.Name, &r.Website, &r.Location, &r.DistanceLabel,
		&r.IsBadLead, &r.Notes, &r.CareerLink)
	return r, err
}

func scanCurrent(row scannable) (model.BusinessRecord, error) {
	var r model.BusinessRecord
	var source string
	err := row.Scan(&r.ID, &r.PlaceID, &r.Name, &r.Website, &r.Location, &r.DistanceLabel,
		&r.IsBadLead, &r.Notes, &r.CareerLink, &r.IsDuplicate, &source)
	r.Source = model.Source(source)
	return r, err
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return eris.Wrap(model.ErrInvalidRequest, "store: owner id is required")
	}
	return nil
}
