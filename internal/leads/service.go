// Package leads is the produced interface of lead discovery: search, bulk
// import and duplicate-flag maintenance over a corpus store.
package leads

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/identity"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

// Searcher runs one logical search against a saved corpus.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest, saved []model.BusinessRecord) (*model.SearchResult, error)
}

// Service coordinates the planner with the corpus store.
type Service struct {
	store          store.Store
	searcher       Searcher
	replaceCurrent bool
}

// Option configures a Service.
type Option func(*Service)

// WithReplaceCurrent controls whether a successful search overwrites the
// stored current results. Enabled by default.
func WithReplaceCurrent(enabled bool) Option {
	return func(s *Service) { s.replaceCurrent = enabled }
}

// NewService creates a Service.
func NewService(st store.Store, searcher Searcher, opts ...Option) *Service {
	s := &Service{
		store:          st,
		searcher:       searcher,
		replaceCurrent: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs req. When ownerID is set the owner's saved leads form the
// corpus for duplicate flagging.
func (s *Service) Search(ctx context.Context, ownerID string, req model.SearchRequest) (*model.SearchResult, error) {
	var saved []model.BusinessRecord
	if ownerID != "" {
		var err error
		saved, err = s.store.ListSaved(ctx, ownerID)
		if err != nil {
			return nil, eris.Wrap(err, "leads: load saved corpus")
		}
	}

	result, err := s.searcher.Search(ctx, req, saved)
	if err != nil {
		return nil, err
	}

	if s.replaceCurrent {
		if err := s.store.ReplaceCurrentSearchResults(ctx, result.Businesses); err != nil {
			return nil, eris.Wrap(err, "leads: store current results")
		}
	}

	zap.L().Info("leads: search complete",
		zap.String("owner_id", ownerID),
		zap.String("fingerprint", result.Fingerprint),
		zap.Int("total", result.Total),
		zap.Bool("from_cache", result.FromCache),
	)
	return result, nil
}

// ImportBulk saves records for ownerID. Each record is compared against the
// saved corpus plus the records inserted earlier in the same import.
// Records without a name are skipped.
func (s *Service) ImportBulk(ctx context.Context, ownerID string, records []model.BusinessRecord, policy model.ImportPolicy) (*model.ImportResult, error) {
	if ownerID == "" {
		return nil, eris.Wrap(model.ErrInvalidRequest, "leads: owner id is required")
	}
	policy, err := model.ParseImportPolicy(string(policy))
	if err != nil {
		return nil, err
	}

	saved, err := s.store.ListSaved(ctx, ownerID)
	if err != nil {
		return nil, eris.Wrap(err, "leads: load saved corpus")
	}

	// ids is parallel to the index positions.
	idx := identity.NewIndex(saved)
	ids := make([]string, 0, len(saved)+len(records))
	for _, rec := range saved {
		ids = append(ids, rec.ID)
	}

	result := &model.ImportResult{}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrapf(err, "leads: import cancelled after %d records", i)
		}

		rec.Name = strings.TrimSpace(rec.Name)
		if rec.Name == "" {
			result.Skipped++
			zap.L().Debug("leads: skipping record without name", zap.Int("row", i))
			continue
		}
		rec.Source = model.SourceImported
		rec.IsDuplicate = false

		pos, rule := idx.Match(rec)
		if pos >= 0 {
			if policy == model.ImportSkipDuplicates {
				result.Skipped++
				zap.L().Debug("leads: skipping duplicate import",
					zap.String("name", rec.Name),
					zap.Stringer("rule", rule),
				)
				continue
			}
			rec.ID = ids[pos]
			if _, err := s.store.UpsertSaved(ctx, ownerID, rec); err != nil {
				return result, eris.Wrapf(err, "leads: replace %q", rec.Name)
			}
			// The replaced record's new keys also identify it.
			idx.Add(rec)
			ids = append(ids, rec.ID)
			result.Replaced++
			continue
		}

		rec.ID = ""
		id, err := s.store.UpsertSaved(ctx, ownerID, rec)
		if err != nil {
			return result, eris.Wrapf(err, "leads: insert %q", rec.Name)
		}
		idx.Add(rec)
		ids = append(ids, id)
		result.Imported++
	}

	zap.L().Info("leads: import complete",
		zap.String("owner_id", ownerID),
		zap.String("policy", string(policy)),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("replaced", result.Replaced),
	)
	return result, nil
}

// ClearDuplicateFlags sets IsDuplicate=false on every flagged current result
// and returns how many were cleared. It keeps going past individual failures.
func (s *Service) ClearDuplicateFlags(ctx context.Context) (int, error) {
	current, err := s.store.ListCurrentSearchResults(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "leads: list current results")
	}

	var cleared int
	var errs error
	for _, rec := range current {
		if !rec.IsDuplicate {
			continue
		}
		if err := s.store.MarkDuplicate(ctx, rec.ID, false); err != nil {
			errs = multierr.Append(errs, eris.Wrapf(err, "leads: clear flag on %s", rec.ID))
			continue
		}
		cleared++
	}
	return cleared, errs
}

// FlagDuplicates recomputes duplicate flags on the current results against
// ownerID's saved corpus and persists any changes. It returns the number of
// records flagged afterwards.
func (s *Service) FlagDuplicates(ctx context.Context, ownerID string) (int, error) {
	if ownerID == "" {
		return 0, eris.Wrap(model.ErrInvalidRequest, "leads: owner id is required")
	}
	current, err := s.store.ListCurrentSearchResults(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "leads: list current results")
	}
	saved, err := s.store.ListSaved(ctx, ownerID)
	if err != nil {
		return 0, eris.Wrap(err, "leads: load saved corpus")
	}

	flagged := model.CloneRecords(current)
	count := identity.MarkDuplicates(flagged, saved)

	var errs error
	for i, rec := range flagged {
		if rec.IsDuplicate == current[i].IsDuplicate {
			continue
		}
		if err := s.store.MarkDuplicate(ctx, rec.ID, rec.IsDuplicate); err != nil {
			errs = multierr.Append(errs, eris.Wrapf(err, "leads: update flag on %s", rec.ID))
		}
	}
	return count, errs
}
