package leads

import (
	"context"
	"fmt"
	"sync"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

// memStore is an in-memory store.Store for service tests.
type memStore struct {
	mu       sync.Mutex
	saved    map[string][]model.BusinessRecord
	current  []model.BusinessRecord
	nextID   int
	upserts  int
	replaced int

	listSavedErr error
	upsertErr    error
	replaceErr   error
	markErr      map[string]error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{saved: make(map[string][]model.BusinessRecord)}
}

func (m *memStore) seedSaved(owner string, recs ...model.BusinessRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.nextID++
		r.ID = fmt.Sprintf("saved-%d", m.nextID)
		r.Source = model.SourceSaved
		m.saved[owner] = append(m.saved[owner], r)
	}
}

func (m *memStore) ListSaved(_ context.Context, ownerID string) ([]model.BusinessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listSavedErr != nil {
		return nil, m.listSavedErr
	}
	return model.CloneRecords(m.saved[ownerID]), nil
}

func (m *memStore) UpsertSaved(_ context.Context, ownerID string, rec model.BusinessRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return "", m.upsertErr
	}
	m.upserts++
	if rec.ID == "" {
		m.nextID++
		rec.ID = fmt.Sprintf("saved-%d", m.nextID)
		m.saved[ownerID] = append(m.saved[ownerID], rec)
		return rec.ID, nil
	}
	for i, r := range m.saved[ownerID] {
		if r.ID == rec.ID {
			m.saved[ownerID][i] = rec
			return rec.ID, nil
		}
	}
	return "", store.ErrNotFound
}

func (m *memStore) ListCurrentSearchResults(context.Context) ([]model.BusinessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.CloneRecords(m.current), nil
}

func (m *memStore) ReplaceCurrentSearchResults(_ context.Context, records []model.BusinessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced++
	m.current = make([]model.BusinessRecord, len(records))
	for i, r := range records {
		r.ID = fmt.Sprintf("current-%d", i+1)
		m.current[i] = r
	}
	return nil
}

func (m *memStore) MarkDuplicate(_ context.Context, id string, duplicate bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.markErr[id]; err != nil {
		return err
	}
	for i := range m.current {
		if m.current[i].ID == id {
			m.current[i].IsDuplicate = duplicate
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

// stubSearcher returns a fixed result and records what it was given.
type stubSearcher struct {
	result *model.SearchResult
	err    error

	gotReq   model.SearchRequest
	gotSaved []model.BusinessRecord
	calls    int
}

func (s *stubSearcher) Search(_ context.Context, req model.SearchRequest, saved []model.BusinessRecord) (*model.SearchResult, error) {
	s.calls++
	s.gotReq = req
	s.gotSaved = saved
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}
