// Package mock provides an in-memory database.Store for testing.
package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/fieldreport/internal/constants"
	"github.com/kozaktomas/fieldreport/internal/database"
)

// MockStore is an in-memory implementation of database.Store
type MockStore struct {
	mu         sync.RWMutex
	drafts     map[string]*database.Draft
	metrics    database.Metrics
	activities []database.Activity
	closed     bool

	// Now is the clock used for timestamps
	Now func() time.Time

	// Error injection
	SaveError     error
	UpdateError   error
	DeleteError   error
	ListError     error
	GetError      error
	MetricsError  error
	ActivityError error
}

var _ database.Store = (*MockStore)(nil)

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		drafts: make(map[string]*database.Draft),
		Now:    time.Now,
	}
}

func cloneDraft(d *database.Draft) *database.Draft {
	c := *d
	c.Before = slices.Clone(d.Before)
	c.After = slices.Clone(d.After)
	c.Upload = slices.Clone(d.Upload)
	return &c
}

// SaveDraft stores a copy of the draft
func (m *MockStore) SaveDraft(ctx context.Context, d *database.Draft) (*database.Draft, error) {
	if m.SaveError != nil {
		return nil, m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := cloneDraft(d)
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	now := m.Now().UTC()
	saved.CreatedAt, saved.UpdatedAt = now, now
	m.drafts[saved.ID] = saved
	return cloneDraft(saved), nil
}

// UpdateDraft applies an update to a stored draft
func (m *MockStore) UpdateDraft(ctx context.Context, id string, u database.DraftUpdate) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return database.ErrNotFound
	}
	if u.Record != nil {
		d.Record = *u.Record
	}
	if u.Images != nil {
		d.ImageSet = database.ImageSet{
			Before:    slices.Clone(u.Images.Before),
			After:     slices.Clone(u.Images.After),
			Upload:    slices.Clone(u.Images.Upload),
			PairCount: u.Images.PairCount,
		}
	}
	d.UpdatedAt = m.Now().UTC()
	return nil
}

// DeleteDraft removes a draft
func (m *MockStore) DeleteDraft(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.drafts, id)
	return nil
}

// ListDrafts returns all drafts, most recently updated first
func (m *MockStore) ListDrafts(ctx context.Context) ([]database.Draft, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Draft, 0, len(m.drafts))
	for _, d := range m.drafts {
		out = append(out, *cloneDraft(d))
	}
	slices.SortFunc(out, func(a, b database.Draft) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

// GetDraft returns a copy of a stored draft
func (m *MockStore) GetDraft(ctx context.Context, id string) (*database.Draft, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneDraft(d), nil
}

// IncrementGenerated counts a generated report
func (m *MockStore) IncrementGenerated(ctx context.Context) error {
	if m.MetricsError != nil {
		return m.MetricsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now().UTC()
	m.metrics.ReportsGenerated++
	m.metrics.LastGeneratedAt, m.metrics.UpdatedAt = now, now
	return nil
}

// IncrementShared counts a shared report
func (m *MockStore) IncrementShared(ctx context.Context) error {
	if m.MetricsError != nil {
		return m.MetricsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now().UTC()
	m.metrics.ReportsShared++
	m.metrics.LastSharedAt, m.metrics.UpdatedAt = now, now
	return nil
}

// GetMetrics returns the counters
func (m *MockStore) GetMetrics(ctx context.Context) (*database.Metrics, error) {
	if m.MetricsError != nil {
		return nil, m.MetricsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	metrics := m.metrics
	return &metrics, nil
}

// AddActivity records an activity entry
func (m *MockStore) AddActivity(ctx context.Context, a *database.Activity) error {
	if m.ActivityError != nil {
		return m.ActivityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.Now().UTC()
	}
	m.activities = append([]database.Activity{*a}, m.activities...)
	return nil
}

// ListActivities returns the newest activity entries
func (m *MockStore) ListActivities(ctx context.Context, limit int) ([]database.Activity, error) {
	if m.ActivityError != nil {
		return nil, m.ActivityError
	}
	if limit <= 0 {
		limit = constants.DefaultActivityLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := min(limit, len(m.activities))
	return slices.Clone(m.activities[:n]), nil
}

// Close marks the store closed
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// DraftCount returns the number of stored drafts
func (m *MockStore) DraftCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.drafts)
}
