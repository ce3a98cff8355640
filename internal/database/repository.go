package database

import (
	"context"
)

// DraftStore persists drafts.
type DraftStore interface {
	// SaveDraft stores a new draft and returns it with ID and timestamps set
	SaveDraft(ctx context.Context, d *Draft) (*Draft, error)
	// UpdateDraft replaces the record and/or images of an existing draft
	UpdateDraft(ctx context.Context, id string, u DraftUpdate) error
	// DeleteDraft removes a draft and its images
	DeleteDraft(ctx context.Context, id string) error
	// ListDrafts returns all drafts, most recently updated first
	ListDrafts(ctx context.Context) ([]Draft, error)
	// GetDraft returns a single draft or ErrNotFound
	GetDraft(ctx context.Context, id string) (*Draft, error)
}

// MetricsStore keeps the report counters.
type MetricsStore interface {
	IncrementGenerated(ctx context.Context) error
	IncrementShared(ctx context.Context) error
	GetMetrics(ctx context.Context) (*Metrics, error)
}

// ActivityLog records the recent activity feed.
type ActivityLog interface {
	// AddActivity stores an entry, filling in ID and CreatedAt when empty
	AddActivity(ctx context.Context, a *Activity) error
	// ListActivities returns the newest entries first
	ListActivities(ctx context.Context, limit int) ([]Activity, error)
}

// Store is the complete local persistence layer.
type Store interface {
	DraftStore
	MetricsStore
	ActivityLog
	Close() error
}
