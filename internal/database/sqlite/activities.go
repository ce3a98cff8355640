package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kozaktomas/fieldreport/internal/constants"
	"github.com/kozaktomas/fieldreport/internal/database"
)

// AddActivity stores an activity feed entry.
func (s *Store) AddActivity(ctx context.Context, a *database.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	_, err := s.execWithRetry(ctx, `
		INSERT INTO activities (id, type, title, description, filename, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, string(a.Type), a.Title, a.Description, a.Filename, formatTime(a.CreatedAt))
	return database.Wrap("add activity", err)
}

// ListActivities returns the newest activity entries. A limit <= 0 uses
// the default feed length.
func (s *Store) ListActivities(ctx context.Context, limit int) ([]database.Activity, error) {
	if limit <= 0 {
		limit = constants.DefaultActivityLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, description, filename, created_at
		FROM activities
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, database.Wrap("list activities", fmt.Errorf("query activities: %w", err))
	}
	defer rows.Close()

	var out []database.Activity
	for rows.Next() {
		var (
			a       database.Activity
			typ     string
			created string
		)
		if err := rows.Scan(&a.ID, &typ, &a.Title, &a.Description, &a.Filename, &created); err != nil {
			return nil, database.Wrap("list activities", fmt.Errorf("scan activity: %w", err))
		}
		a.Type = database.ActivityType(typ)
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, database.Wrap("list activities", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Wrap("list activities", fmt.Errorf("iterate activities: %w", err))
	}
	return out, nil
}
