package sqlite

import (
	"context"
	"fmt"

	"github.com/kozaktomas/fieldreport/internal/database"
)

// IncrementGenerated counts one generated report.
func (s *Store) IncrementGenerated(ctx context.Context) error {
	now := formatTime(s.now())
	_, err := s.execWithRetry(ctx, `
		UPDATE metrics
		SET reports_generated = reports_generated + 1, last_generated_at = ?, updated_at = ?
		WHERE id = 1
	`, now, now)
	return database.Wrap("increment generated", err)
}

// IncrementShared counts one shared report.
func (s *Store) IncrementShared(ctx context.Context) error {
	now := formatTime(s.now())
	_, err := s.execWithRetry(ctx, `
		UPDATE metrics
		SET reports_shared = reports_shared + 1, last_shared_at = ?, updated_at = ?
		WHERE id = 1
	`, now, now)
	return database.Wrap("increment shared", err)
}

// GetMetrics returns the current counters.
func (s *Store) GetMetrics(ctx context.Context) (*database.Metrics, error) {
	var (
		m                             database.Metrics
		lastGenerated, lastShared, up string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT reports_generated, reports_shared, last_generated_at, last_shared_at, updated_at
		FROM metrics WHERE id = 1
	`).Scan(&m.ReportsGenerated, &m.ReportsShared, &lastGenerated, &lastShared, &up)
	if err != nil {
		return nil, database.Wrap("get metrics", fmt.Errorf("query metrics: %w", err))
	}
	if m.LastGeneratedAt, err = parseTime(lastGenerated); err != nil {
		return nil, database.Wrap("get metrics", err)
	}
	if m.LastSharedAt, err = parseTime(lastShared); err != nil {
		return nil, database.Wrap("get metrics", err)
	}
	if m.UpdatedAt, err = parseTime(up); err != nil {
		return nil, database.Wrap("get metrics", err)
	}
	return &m, nil
}
