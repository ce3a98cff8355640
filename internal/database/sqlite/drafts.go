package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// SaveDraft stores a new draft. An empty ID is replaced by a new UUID.
func (s *Store) SaveDraft(ctx context.Context, d *database.Draft) (*database.Draft, error) {
	saved := *d
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	now := s.now().UTC()
	saved.CreatedAt = now
	saved.UpdatedAt = now

	form, err := json.Marshal(saved.Record)
	if err != nil {
		return nil, database.Wrap("save draft", fmt.Errorf("encode form data: %w", err))
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO drafts (id, form_data, pair_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, saved.ID, string(form), saved.PairCount, formatTime(now), formatTime(now)); err != nil {
			return fmt.Errorf("insert draft: %w", err)
		}
		return insertImages(ctx, tx, saved.ID, saved.ImageSet)
	})
	if err != nil {
		return nil, database.Wrap("save draft", err)
	}
	return &saved, nil
}

// UpdateDraft replaces the record and/or the images of a draft.
func (s *Store) UpdateDraft(ctx context.Context, id string, u database.DraftUpdate) error {
	now := formatTime(s.now())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE drafts SET updated_at = ? WHERE id = ?", now, id)
		if err != nil {
			return fmt.Errorf("touch draft: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return database.ErrNotFound
		}

		if u.Record != nil {
			form, err := json.Marshal(u.Record)
			if err != nil {
				return fmt.Errorf("encode form data: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "UPDATE drafts SET form_data = ? WHERE id = ?", string(form), id); err != nil {
				return fmt.Errorf("update form data: %w", err)
			}
		}
		if u.Images != nil {
			if _, err := tx.ExecContext(ctx, "UPDATE drafts SET pair_count = ? WHERE id = ?", u.Images.PairCount, id); err != nil {
				return fmt.Errorf("update pair count: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM draft_images WHERE draft_id = ?", id); err != nil {
				return fmt.Errorf("clear draft images: %w", err)
			}
			return insertImages(ctx, tx, id, *u.Images)
		}
		return nil
	})
	return database.Wrap("update draft", err)
}

// DeleteDraft removes a draft and its images.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM draft_images WHERE draft_id = ?", id); err != nil {
			return fmt.Errorf("delete draft images: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete draft: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return database.ErrNotFound
		}
		return nil
	})
	return database.Wrap("delete draft", err)
}

// ListDrafts returns all drafts, most recently updated first.
func (s *Store) ListDrafts(ctx context.Context) ([]database.Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_data, pair_count, created_at, updated_at
		FROM drafts
		ORDER BY updated_at DESC, created_at DESC
	`)
	if err != nil {
		return nil, database.Wrap("list drafts", fmt.Errorf("query drafts: %w", err))
	}

	var drafts []database.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			rows.Close()
			return nil, database.Wrap("list drafts", err)
		}
		drafts = append(drafts, *d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, database.Wrap("list drafts", fmt.Errorf("iterate drafts: %w", err))
	}
	rows.Close()

	// Images are loaded after the draft cursor is closed; the pool has a
	// single connection.
	for i := range drafts {
		set, err := s.loadImages(ctx, drafts[i].ID, drafts[i].PairCount)
		if err != nil {
			return nil, database.Wrap("list drafts", err)
		}
		drafts[i].ImageSet = set
	}
	return drafts, nil
}

// GetDraft returns a single draft.
func (s *Store) GetDraft(ctx context.Context, id string) (*database.Draft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, form_data, pair_count, created_at, updated_at
		FROM drafts
		WHERE id = ?
	`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, database.Wrap("get draft", err)
	}
	set, err := s.loadImages(ctx, d.ID, d.PairCount)
	if err != nil {
		return nil, database.Wrap("get draft", err)
	}
	d.ImageSet = set
	return d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (*database.Draft, error) {
	var (
		d                database.Draft
		form             string
		created, updated string
	)
	if err := row.Scan(&d.ID, &form, &d.PairCount, &created, &updated); err != nil {
		return nil, err
	}
	var rec report.Record
	if err := json.Unmarshal([]byte(form), &rec); err != nil {
		return nil, fmt.Errorf("decode form data of draft %s: %w", d.ID, err)
	}
	d.Record = rec

	var err error
	if d.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) loadImages(ctx context.Context, draftID string, pairCount int) (database.ImageSet, error) {
	set := database.ImageSet{PairCount: pairCount}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, caption, position, data
		FROM draft_images
		WHERE draft_id = ?
		ORDER BY position
	`, draftID)
	if err != nil {
		return set, fmt.Errorf("query draft images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img database.StoredImage
		var role string
		if err := rows.Scan(&img.ID, &role, &img.Caption, &img.Position, &img.Data); err != nil {
			return set, fmt.Errorf("scan draft image: %w", err)
		}
		img.Role = slots.Role(role)
		switch img.Role {
		case slots.RoleBefore:
			set.Before = append(set.Before, img)
		case slots.RoleAfter:
			set.After = append(set.After, img)
		default:
			set.Upload = append(set.Upload, img)
		}
	}
	if err := rows.Err(); err != nil {
		return set, fmt.Errorf("iterate draft images: %w", err)
	}
	return set, nil
}

func insertImages(ctx context.Context, tx *sql.Tx, draftID string, set database.ImageSet) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO draft_images (draft_id, id, role, caption, position, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare image insert: %w", err)
	}
	defer stmt.Close()

	for _, img := range set.All() {
		if img.ID == "" {
			img.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, draftID, img.ID, string(img.Role), img.Caption, img.Position, img.Data); err != nil {
			return fmt.Errorf("insert image %s: %w", img.ID, err)
		}
	}
	return nil
}
