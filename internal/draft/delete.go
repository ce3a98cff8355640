package draft

import (
	"context"
	"log"

	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/report"
)

// Store is the persistence a draft operation needs.
type Store interface {
	database.DraftStore
	database.ActivityLog
}

// Delete removes a stored draft and records the deletion in the activity
// feed. A failed activity write is logged and does not fail the delete.
func Delete(ctx context.Context, store Store, id string) error {
	d, err := store.GetDraft(ctx, id)
	if err != nil {
		return err
	}
	if err := store.DeleteDraft(ctx, id); err != nil {
		return err
	}
	filename := report.FileName(d.Record, d.UpdatedAt)
	a := &database.Activity{
		Type:        database.ActivityDraftDeleted,
		Title:       filename,
		Description: "Report draft deleted",
		Filename:    filename,
	}
	if err := store.AddActivity(ctx, a); err != nil {
		log.Printf("WARNING: failed to record %s activity: %v", a.Type, err)
	}
	return nil
}
