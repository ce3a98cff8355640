package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/database/mock"
	"github.com/kozaktomas/fieldreport/internal/report"
)

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMockStore()
	store.Now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }

	saved, err := store.SaveDraft(ctx, &database.Draft{Record: report.Record{Account: "Tech Corp", Site: "Building A", TaskName: "Check"}})
	if err != nil {
		t.Fatalf("SaveDraft() error = %v", err)
	}

	if err := Delete(ctx, store, saved.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.DraftCount() != 0 {
		t.Errorf("expected no drafts, got %d", store.DraftCount())
	}

	acts, _ := store.ListActivities(ctx, 10)
	if len(acts) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(acts))
	}
	if acts[0].Type != database.ActivityDraftDeleted {
		t.Errorf("activity type = %s, want %s", acts[0].Type, database.ActivityDraftDeleted)
	}
	if want := "Tech_Corp_Building_A_Check_2024-03-15.pdf"; acts[0].Filename != want {
		t.Errorf("activity filename = %s, want %s", acts[0].Filename, want)
	}
}

func TestDelete_NotFound(t *testing.T) {
	store := mock.NewMockStore()
	err := Delete(context.Background(), store, "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	acts, _ := store.ListActivities(context.Background(), 10)
	if len(acts) != 0 {
		t.Errorf("expected no activity, got %d", len(acts))
	}
}

func TestDelete_ActivityFailureIgnored(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMockStore()
	saved, _ := store.SaveDraft(ctx, &database.Draft{})
	store.ActivityError = errors.New("disk full")

	if err := Delete(ctx, store, saved.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.DraftCount() != 0 {
		t.Error("draft should be deleted")
	}
}
