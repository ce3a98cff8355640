package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "fieldreport.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func sampleDraft() *database.Draft {
	return &database.Draft{
		Record: report.Record{
			Account:         "Tech Corp",
			Site:            "Building A",
			TaskName:        "Monthly HVAC Check",
			ServiceProvider: "Acme Services",
			CompletedBy:     "Jordan Lee",
			Date:            report.NewDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
		},
		ImageSet: database.ImageSet{
			Before: []database.StoredImage{
				{ID: "b1", Data: []byte{1}, Role: slots.RoleBefore, Position: 0, Caption: "dusty filter"},
				{ID: "b2", Data: []byte{2}, Role: slots.RoleBefore, Position: 2},
			},
			After: []database.StoredImage{
				{ID: "a1", Data: []byte{3}, Role: slots.RoleAfter, Position: 1},
			},
			Upload: []database.StoredImage{
				{ID: "u1", Data: []byte{4}, Role: slots.RoleUpload, Position: 4},
			},
			PairCount: 2,
		},
	}
}

func TestOpen_Migrations(t *testing.T) {
	s := openTestStore(t)
	versions, err := s.MigrationsApplied(context.Background())
	if err != nil {
		t.Fatalf("MigrationsApplied() error = %v", err)
	}
	if len(versions) != 1 || versions[0] != "001_init.sql" {
		t.Errorf("applied = %v", versions)
	}
}

func TestOpen_Locked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldreport.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := Open(context.Background(), path); !errors.Is(err, ErrStoreLocked) {
		t.Errorf("second Open() error = %v, want ErrStoreLocked", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	reopened, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen after close error = %v", err)
	}
	_ = reopened.Close()
}

func TestDraft_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveDraft(ctx, sampleDraft())
	if err != nil {
		t.Fatalf("SaveDraft() error = %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("saved draft missing ID or timestamps: %+v", saved)
	}

	got, err := s.GetDraft(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetDraft() error = %v", err)
	}
	if got.Record.Site != "Building A" || !got.Record.Date.Equal(saved.Record.Date.Time) {
		t.Errorf("record = %+v", got.Record)
	}
	if got.PairCount != 2 {
		t.Errorf("PairCount = %d, want 2", got.PairCount)
	}
	if c := got.Counts(); c.Before != 2 || c.After != 1 || c.Upload != 1 {
		t.Errorf("counts = %+v", c)
	}
	if got.Before[0].Caption != "dusty filter" || got.Before[1].Position != 2 {
		t.Errorf("before images = %+v", got.Before)
	}
	if got.Upload[0].Position != 4 || got.Upload[0].Data[0] != 4 {
		t.Errorf("upload image = %+v", got.Upload[0])
	}
}

func TestGetDraft_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetDraft(context.Background(), "missing"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetDraft() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateDraft(t *testing.T) {
	s := openTestStore(t)
	s.now = fixedClock()
	ctx := context.Background()

	saved, err := s.SaveDraft(ctx, sampleDraft())
	if err != nil {
		t.Fatalf("SaveDraft() error = %v", err)
	}

	rec := saved.Record
	rec.Site = "Building B"
	images := database.ImageSet{
		Upload:    []database.StoredImage{{ID: "u9", Data: []byte{9}, Role: slots.RoleUpload, Position: 0}},
		PairCount: 0,
	}
	if err := s.UpdateDraft(ctx, saved.ID, database.DraftUpdate{Record: &rec, Images: &images}); err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}

	got, err := s.GetDraft(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetDraft() error = %v", err)
	}
	if got.Record.Site != "Building B" {
		t.Errorf("site = %q", got.Record.Site)
	}
	if len(got.Before) != 0 || len(got.Upload) != 1 || got.PairCount != 0 {
		t.Errorf("images not replaced: %+v", got.ImageSet)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("UpdatedAt %v not after CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}

	// Record-only updates keep the images.
	rec.Site = "Building C"
	if err := s.UpdateDraft(ctx, saved.ID, database.DraftUpdate{Record: &rec}); err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}
	got, _ = s.GetDraft(ctx, saved.ID)
	if len(got.Upload) != 1 {
		t.Errorf("images lost on record update: %+v", got.ImageSet)
	}

	if err := s.UpdateDraft(ctx, "missing", database.DraftUpdate{Record: &rec}); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("UpdateDraft(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListDrafts_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	s.now = fixedClock()
	ctx := context.Background()

	first, _ := s.SaveDraft(ctx, sampleDraft())
	second, _ := s.SaveDraft(ctx, sampleDraft())

	drafts, err := s.ListDrafts(ctx)
	if err != nil {
		t.Fatalf("ListDrafts() error = %v", err)
	}
	if len(drafts) != 2 || drafts[0].ID != second.ID {
		t.Fatalf("order = %v, want %s first", draftIDs(drafts), second.ID)
	}
	if len(drafts[1].Before) != 2 {
		t.Errorf("images not loaded for listed drafts")
	}

	// Touching the older draft moves it to the front.
	rec := first.Record
	if err := s.UpdateDraft(ctx, first.ID, database.DraftUpdate{Record: &rec}); err != nil {
		t.Fatal(err)
	}
	drafts, _ = s.ListDrafts(ctx)
	if drafts[0].ID != first.ID {
		t.Errorf("order after update = %v, want %s first", draftIDs(drafts), first.ID)
	}
}

func draftIDs(drafts []database.Draft) []string {
	ids := make([]string, len(drafts))
	for i, d := range drafts {
		ids[i] = d.ID
	}
	return ids
}

func TestDeleteDraft(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved, _ := s.SaveDraft(ctx, sampleDraft())
	if err := s.DeleteDraft(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteDraft() error = %v", err)
	}
	if _, err := s.GetDraft(ctx, saved.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("draft still present: %v", err)
	}
	if err := s.DeleteDraft(ctx, saved.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("second DeleteDraft() error = %v, want ErrNotFound", err)
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM draft_images").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("orphaned images = %d", n)
	}
}

func TestMetrics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m, err := s.GetMetrics(ctx)
	if err != nil {
		t.Fatalf("GetMetrics() error = %v", err)
	}
	if m.ReportsGenerated != 0 || m.ReportsShared != 0 || !m.LastGeneratedAt.IsZero() {
		t.Errorf("initial metrics = %+v", m)
	}

	for range 3 {
		if err := s.IncrementGenerated(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.IncrementShared(ctx); err != nil {
		t.Fatal(err)
	}

	m, _ = s.GetMetrics(ctx)
	if m.ReportsGenerated != 3 || m.ReportsShared != 1 {
		t.Errorf("metrics = %+v", m)
	}
	if m.LastGeneratedAt.IsZero() || m.LastSharedAt.IsZero() {
		t.Errorf("timestamps not set: %+v", m)
	}
}

func TestActivities(t *testing.T) {
	s := openTestStore(t)
	s.now = fixedClock()
	ctx := context.Background()

	for _, typ := range []database.ActivityType{
		database.ActivityDraftSaved,
		database.ActivityPDFGenerated,
		database.ActivityPDFShared,
	} {
		if err := s.AddActivity(ctx, &database.Activity{Type: typ, Title: string(typ)}); err != nil {
			t.Fatalf("AddActivity() error = %v", err)
		}
	}

	got, err := s.ListActivities(ctx, 2)
	if err != nil {
		t.Fatalf("ListActivities() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Type != database.ActivityPDFShared || got[1].Type != database.ActivityPDFGenerated {
		t.Errorf("order = %s, %s", got[0].Type, got[1].Type)
	}
	if got[0].ID == "" {
		t.Error("activity ID not assigned")
	}
}

func TestIsSQLiteBusy(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("SQLITE_BUSY: retry"), true},
		{errors.New("constraint failed"), false},
	}
	for _, tt := range tests {
		if got := isSQLiteBusy(tt.err); got != tt.want {
			t.Errorf("isSQLiteBusy(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRetryOnBusy(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("retryOnBusy() = %v after %d calls", err, calls)
	}

	calls = 0
	boom := errors.New("boom")
	if err := retryOnBusy(context.Background(), func() error { calls++; return boom }); !errors.Is(err, boom) || calls != 1 {
		t.Errorf("non-busy error retried: %v after %d calls", err, calls)
	}
}
