package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/database/mock"
	"github.com/kozaktomas/fieldreport/internal/imaging"
	"github.com/kozaktomas/fieldreport/internal/layout"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// failingSink fails every delivery until Err is cleared.
type failingSink struct {
	Err   error
	saved [][]byte
}

func (f *failingSink) SaveToDevice(ctx context.Context, data []byte, filename string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	f.saved = append(f.saved, data)
	return "/documents/" + filename, nil
}

func (f *failingSink) Share(ctx context.Context, data []byte, filename, title string) error {
	return f.Err
}

func (f *failingSink) Download(ctx context.Context, data []byte, filename string) error {
	return f.Err
}

func testRecord() report.Record {
	return report.Record{
		Account:         "Tech Corp",
		Site:            "Building A",
		TaskName:        "Monthly HVAC Check",
		ServiceProvider: "Acme Services",
		CompletedBy:     "Jordan Lee",
		Date:            report.NewDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
	}
}

func testImage(t *testing.T, role slots.Role) *slots.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	for y := range 20 {
		for x := range 30 {
			img.Set(x, y, color.RGBA{uint8(x * 8), 40, uint8(y * 12), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return slots.NewImage(buf.Bytes(), role)
}

func newTestService(t *testing.T, sink Sink, recorder Recorder) *Service {
	t.Helper()
	engine, err := layout.NewEngine(layout.DefaultConfig(), layout.Assets{})
	if err != nil {
		t.Fatal(err)
	}
	s := NewService(engine, sink, recorder, layout.DefaultOptions())
	s.now = func() time.Time { return time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestBuild(t *testing.T) {
	store := mock.NewMockStore()
	s := newTestService(t, &failingSink{}, store)
	ctx := context.Background()

	seq := []*slots.Image{testImage(t, slots.RoleBefore), testImage(t, slots.RoleAfter)}
	doc, err := s.Build(ctx, "s1", testRecord(), seq, imaging.Standard)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if doc.Filename != "Tech_Corp_Building_A_Monthly_HVAC_Check_2024-03-20.pdf" {
		t.Errorf("Filename = %q", doc.Filename)
	}
	if doc.Title != "Report for Building A" {
		t.Errorf("Title = %q", doc.Title)
	}
	if !bytes.HasPrefix(doc.PDF, []byte("%PDF")) {
		t.Error("document is not a PDF")
	}
	if doc.Report.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", doc.Report.PageCount)
	}
	if s.Last("s1") != doc {
		t.Error("Last() should return the built document")
	}

	m, _ := store.GetMetrics(ctx)
	if m.ReportsGenerated != 1 {
		t.Errorf("ReportsGenerated = %d, want 1", m.ReportsGenerated)
	}
	acts, _ := store.ListActivities(ctx, 5)
	if len(acts) != 1 || acts[0].Type != database.ActivityPDFGenerated || acts[0].Filename != doc.Filename {
		t.Errorf("activities = %+v", acts)
	}
}

func TestBuild_ValidationError(t *testing.T) {
	store := mock.NewMockStore()
	s := newTestService(t, &failingSink{}, store)

	rec := testRecord()
	rec.Site = " "
	_, err := s.Build(context.Background(), "s1", rec, nil, imaging.Standard)
	var verr *report.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Build() error = %v, want ValidationError", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0] != "site" {
		t.Errorf("Fields = %v", verr.Fields)
	}
	if m, _ := store.GetMetrics(context.Background()); m.ReportsGenerated != 0 {
		t.Error("refused export must not be counted")
	}
}

func TestBuild_MetricsFailureIsNotFatal(t *testing.T) {
	store := mock.NewMockStore()
	store.MetricsError = errors.New("db down")
	s := newTestService(t, &failingSink{}, store)
	if _, err := s.Build(context.Background(), "s1", testRecord(), nil, imaging.Standard); err != nil {
		t.Errorf("Build() error = %v", err)
	}
}

func TestShare_CountsOnSuccess(t *testing.T) {
	store := mock.NewMockStore()
	sink := &failingSink{Err: errors.New("no share target")}
	s := newTestService(t, sink, store)
	ctx := context.Background()

	doc, err := s.Build(ctx, "s1", testRecord(), nil, imaging.Standard)
	if err != nil {
		t.Fatal(err)
	}

	err = s.Share(ctx, doc)
	var serr *SinkError
	if !errors.As(err, &serr) || serr.Op != "share" || serr.Filename != doc.Filename {
		t.Fatalf("Share() error = %v, want SinkError", err)
	}
	if m, _ := store.GetMetrics(ctx); m.ReportsShared != 0 {
		t.Error("failed share counted")
	}

	sink.Err = nil
	if err := s.Retry(ctx, "s1", "share"); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if m, _ := store.GetMetrics(ctx); m.ReportsShared != 1 {
		t.Errorf("ReportsShared = %d, want 1", m.ReportsShared)
	}
}

func TestSave_RetainsDocument(t *testing.T) {
	sink := &failingSink{Err: errors.New("disk full")}
	s := newTestService(t, sink, nil)
	ctx := context.Background()

	doc, err := s.Build(ctx, "s1", testRecord(), nil, imaging.Standard)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, doc); err == nil {
		t.Fatal("expected save error")
	}

	sink.Err = nil
	if err := s.Retry(ctx, "s1", "save"); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if len(sink.saved) != 1 || !bytes.Equal(sink.saved[0], doc.PDF) {
		t.Error("retry did not deliver the retained document")
	}
}

func TestRetry_NoDocument(t *testing.T) {
	s := newTestService(t, &failingSink{}, nil)
	if err := s.Retry(context.Background(), "s1", "save"); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Retry() error = %v", err)
	}
}

func TestRetry_UsesOwnersDocument(t *testing.T) {
	sink := &failingSink{}
	s := newTestService(t, sink, nil)
	ctx := context.Background()

	recA := testRecord()
	recA.Site = "Site A"
	recB := testRecord()
	recB.Site = "Site B"
	docA, err := s.Build(ctx, "a", recA, nil, imaging.Standard)
	if err != nil {
		t.Fatal(err)
	}
	docB, err := s.Build(ctx, "b", recB, nil, imaging.Standard)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Retry(ctx, "a", "save"); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if len(sink.saved) != 1 || !bytes.Equal(sink.saved[0], docA.PDF) {
		t.Error("retry for a delivered another owner's document")
	}
	if s.Last("b") != docB {
		t.Error("Last(b) should return b's document")
	}

	s.Forget("a")
	if err := s.Retry(ctx, "a", "save"); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Retry() after Forget error = %v, want ErrNoDocument", err)
	}
}

func TestBuild_DropsExpiredDocuments(t *testing.T) {
	s := newTestService(t, &failingSink{}, nil)
	ctx := context.Background()

	start := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	if _, err := s.Build(ctx, "old", testRecord(), nil, imaging.Standard); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return start.Add(s.retention + time.Minute) }
	if _, err := s.Build(ctx, "new", testRecord(), nil, imaging.Standard); err != nil {
		t.Fatal(err)
	}
	if s.Last("old") != nil {
		t.Error("expired document still retained")
	}
	if s.Last("new") == nil {
		t.Error("fresh document missing")
	}
}

func TestDirSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirSink(dir)
	sink.now = func() time.Time { return time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	data := []byte("%PDF-1.7 test")

	path, err := sink.SaveToDevice(ctx, data, "report.pdf")
	if err != nil {
		t.Fatalf("SaveToDevice() error = %v", err)
	}
	if path != filepath.Join(dir, "documents", "report.pdf") {
		t.Errorf("path = %q", path)
	}
	if got, _ := os.ReadFile(path); !bytes.Equal(got, data) {
		t.Errorf("saved content = %q", got)
	}

	if err := sink.Share(ctx, data, "report.pdf", "Report for Building A"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "outbox", "report.json"))
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	var m ShareManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m.Title != "Report for Building A" || m.Size != len(data) || len(m.SHA256) != 64 {
		t.Errorf("manifest = %+v", m)
	}

	if err := sink.Download(ctx, data, "report.pdf"); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "downloads", "report.pdf")); err != nil {
		t.Errorf("download missing: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "documents"))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestDirSink_RejectsPaths(t *testing.T) {
	sink := NewDirSink(t.TempDir())
	for _, name := range []string{"", "../escape.pdf", "sub/report.pdf"} {
		if _, err := sink.SaveToDevice(context.Background(), []byte("x"), name); err == nil {
			t.Errorf("SaveToDevice(%q) should fail", name)
		}
	}
}

func TestDirSink_Cancelled(t *testing.T) {
	sink := NewDirSink(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.Share(ctx, []byte("x"), "r.pdf", "t"); !errors.Is(err, context.Canceled) {
		t.Errorf("Share() error = %v", err)
	}
}
