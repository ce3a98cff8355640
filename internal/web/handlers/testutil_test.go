package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/fieldreport/internal/database/mock"
	"github.com/kozaktomas/fieldreport/internal/export"
	"github.com/kozaktomas/fieldreport/internal/imaging"
	"github.com/kozaktomas/fieldreport/internal/layout"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/session"
	"github.com/kozaktomas/fieldreport/internal/web/middleware"
)

// testRecord returns a complete form record
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

// pngBytes encodes a small gradient PNG
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 16))
	for y := range 16 {
		for x := range 24 {
			img.Set(x, y, color.RGBA{uint8(x * 10), 60, uint8(y * 15), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// newTestSession creates a session backed by store
func newTestSession(store *mock.MockStore) *session.Session {
	if store == nil {
		return session.New("test-session", nil)
	}
	return session.New("test-session", store)
}

// requestWithSession creates a request with a session in context
func requestWithSession(method, path string, body *bytes.Buffer, s *session.Session) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	return req.WithContext(middleware.SetSessionInContext(req.Context(), s))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartBody builds a multipart form with the given fields. Every file
// is uploaded under field.
func multipartBody(t *testing.T, fields map[string]string, field string, files ...[]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for i, data := range files {
		fw, err := mw.CreateFormFile(field, "photo"+string(rune('a'+i))+".png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

// newTestExportService creates an export service writing into a temp dir
func newTestExportService(t *testing.T, store *mock.MockStore) (*export.Service, *export.DirSink) {
	t.Helper()
	engine, err := layout.NewEngine(layout.DefaultConfig(), layout.Assets{})
	if err != nil {
		t.Fatalf("failed to create layout engine: %v", err)
	}
	sink := export.NewDirSink(t.TempDir())
	var recorder export.Recorder
	if store != nil {
		recorder = store
	}
	return export.NewService(engine, sink, recorder, layout.DefaultOptions()), sink
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}

// mustProfile returns the standard image profile
func mustProfile(t *testing.T) imaging.Profile {
	t.Helper()
	p, err := imaging.ParseProfile("standard")
	if err != nil {
		t.Fatal(err)
	}
	return p
}
