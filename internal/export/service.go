// Package export turns a session snapshot into a named PDF document and
// delivers it through a sink.
package export

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/fieldreport/internal/constants"
	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/imaging"
	"github.com/kozaktomas/fieldreport/internal/layout"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// ErrNoDocument is returned by Retry when the owner has no built document.
var ErrNoDocument = errors.New("no document has been built")

// Document is a rendered report.
type Document struct {
	Filename  string               `json:"filename"`
	Title     string               `json:"title"`
	PDF       []byte               `json:"-"`
	Report    *layout.ExportReport `json:"report"`
	CreatedAt time.Time            `json:"created_at"`
}

// Recorder is the metrics and activity store used by the service.
type Recorder interface {
	database.MetricsStore
	database.ActivityLog
}

// Service builds and delivers documents.
type Service struct {
	engine   *layout.Engine
	sink     Sink
	recorder Recorder
	opts     layout.Options
	now      func() time.Time

	mu        sync.Mutex
	last      map[string]*Document // keyed by owner
	retention time.Duration
}

// NewService wires an export service. recorder may be nil.
func NewService(engine *layout.Engine, sink Sink, recorder Recorder, opts layout.Options) *Service {
	return &Service{
		engine:   engine,
		sink:     sink,
		recorder: recorder,
		opts:      opts,
		now:       time.Now,
		last:      make(map[string]*Document),
		retention: constants.SessionDuration,
	}
}

// Build validates the record and renders the document with the given
// quality profile. The document is retained for owner, typically a session
// ID, so a failed delivery can be retried. Every successful build counts as
// a generated report.
func (s *Service) Build(ctx context.Context, owner string, rec report.Record, seq []*slots.Image, quality imaging.Profile) (*Document, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	opts := s.opts
	opts.Profile = quality

	res, err := s.engine.Render(ctx, rec, seq, opts)
	if err != nil {
		return nil, err
	}
	now := s.now()
	doc := &Document{
		Filename:  report.FileName(rec, now),
		Title:     rec.ShareTitle(),
		PDF:       res.PDF,
		Report:    res.Report,
		CreatedAt: now,
	}

	s.mu.Lock()
	for o, d := range s.last {
		if now.Sub(d.CreatedAt) > s.retention {
			delete(s.last, o)
		}
	}
	s.last[owner] = doc
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.IncrementGenerated(ctx); err != nil {
			log.Printf("WARNING: failed to count generated report: %v", err)
		}
		s.logActivity(ctx, database.ActivityPDFGenerated, doc.Filename, "PDF report was generated")
	}
	return doc, nil
}

// Last returns the document most recently built for owner, nil if none.
func (s *Service) Last(owner string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[owner]
}

// Forget drops the document retained for owner.
func (s *Service) Forget(owner string) {
	s.mu.Lock()
	delete(s.last, owner)
	s.mu.Unlock()
}

// Save stores the document on the device and returns its path.
func (s *Service) Save(ctx context.Context, doc *Document) (string, error) {
	path, err := s.sink.SaveToDevice(ctx, doc.PDF, doc.Filename)
	if err != nil {
		return "", &SinkError{Op: "save", Filename: doc.Filename, Err: err}
	}
	return path, nil
}

// Share hands the document to the share target. A successful share counts
// as a shared report.
func (s *Service) Share(ctx context.Context, doc *Document) error {
	if err := s.sink.Share(ctx, doc.PDF, doc.Filename, doc.Title); err != nil {
		return &SinkError{Op: "share", Filename: doc.Filename, Err: err}
	}
	if s.recorder != nil {
		if err := s.recorder.IncrementShared(ctx); err != nil {
			log.Printf("WARNING: failed to count shared report: %v", err)
		}
		s.logActivity(ctx, database.ActivityPDFShared, doc.Filename, "PDF report was shared")
	}
	return nil
}

// Download offers the document as a download.
func (s *Service) Download(ctx context.Context, doc *Document) error {
	if err := s.sink.Download(ctx, doc.PDF, doc.Filename); err != nil {
		return &SinkError{Op: "download", Filename: doc.Filename, Err: err}
	}
	return nil
}

// Retry repeats a delivery with the owner's last built document, without
// rendering again. op is "save", "share" or "download".
func (s *Service) Retry(ctx context.Context, owner, op string) error {
	doc := s.Last(owner)
	if doc == nil {
		return ErrNoDocument
	}
	switch op {
	case "save":
		_, err := s.Save(ctx, doc)
		return err
	case "share":
		return s.Share(ctx, doc)
	case "download":
		return s.Download(ctx, doc)
	default:
		return errors.New("unknown delivery " + op)
	}
}

func (s *Service) logActivity(ctx context.Context, typ database.ActivityType, filename, description string) {
	a := &database.Activity{
		Type:        typ,
		Title:       filename,
		Description: description,
		Filename:    filename,
	}
	if err := s.recorder.AddActivity(ctx, a); err != nil {
		log.Printf("WARNING: failed to record %s activity: %v", typ, err)
	}
}
