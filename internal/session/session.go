// Package session holds the editing state of one report: the form record,
// the slot sequence and the draft it was loaded from.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/draft"
	"github.com/kozaktomas/fieldreport/internal/imaging"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// ErrNoStore is returned by draft operations of a session without a store.
var ErrNoStore = errors.New("session has no draft store")

// Store is what a session needs from persistence.
type Store interface {
	database.DraftStore
	database.ActivityLog
}

// Session is the editing state of a single report. All methods are safe
// for concurrent use; operations on one session are serialized.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	mu            sync.Mutex
	store         Store
	now           func() time.Time
	record        report.Record
	slots         *slots.Allocator
	draftID       string
	lastRejection slots.Rejection
}

// New returns an empty session. store may be nil for sessions that are
// never persisted.
func New(id string, store Store) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		store:     store,
		now:       time.Now,
		slots:     slots.New(),
	}
}

// Record returns the form record.
func (s *Session) Record() report.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// SetRecord replaces the form record.
func (s *Session) SetRecord(rec report.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = rec
}

// DraftID returns the ID of the draft backing this session, empty when the
// session has not been saved yet.
func (s *Session) DraftID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftID
}

// Add wraps each source into a new image of the given role and inserts it.
// The rejection is also kept as LastRejection.
func (s *Session) Add(role slots.Role, sources ...[]byte) ([]*slots.Image, slots.Rejection) {
	imgs := make([]*slots.Image, 0, len(sources))
	for _, src := range sources {
		imgs = append(imgs, slots.NewImage(src, role))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rej := s.slots.Insert(role, imgs...)
	s.lastRejection = rej
	return imgs, rej
}

// LastRejection returns the rejection of the most recent Add.
func (s *Session) LastRejection() slots.Rejection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRejection
}

// Swap exchanges two slot positions.
func (s *Session) Swap(i, j int) error {
	if i < 0 || j < 0 {
		return fmt.Errorf("invalid slot positions %d and %d", i, j)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots.Swap(i, j)
	return nil
}

// Replace puts new bytes into slot i. The image keeps the slot's role and,
// when caption is empty, its caption.
func (s *Session) Replace(i int, src []byte, caption string) (*slots.Image, error) {
	if i < 0 {
		return nil, fmt.Errorf("invalid slot position %d", i)
	}
	img := slots.NewImage(src, "")
	img.Caption = caption
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots.Replace(i, img)
	return s.slots.At(i), nil
}

// Delete empties slot i.
func (s *Session) Delete(i int) error {
	if i < 0 {
		return fmt.Errorf("invalid slot position %d", i)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots.Delete(i)
	return nil
}

// SetCaption sets the caption of the image with the given ID.
func (s *Session) SetCaption(id, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.SetCaption(id, text)
}

// Find returns the image with the given ID and its position.
func (s *Session) Find(id string) (*slots.Image, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.Find(id)
}

// Slots returns a copy of the flat slot sequence.
func (s *Session) Slots() []*slots.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.Slots()
}

// Counts returns the number of images per role.
func (s *Session) Counts() slots.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.Counts()
}

// PairStates returns the state of every before/after pair.
func (s *Session) PairStates() []slots.PairState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.PairStates()
}

// Snapshot returns the record and slot sequence for an export. Later edits
// do not affect the returned values.
func (s *Session) Snapshot() (report.Record, []*slots.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.slots.Slots()
	for i, img := range seq {
		if img != nil {
			c := *img
			seq[i] = &c
		}
	}
	return s.record, seq
}

// Commit writes the session to its draft, creating the draft on first
// use. A failed write leaves the session unchanged.
func (s *Session) Commit(ctx context.Context) (*database.Draft, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := draft.FromSlots(ctx, s.slots, imaging.High)
	if err != nil {
		return nil, err
	}

	filename := report.FileName(s.record, s.now())
	if s.draftID == "" {
		saved, err := s.store.SaveDraft(ctx, &database.Draft{Record: s.record, ImageSet: set})
		if err != nil {
			return nil, err
		}
		s.draftID = saved.ID
		s.logActivity(ctx, database.ActivityDraftSaved, filename, "Report draft saved successfully")
		return saved, nil
	}

	rec := s.record
	if err := s.store.UpdateDraft(ctx, s.draftID, database.DraftUpdate{Record: &rec, Images: &set}); err != nil {
		return nil, err
	}
	s.logActivity(ctx, database.ActivityDraftUpdated, filename, "Report draft updated successfully")
	return s.store.GetDraft(ctx, s.draftID)
}

// Load replaces the session state with a stored draft.
func (s *Session) Load(ctx context.Context, draftID string) error {
	if s.store == nil {
		return ErrNoStore
	}
	d, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = d.Record
	s.slots = draft.ToSlots(d.ImageSet)
	s.draftID = d.ID
	s.lastRejection = slots.Rejection{}
	return nil
}

// Clear resets the session to an empty report.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = report.Record{}
	s.slots = slots.New()
	s.draftID = ""
	s.lastRejection = slots.Rejection{}
}

func (s *Session) logActivity(ctx context.Context, typ database.ActivityType, filename, description string) {
	a := &database.Activity{
		Type:        typ,
		Title:       filename,
		Description: description,
		Filename:    filename,
	}
	if err := s.store.AddActivity(ctx, a); err != nil {
		log.Printf("WARNING: failed to record %s activity: %v", typ, err)
	}
}
