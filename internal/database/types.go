package database

import (
	"cmp"
	"slices"
	"time"

	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// StoredImage is a persisted image of a draft. Position is the image's
// index in the flat slot sequence.
type StoredImage struct {
	ID       string     `json:"id"`
	Data     []byte     `json:"data,omitempty"`
	Role     slots.Role `json:"type"`
	Caption  string     `json:"text,omitempty"`
	Position int        `json:"position"`
}

// ImageSet holds the images of a draft split by role.
type ImageSet struct {
	Before    []StoredImage `json:"beforeImages"`
	After     []StoredImage `json:"afterImages"`
	Upload    []StoredImage `json:"uploadImages"`
	PairCount int           `json:"pairCount"`
}

// All returns every image of the set ordered by position.
func (s ImageSet) All() []StoredImage {
	all := make([]StoredImage, 0, len(s.Before)+len(s.After)+len(s.Upload))
	all = append(all, s.Before...)
	all = append(all, s.After...)
	all = append(all, s.Upload...)
	slices.SortStableFunc(all, func(a, b StoredImage) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return all
}

// Counts returns the number of images per role.
func (s ImageSet) Counts() slots.Counts {
	return slots.Counts{Before: len(s.Before), After: len(s.After), Upload: len(s.Upload)}
}

// Draft is a saved, resumable report.
type Draft struct {
	ID     string        `json:"id"`
	Record report.Record `json:"formData"`
	ImageSet
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DraftUpdate changes parts of a draft. Nil fields are left as they are.
type DraftUpdate struct {
	Record *report.Record
	Images *ImageSet
}

// Metrics are the lifetime report counters.
type Metrics struct {
	ReportsGenerated int       `json:"reportsGenerated"`
	ReportsShared    int       `json:"reportsShared"`
	LastGeneratedAt  time.Time `json:"lastPdfGenerated,omitzero"`
	LastSharedAt     time.Time `json:"lastShared,omitzero"`
	UpdatedAt        time.Time `json:"updatedAt,omitzero"`
}

// ActivityType classifies an entry of the recent activity feed.
type ActivityType string

const (
	ActivityPDFGenerated ActivityType = "pdf_generated"
	ActivityPDFShared    ActivityType = "pdf_shared"
	ActivityDraftSaved   ActivityType = "draft_saved"
	ActivityDraftUpdated ActivityType = "draft_updated"
	ActivityDraftDeleted ActivityType = "draft_deleted"
)

// Activity is one entry of the recent activity feed.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Filename    string       `json:"filename,omitempty"`
	CreatedAt   time.Time    `json:"timestamp"`
}
