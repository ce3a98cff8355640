package layout

import "github.com/kozaktomas/fieldreport/internal/slots"

// Page kinds in the export report.
const (
	PageCover   = "cover"
	PageDetails = "details"
	PageImages  = "images"
	PageEnd     = "end"
)

// ExportReport describes a rendered document for diagnostics.
type ExportReport struct {
	Title       string       `json:"title"`
	PageCount   int          `json:"page_count"`
	ImageCount  int          `json:"image_count"`
	FailedCount int          `json:"failed_count"`
	Pages       []ReportPage `json:"pages"`
	Warnings    []string     `json:"warnings"`
}

// ReportPage describes a single page.
type ReportPage struct {
	PageNumber int           `json:"page_number"`
	Kind       string        `json:"kind"`
	Images     []ReportImage `json:"images,omitempty"`
}

// ReportImage describes a single image placement.
type ReportImage struct {
	ImageID string     `json:"image_id"`
	Role    slots.Role `json:"role"`
	Column  Column     `json:"column"`
	Caption bool       `json:"caption"`
	Failed  bool       `json:"failed"`
}
