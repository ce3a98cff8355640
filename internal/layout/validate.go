package layout

import "fmt"

// ValidationWarning describes a layout issue found during validation.
type ValidationWarning struct {
	PageNumber int
	Index      int
	Message    string
	Severity   string // "error" or "warning"
}

// ValidatePlan checks that every container stays inside the page margins
// and that no two containers on a page overlap. firstPage is the page
// number of the first image page.
func ValidatePlan(pages []ImagePage, cfg Config, firstPage int) []ValidationWarning {
	var warnings []ValidationWarning
	for i, page := range pages {
		warnings = append(warnings, validatePage(page, cfg, firstPage+i)...)
	}
	return warnings
}

func validatePage(page ImagePage, cfg Config, pageNumber int) []ValidationWarning {
	var warnings []ValidationWarning
	const eps = 0.01

	left := cfg.Grid.SideMargin
	right := cfg.Page.Width - cfg.Grid.SideMargin
	errorf := func(idx int, format string, args ...any) {
		warnings = append(warnings, ValidationWarning{
			PageNumber: pageNumber,
			Index:      idx,
			Message:    fmt.Sprintf(format, args...),
			Severity:   "error",
		})
	}

	for _, p := range page.Placements {
		r := p.Rect
		if r.X < left-eps {
			errorf(p.Index, "container X (%.2f) extends past left margin (%.2f)", r.X, left)
		}
		if r.Right() > right+eps {
			errorf(p.Index, "container right edge (%.2f) extends past right margin (%.2f)", r.Right(), right)
		}
		if r.Y < cfg.Grid.Top-eps {
			errorf(p.Index, "container top (%.2f) is above the grid top (%.2f)", r.Y, cfg.Grid.Top)
		}
		if r.Bottom() > cfg.ContentBottom()+eps {
			errorf(p.Index, "container bottom (%.2f) extends below bottom margin (%.2f)", r.Bottom(), cfg.ContentBottom())
		}
	}

	for i := range page.Placements {
		for j := i + 1; j < len(page.Placements); j++ {
			a, b := page.Placements[i], page.Placements[j]
			if a.Rect.Overlaps(b.Rect) {
				warnings = append(warnings, ValidationWarning{
					PageNumber: pageNumber,
					Index:      a.Index,
					Message:    fmt.Sprintf("container overlaps image %d", b.Index),
					Severity:   "warning",
				})
			}
		}
	}
	return warnings
}
