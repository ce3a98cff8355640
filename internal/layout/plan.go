package layout

import (
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// Column is the grid column of an image.
type Column string

const (
	ColumnLeft  Column = "left"
	ColumnRight Column = "right"
)

// Placement puts one image into a grid container.
type Placement struct {
	Index  int // position in the resolvable image list
	Image  *slots.Image
	Column Column
	Rect   Rect
}

// ImagePage is one page of the image grid.
type ImagePage struct {
	Placements []Placement
}

// Resolvable drops empty slots and images without bytes, keeping order.
func Resolvable(seq []*slots.Image) []*slots.Image {
	var out []*slots.Image
	for _, img := range seq {
		if img.Resolvable() {
			out = append(out, img)
		}
	}
	return out
}

// sideBySide reports whether two consecutive images share a grid row:
// two uploads, or a before image followed by an after image.
func sideBySide(cur, next *slots.Image) bool {
	if cur.Role == slots.RoleUpload && next.Role == slots.RoleUpload {
		return true
	}
	return cur.Role == slots.RoleBefore && next.Role == slots.RoleAfter
}

// PlanImagePages assigns images to grid containers. A row holds a pair of
// images when sideBySide allows it, otherwise a single image on the left.
// A new page starts whenever the next row would cross the bottom margin.
func PlanImagePages(images []*slots.Image, cfg Config) []ImagePage {
	if len(images) == 0 {
		return nil
	}
	g := cfg.Grid
	pages := []ImagePage{{}}
	y := g.Top
	for i := 0; i < len(images); {
		if y+g.ContainerHeight > cfg.ContentBottom() {
			pages = append(pages, ImagePage{})
			y = g.Top
		}
		page := &pages[len(pages)-1]
		page.Placements = append(page.Placements, Placement{
			Index:  i,
			Image:  images[i],
			Column: ColumnLeft,
			Rect:   Rect{cfg.LeftX(), y, g.ContainerWidth, g.ContainerHeight},
		})
		if i+1 < len(images) && sideBySide(images[i], images[i+1]) {
			page.Placements = append(page.Placements, Placement{
				Index:  i + 1,
				Image:  images[i+1],
				Column: ColumnRight,
				Rect:   Rect{cfg.RightX(), y, g.ContainerWidth, g.ContainerHeight},
			})
			i += 2
		} else {
			i++
		}
		y += g.ContainerHeight + g.Gap
	}
	return pages
}

// detailLine is one row of the details block after wrapping.
type detailLine struct {
	Label  string
	Values []string
	Top    float64
}

// planDetails wraps values and stacks the rows. Rows keep a fixed height
// unless DynamicRowHeight is set.
func planDetails(rows []report.DetailRow, cfg Config, measure func(string) float64) ([]detailLine, float64) {
	d := cfg.Details
	lineGap := d.FontSize * pointsToUnit * lineHeightFactor
	y := d.StartY
	lines := make([]detailLine, 0, len(rows))
	for _, row := range rows {
		values := wrapText(row.Value, cfg.ValueWidth(), measure)
		lines = append(lines, detailLine{Label: row.Label, Values: values, Top: y})
		height := d.RowHeight
		if d.DynamicRowHeight && len(values) > 1 {
			height += float64(len(values)-1) * lineGap
		}
		y += height
	}
	return lines, y
}
