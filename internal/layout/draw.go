package layout

import (
	"image"

	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// pageDrawer draws the pages of one document.
type pageDrawer struct {
	cfg    Config
	tf     *typeface
	assets Assets
}

func (d *pageDrawer) coverBackground(c *canvas) {
	if d.assets.Cover != nil {
		c.cover(d.assets.Cover)
		return
	}
	cv := d.cfg.Cover
	c.gradient(cv.BackgroundTop, cv.BackgroundBottom)
	c.fill(Rect{0, cv.TitleY - 25, d.cfg.Page.Width, 3}, cv.Accent.NRGBA())
	c.text(d.tf, cv.Title, d.cfg.Page.Width/2, cv.TitleY, cv.TitleSize, true, d.cfg.Details.Color.NRGBA(), alignCenter)
	c.text(d.tf, cv.Subtitle, d.cfg.Page.Width/2, cv.TitleY+14, cv.SubtitleSize, false, d.cfg.Details.Color.NRGBA(), alignCenter)
}

// details draws the overlay panel and the six label/value rows.
func (d *pageDrawer) details(c *canvas, rec report.Record) {
	det := d.cfg.Details
	measure := func(s string) float64 { return d.tf.measure(s, det.FontSize, true) }

	upper := cases.Upper(language.English)
	rows := rec.DetailRows()
	for i := range rows {
		rows[i].Value = upper.String(rows[i].Value)
	}
	lines, bottom := planDetails(rows, d.cfg, measure)

	pad := d.cfg.Cover.OverlayPadding
	overlay := Rect{
		X: det.LabelX - pad/2,
		Y: det.StartY - pad,
		W: d.cfg.Page.Width - det.RightMargin - det.LabelX + pad,
		H: bottom - det.StartY + pad,
	}
	c.fillRounded(overlay, 2, d.cfg.Cover.Overlay.NRGBA())

	col := det.Color.NRGBA()
	lineGap := det.FontSize * pointsToUnit * lineHeightFactor
	for _, l := range lines {
		baseline := l.Top + det.TextOffset
		c.text(d.tf, l.Label, det.LabelX, baseline, det.FontSize, true, col, alignLeft)
		c.text(d.tf, ":", det.ColonX, baseline, det.FontSize, true, col, alignCenter)
		for i, v := range l.Values {
			c.text(d.tf, v, det.ValueX, baseline+float64(i)*lineGap, det.FontSize, true, col, alignLeft)
		}
	}
}

func (d *pageDrawer) endPage(c *canvas) {
	if d.assets.End != nil {
		c.cover(d.assets.End)
		return
	}
	e := d.cfg.End
	c.gradient(e.BackgroundTop, e.BackgroundBottom)
	c.text(d.tf, e.Title, d.cfg.Page.Width/2, d.cfg.Page.Height/2, e.TitleSize, true, d.cfg.Details.Color.NRGBA(), alignCenter)
}

// containerFrame holds the rectangles of one drawn container.
type containerFrame struct {
	Photo Rect // fitted image, centered in the cell
	Frame Rect // border, always the full cell
	Badge Rect // role badge in the cell's top-left corner
}

func (cfg Config) frameFor(pl Placement, w, h int) containerFrame {
	bc := cfg.Badge
	return containerFrame{
		Photo: FitRect(w, h, pl.Rect),
		Frame: pl.Rect,
		Badge: Rect{pl.Rect.X + bc.Offset, pl.Rect.Y + bc.Offset, bc.Width, bc.Height},
	}
}

// container draws one image with its frame, badge and caption.
func (d *pageDrawer) container(c *canvas, pl Placement, img image.Image) {
	b := img.Bounds()
	f := d.cfg.frameFor(pl, b.Dx(), b.Dy())

	c.fill(f.Frame, d.cfg.Image.Background.NRGBA())
	c.drawImage(img, f.Photo)
	c.strokeRounded(f.Frame, d.cfg.Image.BorderRadius, d.cfg.Image.BorderWidth, d.cfg.Image.BorderColor.NRGBA())

	d.badge(c, pl.Image.Role, f.Badge)
	d.caption(c, pl.Image.Caption, pl.Rect)
}

func (d *pageDrawer) badge(c *canvas, role slots.Role, r Rect) {
	bc := d.cfg.Badge
	var fill Color
	switch role {
	case slots.RoleBefore:
		fill = bc.Before
	case slots.RoleAfter:
		fill = bc.After
	default:
		return
	}
	c.fillRounded(r, bc.Radius, fill.NRGBA())
	baseline := r.Y + r.H/2 + d.tf.capHeight(bc.FontSize, true)/2
	c.text(d.tf, role.Label(), r.X+r.W/2, baseline, bc.FontSize, true, bc.Text.NRGBA(), alignCenter)
}

// caption anchors a panel above the bottom of the container, sized to the
// wrapped caption.
func (d *pageDrawer) caption(c *canvas, text string, box Rect) {
	cc := d.cfg.Caption
	lines := wrapText(text, cc.WrapWidth, func(s string) float64 { return d.tf.measure(s, cc.FontSize, false) })
	if len(lines) == 0 {
		return
	}
	h := float64(len(lines)) * cc.LineHeight
	panel := Rect{
		X: box.X + (box.W-cc.Width)/2,
		Y: box.Bottom() - h - cc.BottomOffset,
		W: cc.Width,
		H: h,
	}
	c.fillRounded(panel, cc.Radius, cc.Background.NRGBA())
	for i, line := range lines {
		baseline := panel.Y + cc.FirstBaseline + float64(i)*cc.LineHeight
		c.text(d.tf, line, panel.X+panel.W/2, baseline, cc.FontSize, false, cc.Text.NRGBA(), alignCenter)
	}
}

// placeholder marks a container whose image could not be loaded.
func (d *pageDrawer) placeholder(c *canvas, box Rect) {
	p := d.cfg.Placeholder
	c.fill(box, p.Fill.NRGBA())
	baseline := box.Y + box.H/2 + d.tf.capHeight(p.FontSize, false)/2
	c.text(d.tf, p.Label, box.X+box.W/2, baseline, p.FontSize, false, p.Text.NRGBA(), alignCenter)
}
