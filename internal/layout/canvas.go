package layout

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

// Rect is a rectangle in page units with the origin at the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the X of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the Y of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Overlaps reports whether the two rectangles share any area.
func (r Rect) Overlaps(o Rect) bool {
	const eps = 0.01
	return r.X < o.Right()-eps && o.X < r.Right()-eps && r.Y < o.Bottom()-eps && o.Y < r.Bottom()-eps
}

// Inset shrinks the rectangle by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{r.X + d, r.Y + d, r.W - 2*d, r.H - 2*d}
}

// FitRect scales a w x h source into box keeping its aspect ratio and
// centers it.
func FitRect(w, h int, box Rect) Rect {
	if w <= 0 || h <= 0 {
		return box
	}
	ratio := min(box.W/float64(w), box.H/float64(h))
	dw, dh := float64(w)*ratio, float64(h)*ratio
	return Rect{
		X: box.X + (box.W-dw)/2,
		Y: box.Y + (box.H-dh)/2,
		W: dw,
		H: dh,
	}
}

// canvas rasterizes one page. All coordinates are in page units.
type canvas struct {
	img   *image.RGBA
	scale float64 // pixels per unit
}

func newCanvas(cfg Config) *canvas {
	w, h := cfg.PixelSize()
	c := &canvas{
		img:   image.NewRGBA(image.Rect(0, 0, w, h)),
		scale: cfg.Page.PixelsPerUnit,
	}
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return c
}

func (c *canvas) px(v float64) int {
	return int(math.Round(v * c.scale))
}

func (c *canvas) bounds(r Rect) image.Rectangle {
	return image.Rect(c.px(r.X), c.px(r.Y), c.px(r.Right()), c.px(r.Bottom())).Intersect(c.img.Bounds())
}

func (c *canvas) fill(r Rect, col color.Color) {
	draw.Draw(c.img, c.bounds(r), image.NewUniform(col), image.Point{}, draw.Over)
}

// gradient fills the whole page from top to bottom.
func (c *canvas) gradient(top, bottom Color) {
	b := c.img.Bounds()
	h := max(b.Dy()-1, 1)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := float64(y-b.Min.Y) / float64(h)
		col := color.RGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 255,
		}
		draw.Draw(c.img, image.Rect(b.Min.X, y, b.Max.X, y+1), image.NewUniform(col), image.Point{}, draw.Src)
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func (c *canvas) fillRounded(r Rect, radius float64, col color.Color) {
	m := &roundedMask{outer: c.roundRect(r, radius)}
	draw.DrawMask(c.img, m.Bounds(), image.NewUniform(col), image.Point{}, m, m.Bounds().Min, draw.Over)
}

// strokeRounded draws a rounded outline centered on the edge of r.
func (c *canvas) strokeRounded(r Rect, radius, width float64, col color.Color) {
	half := width / 2
	outer := Rect{r.X - half, r.Y - half, r.W + width, r.H + width}
	inner := r.Inset(half)
	innerShape := c.roundRect(inner, max(radius-half, 0))
	m := &roundedMask{outer: c.roundRect(outer, radius+half), inner: &innerShape}
	draw.DrawMask(c.img, m.Bounds(), image.NewUniform(col), image.Point{}, m, m.Bounds().Min, draw.Over)
}

// drawImage scales src into r.
func (c *canvas) drawImage(src image.Image, r Rect) {
	draw.ApproxBiLinear.Scale(c.img, c.bounds(r), src, src.Bounds(), draw.Over, nil)
}

// cover fills the page with src, cropping the overflow.
func (c *canvas) cover(src image.Image) {
	sb := src.Bounds()
	pb := c.img.Bounds()
	ratio := max(float64(pb.Dx())/float64(sb.Dx()), float64(pb.Dy())/float64(sb.Dy()))
	cw := int(float64(pb.Dx()) / ratio)
	ch := int(float64(pb.Dy()) / ratio)
	x0 := sb.Min.X + (sb.Dx()-cw)/2
	y0 := sb.Min.Y + (sb.Dy()-ch)/2
	draw.ApproxBiLinear.Scale(c.img, pb, src, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)
}

func (c *canvas) encodeJPEG(quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	return buf.Bytes(), nil
}

// shape is a rounded rectangle in pixel space.
type shape struct {
	x0, y0, x1, y1 float64
	r              float64
}

func (c *canvas) roundRect(r Rect, radius float64) shape {
	s := shape{
		x0: r.X * c.scale,
		y0: r.Y * c.scale,
		x1: r.Right() * c.scale,
		y1: r.Bottom() * c.scale,
		r:  radius * c.scale,
	}
	s.r = min(s.r, (s.x1-s.x0)/2, (s.y1-s.y0)/2)
	return s
}

func (s shape) contains(x, y float64) bool {
	if x < s.x0 || x > s.x1 || y < s.y0 || y > s.y1 {
		return false
	}
	cx := math.Min(math.Max(x, s.x0+s.r), s.x1-s.r)
	cy := math.Min(math.Max(y, s.y0+s.r), s.y1-s.r)
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= s.r*s.r
}

// roundedMask is an alpha mask covering outer minus inner, sampled 2x2 per
// pixel for smooth edges.
type roundedMask struct {
	outer shape
	inner *shape
}

func (m *roundedMask) ColorModel() color.Model { return color.AlphaModel }

func (m *roundedMask) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(m.outer.x0)), int(math.Floor(m.outer.y0)),
		int(math.Ceil(m.outer.x1)), int(math.Ceil(m.outer.y1)),
	)
}

func (m *roundedMask) At(x, y int) color.Color {
	hits := 0
	for _, oy := range [2]float64{0.25, 0.75} {
		for _, ox := range [2]float64{0.25, 0.75} {
			sx, sy := float64(x)+ox, float64(y)+oy
			if m.outer.contains(sx, sy) && (m.inner == nil || !m.inner.contains(sx, sy)) {
				hits++
			}
		}
	}
	return color.Alpha{A: uint8(hits * 255 / 4)}
}
