package layout

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// pointsToUnit converts font points to millimetres.
const pointsToUnit = 25.4 / 72

// lineHeightFactor spaces wrapped lines of the details block.
const lineHeightFactor = 1.15

type align int

const (
	alignLeft align = iota
	alignCenter
)

var (
	fontsOnce   sync.Once
	regularFont *opentype.Font
	boldFont    *opentype.Font
	errFonts    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, errFonts = opentype.Parse(goregular.TTF)
		if errFonts != nil {
			errFonts = fmt.Errorf("parse regular font: %w", errFonts)
			return
		}
		boldFont, errFonts = opentype.Parse(gobold.TTF)
		if errFonts != nil {
			errFonts = fmt.Errorf("parse bold font: %w", errFonts)
		}
	})
	return errFonts
}

type faceKey struct {
	size float64
	bold bool
}

// typeface hands out font faces sized for one raster scale. Faces are not
// safe for concurrent use, so every render owns its typeface.
type typeface struct {
	scale float64
	faces map[faceKey]font.Face
}

func newTypeface(scale float64) (*typeface, error) {
	if err := loadFonts(); err != nil {
		return nil, err
	}
	return &typeface{scale: scale, faces: make(map[faceKey]font.Face)}, nil
}

func (t *typeface) face(size float64, bold bool) font.Face {
	key := faceKey{size, bold}
	if f, ok := t.faces[key]; ok {
		return f
	}
	src := regularFont
	if bold {
		src = boldFont
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     25.4 * t.scale,
		Hinting: font.HintingFull,
	})
	if err != nil {
		// Only invalid options fail here and the options are fixed.
		panic("failed to create font face: " + err.Error())
	}
	t.faces[key] = f
	return f
}

// measure returns the advance width of s in page units.
func (t *typeface) measure(s string, size float64, bold bool) float64 {
	adv := font.MeasureString(t.face(size, bold), s)
	return float64(adv) / 64 / t.scale
}

// capHeight returns the height of capital letters in page units.
func (t *typeface) capHeight(size float64, bold bool) float64 {
	m := t.face(size, bold).Metrics()
	if m.CapHeight > 0 {
		return float64(m.CapHeight) / 64 / t.scale
	}
	return float64(m.Ascent) / 64 / t.scale * 0.7
}

func (t *typeface) close() {
	for _, f := range t.faces {
		f.Close()
	}
}

// text draws s with its baseline at y. With alignCenter, x is the center.
func (c *canvas) text(t *typeface, s string, x, y, size float64, bold bool, col color.Color, a align) {
	if s == "" {
		return
	}
	if a == alignCenter {
		x -= t.measure(s, size, bold) / 2
	}
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: t.face(size, bold),
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * c.scale * 64), Y: fixed.Int26_6(y * c.scale * 64)},
	}
	d.DrawString(s)
}

// wrapText breaks text into lines no wider than maxWidth. Words that do not
// fit on a line of their own are split between characters.
func wrapText(text string, maxWidth float64, measure func(string) float64) []string {
	var lines []string
	for para := range strings.SplitSeq(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		line := ""
		for _, w := range words {
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if measure(candidate) <= maxWidth {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			for measure(w) > maxWidth && utf8.RuneCountInString(w) > 1 {
				head, rest := splitToFit(w, maxWidth, measure)
				lines = append(lines, head)
				w = rest
			}
			line = w
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitToFit returns the longest prefix of w that fits, at least one rune.
func splitToFit(w string, maxWidth float64, measure func(string) float64) (string, string) {
	end := 0
	for i := range w {
		if i > 0 && measure(w[:i]) > maxWidth {
			break
		}
		end = i
	}
	if end == 0 {
		_, size := utf8.DecodeRuneInString(w)
		end = size
	}
	return w[:end], w[end:]
}
