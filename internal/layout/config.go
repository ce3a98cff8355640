package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed layout.yaml
var defaultLayoutYAML []byte

// Color is an RGB or RGBA color written as a YAML sequence.
type Color struct {
	R, G, B, A uint8
}

// UnmarshalYAML accepts [r, g, b] or [r, g, b, a].
func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	var parts []int
	if err := value.Decode(&parts); err != nil {
		return fmt.Errorf("color: %w", err)
	}
	if len(parts) != 3 && len(parts) != 4 {
		return fmt.Errorf("color needs 3 or 4 components, got %d", len(parts))
	}
	for _, p := range parts {
		if p < 0 || p > 255 {
			return fmt.Errorf("color component %d out of range", p)
		}
	}
	*c = Color{uint8(parts[0]), uint8(parts[1]), uint8(parts[2]), 255}
	if len(parts) == 4 {
		c.A = uint8(parts[3])
	}
	return nil
}

// NRGBA converts to the stdlib color type.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// PageConfig is the page size and raster resolution.
type PageConfig struct {
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"`
	PixelsPerUnit float64 `yaml:"pixels_per_unit"`
	JPEGQuality   int     `yaml:"jpeg_quality"`
}

// CoverConfig styles the procedural cover background.
type CoverConfig struct {
	Title            string  `yaml:"title"`
	TitleY           float64 `yaml:"title_y"`
	TitleSize        float64 `yaml:"title_size"`
	Subtitle         string  `yaml:"subtitle"`
	SubtitleSize     float64 `yaml:"subtitle_size"`
	BackgroundTop    Color   `yaml:"background_top"`
	BackgroundBottom Color   `yaml:"background_bottom"`
	Accent           Color   `yaml:"accent"`
	Overlay          Color   `yaml:"overlay"`
	OverlayPadding   float64 `yaml:"overlay_padding"`
}

// DetailsConfig places the six label/value rows.
type DetailsConfig struct {
	StartY      float64 `yaml:"start_y"`
	RowHeight   float64 `yaml:"row_height"`
	TextOffset  float64 `yaml:"text_offset"` // baseline below the row top
	LabelX      float64 `yaml:"label_x"`
	ColonX      float64 `yaml:"colon_x"` // colon is centered here
	ValueX      float64 `yaml:"value_x"`
	RightMargin float64 `yaml:"right_margin"`
	FontSize    float64 `yaml:"font_size"`
	Color       Color   `yaml:"color"`
	// DynamicRowHeight grows a row by its wrapped line count. When false,
	// long values may overlap the next row.
	DynamicRowHeight bool `yaml:"dynamic_row_height"`
	// SeparatePage draws the details on their own page after the cover.
	SeparatePage bool `yaml:"separate_page"`
}

// GridConfig is the two-column image grid.
type GridConfig struct {
	ContainerWidth  float64 `yaml:"container_width"`
	ContainerHeight float64 `yaml:"container_height"`
	Gap             float64 `yaml:"gap"`
	Top             float64 `yaml:"top"`
	BottomMargin    float64 `yaml:"bottom_margin"`
	SideMargin      float64 `yaml:"side_margin"`
}

// ImageConfig styles the frame around each photo.
type ImageConfig struct {
	BorderWidth  float64 `yaml:"border_width"`
	BorderRadius float64 `yaml:"border_radius"`
	BorderColor  Color   `yaml:"border_color"`
	Background   Color   `yaml:"background"`
}

// BadgeConfig styles the role badge.
type BadgeConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Offset   float64 `yaml:"offset"`
	Radius   float64 `yaml:"radius"`
	FontSize float64 `yaml:"font_size"`
	Before   Color   `yaml:"before"`
	After    Color   `yaml:"after"`
	Text     Color   `yaml:"text"`
}

// CaptionConfig styles the caption panel.
type CaptionConfig struct {
	Width         float64 `yaml:"width"`
	WrapWidth     float64 `yaml:"wrap_width"`
	LineHeight    float64 `yaml:"line_height"`
	FirstBaseline float64 `yaml:"first_baseline"`
	BottomOffset  float64 `yaml:"bottom_offset"`
	Radius        float64 `yaml:"radius"`
	FontSize      float64 `yaml:"font_size"`
	Background    Color   `yaml:"background"`
	Text          Color   `yaml:"text"`
}

// PlaceholderConfig styles the block drawn for images that failed to load.
type PlaceholderConfig struct {
	Fill     Color   `yaml:"fill"`
	Text     Color   `yaml:"text"`
	Label    string  `yaml:"label"`
	FontSize float64 `yaml:"font_size"`
}

// EndConfig styles the procedural end page.
type EndConfig struct {
	Title            string  `yaml:"title"`
	TitleSize        float64 `yaml:"title_size"`
	BackgroundTop    Color   `yaml:"background_top"`
	BackgroundBottom Color   `yaml:"background_bottom"`
}

// Config holds every layout constant of the document.
type Config struct {
	Page        PageConfig        `yaml:"page"`
	Cover       CoverConfig       `yaml:"cover"`
	Details     DetailsConfig     `yaml:"details"`
	Grid        GridConfig        `yaml:"grid"`
	Image       ImageConfig       `yaml:"image"`
	Badge       BadgeConfig       `yaml:"badge"`
	Caption     CaptionConfig     `yaml:"caption"`
	Placeholder PlaceholderConfig `yaml:"placeholder"`
	End         EndConfig         `yaml:"end"`
}

// DefaultConfig returns the embedded layout.
func DefaultConfig() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultLayoutYAML, &cfg); err != nil {
		// The file is embedded, so this only fails on a broken build.
		panic("failed to unmarshal embedded layout.yaml: " + err.Error())
	}
	return cfg
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from local configuration
	if err != nil {
		return cfg, fmt.Errorf("read layout file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse layout file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("layout file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects geometry that cannot produce a page.
func (c Config) Validate() error {
	var errs []error
	if c.Page.Width <= 0 || c.Page.Height <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Page.PixelsPerUnit <= 0 {
		errs = append(errs, errors.New("pixels_per_unit must be positive"))
	}
	if c.Page.JPEGQuality < 1 || c.Page.JPEGQuality > 100 {
		errs = append(errs, errors.New("jpeg_quality must be between 1 and 100"))
	}
	if c.Grid.ContainerWidth <= 0 || c.Grid.ContainerHeight <= 0 {
		errs = append(errs, errors.New("grid containers must have a positive size"))
	}
	if c.Grid.Top+c.Grid.ContainerHeight > c.ContentBottom() {
		errs = append(errs, errors.New("a single grid row does not fit between top and bottom margin"))
	}
	if c.Details.RowHeight <= 0 {
		errs = append(errs, errors.New("details row_height must be positive"))
	}
	return errors.Join(errs...)
}

// ContentBottom is the lowest Y an image container may reach.
func (c Config) ContentBottom() float64 {
	return c.Page.Height - c.Grid.BottomMargin
}

// LeftX is the X of the left column; both columns are centered on the page.
func (c Config) LeftX() float64 {
	return (c.Page.Width - 2*c.Grid.ContainerWidth - c.Grid.Gap) / 2
}

// RightX is the X of the right column.
func (c Config) RightX() float64 {
	return c.LeftX() + c.Grid.ContainerWidth + c.Grid.Gap
}

// ValueWidth is the wrap width of detail values.
func (c Config) ValueWidth() float64 {
	return c.Page.Width - c.Details.RightMargin - c.Details.ValueX
}

// RowsPerPage is how many grid rows fit on an image page.
func (c Config) RowsPerPage() int {
	n := 0
	for y := c.Grid.Top; y+c.Grid.ContainerHeight <= c.ContentBottom(); y += c.Grid.ContainerHeight + c.Grid.Gap {
		n++
	}
	return n
}

// PixelSize returns the raster size of a page.
func (c Config) PixelSize() (int, int) {
	return int(c.Page.Width*c.Page.PixelsPerUnit + 0.5), int(c.Page.Height*c.Page.PixelsPerUnit + 0.5)
}
