// Package layout renders a maintenance record and its photos into a
// paginated PDF: cover with details, a two-column image grid and an end page.
package layout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/kozaktomas/fieldreport/internal/constants"
	"github.com/kozaktomas/fieldreport/internal/imaging"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/slots"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/errgroup"
)

// Assets are optional background images for the cover and end pages.
// A nil asset is replaced by a drawn background.
type Assets struct {
	Cover image.Image
	End   image.Image
}

// LoadAssets decodes the background images at the given paths. Empty paths
// are skipped.
func LoadAssets(coverPath, endPath string) (Assets, error) {
	var a Assets
	var err error
	if a.Cover, err = loadAsset(coverPath); err != nil {
		return a, fmt.Errorf("cover image: %w", err)
	}
	if a.End, err = loadAsset(endPath); err != nil {
		return a, fmt.Errorf("end image: %w", err)
	}
	return a, nil
}

func loadAsset(path string) (image.Image, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from local configuration
	if err != nil {
		return nil, err
	}
	return imaging.Decode(data)
}

// Options tune a single render.
type Options struct {
	Profile      imaging.Profile
	Concurrency  int           // images normalized in parallel per page
	ImageTimeout time.Duration // per image; slower images become placeholders
	// Progress, when set, is called after each image is normalized.
	// Calls are serialized.
	Progress func(done, total int)
}

// DefaultOptions returns the standard export options.
func DefaultOptions() Options {
	return Options{
		Profile:      imaging.Standard,
		Concurrency:  constants.RenderConcurrency,
		ImageTimeout: constants.ImageLoadTimeout,
	}
}

// Result is a rendered document.
type Result struct {
	PDF    []byte
	Report *ExportReport
}

// Engine renders documents. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	assets Assets
}

// NewEngine validates cfg and returns an engine.
func NewEngine(cfg Config, assets Assets) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if err := loadFonts(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, assets: assets}, nil
}

// Config returns the layout in use.
func (e *Engine) Config() Config {
	return e.cfg
}

// document collects encoded pages and the export report while rendering.
type document struct {
	quality int
	pages   [][]byte
	report  *ExportReport
}

func (doc *document) add(c *canvas, page ReportPage) error {
	data, err := c.encodeJPEG(doc.quality)
	if err != nil {
		return err
	}
	doc.pages = append(doc.pages, data)
	page.PageNumber = len(doc.pages)
	doc.report.Pages = append(doc.report.Pages, page)
	return nil
}

// Render lays out rec and the image sequence into a PDF. Images that fail
// to load are drawn as placeholders and listed in the report warnings.
// When ctx ends before the document is complete, Render returns ctx.Err()
// and no document.
func (e *Engine) Render(ctx context.Context, rec report.Record, seq []*slots.Image, opts Options) (*Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = constants.RenderConcurrency
	}
	if opts.Profile.MaxDimension == 0 {
		opts.Profile = imaging.Standard
	}

	images := Resolvable(seq)
	plan := PlanImagePages(images, e.cfg)

	tf, err := newTypeface(e.cfg.Page.PixelsPerUnit)
	if err != nil {
		return nil, err
	}
	defer tf.close()

	d := &pageDrawer{cfg: e.cfg, tf: tf, assets: e.assets}
	doc := &document{
		quality: e.cfg.Page.JPEGQuality,
		report:  &ExportReport{Title: rec.ShareTitle(), ImageCount: len(images)},
	}

	cover := newCanvas(e.cfg)
	d.coverBackground(cover)
	if !e.cfg.Details.SeparatePage {
		d.details(cover, rec)
	}
	if err := doc.add(cover, ReportPage{Kind: PageCover}); err != nil {
		return nil, err
	}
	if e.cfg.Details.SeparatePage {
		details := newCanvas(e.cfg)
		d.coverBackground(details)
		d.details(details, rec)
		if err := doc.add(details, ReportPage{Kind: PageDetails}); err != nil {
			return nil, err
		}
	}

	firstImagePage := len(doc.pages) + 1
	progress := newProgress(opts.Progress, len(images))
	for _, page := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loaded := e.loadPage(ctx, page, opts, progress)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c := newCanvas(e.cfg)
		rp := ReportPage{Kind: PageImages}
		for i, pl := range page.Placements {
			ri := ReportImage{
				ImageID: pl.Image.ID,
				Role:    pl.Image.Role,
				Column:  pl.Column,
				Caption: pl.Image.Caption != "",
			}
			if lerr := loaded[i].err; lerr != nil {
				log.Printf("WARNING: image %s drawn as placeholder: %v", pl.Image.ID, lerr)
				doc.report.Warnings = append(doc.report.Warnings, fmt.Sprintf("Image %d (%s) failed to load: %v", pl.Index+1, pl.Image.ID, lerr))
				doc.report.FailedCount++
				ri.Failed = true
				d.placeholder(c, pl.Rect)
			} else {
				d.container(c, pl, loaded[i].img)
			}
			rp.Images = append(rp.Images, ri)
		}
		if err := doc.add(c, rp); err != nil {
			return nil, err
		}
	}

	end := newCanvas(e.cfg)
	d.endPage(end)
	if err := doc.add(end, ReportPage{Kind: PageEnd}); err != nil {
		return nil, err
	}

	for _, vw := range ValidatePlan(plan, e.cfg, firstImagePage) {
		doc.report.Warnings = append(doc.report.Warnings,
			fmt.Sprintf("Layout: page %d image %d: %s", vw.PageNumber, vw.Index+1, vw.Message))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf, err := assemblePDF(doc.pages, e.cfg.Page)
	if err != nil {
		return nil, err
	}
	doc.report.PageCount = len(doc.pages)
	return &Result{PDF: pdf, Report: doc.report}, nil
}

type loadedImage struct {
	img image.Image
	err error
}

// loadPage normalizes every image of a page in parallel and waits for all
// of them. Failures are returned per image and never abort the page.
func (e *Engine) loadPage(ctx context.Context, page ImagePage, opts Options, progress *progress) []loadedImage {
	results := make([]loadedImage, len(page.Placements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, pl := range page.Placements {
		g.Go(func() error {
			results[i] = loadImage(gctx, pl.Image, opts)
			progress.step()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func loadImage(ctx context.Context, img *slots.Image, opts Options) loadedImage {
	data, err := imaging.NormalizeContext(ctx, img.ID, img.Source, opts.Profile, opts.ImageTimeout)
	if err != nil {
		return loadedImage{err: err}
	}
	decoded, err := imaging.Decode(data)
	if err != nil {
		return loadedImage{err: &imaging.ImageDecodeError{ImageID: img.ID, Err: err}}
	}
	return loadedImage{img: decoded}
}

type progress struct {
	mu    sync.Mutex
	fn    func(done, total int)
	done  int
	total int
}

func newProgress(fn func(done, total int), total int) *progress {
	return &progress{fn: fn, total: total}
}

func (p *progress) step() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.fn(p.done, p.total)
}

// pointsPerMM converts page units (millimetres) to PDF points.
const pointsPerMM = 72 / 25.4

// assemblePDF places each page image on its own page of the configured
// size (A4 by default), scaled to fill it.
func assemblePDF(pages [][]byte, page PageConfig) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errors.New("document has no pages")
	}
	readers := make([]io.Reader, len(pages))
	for i, p := range pages {
		readers[i] = bytes.NewReader(p)
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{Width: page.Width * pointsPerMM, Height: page.Height * pointsPerMM}
	imp.PageSize = ""
	imp.UserDim = true
	imp.Pos = types.Center
	imp.Scale = 1
	imp.ScaleAbs = false
	conf := model.NewDefaultConfiguration()

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, imp, conf); err != nil {
		return nil, fmt.Errorf("assemble pdf: %w", err)
	}
	return buf.Bytes(), nil
}
