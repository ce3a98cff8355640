// Package imaging decodes captured photos, bounds their resolution and
// re-encodes them as JPEG.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxSourcePixels bounds the pixel count of a decodable source.
const MaxSourcePixels = 128 << 20

var (
	// ErrEmptySource is returned for images without any bytes.
	ErrEmptySource = errors.New("empty image source")
	// ErrTooLarge is returned for sources above MaxSourcePixels.
	ErrTooLarge = errors.New("image too large")
)

// Profile is a named resolution/quality tradeoff.
type Profile struct {
	Name         string
	MaxDimension int // bound for the longest side, in pixels
	Quality      int // JPEG quality 1-100
	scaler       draw.Scaler
}

var (
	// High keeps detail for persisted drafts and high quality exports.
	High = Profile{Name: "high", MaxDimension: 1200, Quality: 85, scaler: draw.CatmullRom}
	// Standard is the default export profile.
	Standard = Profile{Name: "standard", MaxDimension: 600, Quality: 50, scaler: draw.BiLinear}
)

// ParseProfile returns the profile with the given name.
func ParseProfile(name string) (Profile, error) {
	switch name {
	case High.Name:
		return High, nil
	case Standard.Name, "":
		return Standard, nil
	default:
		return Profile{}, fmt.Errorf("unknown quality profile %q (expected high or standard)", name)
	}
}

// ImageDecodeError reports a single image that could not be normalized.
type ImageDecodeError struct {
	ImageID string
	Err     error
}

func (e *ImageDecodeError) Error() string {
	if e.ImageID == "" {
		return fmt.Sprintf("decode image: %v", e.Err)
	}
	return fmt.Sprintf("decode image %s: %v", e.ImageID, e.Err)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Err
}

// FitWithin scales w x h down to fit a maxDim square, keeping the aspect
// ratio. Dimensions are floored and never grow.
func FitWithin(w, h, maxDim int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		return maxDim, max(h*maxDim/w, 1)
	}
	return max(w*maxDim/h, 1), maxDim
}

// Decode decodes any of the registered formats. The header is checked
// first so oversized sources are refused before their pixels are allocated.
func Decode(src []byte) (image.Image, error) {
	if len(src) == 0 {
		return nil, ErrEmptySource
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Resample bounds img to the profile and flattens it onto white.
func Resample(img image.Image, p Profile) *image.RGBA {
	bounds := img.Bounds()
	w, h := FitWithin(bounds.Dx(), bounds.Dy(), p.MaxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	scaler := p.scaler
	if scaler == nil {
		scaler = draw.BiLinear
	}
	scaler.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// Normalize decodes src, bounds it to the profile and encodes it as JPEG.
func Normalize(src []byte, p Profile) ([]byte, error) {
	img, err := Decode(src)
	if err != nil {
		return nil, &ImageDecodeError{Err: err}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Resample(img, p), &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, &ImageDecodeError{Err: fmt.Errorf("failed to encode image: %w", err)}
	}
	return buf.Bytes(), nil
}

// NormalizeContext runs Normalize but gives up after timeout or when ctx ends.
// Every failure is an *ImageDecodeError carrying id.
func NormalizeContext(ctx context.Context, id string, src []byte, p Profile, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := expired(ctx); err != nil {
		return nil, &ImageDecodeError{ImageID: id, Err: err}
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := Normalize(src, p)
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, &ImageDecodeError{ImageID: id, Err: ctx.Err()}
	case r := <-done:
		if err := expired(ctx); err != nil {
			return nil, &ImageDecodeError{ImageID: id, Err: err}
		}
		if r.err != nil {
			var de *ImageDecodeError
			if errors.As(r.err, &de) {
				return nil, &ImageDecodeError{ImageID: id, Err: de.Err}
			}
			return nil, &ImageDecodeError{ImageID: id, Err: r.err}
		}
		return r.data, nil
	}
}

// expired reports ctx's error, or DeadlineExceeded once the deadline has
// passed even if the timer has not fired yet.
func expired(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}
