// Package acquire brings photos into a report from the local file system.
package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrPermissionDenied is returned when the photo source may not be read.
	ErrPermissionDenied = errors.New("permission to access photos denied")
	// ErrNoImages is returned when a source yields no image at all.
	ErrNoImages = errors.New("no images found")
)

// Source provides photos for a report.
type Source interface {
	RequestPermission(ctx context.Context) (bool, error)
	PickImages(ctx context.Context) ([][]byte, error)
	CapturePhoto(ctx context.Context) ([]byte, error)
}

// FileSource picks images from files and directories. CapturePhoto takes
// the newest image in CaptureDir, the folder a camera or scanner drops
// its files into.
type FileSource struct {
	Paths      []string
	Recursive  bool
	CaptureDir string
}

var _ Source = (*FileSource)(nil)

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	supported := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
		".tiff": true,
		".tif":  true,
		".bmp":  true,
	}
	return supported[ext]
}

// IsImageContent sniffs the first bytes of a file. TIFF is not known to
// the content sniffer and is matched by its byte order mark.
func IsImageContent(data []byte) bool {
	if strings.HasPrefix(http.DetectContentType(data), "image/") {
		return true
	}
	return bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))
}

// RequestPermission reports whether every configured path can be read.
func (s *FileSource) RequestPermission(ctx context.Context) (bool, error) {
	paths := s.Paths
	if s.CaptureDir != "" {
		paths = append(paths[:len(paths):len(paths)], s.CaptureDir)
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		f, err := os.Open(p) //nolint:gosec // user-selected path
		if errors.Is(err, fs.ErrPermission) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("cannot access %s: %w", p, err)
		}
		_ = f.Close()
	}
	return true, nil
}

// PickImages reads every image under the configured paths. Directories are
// listed, recursively when Recursive is set; files that are not images are
// skipped.
func (s *FileSource) PickImages(ctx context.Context) ([][]byte, error) {
	if err := s.ensurePermission(ctx); err != nil {
		return nil, err
	}
	files, err := s.collect()
	if err != nil {
		return nil, err
	}

	var out [][]byte
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path) //nolint:gosec // user-selected path
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if !IsImageContent(data) {
			log.Printf("WARNING: skipping %s: not an image", path)
			continue
		}
		out = append(out, data)
	}
	if len(out) == 0 {
		return nil, ErrNoImages
	}
	return out, nil
}

// CapturePhoto returns the most recently modified image in CaptureDir.
func (s *FileSource) CapturePhoto(ctx context.Context) ([]byte, error) {
	if s.CaptureDir == "" {
		return nil, errors.New("no capture directory configured")
	}
	if err := s.ensurePermission(ctx); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.CaptureDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read folder %s: %w", s.CaptureDir, err)
	}

	var newest string
	var newestTime time.Time
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest, newestTime = e.Name(), info.ModTime()
		}
	}
	if newest == "" {
		return nil, ErrNoImages
	}
	data, err := os.ReadFile(filepath.Join(s.CaptureDir, newest))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", newest, err)
	}
	if !IsImageContent(data) {
		return nil, fmt.Errorf("%s is not an image", newest)
	}
	return data, nil
}

func (s *FileSource) ensurePermission(ctx context.Context) error {
	ok, err := s.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// collect expands the configured paths into image files, keeping the
// given order; directory entries are sorted by name.
func (s *FileSource) collect() ([]string, error) {
	var files []string
	for _, p := range s.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		if s.Recursive {
			err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isImageFile(d.Name()) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("cannot walk folder %s: %w", p, err)
			}
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read folder %s: %w", p, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isImageFile(entry.Name()) {
				files = append(files, filepath.Join(p, entry.Name()))
			}
		}
	}
	return files, nil
}
