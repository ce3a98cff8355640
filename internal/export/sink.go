package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sink delivers finished documents.
type Sink interface {
	// SaveToDevice stores the document and returns where it was written
	SaveToDevice(ctx context.Context, data []byte, filename string) (string, error)
	// Share hands the document to a share target
	Share(ctx context.Context, data []byte, filename, title string) error
	// Download offers the document as a download
	Download(ctx context.Context, data []byte, filename string) error
}

// SinkError reports a failed delivery. The document stays available for
// a retry.
type SinkError struct {
	Op       string
	Filename string
	Err      error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Filename, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// ShareManifest describes a document placed in the share outbox.
type ShareManifest struct {
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Size      int       `json:"size"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

// DirSink delivers documents into local directories: saved documents,
// a share outbox where every PDF is accompanied by a JSON manifest, and
// downloads.
type DirSink struct {
	DocumentsDir string
	OutboxDir    string
	DownloadsDir string
	now          func() time.Time
}

// NewDirSink returns a sink rooted at dir with documents/, outbox/ and
// downloads/ subdirectories.
func NewDirSink(dir string) *DirSink {
	return &DirSink{
		DocumentsDir: filepath.Join(dir, "documents"),
		OutboxDir:    filepath.Join(dir, "outbox"),
		DownloadsDir: filepath.Join(dir, "downloads"),
		now:          time.Now,
	}
}

// SaveToDevice writes the document into the documents directory.
func (s *DirSink) SaveToDevice(ctx context.Context, data []byte, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return writeFile(s.DocumentsDir, filename, data)
}

// Share writes the document and its manifest into the outbox.
func (s *DirSink) Share(ctx context.Context, data []byte, filename, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := writeFile(s.OutboxDir, filename, data); err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	manifest, err := json.MarshalIndent(ShareManifest{
		Filename:  filename,
		Title:     title,
		Size:      len(data),
		SHA256:    hex.EncodeToString(sum[:]),
		CreatedAt: s.now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode share manifest: %w", err)
	}
	name := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".json"
	_, err = writeFile(s.OutboxDir, name, manifest)
	return err
}

// Download writes the document into the downloads directory.
func (s *DirSink) Download(ctx context.Context, data []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := writeFile(s.DownloadsDir, filename, data)
	return err
}

// writeFile writes data next to its final name and renames it into place,
// so readers never see a partial document.
func writeFile(dir, filename string, data []byte) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filename+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", filename, err)
	}
	path := filepath.Join(dir, filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move %s into place: %w", filename, err)
	}
	return path, nil
}
