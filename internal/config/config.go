package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/fieldreport/internal/constants"
)

type Config struct {
	Store  StoreConfig
	Export ExportConfig
	Layout LayoutConfig
	Web    WebConfig
}

type StoreConfig struct {
	Path string // SQLite file holding drafts, metrics and activity
}

type ExportConfig struct {
	Dir          string        // root of the documents, outbox and downloads folders
	Quality      string        // "standard" or "high"
	Concurrency  int           // images normalized in parallel
	ImageTimeout time.Duration // per image, before it is drawn as a placeholder
}

type LayoutConfig struct {
	File          string  // optional YAML overriding the embedded layout
	CoverImage    string  // optional cover background
	EndImage      string  // optional end page background
	PixelsPerUnit float64 // raster resolution override, 0 keeps the layout value
}

type WebConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string // CORS origins besides localhost
	SessionSecret  string   // signs session cookies
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for positive floats.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a Go duration such as "5s". Plain integers are seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// defaultDataDir is where the store lives when FIELDREPORT_DB_PATH is unset.
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "fieldreport")
	}
	return "."
}

func defaultExportDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "FieldReports")
	}
	return "reports"
}

func Load() *Config {
	return &Config{
		Store: StoreConfig{
			Path: envString("FIELDREPORT_DB_PATH", filepath.Join(defaultDataDir(), "fieldreport.db")),
		},
		Export: ExportConfig{
			Dir:          envString("FIELDREPORT_EXPORT_DIR", defaultExportDir()),
			Quality:      envString("FIELDREPORT_QUALITY", "standard"),
			Concurrency:  envInt("FIELDREPORT_CONCURRENCY", constants.RenderConcurrency),
			ImageTimeout: envDuration("FIELDREPORT_IMAGE_TIMEOUT", constants.ImageLoadTimeout),
		},
		Layout: LayoutConfig{
			File:          os.Getenv("FIELDREPORT_LAYOUT_FILE"),
			CoverImage:    os.Getenv("FIELDREPORT_COVER_IMAGE"),
			EndImage:      os.Getenv("FIELDREPORT_END_IMAGE"),
			PixelsPerUnit: envFloat("FIELDREPORT_PIXELS_PER_UNIT", 0),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8085),
			Host:           envString("WEB_HOST", "127.0.0.1"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
		},
	}
}
