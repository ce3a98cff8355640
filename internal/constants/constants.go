// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Rendering constants
const (
	// ImageLoadTimeout bounds the normalization of a single image during export.
	// Images that take longer are drawn as a failure placeholder.
	ImageLoadTimeout = 5 * time.Second

	// RenderConcurrency is the default number of images normalized in parallel per page
	RenderConcurrency = 4
)

// Storage constants
const (
	// BusyTimeout is how long SQLite waits on a locked database before failing
	BusyTimeout = 5 * time.Second

	// BusyRetries is the number of retries for statements failing with SQLITE_BUSY
	BusyRetries = 5

	// DefaultActivityLimit is the number of activity entries shown by default
	DefaultActivityLimit = 20
)

// Session constants
const (
	// SessionDuration is how long an idle web session stays alive
	SessionDuration = 24 * time.Hour

	// SessionCleanupInterval is how often expired web sessions are swept
	SessionCleanupInterval = 15 * time.Minute
)
