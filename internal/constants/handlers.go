// Package constants provides shared constants used across the codebase.
package constants

// Handler limits
const (
	// MaxUploadSize is the maximum size of a multipart image upload request
	MaxUploadSize = 64 << 20

	// MaxUploadMemory is the part of an upload kept in memory before spilling to disk
	MaxUploadMemory = 16 << 20

	// MaxRecordBodySize is the maximum size of a JSON request body
	MaxRecordBodySize = 1 << 20
)
