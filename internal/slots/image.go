// Package slots keeps the ordered image sequence of a report: before/after
// pairs followed by free uploads.
package slots

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role classifies an image inside a report.
type Role string

const (
	RoleBefore Role = "before"
	RoleAfter  Role = "after"
	RoleUpload Role = "upload"
)

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleBefore:
		return RoleBefore, nil
	case RoleAfter:
		return RoleAfter, nil
	case RoleUpload, "":
		return RoleUpload, nil
	default:
		return "", fmt.Errorf("unknown image role %q (expected before, after or upload)", s)
	}
}

// Label returns the badge text drawn on the image, empty for uploads.
func (r Role) Label() string {
	switch r {
	case RoleBefore:
		return "BEFORE"
	case RoleAfter:
		return "AFTER"
	default:
		return ""
	}
}

// Image is a single captured or picked photo.
type Image struct {
	ID         string `json:"id"`
	Source     []byte `json:"-"`
	Role       Role   `json:"role"`
	Caption    string `json:"caption,omitempty"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

// NewImage wraps raw bytes into an Image with a fresh ID.
func NewImage(src []byte, role Role) *Image {
	return &Image{
		ID:     uuid.NewString(),
		Source: src,
		Role:   role,
	}
}

// Resolvable reports whether the image has bytes to render.
func (img *Image) Resolvable() bool {
	return img != nil && len(img.Source) > 0
}

// Rejection counts "after" images that found no open "before" slot.
type Rejection struct {
	Count int `json:"count"`
}

// Add merges two rejection tallies.
func (r Rejection) Add(other Rejection) Rejection {
	return Rejection{Count: r.Count + other.Count}
}

// Rejected reports whether any image was rejected.
func (r Rejection) Rejected() bool {
	return r.Count > 0
}

// Message returns a user-facing summary, empty when nothing was rejected.
func (r Rejection) Message() string {
	if r.Count <= 0 {
		return ""
	}
	return fmt.Sprintf("%d after image(s) could not be paired.", r.Count)
}
