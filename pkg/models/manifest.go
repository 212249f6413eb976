package models

import "time"

// Manifest is the persisted record of one resolution.
type Manifest struct {
	ContentID   string           `json:"content_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Files       []FileDescriptor `json:"files"`
	Failures    []string         `json:"failures,omitempty"`
}
