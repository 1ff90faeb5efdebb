package models

import (
	"strings"
	"time"
)

// Thread groups comments under a single page URI. Threads are created lazily
// on the first submission or count query for a URI and are never
// status-mutated afterwards.
type Thread struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// URI is stored in canonical form: leading slash, no trailing slash.
	URI      string    `gorm:"not null;uniqueIndex" json:"uri"`
	Title    *string   `json:"title,omitempty"`
	URL      *string   `json:"url,omitempty"`
	Comments []Comment `gorm:"foreignKey:ThreadID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeURI converts a raw URI into its canonical form. Idempotent:
// "test", "/test/" and "//test//" all map to "/test".
func NormalizeURI(uri string) string {
	return "/" + strings.Trim(uri, "/")
}
