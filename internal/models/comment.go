// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment statuses. A comment enters the system as pending (unless
// auto-approve is configured) and moves between states via moderation.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusSpam     = "spam"
	StatusDeleted  = "deleted"
)

// Comment represents a single comment on a thread. Comments form a tree via
// ParentID; a parent is always persisted before its replies.
type Comment struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	ThreadID uint     `gorm:"not null;index" json:"thread_id"`
	Thread   *Thread  `gorm:"foreignKey:ThreadID" json:"-"`
	ParentID *uint    `gorm:"index" json:"parent_id,omitempty"`
	Parent   *Comment `gorm:"foreignKey:ParentID" json:"-"`

	// BodyMarkdown and BodyHTML are always written together; BodyHTML is the
	// sanitized rendering of BodyMarkdown.
	BodyMarkdown string `gorm:"type:text;not null" json:"body_markdown"`
	BodyHTML     string `gorm:"type:text;not null" json:"body_html"`

	Author  *string `json:"author,omitempty"`
	Email   *string `json:"-"`
	Website *string `json:"website,omitempty"`
	// RemoteAddr is anonymized before storage (IPv4 /24, IPv6 /48).
	RemoteAddr *string `json:"-"`
	IsAdmin    bool    `gorm:"not null;default:false" json:"is_admin"`

	Status string `gorm:"not null;default:pending;index" json:"status"`

	Upvotes     int    `gorm:"not null;default:0" json:"upvotes"`
	VotersBloom []byte `gorm:"type:blob" json:"-"`

	// EditToken authorizes self-service edit/delete until EditTokenExpiresAt.
	EditToken          *string    `json:"-"`
	EditTokenExpiresAt *time.Time `json:"-"`
	// ModerationToken authorizes a single approve/delete via an emailed link.
	ModerationToken *string `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CanEdit reports whether the given edit token authorizes self-service
// edit/delete right now. The window is fixed at creation; there is no
// sliding renewal.
func (c *Comment) CanEdit(token string, now time.Time) bool {
	if c.EditToken == nil || c.EditTokenExpiresAt == nil || token == "" {
		return false
	}
	if *c.EditToken != token {
		return false
	}
	return now.Before(*c.EditTokenExpiresAt)
}
