package models

import (
	"time"

	"gorm.io/gorm"
)

// Article publication states.
const (
	StatusDraft     = "Draft"
	StatusPublished = "Published"
)

// Article represents a news article written by an author. Deletion is always
// soft: default queries exclude rows with a non-null deleted_at.
type Article struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AuthorID  uint           `gorm:"index;not null" json:"author_id"`
	Title     string         `gorm:"size:150;not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Category  string         `gorm:"size:64;not null" json:"category"`
	Status    string         `gorm:"size:16;not null;default:'Draft'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Author    User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}

// ValidStatus reports whether s is a recognised publication state.
func ValidStatus(s string) bool {
	return s == StatusDraft || s == StatusPublished
}
