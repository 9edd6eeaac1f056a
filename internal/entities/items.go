package entities

import (
	"time"
)

type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "PENDING"
	ItemStatusProcessing ItemStatus = "PROCESSING"
	ItemStatusCompleted  ItemStatus = "COMPLETED"
	ItemStatusFailed     ItemStatus = "FAILED"
)

// TerminalStatuses are the states an import attempt can end in.
// A retry never mutates a terminal row back; it creates a fresh attempt.
var TerminalStatuses = []ItemStatus{ItemStatusCompleted, ItemStatusFailed}

// IsTerminal reports whether the status ends an import attempt.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusCompleted || s == ItemStatusFailed
}

// StringSlice stores a list of short strings as a JSON column.
type StringSlice []string

// SavedItem represents one import attempt for one URL, owned by one user.
// Content fields are populated only when the attempt reaches COMPLETED;
// summary and tags arrive later through the separate summarization step.
type SavedItem struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	UserID uint       `gorm:"index" json:"user_id"`
	URL    string     `gorm:"size:2048" json:"url"`
	Status ItemStatus `gorm:"size:20;index;default:'PENDING'" json:"status"`

	// Populated on COMPLETED, absent otherwise.
	Title       *string    `gorm:"size:1024" json:"title,omitempty"`
	Content     *string    `gorm:"type:text" json:"content,omitempty"`
	OGImage     *string    `gorm:"size:2048" json:"og_image,omitempty"`
	Author      *string    `gorm:"size:256" json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// Populated by the summarization step, never by the import pipeline.
	Summary *string     `gorm:"type:text" json:"summary,omitempty"`
	Tags    StringSlice `gorm:"type:json;serializer:json" json:"tags,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SavedItem) TableName() string {
	return "saved_items"
}

// ContentFields carries the extracted page data written on a successful fetch.
type ContentFields struct {
	Title       *string
	Content     *string
	OGImage     *string
	Author      *string
	PublishedAt *time.Time
}

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:100" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:255" json:"email"`
	Token     string    `gorm:"uniqueIndex;size:64" json:"-"` // API token, hidden from JSON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
