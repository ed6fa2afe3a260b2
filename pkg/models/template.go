package models

import "time"

// Template is the persisted header of a production schedule template. The
// stages belonging to it live in their own table and carry the day offset
// and sequence that reconstruct the day layout.
type Template struct {
	ID          string    `json:"id" db:"id"`
	SiteID      string    `json:"site_id" db:"site_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsArchived  bool      `json:"is_archived" db:"is_archived"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
