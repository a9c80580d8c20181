package models

import "time"

// Tag is a normalized, globally unique label. Tags are created implicitly
// the first time any task uses the name.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
