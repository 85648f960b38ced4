package models

import (
	"time"

	"github.com/google/uuid"
)

// Player represents a draftable player in the catalog. Value is the ranking metric
// used by autopick; higher is better.
type Player struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Position  string    `json:"position"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}
