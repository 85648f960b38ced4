package models

import (
	"time"

	"github.com/google/uuid"
)

// League represents a fantasy sports league
type League struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	CommissionerID uuid.UUID `json:"commissioner_id"`
	Season         string    `json:"season"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
