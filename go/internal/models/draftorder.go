package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftOrder holds the team sequence for each round. Rounds[0] is round 1 and is the
// base order; later rounds may be missing and are then derived on read.
type DraftOrder struct {
	SessionID uuid.UUID     `json:"session_id"`
	Mode      DraftMode     `json:"mode"`
	Rounds    [][]uuid.UUID `json:"rounds"`
	CreatedAt time.Time     `json:"created_at"`
}

// Base returns the round 1 order, or nil if the order is empty.
func (o *DraftOrder) Base() []uuid.UUID {
	if o == nil || len(o.Rounds) == 0 {
		return nil
	}
	return o.Rounds[0]
}

// ForRound returns the explicit order for a 1-based round.
func (o *DraftOrder) ForRound(round int) ([]uuid.UUID, bool) {
	if o == nil || round < 1 || round > len(o.Rounds) || len(o.Rounds[round-1]) == 0 {
		return nil, false
	}
	return o.Rounds[round-1], true
}
