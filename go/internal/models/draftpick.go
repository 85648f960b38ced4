package models

import (
	"time"

	"github.com/google/uuid"
)

// PickSource records which actor produced a pick.
type PickSource string

const (
	PickSourceManual   PickSource = "MANUAL"
	PickSourceTimer    PickSource = "TIMER"
	PickSourceComputer PickSource = "COMPUTER"
	PickSourceQueue    PickSource = "QUEUE"
	PickSourceOverride PickSource = "OVERRIDE"
)

// Pick is a committed selection. It is never updated after insert except for the
// invalidation marker.
type Pick struct {
	ID            uuid.UUID  `json:"id"`
	SessionID     uuid.UUID  `json:"session_id"`
	Round         int        `json:"round"`
	PickNumber    int        `json:"pick_number"` // overall, 1-based
	TeamID        uuid.UUID  `json:"team_id"`
	PlayerID      uuid.UUID  `json:"player_id"`
	Source        PickSource `json:"source"`
	PickedAt      time.Time  `json:"picked_at"`
	InvalidatedAt *time.Time `json:"invalidated_at,omitempty"`
}

// Valid reports whether the pick still counts toward the draft.
func (p Pick) Valid() bool {
	return p.InvalidatedAt == nil
}

// ValidPicks filters out invalidated picks, keeping ledger order.
func ValidPicks(picks []Pick) []Pick {
	valid := make([]Pick, 0, len(picks))
	for _, p := range picks {
		if p.Valid() {
			valid = append(valid, p)
		}
	}
	return valid
}
