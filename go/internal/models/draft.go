package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftMode defines how the per-round team order is produced.
type DraftMode string

const (
	DraftModeStandard   DraftMode = "STANDARD"
	DraftModeSerpentine DraftMode = "SERPENTINE"
	DraftModeCustom     DraftMode = "CUSTOM"
	DraftModeRandomized DraftMode = "RANDOMIZED"
)

// Valid reports whether m is one of the known modes.
func (m DraftMode) Valid() bool {
	switch m {
	case DraftModeStandard, DraftModeSerpentine, DraftModeCustom, DraftModeRandomized:
		return true
	}
	return false
}

// SessionStatus defines the status of a draft session.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "NOT_STARTED"
	SessionStatusQueued     SessionStatus = "QUEUED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// DraftSettings holds JSONB configuration for draft sessions.
type DraftSettings struct {
	Rounds             int           `json:"rounds"`
	TimePerPickSec     int           `json:"time_per_pick_sec"`
	Mode               DraftMode     `json:"mode"`
	CustomOrder        []uuid.UUID   `json:"custom_order,omitempty"`    // custom
	RoundOverrides     [][]uuid.UUID `json:"round_overrides,omitempty"` // custom, one entry per round
	ThirdRoundReversal bool          `json:"third_round_reversal,omitempty"`
}

// TimePerPick returns the per-pick limit as a duration.
func (s DraftSettings) TimePerPick() time.Duration {
	return time.Duration(s.TimePerPickSec) * time.Second
}

// Session represents one draft run for a league. Earlier sessions of the same league
// stay around for audit once superseded.
type Session struct {
	ID           uuid.UUID     `json:"id"`
	LeagueID     uuid.UUID     `json:"league_id"`
	Status       SessionStatus `json:"status"`
	Settings     DraftSettings `json:"settings"`
	ScheduledAt  *time.Time    `json:"scheduled_at,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	SupersededAt *time.Time    `json:"superseded_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Active reports whether the session has not been superseded by a reset.
func (s *Session) Active() bool {
	return s.SupersededAt == nil
}
