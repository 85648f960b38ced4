package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event payload types that are shared between the draft, orchestrator, outbox and
// gateway packages

// Event types as they appear on the bus
const (
	TypePickMade       = "PickMade"
	TypePickStarted    = "PickStarted"
	TypeDraftStarted   = "DraftStarted"
	TypeDraftPaused    = "DraftPaused"
	TypeDraftResumed   = "DraftResumed"
	TypeDraftCompleted = "DraftCompleted"
	TypeDraftReset     = "DraftReset"
	TypePickUndone     = "PickUndone"
)

// Envelope is the message published for every event.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// PickStartedPayload is the payload for a PickStarted event
type PickStartedPayload struct {
	SessionID      string    `json:"session_id"`
	TeamID         string    `json:"team_id"`
	Round          int       `json:"round"`
	PickNumber     int       `json:"pick_number"`
	StartedAt      time.Time `json:"started_at"`
	TimeoutAt      time.Time `json:"timeout_at"`
	TimePerPickSec int       `json:"time_per_pick_sec"`
}

// PickMadePayload is the payload for a PickMade event
type PickMadePayload struct {
	PickID     string    `json:"pick_id"`
	SessionID  string    `json:"session_id"`
	TeamID     string    `json:"team_id"`
	PlayerID   string    `json:"player_id"`
	Round      int       `json:"round"`
	PickNumber int       `json:"pick_number"`
	Source     string    `json:"source"`
	Complete   bool      `json:"complete"`
	MadeAt     time.Time `json:"made_at"`
}

// PickUndonePayload is the payload for a PickUndone event
type PickUndonePayload struct {
	PickID        string    `json:"pick_id"`
	SessionID     string    `json:"session_id"`
	PickNumber    int       `json:"pick_number"`
	PlayerID      string    `json:"player_id"`
	InvalidatedAt time.Time `json:"invalidated_at"`
}

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	SessionID   string    `json:"session_id"`
	LeagueID    string    `json:"league_id"`
	Mode        string    `json:"mode"`
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftCompletedPayload is the payload for a DraftCompleted event
type DraftCompletedPayload struct {
	SessionID   string    `json:"session_id"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftPausedPayload is the payload for a DraftPaused event
type DraftPausedPayload struct {
	SessionID        string    `json:"session_id"`
	PausedAt         time.Time `json:"paused_at"`
	PickNumber       int       `json:"pick_number"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Reason           string    `json:"reason"`
}

// DraftResumedPayload is the payload for a DraftResumed event
type DraftResumedPayload struct {
	SessionID        string    `json:"session_id"`
	ResumedAt        time.Time `json:"resumed_at"`
	PickNumber       int       `json:"pick_number"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

// DraftResetPayload is the payload for a DraftReset event
type DraftResetPayload struct {
	SessionID    string    `json:"session_id"`
	NewSessionID string    `json:"new_session_id"`
	LeagueID     string    `json:"league_id"`
	ResetAt      time.Time `json:"reset_at"`
}

// SessionOf extracts the session id from an envelope.
func SessionOf(env Envelope) (uuid.UUID, error) {
	return uuid.Parse(env.SessionID)
}
