package gateway

import (
	"time"
)

// DraftStateResponse is the live view of a session pushed to clients.
type DraftStateResponse struct {
	SessionID      string           `json:"session_id"`
	LeagueID       string           `json:"league_id"`
	Status         string           `json:"status"`
	CurrentPick    *CurrentPickInfo `json:"current_pick,omitempty"`
	RecentPicks    []RecentPickInfo `json:"recent_picks"`
	TotalPicks     int              `json:"total_picks"`
	CompletedPicks int              `json:"completed_picks"`
	IsComplete     bool             `json:"is_complete"`
	Clock          ClockInfo        `json:"clock"`
	ServerTime     time.Time        `json:"server_time"`
}

// CurrentPickInfo represents the pick on the clock.
type CurrentPickInfo struct {
	TeamID      string `json:"team_id"`
	TeamName    string `json:"team_name"`
	Computer    bool   `json:"computer"`
	Round       int    `json:"round"`
	Pick        int    `json:"pick"`
	OverallPick int    `json:"overall_pick"`
	TimePerPick int    `json:"time_per_pick_sec"`
}

// ClockInfo mirrors the turn timer. Phase is idle, running or paused.
type ClockInfo struct {
	Phase            string `json:"phase"`
	TimeRemainingSec int    `json:"time_remaining_sec"`
}

// RecentPickInfo represents a committed pick.
type RecentPickInfo struct {
	PickID      string    `json:"pick_id"`
	TeamID      string    `json:"team_id"`
	TeamName    string    `json:"team_name"`
	PlayerID    string    `json:"player_id"`
	Round       int       `json:"round"`
	OverallPick int       `json:"overall_pick"`
	Source      string    `json:"source"`
	MadeAt      time.Time `json:"made_at"`
}

// DraftSummary represents a summary of an in progress draft.
type DraftSummary struct {
	SessionID    string     `json:"session_id"`
	LeagueID     string     `json:"league_id"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CurrentRound int        `json:"current_round"`
	CurrentPick  int        `json:"current_pick"`
	TotalTeams   int        `json:"total_teams"`
	TotalRounds  int        `json:"total_rounds"`
}
