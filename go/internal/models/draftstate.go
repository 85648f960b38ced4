package models

import "github.com/google/uuid"

// DraftState is derived from the ledger on every read and never stored.
type DraftState struct {
	CurrentRound int        `json:"current_round"`
	CurrentPick  int        `json:"current_pick"`
	NextTeamID   *uuid.UUID `json:"next_team_id,omitempty"`
	PickCount    int        `json:"pick_count"`
	TotalPicks   int        `json:"total_picks"`
	IsComplete   bool       `json:"is_complete"`
}

// PositionInRound returns the 1-based slot of the current pick within its round.
func (s DraftState) PositionInRound(teamCount int) int {
	if teamCount <= 0 {
		return 0
	}
	return ((s.CurrentPick - 1) % teamCount) + 1
}
