package models

import (
	"time"

	"github.com/google/uuid"
)

// FantasyTeam is a drafting participant. A nil OwnerID means the team is run by the
// computer.
type FantasyTeam struct {
	ID        uuid.UUID  `json:"id"`
	LeagueID  uuid.UUID  `json:"league_id"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsComputer reports whether no human owns the team.
func (t FantasyTeam) IsComputer() bool {
	return t.OwnerID == nil
}

// OwnedBy reports whether userID owns the team.
func (t FantasyTeam) OwnedBy(userID uuid.UUID) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}

// TeamIDs returns the ids of teams in the given order.
func TeamIDs(teams []FantasyTeam) []uuid.UUID {
	ids := make([]uuid.UUID, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids
}
