package draft

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/draft/state"
	"github.com/mcdev12/draftengine/go/internal/models"
)

// PrepareRequest represents a request to create a draft session for a league
type PrepareRequest struct {
	LeagueID    uuid.UUID            `json:"league_id"`
	Settings    models.DraftSettings `json:"settings"`
	ScheduledAt *time.Time           `json:"scheduled_at"`
}

// MakePickRequest represents a manual pick. Zero ExpectedRound/ExpectedPick means
// "whatever turn is live now".
type MakePickRequest struct {
	SessionID     uuid.UUID `json:"session_id"`
	ActorID       uuid.UUID `json:"actor_id"`
	TeamID        uuid.UUID `json:"team_id"`
	PlayerID      uuid.UUID `json:"player_id"`
	ExpectedRound int       `json:"expected_round"`
	ExpectedPick  int       `json:"expected_pick"`
	Override      bool      `json:"override"`
}

// Turn identifies one pick slot as the timer saw it.
type Turn struct {
	PickNumber int
	Round      int
	TeamID     uuid.UUID
}

// Snapshot is the derived state of a session plus what clients need to render it.
type Snapshot struct {
	Session    models.Session       `json:"session"`
	State      models.DraftState    `json:"state"`
	Teams      []models.FantasyTeam `json:"teams"`
	OnTheClock *models.FantasyTeam  `json:"on_the_clock,omitempty"`
	Repair     state.Outcome        `json:"-"`
}

// Turn returns the live turn, or false once the draft is complete.
func (s *Snapshot) Turn() (Turn, bool) {
	if s.State.IsComplete || s.State.NextTeamID == nil {
		return Turn{}, false
	}
	return Turn{
		PickNumber: s.State.CurrentPick,
		Round:      s.State.CurrentRound,
		TeamID:     *s.State.NextTeamID,
	}, true
}

// StaleTurnError carries the fresh state alongside a rejected pick.
type StaleTurnError struct {
	State *Snapshot
	err   error
}

func (e *StaleTurnError) Error() string {
	return fmt.Sprintf("pick %d is live: %v", e.State.State.CurrentPick, e.err)
}

func (e *StaleTurnError) Unwrap() error {
	return e.err
}

func newStaleTurnError(snap *Snapshot, err error) error {
	if err == nil {
		err = drafterr.ErrStaleTurn
	}
	return &StaleTurnError{State: snap, err: err}
}
