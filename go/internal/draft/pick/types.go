package pick

import (
	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/models"
)

// CommitRequest is a claim on one turn. ExpectedRound and ExpectedPick are the
// concurrency token the caller resolved before acting.
type CommitRequest struct {
	SessionID     uuid.UUID
	TeamID        uuid.UUID
	PlayerID      uuid.UUID
	ExpectedRound int
	ExpectedPick  int
	// Order, TeamCount and Rounds describe the session the turn belongs to.
	Order     *models.DraftOrder
	TeamCount int
	Rounds    int
	// Override lets an authorized actor commit for a team that is not on the clock.
	Override bool
	Source   models.PickSource
}

// CommitResult is returned for a successful commit.
type CommitResult struct {
	Pick     models.Pick `json:"pick"`
	Complete bool        `json:"complete"`
}
