package state

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/draft/order"
	"github.com/mcdev12/draftengine/go/internal/models"
)

// Resolve derives the draft state from the number of valid picks and the draft order.
// It never reads or writes storage.
func Resolve(pickCount int, draftOrder *models.DraftOrder, teamCount, rounds int) (models.DraftState, error) {
	if teamCount < 1 || rounds < 1 {
		return models.DraftState{}, fmt.Errorf("%w: %d teams, %d rounds", drafterr.ErrConfiguration, teamCount, rounds)
	}
	if pickCount < 0 {
		return models.DraftState{}, fmt.Errorf("%w: negative pick count %d", drafterr.ErrConfiguration, pickCount)
	}
	if len(draftOrder.Base()) == 0 {
		return models.DraftState{}, drafterr.ErrOrderNotReady
	}

	total := teamCount * rounds
	current := pickCount + 1
	st := models.DraftState{
		CurrentPick:  current,
		CurrentRound: (current + teamCount - 1) / teamCount,
		PickCount:    pickCount,
		TotalPicks:   total,
		IsComplete:   current > total,
	}
	if st.IsComplete {
		return st, nil
	}

	st.NextTeamID = TeamAt(draftOrder, st.CurrentRound, st.PositionInRound(teamCount))
	return st, nil
}

// TeamAt looks up the team holding a slot. Rounds missing from the order fall back to
// round 1 serpentine-extended. It returns nil when the slot does not exist.
func TeamAt(draftOrder *models.DraftOrder, round, position int) *uuid.UUID {
	ids, ok := draftOrder.ForRound(round)
	if !ok {
		ids = order.Round(draftOrder.Base(), round, false)
	}
	if position < 1 || position > len(ids) {
		return nil
	}
	id := ids[position-1]
	return &id
}
