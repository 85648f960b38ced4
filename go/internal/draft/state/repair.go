package state

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/order"
	"github.com/mcdev12/draftengine/go/internal/models"
)

// Outcome tags the result of a repair pass.
type Outcome int

const (
	// Resolved means the state was usable as is.
	Resolved Outcome = iota
	// NeedsRepair means the state or the persisted status was corrected. The caller
	// should persist Result.Status when it differs from the session status.
	NeedsRepair
	// Unavailable means the state could not be trusted and must not be shown.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case NeedsRepair:
		return "needs_repair"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Input is everything a repair pass looks at.
type Input struct {
	Status    models.SessionStatus
	StartedAt *time.Time
	State     models.DraftState
	Order     *models.DraftOrder
	TeamIDs   []uuid.UUID
}

// Result carries the corrected state and status.
type Result struct {
	Outcome Outcome
	State   models.DraftState
	Status  models.SessionStatus
	// Fixes lists what was corrected, for logging.
	Fixes []string
	// Reason explains an Unavailable outcome.
	Reason string
}

// Repair checks a resolved state against the session it belongs to and corrects what
// can be derived again from the order and the pick count.
func Repair(in Input) Result {
	res := Result{Outcome: Resolved, State: in.State, Status: in.Status}
	st := &res.State

	if st.PickCount > st.TotalPicks || st.CurrentPick > st.TotalPicks+1 {
		return Result{Outcome: Unavailable, State: in.State, Status: in.Status, Reason: "pick count exceeds draft slots"}
	}

	teamCount := len(in.TeamIDs)
	if st.IsComplete {
		if st.NextTeamID != nil {
			st.NextTeamID = nil
			res.fix("cleared next team on complete draft")
		}
	} else if st.NextTeamID == nil || !slices.Contains(in.TeamIDs, *st.NextTeamID) {
		next := recomputeNextTeam(in.Order, in.TeamIDs, st.CurrentRound, st.PositionInRound(teamCount))
		if next == nil {
			return Result{Outcome: Unavailable, State: in.State, Status: in.Status, Reason: "next team could not be resolved from order"}
		}
		st.NextTeamID = next
		res.fix("recomputed next team from base order")
	}

	switch {
	case st.PickCount == 0 && in.Status == models.SessionStatusCompleted:
		res.setStatus(models.SessionStatusNotStarted, "reverted completed session with no picks")
	case st.PickCount == 0 && in.Status == models.SessionStatusInProgress && in.StartedAt == nil:
		res.setStatus(models.SessionStatusNotStarted, "reverted in-progress session that never started")
	case st.PickCount > 0 && st.IsComplete && in.Status != models.SessionStatusCompleted:
		res.setStatus(models.SessionStatusCompleted, "marked session with every pick made as completed")
	case st.PickCount > 0 && !st.IsComplete && in.Status != models.SessionStatusInProgress:
		res.setStatus(models.SessionStatusInProgress, "marked session with picks remaining as in progress")
	}

	return res
}

// recomputeNextTeam derives the slot holder from the base order alone. The base must be
// a permutation of the current team membership to be trusted.
func recomputeNextTeam(draftOrder *models.DraftOrder, teamIDs []uuid.UUID, round, position int) *uuid.UUID {
	base := draftOrder.Base()
	if len(base) == 0 || len(base) != len(teamIDs) {
		return nil
	}
	for _, id := range base {
		if !slices.Contains(teamIDs, id) {
			return nil
		}
	}
	ids := order.Round(base, round, false)
	if position < 1 || position > len(ids) {
		return nil
	}
	id := ids[position-1]
	return &id
}

func (r *Result) fix(msg string) {
	r.Outcome = NeedsRepair
	r.Fixes = append(r.Fixes, msg)
}

func (r *Result) setStatus(status models.SessionStatus, msg string) {
	r.Status = status
	r.fix(msg)
}
