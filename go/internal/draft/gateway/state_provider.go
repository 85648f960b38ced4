package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/draft/draft"
	"github.com/mcdev12/draftengine/go/internal/draft/orchestrator"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

const defaultRecentPicks = 10

// SessionState resolves the derived state of a session.
type SessionState interface {
	State(ctx context.Context, sessionID uuid.UUID) (*draft.Snapshot, error)
}

// PickHistory supplies the valid picks of a session.
type PickHistory interface {
	ValidPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error)
}

// TimerView exposes the turn timer of a session.
type TimerView interface {
	Snapshot(sessionID uuid.UUID) orchestrator.TimerState
}

// SessionLister lists sessions currently being drafted.
type SessionLister interface {
	ListInProgressSessions(ctx context.Context) ([]uuid.UUID, error)
}

// DraftStateProvider builds client views from the draft app and the turn timer.
type DraftStateProvider struct {
	sessions SessionState
	picks    PickHistory
	timers   TimerView
	lister   SessionLister
	clock    clockwork.Clock
	recent   int
}

func NewDraftStateProvider(sessions SessionState, picks PickHistory, timers TimerView, lister SessionLister, clock clockwork.Clock) *DraftStateProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DraftStateProvider{
		sessions: sessions,
		picks:    picks,
		timers:   timers,
		lister:   lister,
		clock:    clock,
		recent:   defaultRecentPicks,
	}
}

// GetDraftState resolves the session and joins it with its pick history and clock.
func (p *DraftStateProvider) GetDraftState(ctx context.Context, sessionID uuid.UUID) (*DraftStateResponse, error) {
	snap, err := p.sessions.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	picks, err := p.picks.ValidPicks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load picks: %w", err)
	}

	names := make(map[uuid.UUID]string, len(snap.Teams))
	for _, t := range snap.Teams {
		names[t.ID] = t.Name
	}

	resp := &DraftStateResponse{
		SessionID:      snap.Session.ID.String(),
		LeagueID:       snap.Session.LeagueID.String(),
		Status:         string(snap.Session.Status),
		TotalPicks:     snap.State.TotalPicks,
		CompletedPicks: snap.State.PickCount,
		IsComplete:     snap.State.IsComplete,
		RecentPicks:    make([]RecentPickInfo, 0, p.recent),
		Clock:          ClockInfo{Phase: "idle"},
		ServerTime:     p.clock.Now().UTC(),
	}

	if turn, ok := snap.Turn(); ok && snap.OnTheClock != nil {
		resp.CurrentPick = &CurrentPickInfo{
			TeamID:      turn.TeamID.String(),
			TeamName:    snap.OnTheClock.Name,
			Computer:    snap.OnTheClock.IsComputer(),
			Round:       turn.Round,
			Pick:        snap.State.PositionInRound(len(snap.Teams)),
			OverallPick: turn.PickNumber,
			TimePerPick: snap.Session.Settings.TimePerPickSec,
		}
		if p.timers != nil {
			if ts := p.timers.Snapshot(sessionID); ts.PickNumber == turn.PickNumber {
				resp.Clock = ClockInfo{Phase: ts.Phase, TimeRemainingSec: ts.RemainingSeconds}
			}
		}
	}

	// newest first
	for i := len(picks) - 1; i >= 0 && len(resp.RecentPicks) < p.recent; i-- {
		pk := picks[i]
		resp.RecentPicks = append(resp.RecentPicks, RecentPickInfo{
			PickID:      pk.ID.String(),
			TeamID:      pk.TeamID.String(),
			TeamName:    names[pk.TeamID],
			PlayerID:    pk.PlayerID.String(),
			Round:       pk.Round,
			OverallPick: pk.PickNumber,
			Source:      string(pk.Source),
			MadeAt:      pk.PickedAt,
		})
	}
	return resp, nil
}

// GetActiveDrafts summarizes every in progress session. Sessions that fail to resolve
// are skipped.
func (p *DraftStateProvider) GetActiveDrafts(ctx context.Context) ([]DraftSummary, error) {
	ids, err := p.lister.ListInProgressSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active drafts: %w", err)
	}

	summaries := make([]DraftSummary, 0, len(ids))
	for _, id := range ids {
		snap, err := p.sessions.State(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("session_id", id.String()).Msg("skipping unresolvable session")
			continue
		}
		summaries = append(summaries, DraftSummary{
			SessionID:    snap.Session.ID.String(),
			LeagueID:     snap.Session.LeagueID.String(),
			Status:       string(snap.Session.Status),
			StartedAt:    snap.Session.StartedAt,
			CurrentRound: snap.State.CurrentRound,
			CurrentPick:  snap.State.CurrentPick,
			TotalTeams:   len(snap.Teams),
			TotalRounds:  snap.Session.Settings.Rounds,
		})
	}
	return summaries, nil
}
