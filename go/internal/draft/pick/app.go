package pick

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
	"github.com/mcdev12/draftengine/go/internal/draft/state"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Ledger defines what the pick app needs from the append-only pick store.
// InsertPick must enforce uniqueness of (session, pick_number) and (session, player)
// among valid picks and report violations as repository.ErrPickNumberTaken and
// repository.ErrPlayerTaken.
type Ledger interface {
	InsertPick(ctx context.Context, p models.Pick) error
	ListPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error)
	InvalidateLastPick(ctx context.Context, sessionID uuid.UUID, at time.Time) (*models.Pick, error)
}

// Observer is told about every pick committed through the app, whoever made it.
// Implementations must not block.
type Observer interface {
	PickCommitted(ctx context.Context, p models.Pick, complete bool)
}

// App handles pick business logic
type App struct {
	ledger Ledger
	clock  clockwork.Clock

	mu        sync.RWMutex
	observers []Observer
}

// NewApp creates a new pick App
func NewApp(ledger Ledger, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		ledger: ledger,
		clock:  clock,
	}
}

// AddObserver registers o for every later commit.
func (a *App) AddObserver(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// ValidPicks returns the valid picks of a session in pick number order.
func (a *App) ValidPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error) {
	picks, err := a.ledger.ListPicks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	return models.ValidPicks(picks), nil
}

// Commit appends one pick if the claimed turn is still live. Checks run in order:
// player already drafted, stale turn, not your turn.
func (a *App) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if err := validateCommitRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	valid, err := a.ValidPicks(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	for _, p := range valid {
		if p.PlayerID == req.PlayerID {
			return nil, fmt.Errorf("player %s taken at pick %d: %w", req.PlayerID, p.PickNumber, drafterr.ErrPlayerAlreadyDrafted)
		}
	}

	live, err := state.Resolve(len(valid), req.Order, req.TeamCount, req.Rounds)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve live state: %w", err)
	}
	if live.IsComplete || live.CurrentPick != req.ExpectedPick || live.CurrentRound != req.ExpectedRound {
		return nil, fmt.Errorf("expected pick %d, live pick %d: %w", req.ExpectedPick, live.CurrentPick, drafterr.ErrStaleTurn)
	}
	if live.NextTeamID == nil {
		return nil, fmt.Errorf("no team on the clock at pick %d: %w", live.CurrentPick, drafterr.ErrStateUnavailable)
	}
	if *live.NextTeamID != req.TeamID && !req.Override {
		return nil, fmt.Errorf("team %s claimed pick %d held by %s: %w", req.TeamID, live.CurrentPick, *live.NextTeamID, drafterr.ErrNotYourTurn)
	}

	source := req.Source
	if source == "" {
		source = models.PickSourceManual
	}
	p := models.Pick{
		ID:         uuid.New(),
		SessionID:  req.SessionID,
		Round:      live.CurrentRound,
		PickNumber: live.CurrentPick,
		TeamID:     req.TeamID,
		PlayerID:   req.PlayerID,
		Source:     source,
		PickedAt:   a.clock.Now().UTC(),
	}

	if err := a.ledger.InsertPick(ctx, p); err != nil {
		switch {
		case errors.Is(err, repository.ErrPickNumberTaken):
			// lost the race for this pick number
			return nil, fmt.Errorf("pick %d committed concurrently: %w", p.PickNumber, drafterr.ErrStaleTurn)
		case errors.Is(err, repository.ErrPlayerTaken):
			return nil, fmt.Errorf("player %s committed concurrently: %w", p.PlayerID, drafterr.ErrPlayerAlreadyDrafted)
		default:
			return nil, fmt.Errorf("failed to insert pick: %w", err)
		}
	}

	complete := p.PickNumber >= live.TotalPicks

	log.Info().
		Str("session_id", p.SessionID.String()).
		Int("pick_number", p.PickNumber).
		Int("round", p.Round).
		Str("team_id", p.TeamID.String()).
		Str("player_id", p.PlayerID.String()).
		Str("source", string(p.Source)).
		Bool("override", req.Override && *live.NextTeamID != req.TeamID).
		Bool("complete", complete).
		Msg("pick committed")

	a.notify(ctx, p, complete)
	return &CommitResult{Pick: p, Complete: complete}, nil
}

// InvalidateLast soft-invalidates the most recent valid pick of a session.
func (a *App) InvalidateLast(ctx context.Context, sessionID uuid.UUID) (*models.Pick, error) {
	p, err := a.ledger.InvalidateLastPick(ctx, sessionID, a.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to invalidate last pick: %w", err)
	}

	log.Warn().
		Str("session_id", sessionID.String()).
		Int("pick_number", p.PickNumber).
		Str("player_id", p.PlayerID.String()).
		Msg("pick invalidated")
	return p, nil
}

func (a *App) notify(ctx context.Context, p models.Pick, complete bool) {
	a.mu.RLock()
	observers := append([]Observer(nil), a.observers...)
	a.mu.RUnlock()

	for _, o := range observers {
		o.PickCommitted(ctx, p, complete)
	}
}

func validateCommitRequest(req CommitRequest) error {
	if req.SessionID == uuid.Nil {
		return fmt.Errorf("session_id is required")
	}
	if req.TeamID == uuid.Nil {
		return fmt.Errorf("team_id is required")
	}
	if req.PlayerID == uuid.Nil {
		return fmt.Errorf("player_id is required")
	}
	if req.ExpectedPick <= 0 || req.ExpectedRound <= 0 {
		return fmt.Errorf("expected round and pick must be greater than 0")
	}
	return nil
}
