package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotOwner is returned when the actor does not own the team.
	ErrNotOwner = errors.New("actor does not own team")
	// ErrComputerTeam is returned for queue mutations on a computer controlled team.
	ErrComputerTeam = errors.New("computer teams have no queue")
	// ErrInvalidReorder is returned when a reorder is not a permutation of the queue.
	ErrInvalidReorder = errors.New("reorder must contain exactly the queued players")
)

// Store defines what the queue app needs from storage.
type Store interface {
	GetQueue(ctx context.Context, sessionID, teamID uuid.UUID) ([]uuid.UUID, error)
	SetQueue(ctx context.Context, sessionID, teamID uuid.UUID, playerIDs []uuid.UUID) error
}

// Teams looks up team ownership.
type Teams interface {
	GetTeam(ctx context.Context, id uuid.UUID) (*models.FantasyTeam, error)
}

// Picks supplies the valid picks of a session.
type Picks interface {
	ValidPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error)
}

// App handles queue business logic
type App struct {
	store Store
	teams Teams
	picks Picks
}

// NewApp creates a new queue App
func NewApp(store Store, teams Teams, picks Picks) *App {
	return &App{
		store: store,
		teams: teams,
		picks: picks,
	}
}

// Get returns the team's queue with drafted players filtered out.
func (a *App) Get(ctx context.Context, sessionID, teamID uuid.UUID) ([]uuid.UUID, error) {
	queued, err := a.store.GetQueue(ctx, sessionID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	if len(queued) == 0 {
		return nil, nil
	}

	picks, err := a.picks.ValidPicks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	drafted := make(map[uuid.UUID]struct{}, len(picks))
	for _, p := range picks {
		drafted[p.PlayerID] = struct{}{}
	}
	return slices.DeleteFunc(queued, func(id uuid.UUID) bool {
		_, ok := drafted[id]
		return ok
	}), nil
}

// Add appends a player to the end of the queue. Adding a queued player is a no-op.
func (a *App) Add(ctx context.Context, actorID, sessionID, teamID, playerID uuid.UUID) ([]uuid.UUID, error) {
	if err := a.authorize(ctx, actorID, teamID); err != nil {
		return nil, err
	}
	queued, err := a.store.GetQueue(ctx, sessionID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	if slices.Contains(queued, playerID) {
		return queued, nil
	}
	queued = append(queued, playerID)
	if err := a.store.SetQueue(ctx, sessionID, teamID, queued); err != nil {
		return nil, fmt.Errorf("failed to set queue: %w", err)
	}

	log.Debug().
		Str("session_id", sessionID.String()).
		Str("team_id", teamID.String()).
		Str("player_id", playerID.String()).
		Int("queue_len", len(queued)).
		Msg("player queued")
	return queued, nil
}

// Remove drops a player from the queue.
func (a *App) Remove(ctx context.Context, actorID, sessionID, teamID, playerID uuid.UUID) ([]uuid.UUID, error) {
	if err := a.authorize(ctx, actorID, teamID); err != nil {
		return nil, err
	}
	return a.remove(ctx, sessionID, teamID, playerID)
}

// Reorder replaces the queue order. playerIDs must be a permutation of the queue.
func (a *App) Reorder(ctx context.Context, actorID, sessionID, teamID uuid.UUID, playerIDs []uuid.UUID) ([]uuid.UUID, error) {
	if err := a.authorize(ctx, actorID, teamID); err != nil {
		return nil, err
	}
	queued, err := a.store.GetQueue(ctx, sessionID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	want := slices.Clone(queued)
	got := slices.Clone(playerIDs)
	slices.SortFunc(want, compareIDs)
	slices.SortFunc(got, compareIDs)
	if !slices.Equal(want, got) {
		return nil, ErrInvalidReorder
	}

	if err := a.store.SetQueue(ctx, sessionID, teamID, playerIDs); err != nil {
		return nil, fmt.Errorf("failed to set queue: %w", err)
	}
	return slices.Clone(playerIDs), nil
}

// Consume removes a player after a queue-sourced autopick committed. It skips the
// ownership check since the engine acts on the team's behalf.
func (a *App) Consume(ctx context.Context, sessionID, teamID, playerID uuid.UUID) error {
	_, err := a.remove(ctx, sessionID, teamID, playerID)
	return err
}

func (a *App) remove(ctx context.Context, sessionID, teamID, playerID uuid.UUID) ([]uuid.UUID, error) {
	queued, err := a.store.GetQueue(ctx, sessionID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	idx := slices.Index(queued, playerID)
	if idx < 0 {
		return queued, nil
	}
	queued = slices.Delete(queued, idx, idx+1)
	if err := a.store.SetQueue(ctx, sessionID, teamID, queued); err != nil {
		return nil, fmt.Errorf("failed to set queue: %w", err)
	}
	return queued, nil
}

func (a *App) authorize(ctx context.Context, actorID, teamID uuid.UUID) error {
	team, err := a.teams.GetTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to get team: %w", err)
	}
	if team.IsComputer() {
		return ErrComputerTeam
	}
	if !team.OwnedBy(actorID) {
		return fmt.Errorf("team %s: %w", teamID, ErrNotOwner)
	}
	return nil
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
