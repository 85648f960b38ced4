package autopick

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Selection is the player chosen for a team.
type Selection struct {
	PlayerID  uuid.UUID
	FromQueue bool
}

// Select picks a player for team from the undrafted pool. Human teams get the first
// queued player that is still available. Otherwise the highest value player wins, and
// equal values fall to the lowest player id in byte order.
func Select(team models.FantasyTeam, queue []uuid.UUID, available []models.Player) (Selection, error) {
	if len(available) == 0 {
		return Selection{}, fmt.Errorf("team %s: %w", team.ID, drafterr.ErrNoPlayersAvailable)
	}

	if !team.IsComputer() && len(queue) > 0 {
		pool := make(map[uuid.UUID]struct{}, len(available))
		for _, p := range available {
			pool[p.ID] = struct{}{}
		}
		for _, id := range queue {
			if _, ok := pool[id]; ok {
				return Selection{PlayerID: id, FromQueue: true}, nil
			}
		}
	}

	best := available[0]
	for _, p := range available[1:] {
		if better(p, best) {
			best = p
		}
	}
	return Selection{PlayerID: best.ID}, nil
}

func better(a, b models.Player) bool {
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Catalog supplies the player universe.
type Catalog interface {
	ListPlayers(ctx context.Context) ([]models.Player, error)
}

// PickSource supplies the committed picks of a session.
type PickSource interface {
	ValidPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error)
}

// QueueSource supplies a team's queue.
type QueueSource interface {
	GetQueue(ctx context.Context, sessionID, teamID uuid.UUID) ([]uuid.UUID, error)
}

// ValueStrategy loads the undrafted pool and the team's queue and runs Select.
type ValueStrategy struct {
	catalog Catalog
	picks   PickSource
	queues  QueueSource
}

// NewValueStrategy creates a ValueStrategy.
func NewValueStrategy(catalog Catalog, picks PickSource, queues QueueSource) *ValueStrategy {
	return &ValueStrategy{
		catalog: catalog,
		picks:   picks,
		queues:  queues,
	}
}

// Choose selects a player for team in the given session.
func (s *ValueStrategy) Choose(ctx context.Context, sessionID uuid.UUID, team models.FantasyTeam) (Selection, error) {
	available, err := s.Available(ctx, sessionID)
	if err != nil {
		return Selection{}, err
	}

	var queue []uuid.UUID
	if !team.IsComputer() {
		queue, err = s.queues.GetQueue(ctx, sessionID, team.ID)
		if err != nil {
			return Selection{}, fmt.Errorf("failed to load queue: %w", err)
		}
	}

	sel, err := Select(team, queue, available)
	if err != nil {
		return Selection{}, err
	}

	log.Debug().
		Str("session_id", sessionID.String()).
		Str("team_id", team.ID.String()).
		Str("player_id", sel.PlayerID.String()).
		Bool("from_queue", sel.FromQueue).
		Int("pool_size", len(available)).
		Msg("autopick selected player")
	return sel, nil
}

// Available returns the catalog minus every player with a valid pick in the session.
func (s *ValueStrategy) Available(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error) {
	players, err := s.catalog.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	picks, err := s.picks.ValidPicks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}

	drafted := make(map[uuid.UUID]struct{}, len(picks))
	for _, p := range picks {
		drafted[p.PlayerID] = struct{}{}
	}
	available := make([]models.Player, 0, len(players))
	for _, p := range players {
		if _, ok := drafted[p.ID]; !ok {
			available = append(available, p)
		}
	}
	return available, nil
}
