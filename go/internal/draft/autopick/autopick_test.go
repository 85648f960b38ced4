package autopick

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func humanTeam() models.FantasyTeam {
	owner := uuid.New()
	return models.FantasyTeam{ID: uuid.New(), OwnerID: &owner, Name: "Humans"}
}

func computerTeam() models.FantasyTeam {
	return models.FantasyTeam{ID: uuid.New(), Name: "Bots"}
}

func TestSelect(t *testing.T) {
	p2 := models.Player{ID: uuid.New(), FullName: "P2", Value: 10}
	p5 := models.Player{ID: uuid.New(), FullName: "P5", Value: 70}
	p9 := models.Player{ID: uuid.New(), FullName: "P9", Value: 50}
	available := []models.Player{p2, p9}

	t.Run("queue first for human teams", func(t *testing.T) {
		sel, err := Select(humanTeam(), []uuid.UUID{p5.ID, p2.ID}, available)
		require.NoError(t, err)
		assert.Equal(t, p2.ID, sel.PlayerID)
		assert.True(t, sel.FromQueue)
	})

	t.Run("empty queue takes highest value", func(t *testing.T) {
		sel, err := Select(humanTeam(), nil, available)
		require.NoError(t, err)
		assert.Equal(t, p9.ID, sel.PlayerID)
		assert.False(t, sel.FromQueue)
	})

	t.Run("exhausted queue takes highest value", func(t *testing.T) {
		sel, err := Select(humanTeam(), []uuid.UUID{p5.ID}, available)
		require.NoError(t, err)
		assert.Equal(t, p9.ID, sel.PlayerID)
		assert.False(t, sel.FromQueue)
	})

	t.Run("computer teams ignore the queue", func(t *testing.T) {
		sel, err := Select(computerTeam(), []uuid.UUID{p2.ID}, available)
		require.NoError(t, err)
		assert.Equal(t, p9.ID, sel.PlayerID)
	})

	t.Run("empty pool", func(t *testing.T) {
		_, err := Select(computerTeam(), nil, nil)
		assert.ErrorIs(t, err, drafterr.ErrNoPlayersAvailable)
	})
}

func TestSelect_TieBreakIsLowestID(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	mid := uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")
	players := []models.Player{
		{ID: high, Value: 30},
		{ID: mid, Value: 30},
		{ID: low, Value: 30},
		{ID: uuid.New(), Value: 29.5},
	}

	// any input order gives the same answer
	for _, order := range [][]int{{0, 1, 2, 3}, {2, 1, 0, 3}, {3, 1, 2, 0}} {
		shuffled := make([]models.Player, len(players))
		for i, idx := range order {
			shuffled[i] = players[idx]
		}
		sel, err := Select(computerTeam(), nil, shuffled)
		require.NoError(t, err)
		assert.Equal(t, low, sel.PlayerID)
	}
}

func TestValueStrategy_Choose(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	sessionID := uuid.New()
	team := humanTeam()

	p2 := models.Player{ID: uuid.New(), FullName: "P2", Value: 10}
	p5 := models.Player{ID: uuid.New(), FullName: "P5", Value: 70}
	p9 := models.Player{ID: uuid.New(), FullName: "P9", Value: 50}
	store.AddPlayers(p2, p5, p9)
	require.NoError(t, store.InsertPick(ctx, models.Pick{ID: uuid.New(), SessionID: sessionID, Round: 1, PickNumber: 1, TeamID: uuid.New(), PlayerID: p5.ID}))
	require.NoError(t, store.SetQueue(ctx, sessionID, team.ID, []uuid.UUID{p5.ID, p2.ID}))

	picks := picksFunc(func(ctx context.Context, id uuid.UUID) ([]models.Pick, error) {
		all, err := store.ListPicks(ctx, id)
		return models.ValidPicks(all), err
	})
	strat := NewValueStrategy(store, picks, store)

	available, err := strat.Available(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	sel, err := strat.Choose(ctx, sessionID, team)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, sel.PlayerID)
	assert.True(t, sel.FromQueue)

	sel, err = strat.Choose(ctx, sessionID, computerTeam())
	require.NoError(t, err)
	assert.Equal(t, p9.ID, sel.PlayerID)
}

type picksFunc func(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error)

func (f picksFunc) ValidPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error) {
	return f(ctx, sessionID)
}
