package queue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPicks struct {
	store *repository.Memory
}

func (m memoryPicks) ValidPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error) {
	all, err := m.store.ListPicks(ctx, sessionID)
	return models.ValidPicks(all), err
}

func setup(t *testing.T) (*App, *repository.Memory, models.FantasyTeam, uuid.UUID) {
	t.Helper()
	store := repository.NewMemory()
	owner := uuid.New()
	team := models.FantasyTeam{ID: uuid.New(), LeagueID: uuid.New(), OwnerID: &owner, Name: "Owners"}
	store.AddTeam(team)
	return NewApp(store, store, memoryPicks{store}), store, team, owner
}

func TestQueue_AddRemoveReorder(t *testing.T) {
	ctx := context.Background()
	app, _, team, owner := setup(t)
	sessionID := uuid.New()
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()

	for _, p := range []uuid.UUID{p1, p2, p3, p2} {
		_, err := app.Add(ctx, owner, sessionID, team.ID, p)
		require.NoError(t, err)
	}
	got, err := app.Get(ctx, sessionID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p1, p2, p3}, got)

	got, err = app.Reorder(ctx, owner, sessionID, team.ID, []uuid.UUID{p3, p1, p2})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p3, p1, p2}, got)

	_, err = app.Reorder(ctx, owner, sessionID, team.ID, []uuid.UUID{p3, p1})
	assert.ErrorIs(t, err, ErrInvalidReorder)

	got, err = app.Remove(ctx, owner, sessionID, team.ID, p1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p3, p2}, got)
}

func TestQueue_Ownership(t *testing.T) {
	ctx := context.Background()
	app, store, team, _ := setup(t)
	sessionID := uuid.New()

	_, err := app.Add(ctx, uuid.New(), sessionID, team.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotOwner)

	bot := models.FantasyTeam{ID: uuid.New(), LeagueID: team.LeagueID, Name: "Bot"}
	store.AddTeam(bot)
	_, err = app.Add(ctx, uuid.New(), sessionID, bot.ID, uuid.New())
	assert.ErrorIs(t, err, ErrComputerTeam)
}

func TestQueue_GetFiltersDrafted(t *testing.T) {
	ctx := context.Background()
	app, store, team, owner := setup(t)
	sessionID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()

	_, err := app.Add(ctx, owner, sessionID, team.ID, p1)
	require.NoError(t, err)
	_, err = app.Add(ctx, owner, sessionID, team.ID, p2)
	require.NoError(t, err)
	require.NoError(t, store.InsertPick(ctx, models.Pick{ID: uuid.New(), SessionID: sessionID, Round: 1, PickNumber: 1, TeamID: uuid.New(), PlayerID: p1}))

	got, err := app.Get(ctx, sessionID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p2}, got)

	require.NoError(t, app.Consume(ctx, sessionID, team.ID, p2))
	got, err = app.Get(ctx, sessionID, team.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}
