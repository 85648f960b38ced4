package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	ListTeams(ctx context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error)
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.Session, error)
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, at time.Time) (*models.Session, error)
	SupersedeSession(ctx context.Context, id uuid.UUID, at time.Time) error
	ListInProgressSessions(ctx context.Context) ([]uuid.UUID, error)
	GetOrder(ctx context.Context, sessionID uuid.UUID) (*models.DraftOrder, error)
	SaveOrder(ctx context.Context, o models.DraftOrder) error
	InsertPick(ctx context.Context, p models.Pick) error
	ListPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error)
	InvalidateLastPick(ctx context.Context, sessionID uuid.UUID, at time.Time) (*models.Pick, error)
	GetQueue(ctx context.Context, sessionID, teamID uuid.UUID) ([]uuid.UUID, error)
	SetQueue(ctx context.Context, sessionID, teamID uuid.UUID, playerIDs []uuid.UUID) error
}

type seedFunc func(t *testing.T, league models.League, teams ...models.FantasyTeam)

var epoch = time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)

func TestMemory(t *testing.T) {
	m := NewMemory()
	runStoreTests(t, m, func(t *testing.T, league models.League, teams ...models.FantasyTeam) {
		m.AddLeague(league)
		for _, team := range teams {
			m.AddTeam(team)
		}
	})
}

// TestPostgres runs against DRAFTENGINE_TEST_DSN when it is set.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("DRAFTENGINE_TEST_DSN")
	if dsn == "" {
		t.Skip("DRAFTENGINE_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	pg := NewPostgres(pool)
	require.NoError(t, pg.Migrate(ctx))
	runStoreTests(t, pg, func(t *testing.T, league models.League, teams ...models.FantasyTeam) {
		require.NoError(t, pg.CreateLeague(ctx, league))
		for _, team := range teams {
			require.NoError(t, pg.CreateTeam(ctx, team))
		}
		t.Cleanup(func() {
			_, _ = pool.Exec(context.Background(), `DELETE FROM leagues WHERE id = $1`, league.ID)
		})
	})
}

func newLeague(seed seedFunc, t *testing.T) (models.League, []models.FantasyTeam) {
	league := models.League{
		ID:             uuid.New(),
		Name:           "Store League",
		CommissionerID: uuid.New(),
		Season:         "2026",
		CreatedAt:      epoch,
		UpdatedAt:      epoch,
	}
	owner := uuid.New()
	teams := []models.FantasyTeam{
		{ID: uuid.New(), LeagueID: league.ID, OwnerID: &owner, Name: "Owned", CreatedAt: epoch},
		{ID: uuid.New(), LeagueID: league.ID, Name: "Computer", CreatedAt: epoch.Add(time.Minute)},
	}
	seed(t, league, teams...)
	return league, teams
}

func newSession(leagueID uuid.UUID) models.Session {
	return models.Session{
		ID:       uuid.New(),
		LeagueID: leagueID,
		Status:   models.SessionStatusNotStarted,
		Settings: models.DraftSettings{
			Rounds:         2,
			TimePerPickSec: 60,
			Mode:           models.DraftModeSerpentine,
		},
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
}

func runStoreTests(t *testing.T, s store, seed seedFunc) {
	ctx := context.Background()

	t.Run("teams are ordered by creation", func(t *testing.T) {
		league, teams := newLeague(seed, t)
		got, err := s.ListTeams(ctx, league.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, teams[0].ID, got[0].ID)
		assert.False(t, got[0].IsComputer())
		assert.True(t, got[1].IsComputer())

		l, err := s.GetLeague(ctx, league.ID)
		require.NoError(t, err)
		assert.Equal(t, league.CommissionerID, l.CommissionerID)

		_, err = s.GetLeague(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("one active session per league", func(t *testing.T) {
		league, _ := newLeague(seed, t)
		first := newSession(league.ID)
		require.NoError(t, s.CreateSession(ctx, first))

		err := s.CreateSession(ctx, newSession(league.ID))
		assert.ErrorIs(t, err, ErrActiveSessionExists)

		require.NoError(t, s.SupersedeSession(ctx, first.ID, epoch.Add(time.Hour)))
		second := newSession(league.ID)
		require.NoError(t, s.CreateSession(ctx, second))

		active, err := s.GetActiveSession(ctx, league.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, active.ID)

		old, err := s.GetSession(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, old.Active())
		assert.Equal(t, models.DraftModeSerpentine, old.Settings.Mode)
	})

	t.Run("status timestamps", func(t *testing.T) {
		league, _ := newLeague(seed, t)
		session := newSession(league.ID)
		require.NoError(t, s.CreateSession(ctx, session))

		started := epoch.Add(time.Minute)
		got, err := s.UpdateSessionStatus(ctx, session.ID, models.SessionStatusInProgress, started)
		require.NoError(t, err)
		require.NotNil(t, got.StartedAt)
		assert.True(t, started.Equal(*got.StartedAt))
		assert.Nil(t, got.CompletedAt)

		ids, err := s.ListInProgressSessions(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, session.ID)

		done := epoch.Add(time.Hour)
		got, err = s.UpdateSessionStatus(ctx, session.ID, models.SessionStatusCompleted, done)
		require.NoError(t, err)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, started.Equal(*got.StartedAt))

		_, err = s.UpdateSessionStatus(ctx, uuid.New(), models.SessionStatusQueued, done)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("order round trip", func(t *testing.T) {
		league, teams := newLeague(seed, t)
		session := newSession(league.ID)
		require.NoError(t, s.CreateSession(ctx, session))

		_, err := s.GetOrder(ctx, session.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		ids := models.TeamIDs(teams)
		order := models.DraftOrder{
			SessionID: session.ID,
			Mode:      models.DraftModeSerpentine,
			Rounds:    [][]uuid.UUID{ids, {ids[1], ids[0]}},
			CreatedAt: epoch,
		}
		require.NoError(t, s.SaveOrder(ctx, order))
		got, err := s.GetOrder(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, order.Rounds, got.Rounds)
	})

	t.Run("ledger uniqueness among valid picks", func(t *testing.T) {
		league, teams := newLeague(seed, t)
		session := newSession(league.ID)
		require.NoError(t, s.CreateSession(ctx, session))

		player := uuid.New()
		first := models.Pick{
			ID: uuid.New(), SessionID: session.ID, Round: 1, PickNumber: 1,
			TeamID: teams[0].ID, PlayerID: player, Source: models.PickSourceManual, PickedAt: epoch,
		}
		require.NoError(t, s.InsertPick(ctx, first))

		dupNumber := first
		dupNumber.ID, dupNumber.PlayerID = uuid.New(), uuid.New()
		assert.ErrorIs(t, s.InsertPick(ctx, dupNumber), ErrPickNumberTaken)

		dupPlayer := first
		dupPlayer.ID, dupPlayer.PickNumber, dupPlayer.TeamID = uuid.New(), 2, teams[1].ID
		assert.ErrorIs(t, s.InsertPick(ctx, dupPlayer), ErrPlayerTaken)

		undone, err := s.InvalidateLastPick(ctx, session.ID, epoch.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, first.ID, undone.ID)
		assert.False(t, undone.Valid())

		// the slot and the player are free again
		retry := first
		retry.ID = uuid.New()
		require.NoError(t, s.InsertPick(ctx, retry))

		picks, err := s.ListPicks(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, picks, 2)
		assert.Equal(t, first.ID, picks[0].ID)
		assert.Len(t, models.ValidPicks(picks), 1)

		_, err = s.InvalidateLastPick(ctx, session.ID, epoch)
		require.NoError(t, err)
		_, err = s.InvalidateLastPick(ctx, session.ID, epoch)
		assert.ErrorIs(t, err, ErrNoValidPicks)
	})

	t.Run("queue replace", func(t *testing.T) {
		league, teams := newLeague(seed, t)
		session := newSession(league.ID)
		require.NoError(t, s.CreateSession(ctx, session))

		queued := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		require.NoError(t, s.SetQueue(ctx, session.ID, teams[0].ID, queued))
		got, err := s.GetQueue(ctx, session.ID, teams[0].ID)
		require.NoError(t, err)
		assert.Equal(t, queued, got)

		require.NoError(t, s.SetQueue(ctx, session.ID, teams[0].ID, nil))
		got, err = s.GetQueue(ctx, session.ID, teams[0].ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
