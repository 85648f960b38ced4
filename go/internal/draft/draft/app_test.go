package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/draft/autopick"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/draft/events"
	"github.com/mcdev12/draftengine/go/internal/draft/outbox"
	"github.com/mcdev12/draftengine/go/internal/draft/pick"
	"github.com/mcdev12/draftengine/go/internal/draft/queue"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app          *App
	store        *repository.Memory
	picks        *pick.App
	queues       *queue.App
	outbox       *outbox.App
	clock        *clockwork.FakeClock
	league       models.League
	commissioner uuid.UUID
	owners       []uuid.UUID
	teams        []models.FantasyTeam
	players      []models.Player
}

// newFixture seeds a league with two human teams and one computer team.
func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC))
	store := repository.NewMemory()

	f := &fixture{store: store, clock: clock, commissioner: uuid.New()}
	f.league = models.League{ID: uuid.New(), Name: "Sunday League", CommissionerID: f.commissioner}
	store.AddLeague(f.league)

	f.owners = []uuid.UUID{uuid.New(), uuid.New()}
	for i := 0; i < 3; i++ {
		team := models.FantasyTeam{
			ID:        uuid.New(),
			LeagueID:  f.league.ID,
			Name:      []string{"Alpha", "Bravo", "Charlie"}[i],
			CreatedAt: clock.Now().Add(time.Duration(i) * time.Minute),
		}
		if i < 2 {
			team.OwnerID = &f.owners[i]
		}
		store.AddTeam(team)
		f.teams = append(f.teams, team)
	}

	for i := 0; i < 10; i++ {
		f.players = append(f.players, models.Player{
			ID:       uuid.New(),
			FullName: "Player",
			Position: "WR",
			Value:    float64(100 - i),
		})
	}
	store.AddPlayers(f.players...)

	f.picks = pick.NewApp(store, clock)
	f.queues = queue.NewApp(store, store, f.picks)
	f.outbox = outbox.NewApp(clock, 64)
	f.app = NewApp(Deps{
		Directory: store,
		Orders:    store,
		Picks:     f.picks,
		Chooser:   autopick.NewValueStrategy(store, f.picks, store),
		Queues:    f.queues,
		Events:    f.outbox,
	}, cfg, clock)
	return f
}

func (f *fixture) settings(rounds int) models.DraftSettings {
	return models.DraftSettings{Rounds: rounds, TimePerPickSec: 60, Mode: models.DraftModeStandard}
}

func (f *fixture) started(t *testing.T, rounds int) *models.Session {
	t.Helper()
	ctx := context.Background()
	s, err := f.app.Prepare(ctx, PrepareRequest{LeagueID: f.league.ID, Settings: f.settings(rounds)})
	require.NoError(t, err)
	s, err = f.app.Start(ctx, s.ID)
	require.NoError(t, err)
	return s
}

func (f *fixture) drainEvents() []string {
	var types []string
	for {
		select {
		case ev := <-f.outbox.Pending():
			types = append(types, ev.EventType)
		default:
			return types
		}
	}
}

func TestApp_PrepareAndStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	s, err := f.app.Prepare(ctx, PrepareRequest{LeagueID: f.league.ID, Settings: f.settings(2)})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusNotStarted, s.Status)

	o, err := f.store.GetOrder(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamIDs(f.teams), o.Base())
	assert.Len(t, o.Rounds, 2)

	s, err = f.app.Queue(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusQueued, s.Status)

	s, err = f.app.Start(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusInProgress, s.Status)
	require.NotNil(t, s.StartedAt)

	snap, err := f.app.State(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.State.CurrentPick)
	assert.Equal(t, 6, snap.State.TotalPicks)
	require.NotNil(t, snap.OnTheClock)
	assert.Equal(t, f.teams[0].ID, snap.OnTheClock.ID)

	assert.Equal(t, []string{events.TypeDraftStarted}, f.drainEvents())

	_, err = f.app.Start(ctx, s.ID)
	assert.ErrorIs(t, err, drafterr.ErrInvalidTransition)
}

func TestApp_PrepareValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	tests := []struct {
		name     string
		settings models.DraftSettings
	}{
		{"zero rounds", models.DraftSettings{Rounds: 0, TimePerPickSec: 60, Mode: models.DraftModeStandard}},
		{"zero time", models.DraftSettings{Rounds: 1, TimePerPickSec: 0, Mode: models.DraftModeStandard}},
		{"bad mode", models.DraftSettings{Rounds: 1, TimePerPickSec: 60, Mode: "AUCTION"}},
		{"custom not a permutation", models.DraftSettings{
			Rounds: 1, TimePerPickSec: 60, Mode: models.DraftModeCustom,
			CustomOrder: []uuid.UUID{uuid.New()},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.app.Prepare(ctx, PrepareRequest{LeagueID: f.league.ID, Settings: tt.settings})
			assert.ErrorIs(t, err, drafterr.ErrConfiguration)
		})
	}

	_, err := f.app.Prepare(ctx, PrepareRequest{LeagueID: f.league.ID, Settings: f.settings(1)})
	require.NoError(t, err)
	_, err = f.app.Prepare(ctx, PrepareRequest{LeagueID: f.league.ID, Settings: f.settings(1)})
	assert.ErrorIs(t, err, repository.ErrActiveSessionExists)
}

func TestApp_MakePick(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	s := f.started(t, 2)

	t.Run("not owner", func(t *testing.T) {
		_, err := f.app.MakePick(ctx, MakePickRequest{
			SessionID: s.ID, ActorID: f.owners[1], TeamID: f.teams[0].ID, PlayerID: f.players[0].ID,
		})
		assert.ErrorIs(t, err, drafterr.ErrNotAuthorized)
	})

	t.Run("not your turn", func(t *testing.T) {
		_, err := f.app.MakePick(ctx, MakePickRequest{
			SessionID: s.ID, ActorID: f.owners[1], TeamID: f.teams[1].ID, PlayerID: f.players[0].ID,
		})
		assert.ErrorIs(t, err, drafterr.ErrNotYourTurn)
	})

	t.Run("owner on the clock", func(t *testing.T) {
		res, err := f.app.MakePick(ctx, MakePickRequest{
			SessionID: s.ID, ActorID: f.owners[0], TeamID: f.teams[0].ID, PlayerID: f.players[0].ID,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Pick.PickNumber)
		assert.Equal(t, models.PickSourceManual, res.Pick.Source)
		assert.False(t, res.Complete)
	})

	t.Run("stale turn carries fresh state", func(t *testing.T) {
		_, err := f.app.MakePick(ctx, MakePickRequest{
			SessionID: s.ID, ActorID: f.owners[0], TeamID: f.teams[0].ID, PlayerID: f.players[1].ID,
			ExpectedRound: 1, ExpectedPick: 1,
		})
		require.ErrorIs(t, err, drafterr.ErrStaleTurn)
		var stale *StaleTurnError
		require.True(t, errors.As(err, &stale))
		assert.Equal(t, 2, stale.State.State.CurrentPick)
		assert.Equal(t, f.teams[1].ID, *stale.State.State.NextTeamID)
	})

	t.Run("override needs commissioner", func(t *testing.T) {
		_, err := f.app.MakePick(ctx, MakePickRequest{
			SessionID: s.ID, ActorID: f.owners[0], TeamID: f.teams[0].ID, PlayerID: f.players[1].ID,
			Override: true,
		})
		assert.ErrorIs(t, err, drafterr.ErrNotAuthorized)
	})

	t.Run("commissioner override", func(t *testing.T) {
		res, err := f.app.MakePick(ctx, MakePickRequest{
			SessionID: s.ID, ActorID: f.commissioner, TeamID: f.teams[0].ID, PlayerID: f.players[1].ID,
			Override: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Pick.PickNumber)
		assert.Equal(t, f.teams[0].ID, res.Pick.TeamID)
		assert.Equal(t, models.PickSourceOverride, res.Pick.Source)
	})

	t.Run("player already drafted", func(t *testing.T) {
		_, err := f.app.MakePick(ctx, MakePickRequest{
			SessionID: s.ID, ActorID: f.commissioner, TeamID: f.teams[2].ID, PlayerID: f.players[0].ID,
			Override: true,
		})
		assert.ErrorIs(t, err, drafterr.ErrPlayerAlreadyDrafted)
	})
}

func TestApp_MakePickRequiresInProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	s, err := f.app.Prepare(ctx, PrepareRequest{LeagueID: f.league.ID, Settings: f.settings(1)})
	require.NoError(t, err)

	_, err = f.app.MakePick(ctx, MakePickRequest{
		SessionID: s.ID, ActorID: f.owners[0], TeamID: f.teams[0].ID, PlayerID: f.players[0].ID,
	})
	assert.ErrorIs(t, err, drafterr.ErrInvalidTransition)
}

func TestApp_CompleteAndUndo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	s := f.started(t, 1)
	f.drainEvents()

	_, err := f.app.MakePick(ctx, MakePickRequest{SessionID: s.ID, ActorID: f.owners[0], TeamID: f.teams[0].ID, PlayerID: f.players[0].ID})
	require.NoError(t, err)
	_, err = f.app.MakePick(ctx, MakePickRequest{SessionID: s.ID, ActorID: f.owners[1], TeamID: f.teams[1].ID, PlayerID: f.players[1].ID})
	require.NoError(t, err)

	res, err := f.app.AutoPick(ctx, s.ID, Turn{PickNumber: 3, Round: 1, TeamID: f.teams[2].ID}, models.PickSourceComputer)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, f.players[2].ID, res.Pick.PlayerID)

	snap, err := f.app.State(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, snap.Session.Status)
	assert.True(t, snap.State.IsComplete)
	assert.Nil(t, snap.State.NextTeamID)
	assert.Contains(t, f.drainEvents(), events.TypeDraftCompleted)

	_, err = f.app.UndoLastPick(ctx, s.ID, f.owners[0])
	assert.ErrorIs(t, err, drafterr.ErrNotAuthorized)

	undone, err := f.app.UndoLastPick(ctx, s.ID, f.commissioner)
	require.NoError(t, err)
	assert.Equal(t, 3, undone.PickNumber)
	assert.Equal(t, []string{events.TypePickUndone}, f.drainEvents())

	snap, err = f.app.State(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusInProgress, snap.Session.Status)
	assert.Equal(t, 3, snap.State.CurrentPick)
	assert.Equal(t, f.teams[2].ID, snap.OnTheClock.ID)
}

func TestApp_AutoPick(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	s := f.started(t, 2)

	t.Run("stale turn", func(t *testing.T) {
		_, err := f.app.AutoPick(ctx, s.ID, Turn{PickNumber: 2, Round: 1, TeamID: f.teams[1].ID}, models.PickSourceTimer)
		assert.ErrorIs(t, err, drafterr.ErrStaleTurn)
	})

	t.Run("queue first for human team", func(t *testing.T) {
		_, err := f.queues.Add(ctx, f.owners[0], s.ID, f.teams[0].ID, f.players[7].ID)
		require.NoError(t, err)

		res, err := f.app.AutoPick(ctx, s.ID, Turn{PickNumber: 1, Round: 1, TeamID: f.teams[0].ID}, models.PickSourceTimer)
		require.NoError(t, err)
		assert.Equal(t, f.players[7].ID, res.Pick.PlayerID)
		assert.Equal(t, models.PickSourceQueue, res.Pick.Source)

		left, err := f.store.GetQueue(ctx, s.ID, f.teams[0].ID)
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("timer pick takes best value", func(t *testing.T) {
		res, err := f.app.AutoPick(ctx, s.ID, Turn{PickNumber: 2, Round: 1, TeamID: f.teams[1].ID}, models.PickSourceTimer)
		require.NoError(t, err)
		assert.Equal(t, f.players[0].ID, res.Pick.PlayerID)
		assert.Equal(t, models.PickSourceTimer, res.Pick.Source)
	})
}

func TestApp_StateRepairsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	s, err := f.app.Prepare(ctx, PrepareRequest{LeagueID: f.league.ID, Settings: f.settings(1)})
	require.NoError(t, err)

	_, err = f.store.UpdateSessionStatus(ctx, s.ID, models.SessionStatusCompleted, f.clock.Now())
	require.NoError(t, err)

	snap, err := f.app.State(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusNotStarted, snap.Session.Status)

	stored, err := f.store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusNotStarted, stored.Status)
}

func TestApp_StateOrderNotReady(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := newFixture(t, Config{OrderRetryAttempts: 3, OrderRetryBackoff: 100 * time.Millisecond})
	now := f.clock.Now()
	s := models.Session{
		ID:        uuid.New(),
		LeagueID:  f.league.ID,
		Status:    models.SessionStatusNotStarted,
		Settings:  f.settings(1),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.store.CreateSession(ctx, s))

	t.Run("order shows up on retry", func(t *testing.T) {
		done := make(chan error, 1)
		go func() {
			_, err := f.app.State(ctx, s.ID)
			done <- err
		}()

		require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
		require.NoError(t, f.store.SaveOrder(ctx, models.DraftOrder{
			SessionID: s.ID,
			Mode:      models.DraftModeStandard,
			Rounds:    [][]uuid.UUID{models.TeamIDs(f.teams)},
		}))
		f.clock.Advance(100 * time.Millisecond)

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-ctx.Done():
			t.Fatal("state did not return")
		}
	})

	t.Run("gives up", func(t *testing.T) {
		g := newFixture(t, Config{OrderRetryAttempts: 1})
		require.NoError(t, g.store.CreateSession(ctx, models.Session{
			ID: s.ID, LeagueID: g.league.ID, Status: models.SessionStatusNotStarted, Settings: g.settings(1),
		}))
		_, err := g.app.State(ctx, s.ID)
		assert.ErrorIs(t, err, drafterr.ErrOrderNotReady)
	})
}

func TestApp_Reset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	s := f.started(t, 1)

	_, err := f.app.MakePick(ctx, MakePickRequest{SessionID: s.ID, ActorID: f.owners[0], TeamID: f.teams[0].ID, PlayerID: f.players[0].ID})
	require.NoError(t, err)

	_, err = f.app.Reset(ctx, s.ID, f.owners[0])
	assert.ErrorIs(t, err, drafterr.ErrNotAuthorized)

	fresh, err := f.app.Reset(ctx, s.ID, f.commissioner)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, fresh.ID)
	assert.Equal(t, models.SessionStatusNotStarted, fresh.Status)

	active, err := f.app.ActiveSession(ctx, f.league.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, active.ID)

	old, err := f.app.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, old.Active())

	// history stays
	picks, err := f.picks.ValidPicks(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, picks, 1)

	snap, err := f.app.State(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.State.CurrentPick)

	_, err = f.app.Start(ctx, s.ID)
	assert.ErrorIs(t, err, drafterr.ErrInvalidTransition)
}

func TestApp_SessionNotFound(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	_, err := f.app.State(context.Background(), uuid.New())
	assert.ErrorIs(t, err, drafterr.ErrSessionNotFound)
}

func TestApp_StartKeepsRandomizedOrderOnceDrafting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	settings := f.settings(2)
	settings.Mode = models.DraftModeRandomized

	draftFirstPick := func(t *testing.T, s *models.Session) {
		t.Helper()
		o, err := f.store.GetOrder(ctx, s.ID)
		require.NoError(t, err)
		require.NoError(t, f.store.InsertPick(ctx, models.Pick{
			ID: uuid.New(), SessionID: s.ID, Round: 1, PickNumber: 1,
			TeamID: o.Rounds[0][0], PlayerID: f.players[0].ID,
			Source: models.PickSourceManual, PickedAt: f.clock.Now(),
		}))
		// the order row goes missing afterwards
		require.NoError(t, f.store.SaveOrder(ctx, models.DraftOrder{SessionID: s.ID, Mode: settings.Mode}))
	}

	t.Run("in progress session is rejected before any order work", func(t *testing.T) {
		s, err := f.app.Prepare(ctx, PrepareRequest{LeagueID: f.league.ID, Settings: settings})
		require.NoError(t, err)
		_, err = f.app.Start(ctx, s.ID)
		require.NoError(t, err)
		draftFirstPick(t, s)

		_, err = f.app.Start(ctx, s.ID)
		assert.ErrorIs(t, err, drafterr.ErrInvalidTransition)

		o, err := f.store.GetOrder(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, o.Rounds)

		_, err = f.app.Reset(ctx, s.ID, f.commissioner)
		require.NoError(t, err)
	})

	t.Run("picks on a not started session block a reshuffle", func(t *testing.T) {
		s, err := f.app.ActiveSession(ctx, f.league.ID)
		require.NoError(t, err)
		require.Equal(t, models.SessionStatusNotStarted, s.Status)
		draftFirstPick(t, s)

		_, err = f.app.Start(ctx, s.ID)
		assert.ErrorIs(t, err, drafterr.ErrConfiguration)

		o, err := f.store.GetOrder(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, o.Rounds)
		got, err := f.app.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusNotStarted, got.Status)
	})
}
