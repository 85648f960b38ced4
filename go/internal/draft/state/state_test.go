package state

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/draft/order"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourTeams() []uuid.UUID {
	return []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
}

func TestResolve_SerpentineTwoRounds(t *testing.T) {
	ids := fourTeams()
	t1, t2, t3, t4 := ids[0], ids[1], ids[2], ids[3]
	rounds, err := order.Generate(ids, models.DraftModeSerpentine, 2, order.Options{})
	require.NoError(t, err)
	o := &models.DraftOrder{Mode: models.DraftModeSerpentine, Rounds: rounds}

	want := []uuid.UUID{t1, t2, t3, t4, t4, t3, t2, t1}
	for i, team := range want {
		st, err := Resolve(i, o, 4, 2)
		require.NoError(t, err)
		assert.Equal(t, i+1, st.CurrentPick)
		assert.Equal(t, 8, st.TotalPicks)
		assert.False(t, st.IsComplete)
		require.NotNil(t, st.NextTeamID)
		assert.Equal(t, team, *st.NextTeamID, "pick %d", i+1)
	}

	st, err := Resolve(8, o, 4, 2)
	require.NoError(t, err)
	assert.True(t, st.IsComplete)
	assert.Equal(t, 9, st.CurrentPick)
	assert.Nil(t, st.NextTeamID)
}

func TestResolve_Invariants(t *testing.T) {
	ids := fourTeams()
	o := &models.DraftOrder{Rounds: order.Extend(ids, 3, false)}

	for count := 0; count <= 12; count++ {
		st, err := Resolve(count, o, 4, 3)
		require.NoError(t, err)
		assert.Equal(t, count+1, st.CurrentPick)
		assert.Equal(t, count >= 12, st.IsComplete)
		assert.Equal(t, (st.CurrentPick+3)/4, st.CurrentRound)
	}
}

func TestResolve_MissingRoundFallsBackToSerpentine(t *testing.T) {
	ids := fourTeams()
	// only round 1 persisted
	o := &models.DraftOrder{Rounds: [][]uuid.UUID{ids}}

	st, err := Resolve(4, o, 4, 2)
	require.NoError(t, err)
	require.NotNil(t, st.NextTeamID)
	assert.Equal(t, ids[3], *st.NextTeamID)
	assert.Equal(t, 2, st.CurrentRound)
}

func TestResolve_Errors(t *testing.T) {
	_, err := Resolve(0, nil, 4, 2)
	assert.ErrorIs(t, err, drafterr.ErrOrderNotReady)

	_, err = Resolve(0, &models.DraftOrder{}, 4, 2)
	assert.ErrorIs(t, err, drafterr.ErrOrderNotReady)

	_, err = Resolve(0, &models.DraftOrder{Rounds: [][]uuid.UUID{fourTeams()}}, 0, 2)
	assert.ErrorIs(t, err, drafterr.ErrConfiguration)
}

func TestRepair(t *testing.T) {
	ids := fourTeams()
	o := &models.DraftOrder{Rounds: order.Extend(ids, 2, false)}
	started := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)

	resolve := func(count int) models.DraftState {
		st, err := Resolve(count, o, 4, 2)
		require.NoError(t, err)
		return st
	}

	t.Run("healthy state is resolved", func(t *testing.T) {
		res := Repair(Input{Status: models.SessionStatusInProgress, StartedAt: &started, State: resolve(3), Order: o, TeamIDs: ids})
		assert.Equal(t, Resolved, res.Outcome)
		assert.Equal(t, models.SessionStatusInProgress, res.Status)
		assert.Empty(t, res.Fixes)
	})

	t.Run("impossible pick count", func(t *testing.T) {
		st := resolve(8)
		st.PickCount = 9
		st.CurrentPick = 10
		res := Repair(Input{Status: models.SessionStatusCompleted, StartedAt: &started, State: st, Order: o, TeamIDs: ids})
		assert.Equal(t, Unavailable, res.Outcome)
		assert.NotEmpty(t, res.Reason)
	})

	t.Run("null next team is recomputed", func(t *testing.T) {
		st := resolve(5)
		st.NextTeamID = nil
		res := Repair(Input{Status: models.SessionStatusInProgress, StartedAt: &started, State: st, Order: o, TeamIDs: ids})
		assert.Equal(t, NeedsRepair, res.Outcome)
		require.NotNil(t, res.State.NextTeamID)
		assert.Equal(t, ids[2], *res.State.NextTeamID)
	})

	t.Run("unmatched next team with broken order", func(t *testing.T) {
		stranger := uuid.New()
		broken := &models.DraftOrder{Rounds: [][]uuid.UUID{{stranger, ids[1], ids[2], ids[3]}}}
		st, err := Resolve(0, broken, 4, 2)
		require.NoError(t, err)
		res := Repair(Input{Status: models.SessionStatusInProgress, StartedAt: &started, State: st, Order: broken, TeamIDs: ids})
		assert.Equal(t, Unavailable, res.Outcome)
	})

	t.Run("completed with zero picks reverts", func(t *testing.T) {
		res := Repair(Input{Status: models.SessionStatusCompleted, StartedAt: &started, State: resolve(0), Order: o, TeamIDs: ids})
		assert.Equal(t, NeedsRepair, res.Outcome)
		assert.Equal(t, models.SessionStatusNotStarted, res.Status)
	})

	t.Run("in progress that never started reverts", func(t *testing.T) {
		res := Repair(Input{Status: models.SessionStatusInProgress, State: resolve(0), Order: o, TeamIDs: ids})
		assert.Equal(t, NeedsRepair, res.Outcome)
		assert.Equal(t, models.SessionStatusNotStarted, res.Status)
	})

	t.Run("in progress at zero picks after start is fine", func(t *testing.T) {
		res := Repair(Input{Status: models.SessionStatusInProgress, StartedAt: &started, State: resolve(0), Order: o, TeamIDs: ids})
		assert.Equal(t, Resolved, res.Outcome)
	})

	t.Run("lagging completion", func(t *testing.T) {
		res := Repair(Input{Status: models.SessionStatusInProgress, StartedAt: &started, State: resolve(8), Order: o, TeamIDs: ids})
		assert.Equal(t, NeedsRepair, res.Outcome)
		assert.Equal(t, models.SessionStatusCompleted, res.Status)
	})

	t.Run("completed with picks remaining", func(t *testing.T) {
		res := Repair(Input{Status: models.SessionStatusCompleted, StartedAt: &started, State: resolve(7), Order: o, TeamIDs: ids})
		assert.Equal(t, NeedsRepair, res.Outcome)
		assert.Equal(t, models.SessionStatusInProgress, res.Status)
	})
}
