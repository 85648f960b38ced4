package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/draft/draft"
	"github.com/mcdev12/draftengine/go/internal/draft/fixture"
	"github.com/mcdev12/draftengine/go/internal/draft/gateway"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, srv *httptest.Server, method, path string, actor uuid.UUID, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if actor != uuid.Nil {
		req.Header.Set(draft.ActorHeader, actor.String())
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServices_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	config := defaultConfig()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC))

	s := repository.NewMemory()
	require.NoError(t, seedStore(ctx, s, "../assets/fixture.yaml", clock))
	f, err := fixture.Load("../assets/fixture.yaml")
	require.NoError(t, err)
	league := f.Leagues[0]

	services := setupServices(config, s, clock)
	require.NoError(t, services.Orchestrator.Start(ctx))
	t.Cleanup(services.Orchestrator.Shutdown)
	go services.Gateway.Start(ctx)

	srv := httptest.NewServer(setupServer(config, services).Handler)
	t.Cleanup(srv.Close)

	var health bytes.Buffer
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	_, _ = health.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", health.String())

	var session models.Session
	status := call(t, srv, http.MethodPost, "/api/v1/sessions", uuid.Nil, draft.PrepareRequest{
		LeagueID: league.ID,
		Settings: models.DraftSettings{Rounds: 2, TimePerPickSec: 60, Mode: models.DraftModeStandard},
	}, &session)
	require.Equal(t, http.StatusCreated, status)

	status = call(t, srv, http.MethodPost, "/api/v1/sessions/"+session.ID.String()+"/start", league.CommissionerID, nil, nil)
	require.Equal(t, http.StatusOK, status)

	var live gateway.DraftStateResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/live/sessions/"+session.ID.String(), uuid.Nil, nil, &live))
	assert.Equal(t, string(models.SessionStatusInProgress), live.Status)
	assert.Equal(t, len(league.Teams)*2, live.TotalPicks)
	require.NotNil(t, live.CurrentPick)
	assert.Equal(t, league.Teams[0].ID.String(), live.CurrentPick.TeamID)
	assert.Equal(t, "running", live.Clock.Phase)

	status = call(t, srv, http.MethodPost, "/api/v1/sessions/"+session.ID.String()+"/picks", *league.Teams[0].OwnerID, map[string]any{
		"team_id":   league.Teams[0].ID,
		"player_id": f.Players[0].ID,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/live/sessions/"+session.ID.String(), uuid.Nil, nil, &live))
	assert.Equal(t, 1, live.CompletedPicks)
	require.Len(t, live.RecentPicks, 1)
	assert.Equal(t, f.Players[0].ID.String(), live.RecentPicks[0].PlayerID)

	// the committed pick and the start were recorded for publishing
	assert.GreaterOrEqual(t, len(services.Outbox.Pending()), 2)
}
