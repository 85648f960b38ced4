package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appTimers drives the app directly, without a turn timer.
type appTimers struct {
	app *App
}

func (t appTimers) StartDraft(ctx context.Context, id uuid.UUID) error {
	_, err := t.app.Start(ctx, id)
	return err
}

func (t appTimers) PauseDraft(ctx context.Context, id uuid.UUID) error  { return nil }
func (t appTimers) ResumeDraft(ctx context.Context, id uuid.UUID) error { return nil }

func (t appTimers) ResetDraft(ctx context.Context, id, actorID uuid.UUID) (*models.Session, error) {
	return t.app.Reset(ctx, id, actorID)
}

func (t appTimers) UndoLastPick(ctx context.Context, id, actorID uuid.UUID) (*models.Pick, error) {
	return t.app.UndoLastPick(ctx, id, actorID)
}

func newTestServer(t *testing.T) (*fixture, *httptest.Server) {
	t.Helper()
	f := newFixture(t, DefaultConfig())
	r := chi.NewRouter()
	NewService(f.app, appTimers{app: f.app}, f.queues).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, actor uuid.UUID, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if actor != uuid.Nil {
		req.Header.Set(ActorHeader, actor.String())
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestService_Lifecycle(t *testing.T) {
	f, srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/sessions", uuid.Nil, PrepareRequest{
		LeagueID: f.league.ID,
		Settings: f.settings(1),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := body["id"].(string)

	resp, _ = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/start", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/start", f.owners[0], nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not_authorized", body["reason"])

	resp, body = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/start", f.commissioner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := body["state"].(map[string]any)
	assert.Equal(t, float64(1), st["current_pick"])

	resp, _ = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/picks", f.owners[0], map[string]any{
		"team_id":   f.teams[0].ID,
		"player_id": f.players[0].ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/picks", f.owners[0], map[string]any{
		"team_id":        f.teams[0].ID,
		"player_id":      f.players[1].ID,
		"expected_round": 1,
		"expected_pick":  1,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "stale_turn", body["reason"])
	fresh := body["state"].(map[string]any)["state"].(map[string]any)
	assert.Equal(t, float64(2), fresh["current_pick"])

	resp, body = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/picks", f.owners[0], map[string]any{
		"team_id":   f.teams[0].ID,
		"player_id": f.players[0].ID,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "player_already_drafted", body["reason"])
}

func TestService_Queue(t *testing.T) {
	f, srv := newTestServer(t)
	s := f.started(t, 1)
	base := "/sessions/" + s.ID.String() + "/teams/" + f.teams[0].ID.String() + "/queue"

	resp, _ := do(t, srv, http.MethodPost, base, f.owners[0], map[string]any{"player_id": f.players[3].ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodPost, base, f.owners[0], map[string]any{"player_id": f.players[4].ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, base, f.owners[1], map[string]any{"player_id": f.players[5].ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPut, base, f.owners[0], map[string]any{
		"player_ids": []uuid.UUID{f.players[4].ID, f.players[3].ID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{f.players[4].ID.String(), f.players[3].ID.String()}, body["player_ids"])

	resp, body = do(t, srv, http.MethodDelete, base+"/"+f.players[4].ID.String(), f.owners[0], nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{f.players[3].ID.String()}, body["player_ids"])

	computer := "/sessions/" + s.ID.String() + "/teams/" + f.teams[2].ID.String() + "/queue"
	resp, body = do(t, srv, http.MethodPost, computer, f.owners[0], map[string]any{"player_id": f.players[5].ID})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_queue", body["reason"])
}

func TestService_NotFound(t *testing.T) {
	_, srv := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/sessions/"+uuid.NewString()+"/state", uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["reason"])

	resp, _ = do(t, srv, http.MethodGet, "/sessions/not-a-uuid/state", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
