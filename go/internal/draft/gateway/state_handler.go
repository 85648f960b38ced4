package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/rs/zerolog/log"
)

// StateHandler serves live state for clients that poll instead of holding a socket.
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetDraftState handles GET /live/sessions/{sessionID}
func (h *StateHandler) HandleGetDraftState(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	state, err := h.stateProvider.GetDraftState(r.Context(), sessionID)
	switch {
	case errors.Is(err, drafterr.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to get draft state")
		http.Error(w, drafterr.Reason(err), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, state)
}

// HandleGetActiveDrafts handles GET /live/sessions
func (h *StateHandler) HandleGetActiveDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.stateProvider.GetActiveDrafts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get active drafts")
		http.Error(w, "failed to get active drafts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, drafts)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(r chi.Router) {
	r.Get("/live/sessions", h.HandleGetActiveDrafts)
	r.Get("/live/sessions/{sessionID}", h.HandleGetDraftState)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
