package draft

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/draft/pick"
	"github.com/mcdev12/draftengine/go/internal/draft/queue"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ActorHeader carries the id of the user making the request.
const ActorHeader = "X-User-ID"

// SessionApp defines what the service layer needs from the draft application
type SessionApp interface {
	Prepare(ctx context.Context, req PrepareRequest) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.Session, error)
	Queue(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	State(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error)
	MakePick(ctx context.Context, req MakePickRequest) (*pick.CommitResult, error)
	RequireCommissioner(ctx context.Context, session *models.Session, actorID uuid.UUID) error
}

// TimerControl drives the turn timer alongside the session status.
type TimerControl interface {
	StartDraft(ctx context.Context, sessionID uuid.UUID) error
	PauseDraft(ctx context.Context, sessionID uuid.UUID) error
	ResumeDraft(ctx context.Context, sessionID uuid.UUID) error
	ResetDraft(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Session, error)
	UndoLastPick(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Pick, error)
}

// QueueApp defines the queue operations exposed over HTTP
type QueueApp interface {
	Get(ctx context.Context, sessionID, teamID uuid.UUID) ([]uuid.UUID, error)
	Add(ctx context.Context, actorID, sessionID, teamID, playerID uuid.UUID) ([]uuid.UUID, error)
	Remove(ctx context.Context, actorID, sessionID, teamID, playerID uuid.UUID) ([]uuid.UUID, error)
	Reorder(ctx context.Context, actorID, sessionID, teamID uuid.UUID, playerIDs []uuid.UUID) ([]uuid.UUID, error)
}

// Service exposes draft sessions over JSON/HTTP
type Service struct {
	app    SessionApp
	timers TimerControl
	queues QueueApp
}

// NewService creates a new draft HTTP service
func NewService(app SessionApp, timers TimerControl, queues QueueApp) *Service {
	return &Service{
		app:    app,
		timers: timers,
		queues: queues,
	}
}

// Routes mounts the draft endpoints on r.
func (s *Service) Routes(r chi.Router) {
	r.Post("/sessions", s.prepare)
	r.Get("/leagues/{leagueID}/session", s.activeSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Get("/state", s.getState)
		r.Post("/queue", s.queueSession)
		r.Post("/start", s.start)
		r.Post("/pause", s.pause)
		r.Post("/resume", s.resume)
		r.Post("/reset", s.reset)
		r.Post("/picks", s.makePick)
		r.Post("/picks/undo", s.undo)

		r.Get("/teams/{teamID}/queue", s.getQueue)
		r.Put("/teams/{teamID}/queue", s.reorderQueue)
		r.Post("/teams/{teamID}/queue", s.addToQueue)
		r.Delete("/teams/{teamID}/queue/{playerID}", s.removeFromQueue)
	})
}

func (s *Service) prepare(w http.ResponseWriter, r *http.Request) {
	var req PrepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}
	session, err := s.app.Prepare(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Service) activeSession(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := pathID(w, r, "leagueID")
	if !ok {
		return
	}
	session, err := s.app.ActiveSession(r.Context(), leagueID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Service) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	session, err := s.app.GetSession(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Service) getState(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	snap, err := s.app.State(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Service) queueSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.commissionerSession(w, r)
	if !ok {
		return
	}
	updated, err := s.app.Queue(r.Context(), session.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Service) start(w http.ResponseWriter, r *http.Request) {
	s.timerAction(w, r, s.timers.StartDraft)
}

func (s *Service) pause(w http.ResponseWriter, r *http.Request) {
	s.timerAction(w, r, s.timers.PauseDraft)
}

func (s *Service) resume(w http.ResponseWriter, r *http.Request) {
	s.timerAction(w, r, s.timers.ResumeDraft)
}

func (s *Service) timerAction(w http.ResponseWriter, r *http.Request, action func(context.Context, uuid.UUID) error) {
	session, ok := s.commissionerSession(w, r)
	if !ok {
		return
	}
	if err := action(r.Context(), session.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeState(w, r, session.ID)
}

func (s *Service) reset(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	fresh, err := s.timers.ResetDraft(r.Context(), sessionID, actorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fresh)
}

func (s *Service) makePick(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var req MakePickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.SessionID = sessionID
	req.ActorID = actorID

	res, err := s.app.MakePick(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Service) undo(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	p, err := s.timers.UndoLastPick(r.Context(), sessionID, actorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Service) getQueue(w http.ResponseWriter, r *http.Request) {
	sessionID, teamID, ok := sessionTeam(w, r)
	if !ok {
		return
	}
	ids, err := s.queues.Get(r.Context(), sessionID, teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{PlayerIDs: ids})
}

type queueResponse struct {
	PlayerIDs []uuid.UUID `json:"player_ids"`
}

type addToQueueRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

func (s *Service) addToQueue(w http.ResponseWriter, r *http.Request) {
	sessionID, teamID, ok := sessionTeam(w, r)
	if !ok {
		return
	}
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var req addToQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ids, err := s.queues.Add(r.Context(), actorID, sessionID, teamID, req.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{PlayerIDs: ids})
}

func (s *Service) reorderQueue(w http.ResponseWriter, r *http.Request) {
	sessionID, teamID, ok := sessionTeam(w, r)
	if !ok {
		return
	}
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var req queueResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ids, err := s.queues.Reorder(r.Context(), actorID, sessionID, teamID, req.PlayerIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{PlayerIDs: ids})
}

func (s *Service) removeFromQueue(w http.ResponseWriter, r *http.Request) {
	sessionID, teamID, ok := sessionTeam(w, r)
	if !ok {
		return
	}
	playerID, ok := pathID(w, r, "playerID")
	if !ok {
		return
	}
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	ids, err := s.queues.Remove(r.Context(), actorID, sessionID, teamID, playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{PlayerIDs: ids})
}

func (s *Service) commissionerSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return nil, false
	}
	actorID, ok := actor(w, r)
	if !ok {
		return nil, false
	}
	session, err := s.app.GetSession(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if err := s.app.RequireCommissioner(r.Context(), session, actorID); err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return session, true
}

func (s *Service) writeState(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	snap, err := s.app.State(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+param, err)
		return uuid.Nil, false
	}
	return id, true
}

func sessionTeam(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return sessionID, teamID, true
}

func actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get(ActorHeader))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing_actor", err)
		return uuid.Nil, false
	}
	return id, true
}

type errorResponse struct {
	Reason string    `json:"reason"`
	Error  string    `json:"error"`
	State  *Snapshot `json:"state,omitempty"`
}

// writeDomainError maps engine errors to a status code and a stable reason.
func writeDomainError(w http.ResponseWriter, err error) {
	var stale *StaleTurnError
	if errors.As(err, &stale) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Reason: drafterr.Reason(err),
			Error:  err.Error(),
			State:  stale.State,
		})
		return
	}

	status := http.StatusInternalServerError
	reason := drafterr.Reason(err)
	switch {
	case errors.Is(err, drafterr.ErrConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, drafterr.ErrSessionNotFound), errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
		reason = "not_found"
	case errors.Is(err, drafterr.ErrNotAuthorized), errors.Is(err, queue.ErrNotOwner):
		status = http.StatusForbidden
		reason = "not_authorized"
	case errors.Is(err, drafterr.ErrStaleTurn),
		errors.Is(err, drafterr.ErrNotYourTurn),
		errors.Is(err, drafterr.ErrPlayerAlreadyDrafted),
		errors.Is(err, drafterr.ErrInvalidTransition),
		errors.Is(err, repository.ErrActiveSessionExists):
		status = http.StatusConflict
	case errors.Is(err, queue.ErrComputerTeam), errors.Is(err, queue.ErrInvalidReorder):
		status = http.StatusUnprocessableEntity
		reason = "invalid_queue"
	case errors.Is(err, drafterr.ErrOrderNotReady), errors.Is(err, drafterr.ErrStateUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("draft request failed")
	}
	writeJSON(w, status, errorResponse{Reason: reason, Error: err.Error()})
}

func writeError(w http.ResponseWriter, status int, reason string, err error) {
	writeJSON(w, status, errorResponse{Reason: reason, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
