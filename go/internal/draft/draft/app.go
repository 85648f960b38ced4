package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/draft/autopick"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/draft/events"
	"github.com/mcdev12/draftengine/go/internal/draft/order"
	"github.com/mcdev12/draftengine/go/internal/draft/pick"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
	"github.com/mcdev12/draftengine/go/internal/draft/state"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Directory defines what the draft app needs from the league/session store
type Directory interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.FantasyTeam, error)
	ListTeams(ctx context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error)
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.Session, error)
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, at time.Time) (*models.Session, error)
	SupersedeSession(ctx context.Context, id uuid.UUID, at time.Time) error
}

// OrderStore persists generated draft orders. GetOrder returns repository.ErrNotFound
// when no order exists yet.
type OrderStore interface {
	GetOrder(ctx context.Context, sessionID uuid.UUID) (*models.DraftOrder, error)
	SaveOrder(ctx context.Context, o models.DraftOrder) error
}

// PickApp is the pick ledger front.
type PickApp interface {
	ValidPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error)
	Commit(ctx context.Context, req pick.CommitRequest) (*pick.CommitResult, error)
	InvalidateLast(ctx context.Context, sessionID uuid.UUID) (*models.Pick, error)
}

// Chooser picks a player for a team whose time ran out.
type Chooser interface {
	Choose(ctx context.Context, sessionID uuid.UUID, team models.FantasyTeam) (autopick.Selection, error)
}

// QueueConsumer drops a player from a team queue once it was auto drafted.
type QueueConsumer interface {
	Consume(ctx context.Context, sessionID, teamID, playerID uuid.UUID) error
}

// Events records lifecycle events for publishing.
type Events interface {
	InsertOutboxDraftStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxDraftCompleted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxDraftReset(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxPickUndone(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// Deps groups the collaborators of App.
type Deps struct {
	Directory Directory
	Orders    OrderStore
	Picks     PickApp
	Chooser   Chooser
	Queues    QueueConsumer
	Events    Events
	// Rand drives randomized order generation. Nil uses the package generator.
	Rand order.Source
}

type Config struct {
	// OrderRetryAttempts bounds how often a missing order is re-read.
	OrderRetryAttempts int
	// OrderRetryBackoff is multiplied by the attempt number between reads.
	OrderRetryBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		OrderRetryAttempts: 5,
		OrderRetryBackoff:  200 * time.Millisecond,
	}
}

// App handles draft session business logic
type App struct {
	dir     Directory
	orders  OrderStore
	picks   PickApp
	chooser Chooser
	queues  QueueConsumer
	events  Events
	rand    order.Source
	config  Config
	clock   clockwork.Clock
}

// NewApp creates a new draft App
func NewApp(deps Deps, cfg Config, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.OrderRetryAttempts < 1 {
		cfg.OrderRetryAttempts = 1
	}
	return &App{
		dir:     deps.Directory,
		orders:  deps.Orders,
		picks:   deps.Picks,
		chooser: deps.Chooser,
		queues:  deps.Queues,
		events:  deps.Events,
		rand:    deps.Rand,
		config:  cfg,
		clock:   clock,
	}
}

// Prepare creates a not started session for a league together with its draft order.
func (a *App) Prepare(ctx context.Context, req PrepareRequest) (*models.Session, error) {
	if err := a.validatePrepareRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if _, err := a.dir.GetLeague(ctx, req.LeagueID); err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}

	now := a.clock.Now().UTC()
	session := models.Session{
		ID:          uuid.New(),
		LeagueID:    req.LeagueID,
		Status:      models.SessionStatusNotStarted,
		Settings:    req.Settings,
		ScheduledAt: req.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.createSession(ctx, session); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("league_id", req.LeagueID.String()).
		Str("mode", string(req.Settings.Mode)).
		Int("rounds", req.Settings.Rounds).
		Msg("draft session prepared")
	return &session, nil
}

// createSession stores the session and generates its order.
func (a *App) createSession(ctx context.Context, session models.Session) error {
	teams, err := a.dir.ListTeams(ctx, session.LeagueID)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}
	rounds, err := a.generateOrder(session, teams, nil, 0)
	if err != nil {
		return err
	}

	if err := a.dir.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if err := a.orders.SaveOrder(ctx, models.DraftOrder{
		SessionID: session.ID,
		Mode:      session.Settings.Mode,
		Rounds:    rounds,
		CreatedAt: session.CreatedAt,
	}); err != nil {
		return fmt.Errorf("failed to save draft order: %w", err)
	}
	return nil
}

func (a *App) generateOrder(session models.Session, teams []models.FantasyTeam, existing *models.DraftOrder, pickCount int) ([][]uuid.UUID, error) {
	s := session.Settings
	rounds, err := order.Generate(models.TeamIDs(teams), s.Mode, s.Rounds, order.Options{
		BaseOrder:          s.CustomOrder,
		RoundOverrides:     s.RoundOverrides,
		Existing:           existing,
		PickCount:          pickCount,
		Rand:               a.rand,
		ThirdRoundReversal: s.ThirdRoundReversal,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate draft order: %w", err)
	}
	return rounds, nil
}

// GetSession retrieves a session by ID
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := a.dir.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, drafterr.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ActiveSession returns the current session of a league.
func (a *App) ActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.Session, error) {
	session, err := a.dir.GetActiveSession(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("league %s: %w", leagueID, drafterr.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return session, nil
}

// Queue marks a prepared session as waiting for its start.
func (a *App) Queue(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return a.transition(ctx, sessionID, models.SessionStatusQueued, models.SessionStatusNotStarted)
}

// Start moves a session to in progress. A missing order is generated first.
func (a *App) Start(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	session, err := a.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	from := []models.SessionStatus{models.SessionStatusNotStarted, models.SessionStatusQueued}
	if !session.Active() || !validTransition(session.Status, from) {
		return nil, fmt.Errorf("transition from %s to %s: %w",
			session.Status, models.SessionStatusInProgress, drafterr.ErrInvalidTransition)
	}
	if err := a.ensureOrder(ctx, *session); err != nil {
		return nil, err
	}

	session, err = a.transition(ctx, sessionID, models.SessionStatusInProgress, from...)
	if err != nil {
		return nil, err
	}

	teams, err := a.dir.ListTeams(ctx, session.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	a.emit(ctx, session.ID, events.TypeDraftStarted, events.DraftStartedPayload{
		SessionID:   session.ID.String(),
		LeagueID:    session.LeagueID.String(),
		Mode:        string(session.Settings.Mode),
		StartedAt:   derefTime(session.StartedAt),
		TotalRounds: session.Settings.Rounds,
		TotalPicks:  session.Settings.Rounds * len(teams),
	})
	return session, nil
}

// ensureOrder regenerates a missing order. Randomized mode refuses once picks exist.
func (a *App) ensureOrder(ctx context.Context, session models.Session) error {
	existing, err := a.orders.GetOrder(ctx, session.ID)
	switch {
	case err == nil && len(existing.Base()) > 0:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		existing = nil
	case err != nil:
		return fmt.Errorf("failed to get draft order: %w", err)
	}

	teams, err := a.dir.ListTeams(ctx, session.LeagueID)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}
	picks, err := a.picks.ValidPicks(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load picks: %w", err)
	}
	rounds, err := a.generateOrder(session, teams, existing, len(picks))
	if err != nil {
		return err
	}
	if err := a.orders.SaveOrder(ctx, models.DraftOrder{
		SessionID: session.ID,
		Mode:      session.Settings.Mode,
		Rounds:    rounds,
		CreatedAt: a.clock.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to save draft order: %w", err)
	}

	log.Warn().
		Str("session_id", session.ID.String()).
		Msg("draft order was missing at start, generated")
	return nil
}

// Complete marks an in progress session as completed. Completing a completed session
// is a no-op.
func (a *App) Complete(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	current, err := a.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.SessionStatusCompleted {
		return current, nil
	}

	session, err := a.transition(ctx, sessionID, models.SessionStatusCompleted, models.SessionStatusInProgress)
	if err != nil {
		return nil, err
	}

	picks, err := a.picks.ValidPicks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	completedAt := derefTime(session.CompletedAt)
	var duration time.Duration
	if session.StartedAt != nil {
		duration = completedAt.Sub(*session.StartedAt)
	}
	a.emit(ctx, session.ID, events.TypeDraftCompleted, events.DraftCompletedPayload{
		SessionID:   session.ID.String(),
		CompletedAt: completedAt,
		Duration:    duration.String(),
		TotalPicks:  len(picks),
	})
	return session, nil
}

// Reset supersedes the session and prepares a fresh one with the same settings. Picks
// of the old session stay in the ledger.
func (a *App) Reset(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Session, error) {
	old, err := a.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !old.Active() {
		return nil, fmt.Errorf("session %s already superseded: %w", sessionID, drafterr.ErrInvalidTransition)
	}
	if err := a.RequireCommissioner(ctx, old, actorID); err != nil {
		return nil, err
	}

	now := a.clock.Now().UTC()
	if err := a.dir.SupersedeSession(ctx, sessionID, now); err != nil {
		return nil, fmt.Errorf("failed to supersede session: %w", err)
	}

	fresh := models.Session{
		ID:          uuid.New(),
		LeagueID:    old.LeagueID,
		Status:      models.SessionStatusNotStarted,
		Settings:    old.Settings,
		ScheduledAt: old.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.createSession(ctx, fresh); err != nil {
		return nil, err
	}

	log.Warn().
		Str("session_id", sessionID.String()).
		Str("new_session_id", fresh.ID.String()).
		Str("actor_id", actorID.String()).
		Msg("draft session reset")

	a.emit(ctx, sessionID, events.TypeDraftReset, events.DraftResetPayload{
		SessionID:    sessionID.String(),
		NewSessionID: fresh.ID.String(),
		LeagueID:     fresh.LeagueID.String(),
		ResetAt:      now,
	})
	return &fresh, nil
}

// State resolves the session, repairs what can be derived again and persists a
// corrected status. It returns drafterr.ErrStateUnavailable when repair gives up.
func (a *App) State(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error) {
	snap, _, err := a.resolve(ctx, sessionID)
	return snap, err
}

func (a *App) resolve(ctx context.Context, sessionID uuid.UUID) (*Snapshot, *models.DraftOrder, error) {
	session, err := a.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	teams, err := a.dir.ListTeams(ctx, session.LeagueID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list teams: %w", err)
	}
	draftOrder, err := a.loadOrder(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	picks, err := a.picks.ValidPicks(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	resolved, err := state.Resolve(len(picks), draftOrder, len(teams), session.Settings.Rounds)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve state: %w", err)
	}

	res := state.Repair(state.Input{
		Status:    session.Status,
		StartedAt: session.StartedAt,
		State:     resolved,
		Order:     draftOrder,
		TeamIDs:   models.TeamIDs(teams),
	})
	switch res.Outcome {
	case state.Unavailable:
		log.Error().
			Str("session_id", sessionID.String()).
			Int("pick_count", resolved.PickCount).
			Str("reason", res.Reason).
			Msg("draft state unavailable")
		return nil, nil, fmt.Errorf("session %s: %s: %w", sessionID, res.Reason, drafterr.ErrStateUnavailable)
	case state.NeedsRepair:
		log.Warn().
			Str("session_id", sessionID.String()).
			Strs("fixes", res.Fixes).
			Msg("draft state repaired")
		if res.Status != session.Status {
			session, err = a.dir.UpdateSessionStatus(ctx, sessionID, res.Status, a.clock.Now().UTC())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to persist repaired status: %w", err)
			}
		}
	}

	snap := &Snapshot{
		Session: *session,
		State:   res.State,
		Teams:   teams,
		Repair:  res.Outcome,
	}
	if next := res.State.NextTeamID; next != nil {
		for i := range teams {
			if teams[i].ID == *next {
				snap.OnTheClock = &teams[i]
				break
			}
		}
	}
	return snap, draftOrder, nil
}

// loadOrder reads the draft order, retrying while it has not been written yet.
func (a *App) loadOrder(ctx context.Context, sessionID uuid.UUID) (*models.DraftOrder, error) {
	var lastErr error
	for attempt := 1; attempt <= a.config.OrderRetryAttempts; attempt++ {
		o, err := a.orders.GetOrder(ctx, sessionID)
		switch {
		case err == nil && len(o.Base()) > 0:
			return o, nil
		case err == nil, errors.Is(err, repository.ErrNotFound):
			lastErr = drafterr.ErrOrderNotReady
		default:
			return nil, fmt.Errorf("failed to get draft order: %w", err)
		}

		if attempt == a.config.OrderRetryAttempts {
			break
		}
		log.Debug().
			Str("session_id", sessionID.String()).
			Int("attempt", attempt).
			Msg("draft order not ready, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-a.clock.After(a.config.OrderRetryBackoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("session %s after %d attempts: %w", sessionID, a.config.OrderRetryAttempts, lastErr)
}

// MakePick commits a manual pick. On a stale turn the returned error is a
// *StaleTurnError holding the fresh state.
func (a *App) MakePick(ctx context.Context, req MakePickRequest) (*pick.CommitResult, error) {
	snap, draftOrder, err := a.resolve(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if snap.Session.Status != models.SessionStatusInProgress {
		return nil, fmt.Errorf("session is %s: %w", snap.Session.Status, drafterr.ErrInvalidTransition)
	}
	if err := a.authorizePick(ctx, &snap.Session, req); err != nil {
		return nil, err
	}

	if req.ExpectedPick == 0 && req.ExpectedRound == 0 {
		req.ExpectedPick = snap.State.CurrentPick
		req.ExpectedRound = snap.State.CurrentRound
	}
	source := models.PickSourceManual
	if req.Override {
		source = models.PickSourceOverride
	}

	res, err := a.picks.Commit(ctx, pick.CommitRequest{
		SessionID:     req.SessionID,
		TeamID:        req.TeamID,
		PlayerID:      req.PlayerID,
		ExpectedRound: req.ExpectedRound,
		ExpectedPick:  req.ExpectedPick,
		Order:         draftOrder,
		TeamCount:     len(snap.Teams),
		Rounds:        snap.Session.Settings.Rounds,
		Override:      req.Override,
		Source:        source,
	})
	if err != nil {
		if errors.Is(err, drafterr.ErrStaleTurn) {
			fresh, serr := a.State(ctx, req.SessionID)
			if serr != nil {
				return nil, errors.Join(err, serr)
			}
			return nil, newStaleTurnError(fresh, err)
		}
		return nil, err
	}

	if res.Complete {
		if _, err := a.Complete(ctx, req.SessionID); err != nil {
			return nil, fmt.Errorf("failed to complete session: %w", err)
		}
	}
	return res, nil
}

func (a *App) authorizePick(ctx context.Context, session *models.Session, req MakePickRequest) error {
	team, err := a.dir.GetTeam(ctx, req.TeamID)
	if err != nil {
		return fmt.Errorf("failed to get team: %w", err)
	}
	if team.LeagueID != session.LeagueID {
		return fmt.Errorf("team %s is not in league %s: %w", team.ID, session.LeagueID, drafterr.ErrNotAuthorized)
	}
	if req.Override {
		return a.RequireCommissioner(ctx, session, req.ActorID)
	}
	if !team.OwnedBy(req.ActorID) {
		return fmt.Errorf("actor %s does not own team %s: %w", req.ActorID, team.ID, drafterr.ErrNotAuthorized)
	}
	return nil
}

// RequireCommissioner fails unless actorID is the league commissioner.
func (a *App) RequireCommissioner(ctx context.Context, session *models.Session, actorID uuid.UUID) error {
	league, err := a.dir.GetLeague(ctx, session.LeagueID)
	if err != nil {
		return fmt.Errorf("failed to get league: %w", err)
	}
	if league.CommissionerID != actorID {
		return fmt.Errorf("actor %s is not commissioner of league %s: %w", actorID, league.ID, drafterr.ErrNotAuthorized)
	}
	return nil
}

// UndoLastPick soft-invalidates the most recent valid pick. A completed session goes
// back to in progress.
func (a *App) UndoLastPick(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Pick, error) {
	session, err := a.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, fmt.Errorf("session %s superseded: %w", sessionID, drafterr.ErrInvalidTransition)
	}
	if session.Status != models.SessionStatusInProgress && session.Status != models.SessionStatusCompleted {
		return nil, fmt.Errorf("cannot undo pick in %s session: %w", session.Status, drafterr.ErrInvalidTransition)
	}
	if err := a.RequireCommissioner(ctx, session, actorID); err != nil {
		return nil, err
	}

	p, err := a.picks.InvalidateLast(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusCompleted {
		if _, err := a.dir.UpdateSessionStatus(ctx, sessionID, models.SessionStatusInProgress, a.clock.Now().UTC()); err != nil {
			return nil, fmt.Errorf("failed to reopen session: %w", err)
		}
	}

	a.emit(ctx, sessionID, events.TypePickUndone, events.PickUndonePayload{
		PickID:        p.ID.String(),
		SessionID:     sessionID.String(),
		PickNumber:    p.PickNumber,
		PlayerID:      p.PlayerID.String(),
		InvalidatedAt: derefTime(p.InvalidatedAt),
	})
	return p, nil
}

// AutoPick drafts for the team holding turn. It fails with drafterr.ErrStaleTurn when
// the turn is no longer live.
func (a *App) AutoPick(ctx context.Context, sessionID uuid.UUID, turn Turn, source models.PickSource) (*pick.CommitResult, error) {
	snap, draftOrder, err := a.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap.Session.Status != models.SessionStatusInProgress {
		return nil, fmt.Errorf("session is %s: %w", snap.Session.Status, drafterr.ErrInvalidTransition)
	}
	live, ok := snap.Turn()
	if !ok || live != turn {
		return nil, fmt.Errorf("turn %d for team %s: %w", turn.PickNumber, turn.TeamID, drafterr.ErrStaleTurn)
	}

	team := snap.OnTheClock
	if team == nil {
		return nil, fmt.Errorf("team %s not in league: %w", turn.TeamID, drafterr.ErrStateUnavailable)
	}
	sel, err := a.chooser.Choose(ctx, sessionID, *team)
	if err != nil {
		return nil, err
	}
	if sel.FromQueue {
		source = models.PickSourceQueue
	}

	res, err := a.picks.Commit(ctx, pick.CommitRequest{
		SessionID:     sessionID,
		TeamID:        turn.TeamID,
		PlayerID:      sel.PlayerID,
		ExpectedRound: turn.Round,
		ExpectedPick:  turn.PickNumber,
		Order:         draftOrder,
		TeamCount:     len(snap.Teams),
		Rounds:        snap.Session.Settings.Rounds,
		Source:        source,
	})
	if err != nil {
		return nil, err
	}

	if sel.FromQueue {
		if err := a.queues.Consume(ctx, sessionID, turn.TeamID, sel.PlayerID); err != nil {
			log.Error().
				Err(err).
				Str("session_id", sessionID.String()).
				Str("team_id", turn.TeamID.String()).
				Msg("failed to remove auto drafted player from queue")
		}
	}
	if res.Complete {
		if _, err := a.Complete(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to complete session: %w", err)
		}
	}
	return res, nil
}

func (a *App) transition(ctx context.Context, sessionID uuid.UUID, to models.SessionStatus, from ...models.SessionStatus) (*models.Session, error) {
	current, err := a.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !current.Active() {
		return nil, fmt.Errorf("session %s superseded: %w", sessionID, drafterr.ErrInvalidTransition)
	}
	if !validTransition(current.Status, from) {
		return nil, fmt.Errorf("transition from %s to %s: %w", current.Status, to, drafterr.ErrInvalidTransition)
	}

	session, err := a.dir.UpdateSessionStatus(ctx, sessionID, to, a.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update session status: %w", err)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Msg("draft session status updated")
	return session, nil
}

func validTransition(current models.SessionStatus, from []models.SessionStatus) bool {
	for _, s := range from {
		if current == s {
			return true
		}
	}
	return false
}

// emit publishes best effort; the state change already happened.
func (a *App) emit(ctx context.Context, sessionID uuid.UUID, eventType string, payload any) {
	if a.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}

	switch eventType {
	case events.TypeDraftStarted:
		err = a.events.InsertOutboxDraftStarted(ctx, sessionID, data)
	case events.TypeDraftCompleted:
		err = a.events.InsertOutboxDraftCompleted(ctx, sessionID, data)
	case events.TypeDraftReset:
		err = a.events.InsertOutboxDraftReset(ctx, sessionID, data)
	case events.TypePickUndone:
		err = a.events.InsertOutboxPickUndone(ctx, sessionID, data)
	default:
		err = fmt.Errorf("unknown event type %q", eventType)
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("event_type", eventType).
			Msg("failed to record event")
	}
}

// validatePrepareRequest validates prepare request
func (a *App) validatePrepareRequest(req PrepareRequest) error {
	if req.LeagueID == uuid.Nil {
		return fmt.Errorf("league_id is required")
	}
	s := req.Settings
	if s.Rounds <= 0 {
		return fmt.Errorf("%w: rounds must be greater than 0", drafterr.ErrConfiguration)
	}
	if s.TimePerPickSec <= 0 {
		return fmt.Errorf("%w: time_per_pick_sec must be greater than 0", drafterr.ErrConfiguration)
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: invalid draft mode %q", drafterr.ErrConfiguration, s.Mode)
	}
	return nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
