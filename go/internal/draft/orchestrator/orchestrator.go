package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/draft/draft"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/draft/events"
	"github.com/mcdev12/draftengine/go/internal/draft/pick"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Engine is the part of the draft app the orchestrator drives.
type Engine interface {
	State(ctx context.Context, sessionID uuid.UUID) (*draft.Snapshot, error)
	Start(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	Reset(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Session, error)
	UndoLastPick(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Pick, error)
	AutoPick(ctx context.Context, sessionID uuid.UUID, turn draft.Turn, source models.PickSource) (*pick.CommitResult, error)
}

// OutboxApp defines what the orchestrator needs from the outbox app
type OutboxApp interface {
	InsertOutboxPickStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxDraftPaused(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxDraftResumed(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// Notifier pushes session changes to connected clients.
type Notifier interface {
	Notify(sessionID uuid.UUID)
	// Reset drops pending debounce state for the session and notifies right away.
	Reset(sessionID uuid.UUID)
}

type Config struct {
	// TickInterval is how often the remaining time of a turn is decremented.
	TickInterval time.Duration
	// ThinkDelay is how long computer teams wait before picking.
	ThinkDelay time.Duration
	Workers    int
	QueueSize  int
}

func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		ThinkDelay:   2 * time.Second,
		Workers:      4,
		QueueSize:    64,
	}
}

// Orchestrator runs one turn timer per in progress session and auto drafts when a
// turn runs out.
type Orchestrator struct {
	engine   Engine
	outbox   OutboxApp
	notifier Notifier
	config   Config
	clock    clockwork.Clock

	mu         sync.Mutex
	timers     map[uuid.UUID]*turnTimer
	generation uint64

	workCh     chan job
	inFlight   map[jobKey]bool
	inFlightMu sync.Mutex

	runMu    sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewOrchestrator creates a new draft orchestrator with worker pool
func NewOrchestrator(engine Engine, outbox OutboxApp, notifier Notifier, cfg Config, clock clockwork.Clock) *Orchestrator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.ThinkDelay <= 0 {
		cfg.ThinkDelay = def.ThinkDelay
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	return &Orchestrator{
		engine:   engine,
		outbox:   outbox,
		notifier: notifier,
		config:   cfg,
		clock:    clock,
		timers:   make(map[uuid.UUID]*turnTimer),
		workCh:   make(chan job, cfg.QueueSize),
		inFlight: make(map[jobKey]bool),
		stopChan: make(chan struct{}),
	}
}

// StartDraft moves the session to in progress and starts the clock for pick one.
func (o *Orchestrator) StartDraft(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := o.engine.Start(ctx, sessionID); err != nil {
		return err
	}
	o.resync(ctx, sessionID)
	return nil
}

// PauseDraft stops the clock and keeps the remaining time of the turn.
func (o *Orchestrator) PauseDraft(ctx context.Context, sessionID uuid.UUID) error {
	o.mu.Lock()
	t, ok := o.timers[sessionID]
	if !ok || t.phase != phaseRunning {
		o.mu.Unlock()
		return fmt.Errorf("clock for session %s is not running: %w", sessionID, drafterr.ErrInvalidTransition)
	}
	t.cancel()
	t.phase = phasePaused
	t.token.Generation = o.nextGeneration()
	tok, remaining := t.token, t.remaining
	o.mu.Unlock()

	log.Info().
		Str("session_id", sessionID.String()).
		Int("pick_number", tok.PickNumber).
		Dur("remaining", remaining).
		Msg("draft paused")

	o.emit(ctx, sessionID, events.TypeDraftPaused, events.DraftPausedPayload{
		SessionID:        sessionID.String(),
		PausedAt:         o.clock.Now().UTC(),
		PickNumber:       tok.PickNumber,
		RemainingSeconds: int(remaining / time.Second),
		Reason:           "commissioner",
	})
	o.notify(sessionID)
	return nil
}

// ResumeDraft restarts a paused clock from its remaining time. A pick made while paused
// resets the turn to the full limit.
func (o *Orchestrator) ResumeDraft(ctx context.Context, sessionID uuid.UUID) error {
	o.mu.Lock()
	t, ok := o.timers[sessionID]
	paused := ok && t.phase == phasePaused
	o.mu.Unlock()
	if !paused {
		return fmt.Errorf("clock for session %s is not paused: %w", sessionID, drafterr.ErrInvalidTransition)
	}

	snap, err := o.engine.State(ctx, sessionID)
	if err != nil {
		return err
	}
	turn, live := snap.Turn()
	if !live || snap.Session.Status != models.SessionStatusInProgress {
		o.stop(sessionID)
		return fmt.Errorf("session %s has no live turn: %w", sessionID, drafterr.ErrInvalidTransition)
	}

	o.mu.Lock()
	t, ok = o.timers[sessionID]
	if !ok || t.phase != phasePaused {
		o.mu.Unlock()
		return fmt.Errorf("clock for session %s is not paused: %w", sessionID, drafterr.ErrInvalidTransition)
	}
	if t.token.PickNumber != turn.PickNumber || t.token.TeamID != turn.TeamID {
		t.remaining = t.limit
	}
	o.run(t, turn, snap.OnTheClock.IsComputer())
	tok, remaining := t.token, t.remaining
	o.mu.Unlock()

	log.Info().
		Str("session_id", sessionID.String()).
		Int("pick_number", tok.PickNumber).
		Dur("remaining", remaining).
		Msg("draft resumed")

	o.emit(ctx, sessionID, events.TypeDraftResumed, events.DraftResumedPayload{
		SessionID:        sessionID.String(),
		ResumedAt:        o.clock.Now().UTC(),
		PickNumber:       tok.PickNumber,
		RemainingSeconds: int(remaining / time.Second),
	})
	o.notify(sessionID)
	return nil
}

// ResetDraft supersedes the session and forgets its clock.
func (o *Orchestrator) ResetDraft(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Session, error) {
	fresh, err := o.engine.Reset(ctx, sessionID, actorID)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if t, ok := o.timers[sessionID]; ok {
		t.cancel()
		delete(o.timers, sessionID)
	}
	o.mu.Unlock()

	if o.notifier != nil {
		o.notifier.Reset(sessionID)
	}
	return fresh, nil
}

// UndoLastPick invalidates the last pick and restarts the clock for that turn.
func (o *Orchestrator) UndoLastPick(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Pick, error) {
	p, err := o.engine.UndoLastPick(ctx, sessionID, actorID)
	if err != nil {
		return nil, err
	}
	o.invalidate(sessionID)
	o.resync(ctx, sessionID)
	o.notify(sessionID)
	return p, nil
}

// PickCommitted is called for every committed pick. It stops the clock of the finished
// turn right away and starts the next one in the background.
func (o *Orchestrator) PickCommitted(ctx context.Context, p models.Pick, complete bool) {
	if complete {
		o.stop(p.SessionID)
		return
	}
	o.invalidate(p.SessionID)

	o.runMu.Lock()
	if !o.running {
		o.runMu.Unlock()
		log.Debug().
			Str("session_id", p.SessionID.String()).
			Int("pick_number", p.PickNumber).
			Msg("orchestrator stopped, next turn not armed")
		return
	}
	o.wg.Add(1)
	o.runMu.Unlock()
	go func() {
		defer o.wg.Done()
		o.resync(context.WithoutCancel(ctx), p.SessionID)
	}()
}

// TimerState is a read-only view of a session's clock.
type TimerState struct {
	Phase            string    `json:"phase"`
	PickNumber       int       `json:"pick_number"`
	TeamID           uuid.UUID `json:"team_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

// Snapshot returns the clock of a session. Sessions without a clock are idle.
func (o *Orchestrator) Snapshot(sessionID uuid.UUID) TimerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.timers[sessionID]
	if !ok {
		return TimerState{Phase: phaseIdle.String()}
	}
	return TimerState{
		Phase:            t.phase.String(),
		PickNumber:       t.token.PickNumber,
		TeamID:           t.token.TeamID,
		RemainingSeconds: int(t.remaining / time.Second),
	}
}

// Recover restarts clocks for sessions that were in progress before a restart.
func (o *Orchestrator) Recover(ctx context.Context, sessionIDs []uuid.UUID) {
	for _, id := range sessionIDs {
		o.resync(ctx, id)
	}
	log.Info().Int("sessions", len(sessionIDs)).Msg("recovered turn timers")
}

// resync reads the live state and moves the session clock onto the live turn.
func (o *Orchestrator) resync(ctx context.Context, sessionID uuid.UUID) {
	snap, err := o.engine.State(ctx, sessionID)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("reason", drafterr.Reason(err)).
			Msg("failed to resolve state for turn timer")
		o.stop(sessionID)
		return
	}

	turn, live := snap.Turn()
	if !live || snap.Session.Status != models.SessionStatusInProgress || !snap.Session.Active() {
		o.stop(sessionID)
		return
	}

	limit := snap.Session.Settings.TimePerPick()
	started := o.enterTurn(sessionID, turn, limit, snap.OnTheClock.IsComputer())
	if !started {
		return
	}

	now := o.clock.Now().UTC()
	o.emit(ctx, sessionID, events.TypePickStarted, events.PickStartedPayload{
		SessionID:      sessionID.String(),
		TeamID:         turn.TeamID.String(),
		Round:          turn.Round,
		PickNumber:     turn.PickNumber,
		StartedAt:      now,
		TimeoutAt:      now.Add(limit),
		TimePerPickSec: snap.Session.Settings.TimePerPickSec,
	})
	o.notify(sessionID)
}

func (o *Orchestrator) emit(ctx context.Context, sessionID uuid.UUID, eventType string, payload any) {
	if o.outbox == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}

	switch eventType {
	case events.TypePickStarted:
		err = o.outbox.InsertOutboxPickStarted(ctx, sessionID, data)
	case events.TypeDraftPaused:
		err = o.outbox.InsertOutboxDraftPaused(ctx, sessionID, data)
	case events.TypeDraftResumed:
		err = o.outbox.InsertOutboxDraftResumed(ctx, sessionID, data)
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("event_type", eventType).
			Msg("failed to emit event")
	}
}

func (o *Orchestrator) notify(sessionID uuid.UUID) {
	if o.notifier != nil {
		o.notifier.Notify(sessionID)
	}
}
