package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/draft/events"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrOutboxFull is returned when the pending queue has no room left.
var ErrOutboxFull = errors.New("outbox full")

// App buffers domain events for the worker. Inserts never block the caller.
type App struct {
	clock   clockwork.Clock
	pending chan OutboxEvent
}

// NewApp creates a new outbox App holding up to size pending events
func NewApp(clock clockwork.Clock, size int) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if size <= 0 {
		size = 256
	}
	return &App{
		clock:   clock,
		pending: make(chan OutboxEvent, size),
	}
}

// Pending is drained by the worker.
func (a *App) Pending() <-chan OutboxEvent {
	return a.pending
}

// InsertEvent queues an event of the given type.
func (a *App) InsertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	if err := a.validateEventPayload(payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", eventType, err)
	}

	event := OutboxEvent{
		ID:        uuid.New(),
		SessionID: sessionID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: a.clock.Now().UTC(),
	}

	select {
	case a.pending <- event:
	default:
		return fmt.Errorf("failed to insert %s event: %w", eventType, ErrOutboxFull)
	}

	log.Debug().
		Str("session_id", sessionID.String()).
		Str("event_type", eventType).
		Str("event_id", event.ID.String()).
		Msg("outbox event inserted")
	return nil
}

func (a *App) InsertOutboxPickMade(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.InsertEvent(ctx, sessionID, events.TypePickMade, payload)
}

func (a *App) InsertOutboxPickStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.InsertEvent(ctx, sessionID, events.TypePickStarted, payload)
}

func (a *App) InsertOutboxPickUndone(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.InsertEvent(ctx, sessionID, events.TypePickUndone, payload)
}

func (a *App) InsertOutboxDraftStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.InsertEvent(ctx, sessionID, events.TypeDraftStarted, payload)
}

func (a *App) InsertOutboxDraftPaused(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.InsertEvent(ctx, sessionID, events.TypeDraftPaused, payload)
}

func (a *App) InsertOutboxDraftResumed(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.InsertEvent(ctx, sessionID, events.TypeDraftResumed, payload)
}

func (a *App) InsertOutboxDraftCompleted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.InsertEvent(ctx, sessionID, events.TypeDraftCompleted, payload)
}

func (a *App) InsertOutboxDraftReset(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.InsertEvent(ctx, sessionID, events.TypeDraftReset, payload)
}

// PickCommitted turns every committed pick into a PickMade event.
func (a *App) PickCommitted(ctx context.Context, p models.Pick, complete bool) {
	payload, err := json.Marshal(events.PickMadePayload{
		PickID:     p.ID.String(),
		SessionID:  p.SessionID.String(),
		TeamID:     p.TeamID.String(),
		PlayerID:   p.PlayerID.String(),
		Round:      p.Round,
		PickNumber: p.PickNumber,
		Source:     string(p.Source),
		Complete:   complete,
		MadeAt:     p.PickedAt,
	})
	if err != nil {
		log.Error().Err(err).Str("pick_id", p.ID.String()).Msg("failed to marshal PickMade payload")
		return
	}
	if err := a.InsertOutboxPickMade(ctx, p.SessionID, payload); err != nil {
		log.Error().Err(err).Str("session_id", p.SessionID.String()).Msg("failed to insert PickMade event")
	}
}

// validateEventPayload validates that the event payload is not empty
func (a *App) validateEventPayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("event payload cannot be empty")
	}
	return nil
}
