package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

// HandleDomainEvent keeps clocks in line with changes made by other processes.
// Events this process produced itself are absorbed since entering a running turn is
// idempotent.
func (o *Orchestrator) HandleDomainEvent(ctx context.Context, eventType string, sessionID uuid.UUID, payload []byte) error {
	log.Debug().
		Str("event_type", eventType).
		Str("session_id", sessionID.String()).
		Msg("handling domain event")

	switch eventType {
	case events.TypeDraftStarted, events.TypePickUndone:
		o.resync(ctx, sessionID)
		return nil

	case events.TypePickMade:
		var p events.PickMadePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal PickMade payload: %w", err)
		}
		if p.Complete {
			o.stop(sessionID)
			return nil
		}
		o.resync(ctx, sessionID)
		return nil

	case events.TypeDraftCompleted, events.TypeDraftReset:
		o.mu.Lock()
		if t, ok := o.timers[sessionID]; ok {
			t.cancel()
			delete(o.timers, sessionID)
		}
		o.mu.Unlock()
		log.Info().
			Str("session_id", sessionID.String()).
			Str("event_type", eventType).
			Msg("dropped turn timer")
		return nil

	case events.TypePickStarted, events.TypeDraftPaused, events.TypeDraftResumed:
		// produced by the clock owner
		return nil

	default:
		log.Warn().
			Str("event_type", eventType).
			Str("session_id", sessionID.String()).
			Msg("unknown event type - ignoring")
		return nil
	}
}
