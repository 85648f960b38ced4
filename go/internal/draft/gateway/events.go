package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/draftengine/go/internal/draft/events"
)

// DraftEvent is the frame written to websocket clients.
type DraftEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of draft event
type EventType string

const (
	EventTypePickMade       EventType = events.TypePickMade
	EventTypePickStarted    EventType = events.TypePickStarted
	EventTypePickUndone     EventType = events.TypePickUndone
	EventTypeDraftStarted   EventType = events.TypeDraftStarted
	EventTypeDraftPaused    EventType = events.TypeDraftPaused
	EventTypeDraftResumed   EventType = events.TypeDraftResumed
	EventTypeDraftCompleted EventType = events.TypeDraftCompleted
	EventTypeDraftReset     EventType = events.TypeDraftReset
	// EventTypeStateSync carries a full DraftStateResponse.
	EventTypeStateSync EventType = "StateSync"
)

// ParseEventPayload parses event data into the matching payload struct.
func ParseEventPayload(event *DraftEvent) (any, error) {
	var payload any
	switch event.Type {
	case EventTypePickMade:
		payload = &events.PickMadePayload{}
	case EventTypePickStarted:
		payload = &events.PickStartedPayload{}
	case EventTypePickUndone:
		payload = &events.PickUndonePayload{}
	case EventTypeDraftStarted:
		payload = &events.DraftStartedPayload{}
	case EventTypeDraftPaused:
		payload = &events.DraftPausedPayload{}
	case EventTypeDraftResumed:
		payload = &events.DraftResumedPayload{}
	case EventTypeDraftCompleted:
		payload = &events.DraftCompletedPayload{}
	case EventTypeDraftReset:
		payload = &events.DraftResetPayload{}
	case EventTypeStateSync:
		payload = &DraftStateResponse{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
	if err := json.Unmarshal(event.Data, payload); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", event.Type, err)
	}
	return payload, nil
}
