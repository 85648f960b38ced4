package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	SubjectFilter string        // e.g., "draft.events.>"
	MaxDeliver    int           // Max delivery attempts
	AckWait       time.Duration // How long to wait for ack
	MaxAckPending int           // Max messages pending ack
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer configuration
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		StreamName:    "DRAFT_EVENTS",
		ConsumerName:  "draft-gateway",
		SubjectFilter: "draft.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// ChangeNotifier is told which sessions changed.
type ChangeNotifier interface {
	Notify(sessionID uuid.UUID)
	Reset(sessionID uuid.UUID)
}

// EventConsumer relays bus events to WebSocket clients and marks their sessions changed.
// It is how a gateway sees picks made by other processes.
type EventConsumer struct {
	connectionManager *ConnectionManager
	notifier          ChangeNotifier
	js                jetstream.JetStream
	consumer          jetstream.Consumer
	config            JetStreamConsumerConfig
}

// NewEventConsumer creates the durable consumer on an existing JetStream context.
func NewEventConsumer(ctx context.Context, js jetstream.JetStream, cm *ConnectionManager, notifier ChangeNotifier, config JetStreamConsumerConfig) (*EventConsumer, error) {
	ec := &EventConsumer{
		connectionManager: cm,
		notifier:          notifier,
		js:                js,
		config:            config,
	}
	if err := ec.ensureConsumer(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ec, nil
}

// ensureConsumer creates or gets the JetStream consumer
func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.Consumer(ctx, ec.config.ConsumerName)
	if err == nil {
		log.Info().
			Str("consumer", ec.config.ConsumerName).
			Str("stream", ec.config.StreamName).
			Msg("using existing JetStream consumer")
		ec.consumer = consumer
		return nil
	}

	consumer, err = stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          ec.config.ConsumerName,
		Durable:       ec.config.ConsumerName,
		Description:   "Draft gateway WebSocket consumer",
		FilterSubject: ec.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverLastPerSubjectPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("created JetStream consumer")

	ec.consumer = consumer
	return nil
}

// Start consumes events until ctx is done.
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := ec.processMessage(msg.Data()); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				// malformed events are never going to parse
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to TERM message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// processMessage relays one envelope.
func (ec *EventConsumer) processMessage(data []byte) error {
	var envelope events.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}
	sessionID, err := events.SessionOf(envelope)
	if err != nil {
		return fmt.Errorf("parse session ID: %w", err)
	}

	log.Debug().
		Str("event_id", envelope.EventID).
		Str("session_id", sessionID.String()).
		Str("event_type", envelope.EventType).
		Msg("processing JetStream event")

	ec.connectionManager.BroadcastToSession(sessionID, &DraftEvent{
		ID:        envelope.EventID,
		SessionID: sessionID.String(),
		Type:      EventType(envelope.EventType),
		Timestamp: envelope.Timestamp,
		Data:      envelope.Payload,
	})

	switch envelope.EventType {
	case events.TypeDraftReset:
		ec.notifier.Reset(sessionID)
	case events.TypePickStarted, events.TypeDraftPaused, events.TypeDraftResumed:
		// clock only; the next pick notification carries the new state
	default:
		ec.notifier.Notify(sessionID)
	}
	return nil
}
