package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/draftengine/go/internal/draft/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type ConsumerConfig struct {
	Stream        string
	Name          string
	FilterSubject string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Stream:        "DRAFT_EVENTS",
		Name:          "draft-orchestrator",
		FilterSubject: "draft.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// ensureConsumer creates or gets the durable JetStream consumer
func ensureConsumer(ctx context.Context, js jetstream.JetStream, cfg ConsumerConfig) (jetstream.Consumer, error) {
	stream, err := js.Stream(ctx, cfg.Stream)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.Consumer(ctx, cfg.Name)
	if err == nil {
		log.Info().Str("consumer", cfg.Name).Msg("using existing JetStream consumer for orchestrator")
		return consumer, nil
	}

	consumer, err = stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          cfg.Name,
		Durable:       cfg.Name,
		Description:   "Draft orchestrator event consumer",
		FilterSubject: cfg.FilterSubject,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    cfg.MaxDeliver,
		AckWait:       cfg.AckWait,
		MaxAckPending: cfg.MaxAckPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	log.Info().Str("consumer", cfg.Name).Msg("created JetStream consumer for orchestrator")
	return consumer, nil
}

// Consume feeds bus events into HandleDomainEvent until ctx is done.
func (o *Orchestrator) Consume(ctx context.Context, js jetstream.JetStream, cfg ConsumerConfig) error {
	consumer, err := ensureConsumer(ctx, js, cfg)
	if err != nil {
		return err
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := o.processEvent(ctx, msg); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process event")
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}
	defer consumeCtx.Stop()

	<-ctx.Done()
	log.Info().Str("consumer", cfg.Name).Msg("orchestrator consumer stopped")
	return nil
}

// processEvent processes a single JetStream event
func (o *Orchestrator) processEvent(ctx context.Context, msg jetstream.Msg) error {
	var env events.Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	sessionID, err := events.SessionOf(env)
	if err != nil {
		return fmt.Errorf("parse session ID: %w", err)
	}
	return o.HandleDomainEvent(ctx, env.EventType, sessionID, env.Payload)
}
