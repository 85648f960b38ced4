package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/draft/autopick"
	"github.com/mcdev12/draftengine/go/internal/draft/draft"
	"github.com/mcdev12/draftengine/go/internal/draft/fixture"
	"github.com/mcdev12/draftengine/go/internal/draft/gateway"
	"github.com/mcdev12/draftengine/go/internal/draft/orchestrator"
	"github.com/mcdev12/draftengine/go/internal/draft/outbox"
	"github.com/mcdev12/draftengine/go/internal/draft/pick"
	"github.com/mcdev12/draftengine/go/internal/draft/queue"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
	"github.com/rs/zerolog/log"
)

// store is everything the apps need from persistence. Memory and Postgres both satisfy it.
type store interface {
	draft.Directory
	draft.OrderStore
	pick.Ledger
	autopick.Catalog
	queue.Store
	fixture.Sink
	ListInProgressSessions(ctx context.Context) ([]uuid.UUID, error)
}

type Services struct {
	Store        store
	Picks        *pick.App
	Outbox       *outbox.App
	Draft        *draft.App
	Orchestrator *orchestrator.Orchestrator
	Gateway      *gateway.Service
	DraftService *draft.Service
}

func newStore(ctx context.Context, config *Config, pool *pgxpool.Pool) (store, error) {
	if pool == nil {
		log.Warn().Msg("using in-memory storage; nothing survives a restart")
		return repository.NewMemory(), nil
	}
	pg := repository.NewPostgres(pool)
	if config.Storage.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return pg, nil
}

func seedStore(ctx context.Context, s store, path string, clock clockwork.Clock) error {
	f, err := fixture.Load(path)
	if err != nil {
		return err
	}
	stats, err := f.Apply(ctx, s, clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	log.Info().
		Str("fixture", path).
		Int("leagues", stats.Leagues).
		Int("teams", stats.Teams).
		Int("players_inserted", stats.PlayersInserted).
		Int("players_updated", stats.PlayersUpdated).
		Msg("seeded store")
	return nil
}

func setupServices(config *Config, s store, clock clockwork.Clock) *Services {
	// Wire up dependency injection chain
	// Store → Pick ledger → Draft app → Orchestrator → Gateway → HTTP service

	picks := pick.NewApp(s, clock)
	events := outbox.NewApp(clock, config.Draft.OutboxSize)
	queues := queue.NewApp(s, s, picks)

	draftApp := draft.NewApp(draft.Deps{
		Directory: s,
		Orders:    s,
		Picks:     picks,
		Chooser:   autopick.NewValueStrategy(s, picks, s),
		Queues:    queues,
		Events:    events,
	}, draft.DefaultConfig(), clock)

	// The notifier exists before the gateway so the orchestrator can feed it.
	notifier := gateway.NewNotifier(config.Draft.NotifyDebounce, clock)

	orch := orchestrator.NewOrchestrator(draftApp, events, notifier, orchestrator.Config{
		TickInterval: config.Draft.TickInterval,
		ThinkDelay:   config.Draft.ThinkDelay,
		Workers:      config.Draft.Workers,
		QueueSize:    config.Draft.QueueSize,
	}, clock)

	picks.AddObserver(events)
	picks.AddObserver(orch)
	picks.AddObserver(notifier)

	provider := gateway.NewDraftStateProvider(draftApp, picks, orch, s, clock)
	gw := gateway.NewService(gateway.Config{
		ConnectionConfig: gateway.DefaultConnectionConfig(),
		Debounce:         config.Draft.NotifyDebounce,
	}, notifier, provider, clock)

	return &Services{
		Store:        s,
		Picks:        picks,
		Outbox:       events,
		Draft:        draftApp,
		Orchestrator: orch,
		Gateway:      gw,
		DraftService: draft.NewService(draftApp, orch, queues),
	}
}

// recoverSessions restarts the clocks of sessions that were in progress before a restart.
func (s *Services) recoverSessions(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ids, err := s.Store.ListInProgressSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list in-progress sessions: %w", err)
	}
	if len(ids) > 0 {
		log.Info().Int("sessions", len(ids)).Msg("recovering in-progress sessions")
	}
	s.Orchestrator.Recover(ctx, ids)
	return nil
}
