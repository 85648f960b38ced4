package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/mcdev12/draftengine/go/internal/dbconfig"
	"github.com/mcdev12/draftengine/go/internal/draft/gateway"
	"github.com/mcdev12/draftengine/go/internal/draft/orchestrator"
	"github.com/mcdev12/draftengine/go/internal/draft/outbox"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "draftengine.yaml", "path to the YAML config")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		log.Fatal().Err(err).Msg("draft engine exited")
	}
	log.Info().Msg("draft engine stopped")
}

func run(ctx context.Context, config *Config) error {
	clock := clockwork.NewRealClock()

	var pool *pgxpool.Pool
	dbConfig := dbconfig.NewConfigFromEnv()
	if config.Storage.Driver == "postgres" {
		p, err := setupDatabase(ctx, dbConfig)
		if err != nil {
			return err
		}
		defer p.Close()
		pool = p
	}

	s, err := newStore(ctx, config, pool)
	if err != nil {
		return err
	}
	if config.Storage.SeedFile != "" {
		if err := seedStore(ctx, s, config.Storage.SeedFile, clock); err != nil {
			return err
		}
	}

	services := setupServices(config, s, clock)

	// Outbox publisher: JetStream when NATS is enabled, log only otherwise
	var publisher outbox.EventPublisher = outbox.NewLogPublisher()
	var jsPublisher *outbox.JetStreamPublisher
	if config.NATS.Enabled {
		jsConfig := outbox.DefaultJetStreamConfig()
		jsConfig.URL = config.NATS.URL
		jsPublisher, err = outbox.NewJetStreamPublisher(ctx, jsConfig)
		if err != nil {
			return err
		}
		defer jsPublisher.Close()
		publisher = jsPublisher
	}
	worker := outbox.NewWorker(services.Outbox, publisher, outbox.DefaultConfig(), clock)

	if err := services.Orchestrator.Start(ctx); err != nil {
		return err
	}
	defer services.Orchestrator.Shutdown()

	if err := services.recoverSessions(ctx); err != nil {
		return err
	}

	server := setupServer(config, services)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := worker.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return worker.Stop()
	})

	g.Go(func() error {
		return services.Gateway.Start(gctx)
	})

	if jsPublisher != nil {
		js := jsPublisher.JetStream()
		g.Go(func() error {
			return services.Orchestrator.Consume(gctx, js, orchestrator.DefaultConsumerConfig())
		})
		g.Go(func() error {
			consumer, err := gateway.NewEventConsumer(gctx, js, services.Gateway.ConnectionManager(),
				services.Gateway.Notifier(), gateway.DefaultJetStreamConsumerConfig())
			if err != nil {
				return err
			}
			return consumer.Start(gctx)
		})
	}

	if pool != nil {
		// picks written by other processes reach this gateway through LISTEN/NOTIFY
		listenerConfig := gateway.DefaultListenerConfig()
		listenerConfig.DatabaseURL = dbConfig.DSN()
		listener, err := gateway.NewPGListener(services.Gateway.Notifier(), listenerConfig)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return listener.Start(gctx)
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
