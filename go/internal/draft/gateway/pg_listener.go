package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL   string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string        // Channel name to LISTEN on
	PingInterval  time.Duration // Keeps idle connections from being dropped
	MinReconnect  time.Duration
	MaxReconnect  time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel: repository.PickChannel,
		PingInterval:  90 * time.Second,
		MinReconnect:  10 * time.Second,
		MaxReconnect:  time.Minute,
	}
}

// notifyListener is the part of *pq.Listener the PGListener uses.
type notifyListener interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// PGListener turns pick notifications written by any process into Notify calls.
type PGListener struct {
	listener notifyListener
	notifier ChangeNotifier
	cfg      ListenerConfig
	clock    clockwork.Clock
}

func NewPGListener(notifier ChangeNotifier, cfg ListenerConfig) (*PGListener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		cfg.MinReconnect,
		cfg.MaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return newPGListener(l, notifier, cfg, clockwork.NewRealClock()), nil
}

func newPGListener(l notifyListener, notifier ChangeNotifier, cfg ListenerConfig, clock clockwork.Clock) *PGListener {
	return &PGListener{
		listener: l,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock,
	}
}

// Start forwards notifications until ctx is done, then closes the listener.
func (l *PGListener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Msg("listener started")

	pingTicker := l.clock.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	notifications := l.listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.listener.Close()
		case note := <-notifications:
			if note == nil {
				// connection was lost and re-established; notifications in between are gone
				log.Warn().Str("channel", l.cfg.NotifyChannel).Msg("listener reconnected")
				continue
			}
			if err := l.handleNotification(note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-pingTicker.Chan():
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// handleNotification handles a pg notification whose payload is a session id.
func (l *PGListener) handleNotification(extra string) error {
	sessionID, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid session ID in notification: %w", err)
	}
	l.notifier.Notify(sessionID)
	return nil
}
