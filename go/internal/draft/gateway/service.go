package gateway

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service is the realtime gateway: debounced change notifications fanned out to
// WebSocket clients, plus polling endpoints for the same state.
type Service struct {
	notifier          *Notifier
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the draft gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	Debounce         time.Duration
}

// DefaultConfig returns default configuration for the draft gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Debounce:         DefaultDebounce,
	}
}

// NewService creates a new draft gateway service. notifier may be shared with the change
// sources that were built before the state provider; nil creates one from config.
func NewService(config Config, notifier *Notifier, stateProvider StateProvider, clock clockwork.Clock) *Service {
	if notifier == nil {
		notifier = NewNotifier(config.Debounce, clock)
	}
	connectionManager := NewConnectionManager(config.ConnectionConfig, stateProvider, notifier, clock)

	return &Service{
		notifier:          notifier,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(stateProvider),
	}
}

// Notifier is the debouncer every change source feeds.
func (s *Service) Notifier() *Notifier {
	return s.notifier
}

func (s *Service) ConnectionManager() *ConnectionManager {
	return s.connectionManager
}

// Start runs the gateway until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting draft gateway service")
	s.connectionManager.Start(ctx)
	s.notifier.Close()
	log.Info().Msg("draft gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and live state routes
func (s *Service) RegisterRoutes(r chi.Router) {
	s.wsHandler.RegisterRoutes(r)
	s.stateHandler.RegisterStateRoutes(r)
	log.Info().Msg("draft gateway routes registered")
}
