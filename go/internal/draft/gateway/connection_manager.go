package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// StateProvider builds the live view of a session.
type StateProvider interface {
	GetDraftState(ctx context.Context, sessionID uuid.UUID) (*DraftStateResponse, error)
	GetActiveDrafts(ctx context.Context) ([]DraftSummary, error)
}

// Subscriber delivers debounced change notifications per session.
type Subscriber interface {
	Subscribe(sessionID uuid.UUID, h Handler) (unsubscribe func())
}

// ConnectionManager manages WebSocket connections per draft session
type ConnectionManager struct {
	// Connection pools organized by session ID
	sessionConnections map[uuid.UUID]map[*Connection]bool
	subscriptions      map[uuid.UUID]func()
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	provider   StateProvider
	subscriber Subscriber
	clock      clockwork.Clock

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID        string
	UserID    string
	SessionID uuid.UUID
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	SyncTimeout     time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to connections
type BroadcastMessage struct {
	SessionID uuid.UUID
	Event     *DraftEvent
	UserID    string // Optional: if set, only send to this user
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		SyncTimeout:     5 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, provider StateProvider, subscriber Subscriber, clock clockwork.Clock) *ConnectionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		sessionConnections: make(map[uuid.UUID]map[*Connection]bool),
		subscriptions:      make(map[uuid.UUID]func()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		provider:    provider,
		subscriber:  subscriber,
		clock:       clock,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			cm.closeAll()
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and sends the current state.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, sessionID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		SessionID:   sessionID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: cm.clock.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("session_id", sessionID.String()).
		Msg("WebSocket connection established")

	if event, err := cm.stateEvent(r.Context(), sessionID); err == nil {
		cm.BroadcastToUser(sessionID, userID, event)
	}
	return nil
}

// registerConnection adds a connection and subscribes the session on first use.
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.sessionConnections[conn.SessionID] == nil {
		cm.sessionConnections[conn.SessionID] = make(map[*Connection]bool)
		if cm.subscriber != nil {
			cm.subscriptions[conn.SessionID] = cm.subscriber.Subscribe(conn.SessionID, cm.SyncSession)
		}
	}
	cm.sessionConnections[conn.SessionID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("session_id", conn.SessionID.String()).
		Int("total_connections", len(cm.sessionConnections[conn.SessionID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection and drops the subscription with the last one.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.sessionConnections[conn.SessionID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	close(conn.Send)

	if len(connections) == 0 {
		delete(cm.sessionConnections, conn.SessionID)
		if unsubscribe, ok := cm.subscriptions[conn.SessionID]; ok {
			unsubscribe()
			delete(cm.subscriptions, conn.SessionID)
		}
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("session_id", conn.SessionID.String()).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.sessionConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// SyncSession pushes a freshly resolved state to every client of the session.
func (cm *ConnectionManager) SyncSession(sessionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), cm.config.SyncTimeout)
	defer cancel()

	event, err := cm.stateEvent(ctx, sessionID)
	if err != nil {
		return
	}
	cm.BroadcastToSession(sessionID, event)
}

func (cm *ConnectionManager) stateEvent(ctx context.Context, sessionID uuid.UUID) (*DraftEvent, error) {
	state, err := cm.provider.GetDraftState(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to resolve state for sync")
		return nil, err
	}
	data, err := json.Marshal(state)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal state for sync")
		return nil, err
	}
	return &DraftEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID.String(),
		Type:      EventTypeStateSync,
		Timestamp: cm.clock.Now().UTC(),
		Data:      data,
	}, nil
}

// BroadcastToSession sends an event to all connections for a session
func (cm *ConnectionManager) BroadcastToSession(sessionID uuid.UUID, event *DraftEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{SessionID: sessionID, Event: event}:
	default:
		log.Warn().Str("session_id", sessionID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToUser sends an event to a specific user in a session
func (cm *ConnectionManager) BroadcastToUser(sessionID uuid.UUID, userID string, event *DraftEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{SessionID: sessionID, Event: event, UserID: userID}:
	default:
		log.Warn().
			Str("session_id", sessionID.String()).
			Str("user_id", userID).
			Msg("broadcast channel full, dropping user message")
	}
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.sessionConnections[message.SessionID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	var targetConnections []*Connection
	for conn := range connections {
		if message.UserID != "" && conn.UserID != message.UserID {
			continue
		}
		targetConnections = append(targetConnections, conn)
	}
	cm.mu.RUnlock()

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targetConnections {
		cm.send(conn, eventData)
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("session_id", message.SessionID.String()).
		Int("connections", len(targetConnections)).
		Msg("event broadcasted")
}

// send queues data for conn. Slow connections are dropped.
func (cm *ConnectionManager) send(conn *Connection, data []byte) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.sessionConnections[conn.SessionID][conn] {
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		go func() {
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}()
	}
}

// ConnectionStats is a point in time count of connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveSessions   int            `json:"active_sessions"`
	PerSession       map[string]int `json:"session_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{PerSession: make(map[string]int)}
	for sessionID, connections := range cm.sessionConnections {
		stats.TotalConnections += len(connections)
		stats.PerSession[sessionID.String()] = len(connections)
	}
	stats.ActiveSessions = len(cm.sessionConnections)
	return stats
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

type clientMessage struct {
	Type string `json:"type"`
}

// handleClientMessage answers {"type":"sync"} with a fresh state. Anything else is logged.
func (c *Connection) handleClientMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err == nil && msg.Type == "sync" {
		ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.SyncTimeout)
		defer cancel()
		if event, err := c.Manager.stateEvent(ctx, c.SessionID); err == nil {
			c.Manager.BroadcastToUser(c.SessionID, c.UserID, event)
		}
		return
	}

	log.Debug().
		Str("connection_id", c.ID).
		Str("user_id", c.UserID).
		Bytes("message", message).
		Msg("received client message")
}
