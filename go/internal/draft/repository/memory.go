package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/models"
)

type queueKey struct {
	session uuid.UUID
	team    uuid.UUID
}

// Memory is an in-process implementation of every store the engine needs. It enforces
// the same uniqueness rules as the Postgres schema.
type Memory struct {
	mu       sync.RWMutex
	leagues  map[uuid.UUID]models.League
	teams    map[uuid.UUID]models.FantasyTeam
	sessions map[uuid.UUID]models.Session
	orders   map[uuid.UUID]models.DraftOrder
	picks    map[uuid.UUID][]models.Pick
	players  map[uuid.UUID]models.Player
	queues   map[queueKey][]uuid.UUID
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		leagues:  make(map[uuid.UUID]models.League),
		teams:    make(map[uuid.UUID]models.FantasyTeam),
		sessions: make(map[uuid.UUID]models.Session),
		orders:   make(map[uuid.UUID]models.DraftOrder),
		picks:    make(map[uuid.UUID][]models.Pick),
		players:  make(map[uuid.UUID]models.Player),
		queues:   make(map[queueKey][]uuid.UUID),
	}
}

// Seeding

func (m *Memory) AddLeague(l models.League) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leagues[l.ID] = l
}

func (m *Memory) AddTeam(t models.FantasyTeam) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.ID] = t
}

func (m *Memory) AddPlayers(players ...models.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range players {
		m.players[p.ID] = p
	}
}

// CreateLeague, CreateTeam and UpsertPlayer mirror the Postgres seeding methods.

func (m *Memory) CreateLeague(ctx context.Context, l models.League) error {
	m.AddLeague(l)
	return nil
}

func (m *Memory) CreateTeam(ctx context.Context, t models.FantasyTeam) error {
	m.AddTeam(t)
	return nil
}

func (m *Memory) UpsertPlayer(ctx context.Context, p models.Player) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.players[p.ID]
	m.players[p.ID] = p
	return !existed, nil
}

// Directory

func (m *Memory) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leagues[id]
	if !ok {
		return nil, fmt.Errorf("league %s: %w", id, ErrNotFound)
	}
	return &l, nil
}

func (m *Memory) GetTeam(ctx context.Context, id uuid.UUID) (*models.FantasyTeam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

// ListTeams returns the league's teams ordered by creation time, then id.
func (m *Memory) ListTeams(ctx context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.FantasyTeam
	for _, t := range m.teams {
		if t.LeagueID == leagueID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *Memory) CreateSession(ctx context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.LeagueID == s.LeagueID && existing.Active() {
			return fmt.Errorf("league %s: %w", s.LeagueID, ErrActiveSessionExists)
		}
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return &s, nil
}

func (m *Memory) GetActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.LeagueID == leagueID && s.Active() {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("active session for league %s: %w", leagueID, ErrNotFound)
}

// UpdateSessionStatus writes a status transition and the timestamps that go with it.
func (m *Memory) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, at time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	applyStatus(&s, status, at)
	m.sessions[id] = s
	return &s, nil
}

func (m *Memory) SupersedeSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if s.SupersededAt == nil {
		s.SupersededAt = &at
		s.UpdatedAt = at
		m.sessions[id] = s
	}
	return nil
}

// ListInProgressSessions returns the active sessions that are being drafted.
func (m *Memory) ListInProgressSessions(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []uuid.UUID
	for _, s := range m.sessions {
		if s.Status == models.SessionStatusInProgress && s.Active() {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

// applyStatus mirrors the timestamp rules of the Postgres status update.
func applyStatus(s *models.Session, status models.SessionStatus, at time.Time) {
	s.Status = status
	s.UpdatedAt = at
	switch status {
	case models.SessionStatusNotStarted, models.SessionStatusQueued:
		s.StartedAt = nil
		s.CompletedAt = nil
	case models.SessionStatusInProgress:
		if s.StartedAt == nil {
			s.StartedAt = &at
		}
		s.CompletedAt = nil
	case models.SessionStatusCompleted:
		s.CompletedAt = &at
	}
}

// Orders

func (m *Memory) GetOrder(ctx context.Context, sessionID uuid.UUID) (*models.DraftOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return nil, fmt.Errorf("order for session %s: %w", sessionID, ErrNotFound)
	}
	out := o
	out.Rounds = make([][]uuid.UUID, len(o.Rounds))
	for i, r := range o.Rounds {
		out.Rounds[i] = slices.Clone(r)
	}
	return &out, nil
}

func (m *Memory) SaveOrder(ctx context.Context, o models.DraftOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.SessionID] = o
	return nil
}

// Ledger

func (m *Memory) InsertPick(ctx context.Context, p models.Pick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.picks[p.SessionID] {
		if !existing.Valid() {
			continue
		}
		if existing.PickNumber == p.PickNumber {
			return fmt.Errorf("session %s pick %d: %w", p.SessionID, p.PickNumber, ErrPickNumberTaken)
		}
		if existing.PlayerID == p.PlayerID {
			return fmt.Errorf("session %s player %s: %w", p.SessionID, p.PlayerID, ErrPlayerTaken)
		}
	}
	m.picks[p.SessionID] = append(m.picks[p.SessionID], p)
	return nil
}

// ListPicks returns every pick of the session, invalidated ones included, in insertion
// order.
func (m *Memory) ListPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.picks[sessionID]), nil
}

func (m *Memory) InvalidateLastPick(ctx context.Context, sessionID uuid.UUID, at time.Time) (*models.Pick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	picks := m.picks[sessionID]
	last := -1
	for i, p := range picks {
		if p.Valid() && (last < 0 || p.PickNumber > picks[last].PickNumber) {
			last = i
		}
	}
	if last < 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNoValidPicks)
	}
	picks[last].InvalidatedAt = &at
	out := picks[last]
	return &out, nil
}

// Catalog

func (m *Memory) ListPlayers(ctx context.Context) ([]models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	return out, nil
}

// Queues

func (m *Memory) GetQueue(ctx context.Context, sessionID, teamID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.queues[queueKey{sessionID, teamID}]), nil
}

func (m *Memory) SetQueue(ctx context.Context, sessionID, teamID uuid.UUID, playerIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := queueKey{sessionID, teamID}
	if len(playerIDs) == 0 {
		delete(m.queues, key)
		return nil
	}
	m.queues[key] = slices.Clone(playerIDs)
	return nil
}
