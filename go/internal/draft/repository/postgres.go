package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/mcdev12/draftengine/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

//go:embed schema.sql
var schema string

// PickChannel is the LISTEN/NOTIFY channel that carries the session id of every pick
// insert or invalidation.
const PickChannel = "draft_picks"

const (
	activeSessionIndex   = "draft_sessions_active_league_idx"
	validPickNumberIndex = "draft_picks_valid_pick_number_idx"
	validPlayerIndex     = "draft_picks_valid_player_idx"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db DBTX
}

func newQueries(tx pgx.Tx) *queries {
	return &queries{db: tx}
}

// Postgres implements every store the engine needs on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	q    *queries
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool: pool,
		q:    &queries{db: pool},
	}
}

// Migrate creates missing tables and indexes.
func (r *Postgres) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Directory

const leagueColumns = `id, name, commissioner_id, season, created_at, updated_at`

func (r *Postgres) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	var l models.League
	err := r.q.db.QueryRow(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.CommissionerID, &l.Season, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "league %s", id)
	}
	return &l, nil
}

// CreateLeague inserts a league or refreshes an existing one. It is used by seeding.
func (r *Postgres) CreateLeague(ctx context.Context, l models.League) error {
	_, err := r.q.db.Exec(ctx, `
		INSERT INTO leagues (`+leagueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			commissioner_id = EXCLUDED.commissioner_id,
			season = EXCLUDED.season,
			updated_at = EXCLUDED.updated_at`,
		l.ID, l.Name, l.CommissionerID, l.Season, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create league: %w", err)
	}
	return nil
}

const teamColumns = `id, league_id, owner_id, name, created_at`

func scanTeam(row pgx.Row) (*models.FantasyTeam, error) {
	var (
		t     models.FantasyTeam
		owner uuid.NullUUID
	)
	if err := row.Scan(&t.ID, &t.LeagueID, &owner, &t.Name, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.OwnerID = sqlutil.FromNullUUID(owner)
	return &t, nil
}

func (r *Postgres) GetTeam(ctx context.Context, id uuid.UUID) (*models.FantasyTeam, error) {
	t, err := scanTeam(r.q.db.QueryRow(ctx, `SELECT `+teamColumns+` FROM fantasy_teams WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "team %s", id)
	}
	return t, nil
}

// ListTeams returns the league's teams ordered by creation time, then id.
func (r *Postgres) ListTeams(ctx context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error) {
	rows, err := r.q.db.Query(ctx, `
		SELECT `+teamColumns+` FROM fantasy_teams
		WHERE league_id = $1
		ORDER BY created_at, id::text`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.FantasyTeam
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

// CreateTeam inserts a fantasy team or refreshes its owner and name. It is used by seeding.
func (r *Postgres) CreateTeam(ctx context.Context, t models.FantasyTeam) error {
	_, err := r.q.db.Exec(ctx, `
		INSERT INTO fantasy_teams (`+teamColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name`,
		t.ID, t.LeagueID, sqlutil.ToNullUUID(t.OwnerID), t.Name, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

const sessionColumns = `id, league_id, status, settings, scheduled_at, started_at, completed_at,
	superseded_at, created_at, updated_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var (
		s                                               models.Session
		status                                          string
		settings                                        pqtype.NullRawMessage
		scheduledAt, startedAt, completedAt, superseded sql.NullTime
	)
	err := row.Scan(&s.ID, &s.LeagueID, &status, &settings, &scheduledAt, &startedAt,
		&completedAt, &superseded, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if settings.Valid {
		if err := json.Unmarshal(settings.RawMessage, &s.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft settings: %w", err)
		}
	}
	s.Status = models.SessionStatus(status)
	s.ScheduledAt = sqlutil.FromSqlTime(scheduledAt)
	s.StartedAt = sqlutil.FromSqlTime(startedAt)
	s.CompletedAt = sqlutil.FromSqlTime(completedAt)
	s.SupersededAt = sqlutil.FromSqlTime(superseded)
	return &s, nil
}

func (r *Postgres) CreateSession(ctx context.Context, s models.Session) error {
	settings, err := json.Marshal(s.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal draft settings: %w", err)
	}

	_, err = r.q.db.Exec(ctx, `
		INSERT INTO draft_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.LeagueID, string(s.Status),
		pqtype.NullRawMessage{RawMessage: settings, Valid: true},
		sqlutil.ToSqlTime(s.ScheduledAt), sqlutil.ToSqlTime(s.StartedAt),
		sqlutil.ToSqlTime(s.CompletedAt), sqlutil.ToSqlTime(s.SupersededAt),
		s.CreatedAt, s.UpdatedAt)
	if name, ok := sqlutil.UniqueViolation(err); ok && name == activeSessionIndex {
		return fmt.Errorf("league %s: %w", s.LeagueID, ErrActiveSessionExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *Postgres) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := scanSession(r.q.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM draft_sessions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "session %s", id)
	}
	return s, nil
}

func (r *Postgres) GetActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.Session, error) {
	s, err := scanSession(r.q.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM draft_sessions
		WHERE league_id = $1 AND superseded_at IS NULL`, leagueID))
	if err != nil {
		return nil, notFound(err, "active session for league %s", leagueID)
	}
	return s, nil
}

// UpdateSessionStatus writes a status transition and the timestamps that go with it.
func (r *Postgres) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, at time.Time) (*models.Session, error) {
	s, err := scanSession(r.q.db.QueryRow(ctx, `
		UPDATE draft_sessions SET
			status = $2::text,
			updated_at = $3,
			started_at = CASE
				WHEN $2::text IN ('NOT_STARTED', 'QUEUED') THEN NULL
				WHEN $2::text = 'IN_PROGRESS' THEN COALESCE(started_at, $3)
				ELSE started_at END,
			completed_at = CASE WHEN $2::text = 'COMPLETED' THEN $3 ELSE NULL END
		WHERE id = $1
		RETURNING `+sessionColumns, id, string(status), at))
	if err != nil {
		return nil, notFound(err, "session %s", id)
	}
	return s, nil
}

func (r *Postgres) SupersedeSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.q.db.Exec(ctx, `
		UPDATE draft_sessions SET
			updated_at = CASE WHEN superseded_at IS NULL THEN $2 ELSE updated_at END,
			superseded_at = COALESCE(superseded_at, $2)
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to supersede session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListInProgressSessions returns the active sessions that are being drafted.
func (r *Postgres) ListInProgressSessions(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.q.db.Query(ctx, `
		SELECT id FROM draft_sessions
		WHERE status = 'IN_PROGRESS' AND superseded_at IS NULL
		ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list in progress sessions: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// Orders

func (r *Postgres) GetOrder(ctx context.Context, sessionID uuid.UUID) (*models.DraftOrder, error) {
	var (
		o      models.DraftOrder
		mode   string
		rounds pqtype.NullRawMessage
	)
	err := r.q.db.QueryRow(ctx, `
		SELECT session_id, mode, rounds, created_at FROM draft_orders
		WHERE session_id = $1`, sessionID).
		Scan(&o.SessionID, &mode, &rounds, &o.CreatedAt)
	if err != nil {
		return nil, notFound(err, "order for session %s", sessionID)
	}
	o.Mode = models.DraftMode(mode)
	if rounds.Valid {
		if err := json.Unmarshal(rounds.RawMessage, &o.Rounds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft order: %w", err)
		}
	}
	return &o, nil
}

func (r *Postgres) SaveOrder(ctx context.Context, o models.DraftOrder) error {
	rounds, err := json.Marshal(o.Rounds)
	if err != nil {
		return fmt.Errorf("failed to marshal draft order: %w", err)
	}
	_, err = r.q.db.Exec(ctx, `
		INSERT INTO draft_orders (session_id, mode, rounds, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET mode = EXCLUDED.mode, rounds = EXCLUDED.rounds`,
		o.SessionID, string(o.Mode), pqtype.NullRawMessage{RawMessage: rounds, Valid: true}, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save draft order: %w", err)
	}
	return nil
}

// Ledger

const pickColumns = `id, session_id, round, pick_number, team_id, player_id, source, picked_at, invalidated_at`

func scanPick(row pgx.Row) (*models.Pick, error) {
	var (
		p           models.Pick
		source      string
		invalidated sql.NullTime
	)
	err := row.Scan(&p.ID, &p.SessionID, &p.Round, &p.PickNumber, &p.TeamID, &p.PlayerID,
		&source, &p.PickedAt, &invalidated)
	if err != nil {
		return nil, err
	}
	p.Source = models.PickSource(source)
	p.InvalidatedAt = sqlutil.FromSqlTime(invalidated)
	return &p, nil
}

// InsertPick appends a pick and notifies PickChannel in the same transaction.
func (r *Postgres) InsertPick(ctx context.Context, p models.Pick) error {
	err := sqlutil.Run(ctx, r.pool, newQueries, func(q *queries) error {
		_, err := q.db.Exec(ctx, `
			INSERT INTO draft_picks (`+pickColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			p.ID, p.SessionID, p.Round, p.PickNumber, p.TeamID, p.PlayerID,
			string(p.Source), p.PickedAt, sqlutil.ToSqlTime(p.InvalidatedAt))
		if err != nil {
			return err
		}
		return q.notifyPick(ctx, p.SessionID)
	})
	if name, ok := sqlutil.UniqueViolation(err); ok {
		switch name {
		case validPickNumberIndex:
			return fmt.Errorf("session %s pick %d: %w", p.SessionID, p.PickNumber, ErrPickNumberTaken)
		case validPlayerIndex:
			return fmt.Errorf("session %s player %s: %w", p.SessionID, p.PlayerID, ErrPlayerTaken)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to insert pick: %w", err)
	}
	return nil
}

// ListPicks returns every pick of the session, invalidated ones included, in insertion
// order.
func (r *Postgres) ListPicks(ctx context.Context, sessionID uuid.UUID) ([]models.Pick, error) {
	rows, err := r.q.db.Query(ctx, `
		SELECT `+pickColumns+` FROM draft_picks
		WHERE session_id = $1
		ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	defer rows.Close()

	var picks []models.Pick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		picks = append(picks, *p)
	}
	return picks, rows.Err()
}

func (r *Postgres) InvalidateLastPick(ctx context.Context, sessionID uuid.UUID, at time.Time) (*models.Pick, error) {
	var out *models.Pick
	err := sqlutil.Run(ctx, r.pool, newQueries, func(q *queries) error {
		p, err := scanPick(q.db.QueryRow(ctx, `
			UPDATE draft_picks SET invalidated_at = $2
			WHERE id = (
				SELECT id FROM draft_picks
				WHERE session_id = $1 AND invalidated_at IS NULL
				ORDER BY pick_number DESC
				LIMIT 1
				FOR UPDATE
			)
			RETURNING `+pickColumns, sessionID, at))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrNoValidPicks)
		}
		if err != nil {
			return fmt.Errorf("failed to invalidate pick: %w", err)
		}
		out = p
		return q.notifyPick(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (q *queries) notifyPick(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := q.db.Exec(ctx, `SELECT pg_notify($1, $2)`, PickChannel, sessionID.String()); err != nil {
		return fmt.Errorf("failed to notify %s: %w", PickChannel, err)
	}
	return nil
}

// Catalog

func (r *Postgres) ListPlayers(ctx context.Context) ([]models.Player, error) {
	rows, err := r.q.db.Query(ctx, `SELECT id, full_name, position, value, created_at FROM players`)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.FullName, &p.Position, &p.Value, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// UpsertPlayer inserts or refreshes a catalog entry and reports whether it was new.
func (r *Postgres) UpsertPlayer(ctx context.Context, p models.Player) (bool, error) {
	var inserted bool
	err := r.q.db.QueryRow(ctx, `
		INSERT INTO players (id, full_name, position, value, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			position = EXCLUDED.position,
			value = EXCLUDED.value
		RETURNING (xmax = 0)`,
		p.ID, p.FullName, p.Position, p.Value, p.CreatedAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert player: %w", err)
	}
	return inserted, nil
}

// Queues

func (r *Postgres) GetQueue(ctx context.Context, sessionID, teamID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q.db.Query(ctx, `
		SELECT player_id FROM draft_queue_entries
		WHERE session_id = $1 AND team_id = $2
		ORDER BY position`, sessionID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// SetQueue replaces the team's queue.
func (r *Postgres) SetQueue(ctx context.Context, sessionID, teamID uuid.UUID, playerIDs []uuid.UUID) error {
	return sqlutil.Run(ctx, r.pool, newQueries, func(q *queries) error {
		_, err := q.db.Exec(ctx, `
			DELETE FROM draft_queue_entries
			WHERE session_id = $1 AND team_id = $2`, sessionID, teamID)
		if err != nil {
			return fmt.Errorf("failed to clear queue: %w", err)
		}
		for i, playerID := range playerIDs {
			_, err := q.db.Exec(ctx, `
				INSERT INTO draft_queue_entries (session_id, team_id, position, player_id)
				VALUES ($1, $2, $3, $4)`, sessionID, teamID, i, playerID)
			if err != nil {
				return fmt.Errorf("failed to write queue: %w", err)
			}
		}
		return nil
	})
}

// notFound maps a missing row to ErrNotFound.
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
