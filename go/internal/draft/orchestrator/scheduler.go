package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/draft/draft"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

type phase int

const (
	phaseIdle phase = iota
	phaseRunning
	phasePaused
)

func (p phase) String() string {
	switch p {
	case phaseRunning:
		return "running"
	case phasePaused:
		return "paused"
	default:
		return "idle"
	}
}

// turnToken identifies one armed turn. Scheduled callbacks carry a copy and act only
// while it still matches the session clock.
type turnToken struct {
	SessionID  uuid.UUID
	PickNumber int
	Round      int
	TeamID     uuid.UUID
	Generation uint64
}

func (t turnToken) turn() draft.Turn {
	return draft.Turn{PickNumber: t.PickNumber, Round: t.Round, TeamID: t.TeamID}
}

// turnTimer is the clock of one session. Guarded by Orchestrator.mu.
type turnTimer struct {
	phase     phase
	token     turnToken
	limit     time.Duration
	remaining time.Duration
	tick      clockwork.Timer
	think     clockwork.Timer
}

// cancel stops both scheduled callbacks.
func (t *turnTimer) cancel() {
	stopTimer(t.tick)
	stopTimer(t.think)
	t.tick = nil
	t.think = nil
}

func stopTimer(timer clockwork.Timer) {
	if timer != nil {
		timer.Stop()
	}
}

// nextGeneration must be called with o.mu held.
func (o *Orchestrator) nextGeneration() uint64 {
	o.generation++
	return o.generation
}

// enterTurn arms the clock for turn. It returns false when the clock already runs for
// that turn, or when the session is paused.
func (o *Orchestrator) enterTurn(sessionID uuid.UUID, turn draft.Turn, limit time.Duration, computer bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	t, ok := o.timers[sessionID]
	if !ok {
		t = &turnTimer{token: turnToken{SessionID: sessionID}}
		o.timers[sessionID] = t
	}
	same := t.token.PickNumber == turn.PickNumber && t.token.TeamID == turn.TeamID

	switch t.phase {
	case phaseRunning:
		if same {
			return false
		}
	case phasePaused:
		if !same {
			t.token.PickNumber, t.token.Round, t.token.TeamID = turn.PickNumber, turn.Round, turn.TeamID
			t.limit = limit
			t.remaining = limit
		}
		return false
	}

	t.limit = limit
	t.remaining = limit
	o.run(t, turn, computer)

	log.Info().
		Str("session_id", sessionID.String()).
		Int("pick_number", turn.PickNumber).
		Str("team_id", turn.TeamID.String()).
		Dur("limit", limit).
		Bool("computer", computer).
		Msg("turn started")
	return true
}

// run schedules the callbacks for turn from t.remaining. Must be called with o.mu held.
func (o *Orchestrator) run(t *turnTimer, turn draft.Turn, computer bool) {
	t.cancel()
	t.phase = phaseRunning
	t.token = turnToken{
		SessionID:  t.token.SessionID,
		PickNumber: turn.PickNumber,
		Round:      turn.Round,
		TeamID:     turn.TeamID,
		Generation: o.nextGeneration(),
	}

	tok := t.token
	t.tick = o.clock.AfterFunc(o.nextTick(t.remaining), func() { o.onTick(tok) })
	if computer {
		t.think = o.clock.AfterFunc(o.config.ThinkDelay, func() { o.onThink(tok) })
	}
}

func (o *Orchestrator) nextTick(remaining time.Duration) time.Duration {
	if remaining < o.config.TickInterval {
		return remaining
	}
	return o.config.TickInterval
}

// invalidate cancels the running turn so nothing scheduled for it can fire. A paused
// clock stays paused.
func (o *Orchestrator) invalidate(sessionID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.timers[sessionID]
	if !ok {
		return
	}
	t.cancel()
	t.token.Generation = o.nextGeneration()
	if t.phase == phaseRunning {
		t.phase = phaseIdle
	}
}

// stop moves the session clock to idle.
func (o *Orchestrator) stop(sessionID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.timers[sessionID]
	if !ok {
		return
	}
	t.cancel()
	t.phase = phaseIdle
	t.token.Generation = o.nextGeneration()
	t.remaining = 0
}

// current reports whether tok still identifies the running turn. Must be called with
// o.mu held.
func (o *Orchestrator) current(tok turnToken) (*turnTimer, bool) {
	t, ok := o.timers[tok.SessionID]
	if !ok || t.phase != phaseRunning || t.token != tok {
		return nil, false
	}
	return t, true
}

func (o *Orchestrator) onTick(tok turnToken) {
	o.mu.Lock()
	t, ok := o.current(tok)
	if !ok {
		o.mu.Unlock()
		log.Debug().
			Str("session_id", tok.SessionID.String()).
			Int("pick_number", tok.PickNumber).
			Msg("stale tick ignored")
		return
	}

	t.remaining -= o.nextTick(t.remaining)
	if t.remaining > 0 {
		t.tick = o.clock.AfterFunc(o.nextTick(t.remaining), func() { o.onTick(tok) })
		o.mu.Unlock()
		return
	}
	t.tick = nil
	o.mu.Unlock()

	log.Info().
		Str("session_id", tok.SessionID.String()).
		Int("pick_number", tok.PickNumber).
		Str("team_id", tok.TeamID.String()).
		Msg("turn expired")
	o.enqueue(job{token: tok, source: models.PickSourceTimer})
}

func (o *Orchestrator) onThink(tok turnToken) {
	o.mu.Lock()
	t, ok := o.current(tok)
	if ok {
		t.think = nil
	}
	o.mu.Unlock()
	if !ok {
		log.Debug().
			Str("session_id", tok.SessionID.String()).
			Int("pick_number", tok.PickNumber).
			Msg("stale computer pick ignored")
		return
	}
	o.enqueue(job{token: tok, source: models.PickSourceComputer})
}
