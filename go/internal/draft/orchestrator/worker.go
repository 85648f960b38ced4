package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

// job is an expired turn waiting for an auto pick.
type job struct {
	token  turnToken
	source models.PickSource
}

type jobKey struct {
	sessionID  uuid.UUID
	pickNumber int
}

func (j job) key() jobKey {
	return jobKey{sessionID: j.token.SessionID, pickNumber: j.token.PickNumber}
}

// Start launches the worker pool.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	if o.running {
		return fmt.Errorf("orchestrator already running")
	}
	o.running = true

	for i := 0; i < o.config.Workers; i++ {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}

	log.Info().
		Int("workers", o.config.Workers).
		Dur("tick", o.config.TickInterval).
		Dur("think_delay", o.config.ThinkDelay).
		Msg("orchestrator started")
	return nil
}

// Shutdown waits for the workers and pending resyncs, then cancels every clock.
// Picks committed afterwards arm nothing.
func (o *Orchestrator) Shutdown() {
	o.runMu.Lock()
	if !o.running {
		o.runMu.Unlock()
		return
	}
	o.running = false
	o.runMu.Unlock()

	close(o.stopChan)
	o.wg.Wait()

	o.mu.Lock()
	for sessionID, t := range o.timers {
		t.cancel()
		log.Debug().Str("session_id", sessionID.String()).Msg("cancelled timer on shutdown")
	}
	o.timers = make(map[uuid.UUID]*turnTimer)
	o.mu.Unlock()

	log.Info().Msg("orchestrator stopped")
}

// enqueue hands an expired turn to the pool. The same turn is never queued twice.
func (o *Orchestrator) enqueue(j job) {
	o.inFlightMu.Lock()
	if o.inFlight[j.key()] {
		o.inFlightMu.Unlock()
		log.Debug().
			Str("session_id", j.token.SessionID.String()).
			Int("pick_number", j.token.PickNumber).
			Msg("skipping turn already in flight")
		return
	}
	o.inFlight[j.key()] = true
	o.inFlightMu.Unlock()

	select {
	case o.workCh <- j:
	case <-o.stopChan:
		o.done(j)
	}
}

func (o *Orchestrator) done(j job) {
	o.inFlightMu.Lock()
	delete(o.inFlight, j.key())
	o.inFlightMu.Unlock()
}

func (o *Orchestrator) worker(ctx context.Context, workerID int) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopChan:
			return
		case j := <-o.workCh:
			if err := o.handleJob(ctx, j); err != nil {
				log.Error().
					Err(err).
					Str("session_id", j.token.SessionID.String()).
					Int("pick_number", j.token.PickNumber).
					Int("worker_id", workerID).
					Msg("auto pick failed")
			}
			o.done(j)
		}
	}
}

// handleJob re-validates the turn against fresh state and auto drafts for it.
func (o *Orchestrator) handleJob(ctx context.Context, j job) error {
	tok := j.token

	o.mu.Lock()
	_, ok := o.current(tok)
	o.mu.Unlock()
	if !ok {
		log.Warn().
			Str("session_id", tok.SessionID.String()).
			Int("pick_number", tok.PickNumber).
			Msg("turn changed before auto pick, skipping")
		return nil
	}

	snap, err := o.engine.State(ctx, tok.SessionID)
	if err != nil {
		o.stop(tok.SessionID)
		return fmt.Errorf("failed to resolve state: %w", err)
	}
	live, ok := snap.Turn()
	if !ok || live.PickNumber != tok.PickNumber || live.TeamID != tok.TeamID {
		log.Warn().
			Str("session_id", tok.SessionID.String()).
			Int("pick_number", tok.PickNumber).
			Int("live_pick", snap.State.CurrentPick).
			Msg("stale turn, resyncing")
		o.resync(ctx, tok.SessionID)
		return nil
	}

	res, err := o.engine.AutoPick(ctx, tok.SessionID, tok.turn(), j.source)
	switch {
	case err == nil:
		log.Info().
			Str("session_id", tok.SessionID.String()).
			Int("pick_number", res.Pick.PickNumber).
			Str("player_id", res.Pick.PlayerID.String()).
			Str("source", string(res.Pick.Source)).
			Msg("auto pick committed")
		return nil
	case drafterr.NeedsResync(err):
		log.Warn().
			Err(err).
			Str("session_id", tok.SessionID.String()).
			Int("pick_number", tok.PickNumber).
			Msg("auto pick lost the turn, resyncing")
		o.invalidate(tok.SessionID)
		o.resync(ctx, tok.SessionID)
		return nil
	case errors.Is(err, drafterr.ErrNoPlayersAvailable):
		o.stop(tok.SessionID)
		return err
	default:
		// leave the turn idle so the next resync restarts it
		o.invalidate(tok.SessionID)
		return err
	}
}
