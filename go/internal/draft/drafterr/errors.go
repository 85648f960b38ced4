package drafterr

import (
	"errors"
)

// Sentinel errors shared across the draft engine. Callers wrap them with fmt.Errorf
// and match with errors.Is.
var (
	// ErrConfiguration is returned for bad order generator input.
	ErrConfiguration = errors.New("invalid draft configuration")
	// ErrOrderNotReady means the draft order has not been created yet. Retry with backoff.
	ErrOrderNotReady = errors.New("draft order not ready")
	// ErrStaleTurn means the claimed turn was already taken. Re-resolve and retry.
	ErrStaleTurn = errors.New("stale turn")
	// ErrNotYourTurn means the claiming team is not on the clock.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrPlayerAlreadyDrafted means the player has a valid pick in this session.
	ErrPlayerAlreadyDrafted = errors.New("player already drafted")
	// ErrNoPlayersAvailable means the undrafted pool is empty while a pick is owed.
	ErrNoPlayersAvailable = errors.New("no players available")
	// ErrStateUnavailable means the derived state could not be repaired.
	ErrStateUnavailable = errors.New("draft state unavailable")

	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrSessionNotFound   = errors.New("draft session not found")
	ErrNotAuthorized     = errors.New("actor not authorized")
)

// Reason maps an error to a stable machine-readable rejection reason.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrOrderNotReady):
		return "order_not_ready"
	case errors.Is(err, ErrStaleTurn):
		return "stale_turn"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrPlayerAlreadyDrafted):
		return "player_already_drafted"
	case errors.Is(err, ErrNoPlayersAvailable):
		return "no_players_available"
	case errors.Is(err, ErrStateUnavailable):
		return "state_unavailable"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	default:
		return "internal"
	}
}

// IsTransient reports whether the caller should retry the same operation.
func IsTransient(err error) bool {
	return errors.Is(err, ErrOrderNotReady)
}

// NeedsResync reports whether the caller must re-resolve state before acting again.
func NeedsResync(err error) bool {
	return errors.Is(err, ErrStaleTurn) || errors.Is(err, ErrStateUnavailable)
}
