package repository

import "errors"

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPickNumberTaken is returned when a valid pick already holds the pick number.
	ErrPickNumberTaken = errors.New("pick number already committed")
	// ErrPlayerTaken is returned when the player already has a valid pick in the session.
	ErrPlayerTaken = errors.New("player already committed")
	// ErrNoValidPicks is returned when there is nothing to invalidate.
	ErrNoValidPicks = errors.New("no valid picks")
	// ErrActiveSessionExists is returned when a league already has an active session.
	ErrActiveSessionExists = errors.New("league already has an active session")
)
