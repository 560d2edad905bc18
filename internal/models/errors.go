package models

import "errors"

var (
	// ErrOfferNotFound is returned for any operation against an unknown offer ID.
	ErrOfferNotFound = errors.New("offer not found")

	// ErrInvalidTransition is returned when the offer's current status does not
	// match the expected 'from' status of a transition. It is a caller error,
	// not a bug: concurrent actors (user taps, sweep ticks) can race, and the
	// loser must re-read the status instead of retrying blindly.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUndoWindowExpired is returned when an undo is attempted after the
	// reversal window has closed. Surfaced to the user as "time limit exceeded".
	ErrUndoWindowExpired = errors.New("undo window expired")

	// ErrRemoteCallFailed marks a transient remote API failure. It is recovered
	// locally by queueing the action; the user only ever sees a sync indicator.
	ErrRemoteCallFailed = errors.New("remote call failed")
)
