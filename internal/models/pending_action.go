package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncActionKind is the kind of remote operation a queued action replays.
type SyncActionKind string

const (
	SyncActionAccept  SyncActionKind = "accept"
	SyncActionDecline SyncActionKind = "decline"
	SyncActionUndo    SyncActionKind = "undo"
)

// PendingAction is one remote operation not yet confirmed by the backend.
// It is created when a local transition happens while the device is offline
// or the remote call fails, and removed only once the backend has confirmed
// the action (or it is dead-lettered after the retry ceiling).
type PendingAction struct {
	ID          uuid.UUID      `json:"id"`
	Kind        SyncActionKind `json:"kind"`
	OfferID     string         `json:"offer_id"`
	CreatedAt   time.Time      `json:"created_at"`
	RetryCount  int            `json:"retry_count"`
	LastError   *string        `json:"last_error,omitempty"`
	NextRetryAt time.Time      `json:"next_retry_at"`
}
