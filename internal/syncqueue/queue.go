package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/storage"
)

// queueKey is the durable storage key for the sync queue.
const queueKey = "sync:queue"

// ISyncQueue is the ordered, durable list of remote actions not yet confirmed
// by the backend. Creation order is preserved: a requeued action keeps its
// position, so two actions on the same offer are never reordered.
type ISyncQueue interface {
	Enqueue(kind models.SyncActionKind, offerID string) (*models.PendingAction, error)
	Pending() []*models.PendingAction
	HasPending() bool
	HasPendingFor(offerID string) bool
	Len() int
	Remove(actionID uuid.UUID) error
	Requeue(actionID uuid.UUID, nextRetryAt time.Time, lastErr error) error
	DeadLetter(actionID uuid.UUID, lastErr error) error
	DeadLetters() []*models.PendingAction
	HasDeadLetterFor(offerID string) bool
	RetryDeadLetters() int
	Load(ctx context.Context) error
}

// persisted is the durable form of the queue.
type persisted struct {
	Actions     []*models.PendingAction `json:"actions"`
	DeadLetters []*models.PendingAction `json:"dead_letters"`
}

// syncQueue implements ISyncQueue in memory with write-through persistence.
type syncQueue struct {
	mu      sync.Mutex
	actions []*models.PendingAction
	dead    []*models.PendingAction
	kv      storage.IKeyValueStore
	now     func() time.Time
}

// New creates a sync queue persisting to kv.
func New(kv storage.IKeyValueStore) ISyncQueue {
	return NewWithClock(kv, time.Now)
}

// NewWithClock creates a sync queue with an injected clock for tests.
func NewWithClock(kv storage.IKeyValueStore, now func() time.Time) ISyncQueue {
	return &syncQueue{kv: kv, now: now}
}

// Enqueue appends a new pending action for the offer. The action becomes
// retryable immediately; backoff only applies after a failed replay.
func (q *syncQueue) Enqueue(kind models.SyncActionKind, offerID string) (*models.PendingAction, error) {
	action := &models.PendingAction{
		ID:          uuid.New(),
		Kind:        kind,
		OfferID:     offerID,
		CreatedAt:   q.now(),
		NextRetryAt: q.now(),
	}

	q.mu.Lock()
	q.actions = append(q.actions, action)
	q.mu.Unlock()

	q.persist()
	log.Printf("Queued %s action for offer %s (queue length %d)", kind, offerID, q.Len())
	return action, nil
}

// Pending returns a copy of the queue in FIFO order.
func (q *syncQueue) Pending() []*models.PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*models.PendingAction, len(q.actions))
	for i, a := range q.actions {
		cp := *a
		out[i] = &cp
	}
	return out
}

// HasPending reports whether any unconfirmed action remains; drives the
// "syncing" indicator.
func (q *syncQueue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions) > 0
}

// HasPendingFor reports whether an unconfirmed action exists for the offer.
// The facade checks this before any direct remote attempt: once an offer has
// a backlog, later actions must join the queue to keep per-offer FIFO order.
func (q *syncQueue) HasPendingFor(offerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.actions {
		if a.OfferID == offerID {
			return true
		}
	}
	return false
}

func (q *syncQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Remove deletes a confirmed action from the queue.
func (q *syncQueue) Remove(actionID uuid.UUID) error {
	q.mu.Lock()
	idx := q.indexOf(actionID)
	if idx < 0 {
		q.mu.Unlock()
		return fmt.Errorf("pending action %s not found", actionID)
	}
	q.actions = append(q.actions[:idx], q.actions[idx+1:]...)
	q.mu.Unlock()

	q.persist()
	return nil
}

// Requeue records a failed replay: increments the retry counter and arms the
// backoff deadline. The action keeps its queue position.
func (q *syncQueue) Requeue(actionID uuid.UUID, nextRetryAt time.Time, lastErr error) error {
	q.mu.Lock()
	idx := q.indexOf(actionID)
	if idx < 0 {
		q.mu.Unlock()
		return fmt.Errorf("pending action %s not found", actionID)
	}
	action := q.actions[idx]
	action.RetryCount++
	action.NextRetryAt = nextRetryAt
	msg := lastErr.Error()
	action.LastError = &msg
	q.mu.Unlock()

	q.persist()
	return nil
}

// DeadLetter moves an action past the retry ceiling to the dead-letter set,
// together with every other queued action for the same offer: replaying a
// successor while its predecessor is unresolved would reorder the offer's
// actions. Dead letters are retained and surfaced, never silently dropped:
// local and remote state are knowingly divergent until the user forces a
// retry.
func (q *syncQueue) DeadLetter(actionID uuid.UUID, lastErr error) error {
	q.mu.Lock()
	idx := q.indexOf(actionID)
	if idx < 0 {
		q.mu.Unlock()
		return fmt.Errorf("pending action %s not found", actionID)
	}
	action := q.actions[idx]
	action.RetryCount++
	msg := lastErr.Error()
	action.LastError = &msg

	// Move the offer's actions into the dead set in queue order so their
	// relative order survives a later re-arm.
	var kept []*models.PendingAction
	held := 0
	for _, a := range q.actions {
		if a.OfferID == action.OfferID {
			q.dead = append(q.dead, a)
			held++
			continue
		}
		kept = append(kept, a)
	}
	q.actions = kept
	q.mu.Unlock()

	q.persist()
	log.Printf("Dead-lettered %s action for offer %s after %d attempts (%d queued successors held): %v",
		action.Kind, action.OfferID, action.RetryCount, held-1, lastErr)
	return nil
}

// HasDeadLetterFor reports whether the offer has an unresolved dead letter.
// Like a queue backlog, it forces later actions for the offer to queue rather
// than go straight to the backend.
func (q *syncQueue) HasDeadLetterFor(offerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.dead {
		if a.OfferID == offerID {
			return true
		}
	}
	return false
}

// DeadLetters returns a copy of the dead-letter set in creation order.
func (q *syncQueue) DeadLetters() []*models.PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*models.PendingAction, len(q.dead))
	for i, a := range q.dead {
		cp := *a
		out[i] = &cp
	}
	return out
}

// RetryDeadLetters re-arms every dead letter as a fresh pending action with
// its retry budget reset, returning how many were moved. Re-armed actions
// rejoin at the front of the queue: a dead letter predates anything queued
// since for the same offer, so replaying it first keeps the offer's actions
// in creation order.
func (q *syncQueue) RetryDeadLetters() int {
	q.mu.Lock()
	moved := len(q.dead)
	if moved > 0 {
		for _, a := range q.dead {
			a.RetryCount = 0
			a.NextRetryAt = q.now()
		}
		q.actions = append(q.dead, q.actions...)
		q.dead = nil
	}
	q.mu.Unlock()

	if moved > 0 {
		q.persist()
		log.Printf("Re-armed %d dead-lettered actions for retry", moved)
	}
	return moved
}

// indexOf must be called with q.mu held.
func (q *syncQueue) indexOf(actionID uuid.UUID) int {
	for i, a := range q.actions {
		if a.ID == actionID {
			return i
		}
	}
	return -1
}

// persist writes the queue to durable storage. Failures are logged, not
// returned: the in-memory queue stays authoritative for the session.
func (q *syncQueue) persist() {
	q.mu.Lock()
	data, err := json.Marshal(persisted{Actions: q.actions, DeadLetters: q.dead})
	q.mu.Unlock()
	if err != nil {
		log.Printf("Failed to marshal sync queue: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.kv.Set(ctx, queueKey, data); err != nil {
		log.Printf("Failed to persist sync queue: %v", err)
	}
}

// Load restores the queue from durable storage. A missing key means an empty
// queue, not an error.
func (q *syncQueue) Load(ctx context.Context) error {
	data, err := q.kv.Get(ctx, queueKey)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read sync queue: %w", err)
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to decode sync queue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions = p.Actions
	q.dead = p.DeadLetters
	return nil
}
