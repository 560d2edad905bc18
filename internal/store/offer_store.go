package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/storage"
)

// snapshotKey is the durable storage key for the offer store snapshot.
const snapshotKey = "offers:snapshot"

// IOfferStore is the in-memory authoritative map of offers and their statuses
// for the current session. Every status mutation goes through Transition (or
// Undo, which embeds the same guard), so the state-machine invariants are
// enforced at a single chokepoint.
type IOfferStore interface {
	AddOffer(offer *models.Offer) bool
	GetOffer(id string) (*models.Offer, error)
	GetStatus(id string) (models.OfferStatus, error)
	Transition(id string, from, to models.OfferStatus) error
	ListByStatus(status models.OfferStatus) []*models.Offer
	AcceptedAt(id string) (time.Time, bool)
	CanUndo(id string) bool
	Undo(id string) error
	RemainingUndoTime(id string) (time.Duration, error)
	RemainingLifetime(id string) (time.Duration, error)
	ExpirePending() []string
	Load(ctx context.Context) error
}

// snapshot is the persisted form of the store.
type snapshot struct {
	Offers     map[string]*models.Offer      `json:"offers"`
	Statuses   map[string]models.OfferStatus `json:"statuses"`
	AcceptedAt map[string]time.Time          `json:"accepted_at"`
}

// offerStore implements IOfferStore. mu guards the maps; a per-offer mutex
// serializes the check-and-set of each offer ID so concurrent actors on the
// same offer are totally ordered while unrelated offers never contend.
type offerStore struct {
	mu         sync.RWMutex
	offers     map[string]*models.Offer
	statuses   map[string]models.OfferStatus
	acceptedAt map[string]time.Time

	lockMu     sync.Mutex
	offerLocks map[string]*sync.Mutex

	kv         storage.IKeyValueStore
	undoWindow time.Duration
	now        func() time.Time
}

// NewOfferStore creates an offer store persisting snapshots to kv.
func NewOfferStore(kv storage.IKeyValueStore, undoWindow time.Duration) IOfferStore {
	return NewOfferStoreWithClock(kv, undoWindow, time.Now)
}

// NewOfferStoreWithClock creates an offer store with an injected clock so
// window and expiry behavior can be tested without sleeping.
func NewOfferStoreWithClock(kv storage.IKeyValueStore, undoWindow time.Duration, now func() time.Time) IOfferStore {
	return &offerStore{
		offers:     make(map[string]*models.Offer),
		statuses:   make(map[string]models.OfferStatus),
		acceptedAt: make(map[string]time.Time),
		offerLocks: make(map[string]*sync.Mutex),
		kv:         kv,
		undoWindow: undoWindow,
		now:        now,
	}
}

// offerLock returns the mutex serializing mutations of one offer ID.
func (s *offerStore) offerLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.offerLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.offerLocks[id] = l
	}
	return l
}

// AddOffer inserts the offer with status pending. Re-adding a known ID is a
// no-op and never overwrites the existing status. Returns true if inserted.
func (s *offerStore) AddOffer(offer *models.Offer) bool {
	l := s.offerLock(offer.ID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	if _, exists := s.offers[offer.ID]; exists {
		s.mu.Unlock()
		return false
	}
	s.offers[offer.ID] = offer
	s.statuses[offer.ID] = models.OfferStatusPending
	s.mu.Unlock()

	s.persist()
	return true
}

func (s *offerStore) GetOffer(id string) (*models.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offer, ok := s.offers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrOfferNotFound, id)
	}
	return offer, nil
}

func (s *offerStore) GetStatus(id string) (models.OfferStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrOfferNotFound, id)
	}
	return status, nil
}

// Transition atomically moves the offer from 'from' to 'to'. When the current
// status does not match 'from', or 'from' is terminal, it fails with
// ErrInvalidTransition and the caller must re-read the status rather than
// retry blindly. Accepting stamps the acceptance timestamp; any transition
// away from accepted clears it.
func (s *offerStore) Transition(id string, from, to models.OfferStatus) error {
	l := s.offerLock(id)
	l.Lock()
	defer l.Unlock()

	if err := s.applyTransition(id, from, to); err != nil {
		return err
	}
	s.persist()
	return nil
}

func (s *offerStore) applyTransition(id string, from, to models.OfferStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.statuses[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrOfferNotFound, id)
	}
	if current != from || from.IsTerminal() {
		return fmt.Errorf("%w: offer %s is %s, expected %s", models.ErrInvalidTransition, id, current, from)
	}

	s.statuses[id] = to
	if to == models.OfferStatusAccepted {
		s.acceptedAt[id] = s.now()
	}
	if from == models.OfferStatusAccepted {
		delete(s.acceptedAt, id)
	}
	return nil
}

// ListByStatus returns the current snapshot of offers in the given status,
// oldest first.
func (s *offerStore) ListByStatus(status models.OfferStatus) []*models.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Offer
	for id, st := range s.statuses {
		if st == status {
			result = append(result, s.offers[id])
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *offerStore) AcceptedAt(id string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.acceptedAt[id]
	return ts, ok
}

// CanUndo reports whether the bounded reversal window is still open. Pure
// read of store state plus the clock; mutates nothing.
func (s *offerStore) CanUndo(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.statuses[id] != models.OfferStatusAccepted {
		return false
	}
	acceptedAt, ok := s.acceptedAt[id]
	if !ok {
		return false
	}
	return s.now().Sub(acceptedAt) < s.undoWindow
}

// Undo reverses an acceptance while the window is open, returning the offer
// to pending and clearing the acceptance timestamp. After the window it fails
// with ErrUndoWindowExpired and the status stays accepted. The guard and the
// transition run under the same per-offer lock so a closing window cannot
// race a concurrent undo.
func (s *offerStore) Undo(id string) error {
	l := s.offerLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	current, ok := s.statuses[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrOfferNotFound, id)
	}
	if current != models.OfferStatusAccepted {
		s.mu.Unlock()
		return fmt.Errorf("%w: offer %s is %s, expected accepted", models.ErrInvalidTransition, id, current)
	}
	acceptedAt, ok := s.acceptedAt[id]
	if !ok || s.now().Sub(acceptedAt) >= s.undoWindow {
		s.mu.Unlock()
		return fmt.Errorf("%w: offer %s", models.ErrUndoWindowExpired, id)
	}
	s.statuses[id] = models.OfferStatusPending
	delete(s.acceptedAt, id)
	s.mu.Unlock()

	s.persist()
	return nil
}

// RemainingUndoTime returns how long the undo window stays open for an
// accepted offer, zero otherwise. Computed from stored timestamps and the
// clock; intended for countdown displays.
func (s *offerStore) RemainingUndoTime(id string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrOfferNotFound, id)
	}
	if status != models.OfferStatusAccepted {
		return 0, nil
	}
	acceptedAt, ok := s.acceptedAt[id]
	if !ok {
		return 0, nil
	}
	remaining := s.undoWindow - s.now().Sub(acceptedAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// RemainingLifetime returns how long a pending offer stays acceptable, zero
// for any other status.
func (s *offerStore) RemainingLifetime(id string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrOfferNotFound, id)
	}
	if status != models.OfferStatusPending {
		return 0, nil
	}
	remaining := s.offers[id].ExpiresAt.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ExpirePending demotes every pending offer whose lifetime has elapsed to
// expired and returns their IDs. Idempotent: a concurrent sweep losing the
// transition race is silently ignored, since expiration is not an error.
func (s *offerStore) ExpirePending() []string {
	now := s.now()

	s.mu.RLock()
	var candidates []string
	for id, status := range s.statuses {
		if status == models.OfferStatusPending && s.offers[id].IsExpired(now) {
			candidates = append(candidates, id)
		}
	}
	s.mu.RUnlock()

	var expired []string
	for _, id := range candidates {
		err := s.Transition(id, models.OfferStatusPending, models.OfferStatusExpired)
		if err == nil {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// persist writes the snapshot to durable storage. Persistence failures are
// logged, not returned: the in-memory state is authoritative for the session
// and the UI must never be blocked by the storage layer.
func (s *offerStore) persist() {
	s.mu.RLock()
	snap := snapshot{
		Offers:     s.offers,
		Statuses:   s.statuses,
		AcceptedAt: s.acceptedAt,
	}
	data, err := json.Marshal(snap)
	s.mu.RUnlock()
	if err != nil {
		log.Printf("Failed to marshal offer store snapshot: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.kv.Set(ctx, snapshotKey, data); err != nil {
		log.Printf("Failed to persist offer store snapshot: %v", err)
	}
}

// Load restores a previous session's snapshot from durable storage. A missing
// snapshot is a fresh start, not an error.
func (s *offerStore) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, snapshotKey)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read offer store snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode offer store snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Offers != nil {
		s.offers = snap.Offers
	}
	if snap.Statuses != nil {
		s.statuses = snap.Statuses
	}
	s.acceptedAt = make(map[string]time.Time)
	// Acceptance timestamps are only valid for offers still in accepted status.
	for id, ts := range snap.AcceptedAt {
		if s.statuses[id] == models.OfferStatusAccepted {
			s.acceptedAt[id] = ts
		}
	}
	return nil
}
