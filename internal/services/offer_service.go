package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/config"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/connectivity"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/remote"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/store"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/syncqueue"
)

// SyncStatusReport is the queue state the UI renders: a syncing indicator
// while actions remain unconfirmed, and dead letters requiring attention.
type SyncStatusReport struct {
	PendingCount    int                     `json:"pending_count"`
	DeadLetterCount int                     `json:"dead_letter_count"`
	Syncing         bool                    `json:"syncing"`
	DeadLetters     []*models.PendingAction `json:"dead_letters,omitempty"`
}

// IOfferService is the single entry point the UI calls. All mutating
// operations are optimistic-local-first: the state machine transition commits
// synchronously and the remote confirmation only ever affects the sync queue.
type IOfferService interface {
	AddOffer(ctx context.Context, offer *models.Offer) error
	AcceptOffer(ctx context.Context, id string) error
	DeclineOffer(ctx context.Context, id string) error
	UndoAccept(ctx context.Context, id string) error
	GetOfferStatus(id string) (models.OfferStatus, error)
	CanUndoAccept(id string) bool
	CheckExpiredOffers() []string
	RetrySyncQueue(ctx context.Context) error
	HasPendingSync() bool
	PendingOffers() []*models.Offer
	AcceptedOffers() []*models.Offer
	RemainingUndoTime(id string) (time.Duration, error)
	RemainingLifetime(id string) (time.Duration, error)
	SyncStatus() SyncStatusReport
	ForceRetryDeadLetters(ctx context.Context) (int, error)
}

// offerService implements IOfferService by composing the offer store, the
// sync queue/processor, the remote client, and the connectivity monitor.
type offerService struct {
	cfg     *config.Config
	store   store.IOfferStore
	queue   syncqueue.ISyncQueue
	remote  remote.IOfferAPIClient
	monitor connectivity.IMonitor
	syncSvc ISyncService
	now     func() time.Time

	submitMu    sync.Mutex
	submitLocks map[string]*sync.Mutex
}

// NewOfferService creates the offer service facade.
func NewOfferService(
	cfg *config.Config,
	offerStore store.IOfferStore,
	queue syncqueue.ISyncQueue,
	remoteClient remote.IOfferAPIClient,
	monitor connectivity.IMonitor,
	syncSvc ISyncService,
) IOfferService {
	return NewOfferServiceWithClock(cfg, offerStore, queue, remoteClient, monitor, syncSvc, time.Now)
}

// NewOfferServiceWithClock creates the facade with an injected clock.
func NewOfferServiceWithClock(
	cfg *config.Config,
	offerStore store.IOfferStore,
	queue syncqueue.ISyncQueue,
	remoteClient remote.IOfferAPIClient,
	monitor connectivity.IMonitor,
	syncSvc ISyncService,
	now func() time.Time,
) IOfferService {
	return &offerService{
		cfg:         cfg,
		store:       offerStore,
		queue:       queue,
		remote:      remoteClient,
		monitor:     monitor,
		syncSvc:     syncSvc,
		now:         now,
		submitLocks: make(map[string]*sync.Mutex),
	}
}

// AddOffer inserts the offer as pending. A zero ExpiresAt gets the configured
// offer lifetime; an already-elapsed ExpiresAt is rejected. Re-adding a known
// ID is a no-op.
func (s *offerService) AddOffer(_ context.Context, offer *models.Offer) error {
	if offer == nil || offer.ID == "" {
		return fmt.Errorf("offer requires an ID")
	}

	now := s.now()
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = now
	}
	if offer.ExpiresAt.IsZero() {
		offer.ExpiresAt = now.Add(s.cfg.OfferLifetime)
	}
	if !offer.ExpiresAt.After(now) {
		return fmt.Errorf("offer %s expires in the past (%s)", offer.ID, offer.ExpiresAt.Format(time.RFC3339))
	}

	if inserted := s.store.AddOffer(offer); !inserted {
		log.Printf("Offer %s already present, add is a no-op", offer.ID)
	}
	return nil
}

// AcceptOffer transitions pending -> accepted locally, then attempts the
// remote accept (or queues it).
func (s *offerService) AcceptOffer(ctx context.Context, id string) error {
	if err := s.store.Transition(id, models.OfferStatusPending, models.OfferStatusAccepted); err != nil {
		return err
	}
	s.submitRemote(ctx, models.SyncActionAccept, id)
	return nil
}

// DeclineOffer transitions pending -> declined locally, then attempts the
// remote decline (or queues it). Declined is terminal.
func (s *offerService) DeclineOffer(ctx context.Context, id string) error {
	if err := s.store.Transition(id, models.OfferStatusPending, models.OfferStatusDeclined); err != nil {
		return err
	}
	s.submitRemote(ctx, models.SyncActionDecline, id)
	return nil
}

// UndoAccept reverses an acceptance while the undo window is open, returning
// the offer to pending, then notifies the backend (or queues the undo).
func (s *offerService) UndoAccept(ctx context.Context, id string) error {
	if err := s.store.Undo(id); err != nil {
		return err
	}
	s.submitRemote(ctx, models.SyncActionUndo, id)
	return nil
}

// submitLock returns the mutex serializing remote submission for one offer,
// so the backlog check and the delivery below are atomic per offer ID.
func (s *offerService) submitLock(id string) *sync.Mutex {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	l, ok := s.submitLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.submitLocks[id] = l
	}
	return l
}

// submitRemote delivers one action to the backend without ever reversing the
// already-committed local transition. The direct call is skipped when the
// device is offline or the offer already has queued or dead-lettered actions,
// since joining the queue is what keeps per-offer FIFO order. A failed direct
// call queues too: the action happened, the backend just hasn't heard about
// it yet.
func (s *offerService) submitRemote(ctx context.Context, kind models.SyncActionKind, id string) {
	l := s.submitLock(id)
	l.Lock()
	defer l.Unlock()

	if !s.monitor.IsOnline() || s.queue.HasPendingFor(id) || s.queue.HasDeadLetterFor(id) {
		if _, err := s.queue.Enqueue(kind, id); err != nil {
			log.Printf("Failed to enqueue %s for offer %s: %v", kind, id, err)
		}
		return
	}

	var err error
	switch kind {
	case models.SyncActionAccept:
		err = s.remote.Accept(ctx, id)
	case models.SyncActionDecline:
		err = s.remote.Decline(ctx, id)
	case models.SyncActionUndo:
		err = s.remote.Undo(ctx, id)
	}
	if err != nil {
		log.Printf("Remote %s for offer %s failed, queueing: %v", kind, id, err)
		if _, qErr := s.queue.Enqueue(kind, id); qErr != nil {
			log.Printf("Failed to enqueue %s for offer %s: %v", kind, id, qErr)
		}
	}
}

func (s *offerService) GetOfferStatus(id string) (models.OfferStatus, error) {
	return s.store.GetStatus(id)
}

func (s *offerService) CanUndoAccept(id string) bool {
	return s.store.CanUndo(id)
}

// CheckExpiredOffers runs one sweep pass immediately, in addition to the
// periodic background sweep. Returns the IDs demoted to expired.
func (s *offerService) CheckExpiredOffers() []string {
	expired := s.store.ExpirePending()
	if len(expired) > 0 {
		log.Printf("Expired %d stale pending offers: %v", len(expired), expired)
	}
	return expired
}

// RetrySyncQueue forces one drain pass of the sync queue.
func (s *offerService) RetrySyncQueue(ctx context.Context) error {
	return s.syncSvc.Drain(ctx)
}

func (s *offerService) HasPendingSync() bool {
	return s.queue.HasPending()
}

func (s *offerService) PendingOffers() []*models.Offer {
	return s.store.ListByStatus(models.OfferStatusPending)
}

func (s *offerService) AcceptedOffers() []*models.Offer {
	return s.store.ListByStatus(models.OfferStatusAccepted)
}

func (s *offerService) RemainingUndoTime(id string) (time.Duration, error) {
	return s.store.RemainingUndoTime(id)
}

func (s *offerService) RemainingLifetime(id string) (time.Duration, error) {
	return s.store.RemainingLifetime(id)
}

func (s *offerService) SyncStatus() SyncStatusReport {
	dead := s.queue.DeadLetters()
	return SyncStatusReport{
		PendingCount:    s.queue.Len(),
		DeadLetterCount: len(dead),
		Syncing:         s.queue.HasPending(),
		DeadLetters:     dead,
	}
}

// ForceRetryDeadLetters re-arms dead-lettered actions and immediately drains.
func (s *offerService) ForceRetryDeadLetters(ctx context.Context) (int, error) {
	moved := s.queue.RetryDeadLetters()
	if moved == 0 {
		return 0, nil
	}
	return moved, s.syncSvc.Drain(ctx)
}
