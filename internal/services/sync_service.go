package services

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/config"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/connectivity"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/remote"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/syncqueue"
)

// ISyncService drains the sync queue against the remote API.
type ISyncService interface {
	// Drain runs one pass over the queue. Safe to call from any trigger;
	// concurrent calls serialize and passes while offline are no-ops.
	Drain(ctx context.Context) error
	// Start subscribes to connectivity changes so an offline-to-online
	// transition triggers a drain. Returns after registering; the
	// subscription is released when ctx is canceled.
	Start(ctx context.Context)
}

// syncService implements ISyncService.
type syncService struct {
	cfg     *config.Config
	queue   syncqueue.ISyncQueue
	remote  remote.IOfferAPIClient
	monitor connectivity.IMonitor

	drainMu sync.Mutex
	now     func() time.Time
}

// NewSyncService creates the sync processor.
func NewSyncService(cfg *config.Config, queue syncqueue.ISyncQueue, remoteClient remote.IOfferAPIClient, monitor connectivity.IMonitor) ISyncService {
	return NewSyncServiceWithClock(cfg, queue, remoteClient, monitor, time.Now)
}

// NewSyncServiceWithClock creates the sync processor with an injected clock.
func NewSyncServiceWithClock(cfg *config.Config, queue syncqueue.ISyncQueue, remoteClient remote.IOfferAPIClient, monitor connectivity.IMonitor, now func() time.Time) ISyncService {
	return &syncService{
		cfg:     cfg,
		queue:   queue,
		remote:  remoteClient,
		monitor: monitor,
		now:     now,
	}
}

func (s *syncService) Start(ctx context.Context) {
	unsubscribe := s.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			if err := s.Drain(ctx); err != nil {
				log.Printf("Reconnect drain failed: %v", err)
			}
		}()
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
}

// Drain replays queued actions in FIFO order per offer ID. A failed or
// not-yet-due action blocks the remaining actions for the same offer so two
// actions on one offer are never attempted out of order; other offers keep
// draining. On failure the action is requeued with exponential backoff, or
// dead-lettered once the retry ceiling is reached. An offer with an
// unresolved dead letter stays parked entirely: actions queued since must not
// leapfrog it. A canceled context leaves the current action intact for a
// future drain.
func (s *syncService) Drain(ctx context.Context) error {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	if !s.monitor.IsOnline() {
		return nil
	}

	pending := s.queue.Pending()
	if len(pending) == 0 {
		return nil
	}
	log.Printf("Draining sync queue (%d pending actions)", len(pending))

	blocked := make(map[string]bool)
	for _, d := range s.queue.DeadLetters() {
		blocked[d.OfferID] = true
	}
	for _, action := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if blocked[action.OfferID] {
			continue
		}
		if s.now().Before(action.NextRetryAt) {
			blocked[action.OfferID] = true
			continue
		}

		err := s.replay(ctx, action)
		if err == nil {
			if err := s.queue.Remove(action.ID); err != nil {
				log.Printf("Failed to remove confirmed action %s: %v", action.ID, err)
			}
			continue
		}
		if ctx.Err() != nil {
			// Shutdown mid-call: the action stays queued untouched.
			return ctx.Err()
		}

		blocked[action.OfferID] = true
		if action.RetryCount+1 >= s.cfg.SyncMaxRetries {
			if dlErr := s.queue.DeadLetter(action.ID, err); dlErr != nil {
				log.Printf("Failed to dead-letter action %s: %v", action.ID, dlErr)
			}
			continue
		}
		nextRetry := s.now().Add(s.backoff(action.RetryCount))
		if rqErr := s.queue.Requeue(action.ID, nextRetry, err); rqErr != nil {
			log.Printf("Failed to requeue action %s: %v", action.ID, rqErr)
		}
		log.Printf("Replay of %s for offer %s failed (attempt %d/%d), next retry at %s: %v",
			action.Kind, action.OfferID, action.RetryCount+1, s.cfg.SyncMaxRetries,
			nextRetry.Format(time.RFC3339), err)
	}
	return nil
}

// replay performs the remote call for one queued action.
func (s *syncService) replay(ctx context.Context, action *models.PendingAction) error {
	switch action.Kind {
	case models.SyncActionAccept:
		return s.remote.Accept(ctx, action.OfferID)
	case models.SyncActionDecline:
		return s.remote.Decline(ctx, action.OfferID)
	case models.SyncActionUndo:
		return s.remote.Undo(ctx, action.OfferID)
	default:
		return errors.New("unknown sync action kind: " + string(action.Kind))
	}
}

// backoff returns an exponentially increasing delay with ±25% jitter, capped
// by config. attempt is the number of failed replays so far.
func (s *syncService) backoff(attempt int) time.Duration {
	shift := attempt
	if shift > 20 {
		shift = 20
	}
	d := s.cfg.SyncBackoffBase * time.Duration(1<<shift)
	if d > s.cfg.SyncBackoffCap {
		d = s.cfg.SyncBackoffCap
	}
	if half := d / 2; half > 0 {
		d += time.Duration(rand.Int63n(int64(half))) - d/4
	}
	return d
}
