package tasks

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/config"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeOfferSweep = "offers:sweep"
	TypeSyncDrain  = "sync:drain"
)

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of background tasks. It holds the
// offer service facade, the only dependency the handlers need.
type TaskProcessor struct {
	cfg          *config.Config
	offerService services.IOfferService
}

func NewTaskProcessor(cfg *config.Config, offerService services.IOfferService) *TaskProcessor {
	return &TaskProcessor{
		cfg:          cfg,
		offerService: offerService,
	}
}

// HandleOfferSweepTask runs one expiration sweep pass. Sweeping is
// idempotent, so overlapping ticks are harmless.
func (p *TaskProcessor) HandleOfferSweepTask(ctx context.Context, t *asynq.Task) error {
	expired := p.offerService.CheckExpiredOffers()
	if len(expired) > 0 {
		log.Printf("Sweep task expired %d offers", len(expired))
	}
	return nil
}

// HandleSyncDrainTask runs one drain pass of the sync queue. Drains while
// offline are no-ops; concurrent drains serialize inside the sync service.
func (p *TaskProcessor) HandleSyncDrainTask(ctx context.Context, t *asynq.Task) error {
	if err := p.offerService.RetrySyncQueue(ctx); err != nil {
		return fmt.Errorf("sync drain: %w", err)
	}
	return nil
}

// SetupServer configures and returns an Asynq server instance.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			// The engine's tasks are cheap and idempotent; one queue suffices.
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Error: %v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOfferSweep, processor.HandleOfferSweepTask)
	mux.HandleFunc(TypeSyncDrain, processor.HandleSyncDrainTask)

	return srv, mux
}

// SetupScheduler registers the periodic sweep and drain tasks. The sweep runs
// on wall-clock time regardless of UI visibility; the drain is a safety net
// alongside the connectivity-triggered drains.
func SetupScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	schedulerOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	scheduler := asynq.NewScheduler(schedulerOpt, nil)

	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.SweepInterval),
		asynq.NewTask(TypeOfferSweep, nil),
	); err != nil {
		return nil, fmt.Errorf("failed to register sweep task: %w", err)
	}

	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.DrainInterval),
		asynq.NewTask(TypeSyncDrain, nil),
	); err != nil {
		return nil, fmt.Errorf("failed to register drain task: %w", err)
	}

	return scheduler, nil
}
