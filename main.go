package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/api"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/config"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/connectivity"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/remote"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/services"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/storage"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/store"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/syncqueue"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Redis (durable key/value storage + task transport)
	redisClient, err := storage.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	kv := storage.NewRedisStore(redisClient, cfg.AppName)

	// Remote scheduling backend + connectivity monitoring
	remoteClient := remote.NewOfferAPIClient(cfg)
	monitor := connectivity.NewMonitor(remoteClient.Health, cfg.ConnProbeInterval)

	// Restore the previous session's state from durable storage
	offerStore := store.NewOfferStore(kv, cfg.UndoWindow)
	queue := syncqueue.New(kv)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := offerStore.Load(startupCtx); err != nil {
		log.Printf("WARNING: Failed to restore offer store snapshot: %v. Starting fresh.", err)
	}
	if err := queue.Load(startupCtx); err != nil {
		log.Printf("WARNING: Failed to restore sync queue: %v. Starting fresh.", err)
	}
	cancelStartup()

	// Initialize Services
	syncService := services.NewSyncService(cfg, queue, remoteClient, monitor)
	offerService := services.NewOfferService(cfg, offerStore, queue, remoteClient, monitor, syncService)

	// Root context for background work; canceled on shutdown so in-flight
	// remote calls abandon cleanly with their queue entries intact.
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	monitorWg := sync.WaitGroup{}
	monitorWg.Add(1)
	go func() {
		defer monitorWg.Done()
		monitor.StartProbe(bgCtx)
	}()
	syncService.Start(bgCtx)

	// WaitGroup for managing server goroutines
	var wg sync.WaitGroup

	var mainApiSrv *http.Server
	var taskSrv *asynq.Server
	var scheduler *asynq.Scheduler

	fmt.Printf("Starting agent in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		fmt.Println("Starting agent API server...")
		mainApiRouter := api.SetupRouter(cfg, offerService)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: mainApiRouter,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Agent API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Agent API ListenAndServe error: %v", err)
			}
			fmt.Println("Agent API server stopped.")
		}()
	}

	bgMode := func() {
		fmt.Println("Starting background workers...")
		processor := tasks.NewTaskProcessor(cfg, offerService)
		srv, mux := tasks.SetupServer(redisClient, processor)
		taskSrv = srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Println("Background task server starting...")
			if err := taskSrv.Run(mux); err != nil {
				log.Fatalf("Background task server error: %v", err)
			}
			fmt.Println("Background task server stopped.")
		}()

		sched, err := tasks.SetupScheduler(redisClient, cfg)
		if err != nil {
			log.Fatalf("Failed to set up task scheduler: %v", err)
		}
		scheduler = sched
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scheduler.Run(); err != nil {
				log.Fatalf("Task scheduler error: %v", err)
			}
			fmt.Println("Task scheduler stopped.")
		}()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified: %s.", cfg.RunMode)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)

	// Stop background work first so no new remote calls start
	cancelBg()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if mainApiSrv != nil {
		fmt.Println("Shutting down Agent API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Agent API server shutdown error: %v", err)
		}
	}
	if scheduler != nil {
		fmt.Println("Shutting down task scheduler...")
		scheduler.Shutdown()
	}
	if taskSrv != nil {
		fmt.Println("Shutting down background task server...")
		taskSrv.Shutdown()
	}

	fmt.Println("Waiting for servers to stop...")
	wg.Wait()
	monitorWg.Wait()

	fmt.Println("Agent gracefully stopped")
}
