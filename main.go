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

	"github.com/levishimwe/bookswap/internal/api"
	"github.com/levishimwe/bookswap/internal/cache"
	"github.com/levishimwe/bookswap/internal/config"
	"github.com/levishimwe/bookswap/internal/db"
	"github.com/levishimwe/bookswap/internal/email"
	"github.com/levishimwe/bookswap/internal/events"
	"github.com/levishimwe/bookswap/internal/services"
	"github.com/levishimwe/bookswap/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api' (action endpoint), 'watch' (event reactors), 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	// Initialize Cache (Redis) - backs the background task queue and the
	// mock email sink.
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Initialize Email Sender
	var primaryEmailSender email.Sender
	if os.Getenv("MOCK_SERVICES") == "true" {
		log.Println("MOCK_SERVICES enabled: Using Redis email sender.")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}

	// Setup Composite Email Sender; always includes the primary sender.
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)

	// Optionally add FileEmailSender if LOG_EMAILS is set
	logEmailsPath := os.Getenv("LOG_EMAILS")
	if logEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(logEmailsPath)
		if err != nil {
			log.Printf("WARNING: Failed to initialize file email sender (LOG_EMAILS='%s'): %v. Proceeding without file logging.", logEmailsPath, err)
		} else {
			compositeSender.AddSender(fileSender)
			log.Printf("LOG_EMAILS set to '%s', file email logger enabled.", logEmailsPath)
		}
	}

	finalEmailSender := email.Sender(compositeSender)

	// Initialize Services
	tokenService := services.NewTokenService(mongoDb, cfg)
	userService := services.NewUserService(mongoDb)
	templateService := services.NewTemplateService(mongoDb)

	// WaitGroup for managing goroutines
	var wg sync.WaitGroup

	// Cancellable context for the change-stream watcher
	watchCtx, stopWatcher := context.WithCancel(context.Background())
	defer stopWatcher()

	var apiSrv *http.Server
	var taskSrv *asynq.Server
	var scheduler *asynq.Scheduler

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		fmt.Println("Starting action API server...")
		router := api.SetupRouter(cfg, mongoDb)
		apiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: router,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Action API listening on :%s\n", cfg.ApiPort)
			if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Action API ListenAndServe error: %v", err)
			}
			fmt.Println("Action API server stopped.")
		}()
	}

	watchMode := func() {
		fmt.Println("Starting event reactors...")
		registry := events.NewRegistry()
		reactors := events.NewReactors(cfg, tokenService, userService, templateService, finalEmailSender)
		reactors.RegisterAll(registry)
		watcher := events.NewWatcher(mongoDb, registry)
		wg.Add(1)
		go func() {
			defer wg.Done()
			watcher.Run(watchCtx)
			fmt.Println("Event watcher stopped.")
		}()
	}

	bgMode := func() {
		fmt.Println("Starting background worker...")
		processor := tasks.NewTaskProcessor(cfg, tokenService)
		taskSrv = tasks.SetupServer(redisClient)
		mux := tasks.SetupMux(processor)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := taskSrv.Run(mux); err != nil {
				log.Fatalf("Background task server error: %v", err)
			}
			fmt.Println("Background task server stopped.")
		}()

		var err error
		scheduler, err = tasks.SetupScheduler(redisClient)
		if err != nil {
			log.Fatalf("Failed to set up task scheduler: %v", err)
		}
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
	case "watch":
		watchMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		watchMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified: %s.", cfg.RunMode)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if apiSrv != nil {
		fmt.Println("Shutting down action API server...")
		if err := apiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Action API server shutdown error: %v", err)
		}
	}

	stopWatcher()

	if scheduler != nil {
		fmt.Println("Shutting down task scheduler...")
		scheduler.Shutdown()
	}
	if taskSrv != nil {
		fmt.Println("Shutting down background task server...")
		taskSrv.Shutdown()
	}

	wg.Wait()
	fmt.Println("Shutdown complete.")
}
