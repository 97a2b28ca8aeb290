package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mannyc2/watchify-app-sub000/internal/clients/shopfeed"
	"github.com/mannyc2/watchify-app-sub000/internal/data/db"
	catalogrepo "github.com/mannyc2/watchify-app-sub000/internal/data/repos/catalog"
	httpserver "github.com/mannyc2/watchify-app-sub000/internal/http"
	httpH "github.com/mannyc2/watchify-app-sub000/internal/http/handlers"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/envutil"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
	"github.com/mannyc2/watchify-app-sub000/internal/services"
	"github.com/mannyc2/watchify-app-sub000/internal/sse"
)

func main() {
	// Logger
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Database
	dbService, err := db.New(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	gdb := dbService.DB()

	// Repos
	log.Info("Setting up repos...")
	sourceRepo := catalogrepo.NewSourceRepo(gdb, log)
	productRepo := catalogrepo.NewProductRepo(gdb, log)
	variantRepo := catalogrepo.NewVariantRepo(gdb, log)
	snapshotRepo := catalogrepo.NewSnapshotRepo(gdb, log)
	changeEventRepo := catalogrepo.NewChangeEventRepo(gdb, log)

	// SSE
	hub := sse.NewHub(log)

	// Services
	log.Info("Setting up services...")
	prefs := services.NewEnvPreferences()
	feedClient := shopfeed.NewHTTPClient(log)
	notifier := services.NewNotifierService(log, sourceRepo, prefs, hub)
	failureLog := services.NewMemoryFailureLog()
	syncService := services.NewSyncService(
		gdb, log, feedClient,
		sourceRepo, productRepo, variantRepo, snapshotRepo, changeEventRepo,
		notifier, prefs, failureLog,
	)
	sourceService := services.NewSourceService(gdb, log, sourceRepo, changeEventRepo, snapshotRepo, syncService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncService.Start(ctx)
	syncService.StartScheduler(ctx)

	if seedPath := envutil.String("SEED_SOURCES_FILE", ""); seedPath != "" {
		if err := sourceService.SeedFromFile(ctx, seedPath); err != nil {
			log.Warn("Seeding sources failed", "error", err)
		}
	}

	// Handlers
	log.Info("Setting up handlers...")
	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:             log,
		SourceHandler:   httpH.NewSourceHandler(log, sourceService),
		SyncHandler:     httpH.NewSyncHandler(log, syncService),
		ChangesHandler:  httpH.NewChangesHandler(log, sourceService),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
		HealthHandler:   httpH.NewHealthHandler(),
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := server.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
