package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/config"
	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/discord"
	"github.com/threadwarden/threadwarden/internal/events/bus"
	"github.com/threadwarden/threadwarden/internal/events/stream"
	"github.com/threadwarden/threadwarden/internal/scheduler"
	"github.com/threadwarden/threadwarden/internal/store"
	"github.com/threadwarden/threadwarden/internal/watchdog"
	watchdogapi "github.com/threadwarden/threadwarden/internal/watchdog/api"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting threadwarden...")

	// 3. Event bus: NATS when configured, in-memory otherwise
	var eventBus bus.EventBus
	if cfg.NATS.URL != "" {
		natsBus, err := bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		eventBus = natsBus
		log.Info("Connected to NATS event bus", zap.String("url", cfg.NATS.URL))
	} else {
		eventBus = bus.NewMemoryEventBus(log)
		log.Info("Using in-memory event bus")
	}
	defer eventBus.Close()

	// 4. Durable exclusion store
	exclusionStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to open exclusion store", zap.Error(err))
	}
	defer exclusionStore.Close()
	log.Info("Opened exclusion store", zap.String("path", cfg.Database.Path))

	// 5. Discord session
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatal("Failed to create Discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	// 6. Watchdog service
	forumClient := discord.NewClient(session, cfg.Discord, log)
	exclusions := watchdog.NewExclusionRegistry(exclusionStore, cfg.Watchdog, log)
	service := watchdog.NewService(forumClient, watchdog.NewMemoryLedger(), exclusions,
		eventBus, cfg.Discord, cfg.Watchdog, log)

	// 7. Interaction handlers must be attached before the gateway opens
	interactions := discord.NewInteractions(service, cfg.Discord, log)
	interactions.Register(session)
	gateway := discord.NewGatewayEvents(service, cfg.Discord, log)
	gateway.Register(session)

	if err := session.Open(); err != nil {
		log.Fatal("Failed to open Discord gateway", zap.Error(err))
	}
	defer session.Close()
	log.Info("Connected to Discord gateway", zap.String("guildId", cfg.Discord.GuildID))

	if err := discord.RegisterCommands(session, cfg.Discord.GuildID); err != nil {
		log.Fatal("Failed to register commands", zap.Error(err))
	}

	// 8. Scheduler: inactivity scans and the closure sweep
	sched := scheduler.New(log)
	if err := sched.AddJob(scheduler.Job{
		Name:     "inactivity-scan",
		Schedule: cfg.Watchdog.ScanSchedule,
		Run: func(ctx context.Context) {
			if _, err := service.Scan(ctx); err != nil {
				log.Error("Scheduled scan failed", zap.Error(err))
			}
		},
	}); err != nil {
		log.Fatal("Failed to schedule inactivity scan", zap.Error(err))
	}
	if err := sched.AddJob(scheduler.Job{
		Name:     "closure-sweep",
		Schedule: cfg.Watchdog.SweepSchedule,
		Run: func(ctx context.Context) {
			service.SweepClosures(ctx)
		},
	}); err != nil {
		log.Fatal("Failed to schedule closure sweep", zap.Error(err))
	}
	sched.Start()
	log.Info("Scheduler started",
		zap.String("scanSchedule", cfg.Watchdog.ScanSchedule),
		zap.String("sweepSchedule", cfg.Watchdog.SweepSchedule))

	// 9. Admin API and event stream
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(watchdogapi.Recovery(log), watchdogapi.RequestLogger(log))

	watchdogapi.SetupRoutes(router.Group("/api/v1"), service, log)

	hub, err := stream.NewHub(eventBus, log)
	if err != nil {
		log.Fatal("Failed to start event stream", zap.Error(err))
	}
	router.GET("/ws/events", hub.HandleWS)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 10. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down threadwarden...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	hub.Close()

	log.Info("threadwarden stopped")
}
