package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/config"
	"github.com/noah-isme/konekt-api/internal/database"
	"github.com/noah-isme/konekt-api/internal/handler"
	"github.com/noah-isme/konekt-api/internal/middleware"
	"github.com/noah-isme/konekt-api/internal/observability"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/internal/router"
	"github.com/noah-isme/konekt-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.RealtimeBus == config.BusNATS {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}

	observability.RegisterMetrics()

	var bus realtime.EventBus
	switch cfg.RealtimeBus {
	case config.BusRedis:
		bus = realtime.NewRedisBus(redisClient, cfg.RealtimeChannel, logger)
	case config.BusNATS:
		bus = realtime.NewNATSBus(natsConn, cfg.RealtimeChannel, logger)
	}

	registry := realtime.NewRegistry()
	eventRouter := realtime.NewRouter(registry, bus, logger)
	sequencer := realtime.NewSequencer()

	var (
		mirror   *realtime.PresenceMirror
		presence realtime.PresenceReader = registry
	)
	if redisClient != nil {
		mirror = realtime.NewPresenceMirror(redisClient, cfg.RealtimeChannel, logger)
		presence = realtime.ClusterPresence{Local: registry, Mirror: mirror}
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	eventRouter.Start(rootCtx)

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	postRepo := repository.NewPostRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, presence, eventRouter, validate, logger)
	notifier := service.NewNotifier(notificationService)
	readStateService := service.NewReadStateService(conversationRepo, messageRepo, eventRouter, sequencer, logger)
	conversationService := service.NewConversationService(conversationRepo, messageRepo, userRepo, readStateService, notifier, eventRouter, sequencer, validate, logger)
	messageService := service.NewMessageService(conversationRepo, messageRepo, notifier, eventRouter, sequencer, validate, logger)
	friendService := service.NewFriendService(friendRepo, userRepo, notifier, sequencer, logger)
	postService := service.NewPostService(postRepo, userRepo, notifier, validate, logger)
	userService := service.NewUserService(userRepo, presence, validate, logger)
	socketService := service.NewSocketService(registry, eventRouter, conversationRepo, userRepo, readStateService, notificationService,
		service.SocketOptions{TypingTimeout: cfg.TypingTimeout, Mirror: mirror, Sequencer: sequencer}, logger)

	messageLimit := middleware.RateLimit("messages", cfg.MessageRateLimitPerSecond, time.Second)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:        &logger,
		AllowOrigins:  cfg.AllowOrigins,
		AccessLogging: cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		ConversationHandler: handler.NewConversationHandler(conversationService, messageService, readStateService, messageLimit, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, validate, logger),
		FriendHandler:       handler.NewFriendHandler(friendService, logger),
		UserHandler:         handler.NewUserHandler(userService, friendService, logger),
		PostHandler:         handler.NewPostHandler(postService, logger),
		SocketHandler:       handler.NewSocketHandler(socketService, realtime.ClientOptions{SendBuffer: cfg.SendBuffer}, logger),
		Verifier:            middleware.NewJWTVerifier(cfg.JWTSecret),
		NodeID:              eventRouter.NodeID(),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Str("node_id", eventRouter.NodeID()).Str("bus", cfg.RealtimeBus).Msg("server starting")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cancelRoot, logger)
}

func waitForShutdown(app *fiber.App, cancelRoot context.CancelFunc, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	cancelRoot()

	logger.Info().Msg("server stopped")
}
