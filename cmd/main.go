package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/tournament-hub/config"
	"github.com/Dosada05/tournament-hub/db"
	"github.com/Dosada05/tournament-hub/handlers"
	"github.com/Dosada05/tournament-hub/live"
	"github.com/Dosada05/tournament-hub/middleware"
	"github.com/Dosada05/tournament-hub/notify"
	"github.com/Dosada05/tournament-hub/repositories"
	api "github.com/Dosada05/tournament-hub/routes"
	"github.com/Dosada05/tournament-hub/services"
	"github.com/Dosada05/tournament-hub/storage"
	"github.com/Dosada05/tournament-hub/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("store", cfg.StoreDriver))

	if err := run(cfg, logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	uploader, err := openUploader(ctx, cfg, logger)
	if err != nil {
		return err
	}

	notifier, err := openNotifier(cfg, logger)
	if err != nil {
		return err
	}
	dispatcher := services.NewDispatcher(notifier, logger, cfg.NotifyTimeout)

	credentials, err := utils.ParseCredentials(cfg.AdminCredentials)
	if err != nil {
		return fmt.Errorf("invalid ADMIN_CREDENTIALS: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := live.NewHub(logger)
	go hub.Run(hubCtx)

	userService := services.NewUserService(store, utils.NewPINVerifier(credentials), dispatcher, logger)
	owner, err := userService.EnsureOwner(ctx, cfg.OwnerHandle)
	if err != nil {
		return fmt.Errorf("seed owner: %w", err)
	}
	logger.Info("owner account ready", slog.String("handle", owner.Handle))

	matchService := services.NewMatchService(store, dispatcher, hub, logger)
	tournamentService := services.NewTournamentService(store, matchService, dispatcher, hub, logger, nil)
	registrationService := services.NewRegistrationService(store, uploader, dispatcher, hub, logger)
	broadcastService := services.NewBroadcastService(store, dispatcher, logger)
	messageService := services.NewMessageService(store, dispatcher, logger)

	auth := middleware.NewAuthenticator(cfg.JWTSecretKey, 24*time.Hour)
	router := chi.NewRouter()
	api.SetupRoutes(router, auth, cfg.CORSAllowedOrigins, api.Handlers{
		Auth:          handlers.NewAuthHandler(userService, auth),
		Tournaments:   handlers.NewTournamentHandler(tournamentService, matchService),
		Matches:       handlers.NewMatchHandler(matchService),
		Registrations: handlers.NewRegistrationHandler(registrationService),
		Broadcasts:    handlers.NewBroadcastHandler(broadcastService),
		Messages:      handlers.NewMessageHandler(messageService),
		Admin:         handlers.NewAdminHandler(userService),
		WebSocket:     handlers.NewWebSocketHandler(hub, tournamentService, cfg.CORSAllowedOrigins),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopHub()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("pending notifications abandoned", slog.Any("error", err))
	}
	logger.Info("server shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.Store, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return repositories.NewMemoryStore(), func() {}, nil
	}

	conn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}
	if err := db.EnsureSchema(ctx, conn); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("database connection established")
	return repositories.NewPostgresStore(conn), closeFn, nil
}

func openUploader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.FileUploader, error) {
	if cfg.R2.Enabled() {
		uploader, err := storage.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			return nil, fmt.Errorf("initialize R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2.BucketName))
		return uploader, nil
	}
	uploader, err := storage.NewLocalUploader(cfg.ProofDir)
	if err != nil {
		return nil, fmt.Errorf("initialize local proof storage: %w", err)
	}
	logger.Info("storing proofs on local disk", slog.String("dir", cfg.ProofDir))
	return uploader, nil
}

func openNotifier(cfg *config.Config, logger *slog.Logger) (services.Notifier, error) {
	if cfg.TelegramToken == "" {
		logger.Warn("TELEGRAM_TOKEN not set, notifications are only logged")
		return notify.NewLogGateway(logger), nil
	}
	gateway, err := notify.NewTelegramGateway(cfg.TelegramToken, "", cfg.NotifyTimeout)
	if err != nil {
		return nil, err
	}
	logger.Info("telegram gateway ready", slog.String("bot", gateway.BotName()))
	return gateway, nil
}
