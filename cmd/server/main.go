package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"event-ticketing-core/internal/config"
	"event-ticketing-core/internal/credential"
	"event-ticketing-core/internal/database"
	"event-ticketing-core/internal/handlers"
	"event-ticketing-core/internal/middleware"
	"event-ticketing-core/internal/monitoring"
	"event-ticketing-core/internal/notify"
	"event-ticketing-core/internal/repositories"
	"event-ticketing-core/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Server)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.ServerConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database connection established")

	secret := cfg.Credential.Secret
	if secret == "" {
		// Credentials minted with this key stop verifying after a restart
		secret = uuid.NewString() + uuid.NewString()
		slog.Warn("CREDENTIAL_SECRET is not set, using an ephemeral development key")
	}
	minter, err := credential.NewMinter(secret, cfg.Credential.QRSize)
	if err != nil {
		return err
	}

	// Repositories
	eventRepo := repositories.NewEventRepository(db.DB)
	ticketRepo := repositories.NewTicketRepository(db.DB)
	orderRepo := repositories.NewOrderRepository(db.DB)
	ledgerRepo := repositories.NewLedgerRepository(db.DB)
	officerRepo := repositories.NewOfficerRepository(db.DB)
	logRepo := repositories.NewVerificationLogRepository(db.DB)
	issuanceRepo := repositories.NewIssuanceRepository(db.DB, ledgerRepo, orderRepo, ticketRepo)
	verificationRepo := repositories.NewVerificationRepository(db.DB, ticketRepo, logRepo)

	storage := services.NewStorageFactory(cfg).CreateStorageService(ctx)

	notifier, closeNotifier := newNotifier(cfg)
	defer closeNotifier()

	checks := map[string]handlers.Pinger{"database": handlers.PingerFunc(db.Health)}

	var queue services.DeliveryQueue
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		checks["redis"] = handlers.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})

		retryQueue := notify.NewRetryQueue(redisClient, notify.DefaultRetryKey, cfg.Delivery.RetryInterval)
		queue = retryQueue

		worker := notify.NewRetryWorker(retryQueue, notifier, minter, cfg.Delivery.MaxAttempts, cfg.Delivery.BatchSize)
		if _, err := worker.Schedule(scheduler, cfg.Delivery.RetryInterval); err != nil {
			return err
		}

		go monitoring.NewMonitor(redisClient, retryQueue.Key()).Run(ctx, 15*time.Second)
	} else {
		slog.Warn("REDIS_URL is not set, failed deliveries will not be retried")
	}

	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			slog.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	// Services
	issuanceService := services.NewIssuanceService(eventRepo, ticketRepo, issuanceRepo, minter, storage, notifier, queue)
	orderService := services.NewOrderService(orderRepo, ticketRepo)
	inventoryService := services.NewInventoryService(eventRepo, ledgerRepo)
	ticketService := services.NewTicketService(ticketRepo, minter)
	verificationService := services.NewVerificationService(officerRepo, ticketRepo, eventRepo, verificationRepo, logRepo, minter)

	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30, // 30 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	purchaseLimit := middleware.NewRateLimiter(cfg.Issuance.PurchasesPerMinute, time.Minute)
	defer purchaseLimit.Stop()

	// Local fallback images are only served when their URLs point back here
	uploadsDir := ""
	if strings.HasPrefix(cfg.Credential.BaseURL, "/uploads") {
		uploadsDir = cfg.Credential.UploadPath
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Identity:       middleware.NewIdentity(cfg.JWT, sessionStore, cfg.Session.CookieName),
		PurchaseLimit:  purchaseLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		UploadsDir:     uploadsDir,
		Purchases:      handlers.NewPurchaseHandler(issuanceService),
		Orders:         handlers.NewOrderHandler(orderService),
		Events:         handlers.NewEventHandler(inventoryService),
		Tickets:        handlers.NewTicketHandler(ticketService, verificationService),
		Verifications:  handlers.NewVerificationHandler(verificationService),
		Health:         handlers.NewHealthHandler(checks),
	})

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", server.Addr, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// newNotifier publishes deliveries to RabbitMQ when configured and mails
// them directly otherwise
func newNotifier(cfg *config.Config) (notify.Notifier, func()) {
	if cfg.RabbitMQ.URL != "" {
		publisher, err := notify.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err == nil {
			slog.Info("ticket delivery via RabbitMQ", "exchange", cfg.RabbitMQ.Exchange)
			return publisher, func() {
				if err := publisher.Close(); err != nil {
					slog.Warn("failed to close RabbitMQ publisher", "error", err)
				}
			}
		}
		slog.Warn("RabbitMQ unavailable, delivering by SMTP", "error", err)
	}

	slog.Info("ticket delivery via SMTP", "host", cfg.Email.SMTPHost)
	return notify.NewSMTPNotifier(cfg.Email), func() {}
}
