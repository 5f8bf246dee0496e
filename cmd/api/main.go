package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-notifications/internal/api/http"
	"github.com/spec-kit/ticket-notifications/internal/api/http/handlers"
	"github.com/spec-kit/ticket-notifications/internal/auth"
	"github.com/spec-kit/ticket-notifications/internal/config"
	"github.com/spec-kit/ticket-notifications/internal/events"
	"github.com/spec-kit/ticket-notifications/internal/notify"
	"github.com/spec-kit/ticket-notifications/internal/observability"
	"github.com/spec-kit/ticket-notifications/internal/persistence"
	"github.com/spec-kit/ticket-notifications/internal/repository"
	"github.com/spec-kit/ticket-notifications/internal/service"
	"github.com/spec-kit/ticket-notifications/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)
	consentRepo := repository.NewConsentRepository(pool)
	directory := repository.Directory{
		TeamRepository: repository.NewTeamRepository(pool),
		UserRepository: repository.NewUserRepository(pool),
	}
	profileRepo := repository.NewCachedProfileRepository(
		repository.NewProfileRepository(pool), redis.Client, cfg.Redis.ProfileCacheTTL, logger)

	consentLedger := service.NewConsentLedger(consentRepo, logger)
	profileService := service.NewProfileService(profileRepo)

	resolver := notify.NewResolver(directory, profileRepo, consentLedger, logger)
	composer := notify.NewComposer(cfg.App.TicketListURL())
	dispatcher := notify.NewDispatcher(newSender(cfg.Notification, logger), composer, metrics, logger)

	bus := events.NewInMemoryBus()
	notificationService := service.NewNotificationService(bus, resolver, dispatcher, logger)
	relay := worker.NewOutboxRelay(outboxRepo, bus, cfg.Outbox, metrics, logger)
	relayDone := worker.StartNotificationWorker(ctx, notificationService, relay)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		TeamRepo:   directory.TeamRepository,
		Deliverer:  relay,
		Logger:     logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
	authMiddleware := auth.NewAuthMiddleware(tokens, directory.UserRepository)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(profileService, consentLedger),
		AuthMiddleware: authMiddleware,
		Gatherer:       registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	<-relayDone
}

// newSender picks the SMS channel; "log" only writes messages to the log.
func newSender(cfg config.NotificationConfig, logger *zap.Logger) notify.Sender {
	if cfg.Provider == "sms" {
		return notify.NewSMSSender(notify.SMSSenderConfig{
			GatewayURL: cfg.GatewayURL,
			AccountSID: cfg.AccountSID,
			AuthToken:  cfg.AuthToken,
			From:       cfg.FromNumber,
			Timeout:    cfg.Timeout(),
		}, logger)
	}
	return notify.NewLogSender(logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
