package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/ai"
	httptransport "github.com/atum-helpdesk/atum/internal/api/http"
	"github.com/atum-helpdesk/atum/internal/api/http/handlers"
	"github.com/atum-helpdesk/atum/internal/audit"
	"github.com/atum-helpdesk/atum/internal/auth"
	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/email"
	"github.com/atum-helpdesk/atum/internal/events"
	"github.com/atum-helpdesk/atum/internal/observability"
	"github.com/atum-helpdesk/atum/internal/persistence"
	"github.com/atum-helpdesk/atum/internal/rag"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/service"
	"github.com/atum-helpdesk/atum/internal/tenant"
	"github.com/atum-helpdesk/atum/internal/webhook"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	pool := pg.PoolHandle()
	runner := tenant.NewRunner(pool)

	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	orgRepo := repository.NewOrganizationRepository(pool)
	policyRepo := repository.NewSLAPolicyRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	jobRepo := repository.NewJobRepository(pool)
	webhookRepo := repository.NewWebhookRepository(pool)
	kbRepo := repository.NewKBRepository(pool)
	ragRepo := repository.NewRAGRepository(pool)
	ragGraphRepo := repository.NewRAGGraphRepository(pool)
	ragQueueRepo := repository.NewRAGQueueRepository(pool)
	attemptRepo := repository.NewLoginAttemptRepository(pool)
	metricsRepo := repository.NewMetricsRepository(pool)

	auditWriter := audit.NewWriter(pool)
	dispatcher := events.NewInMemoryDispatcher(logger)
	webhookDispatcher := webhook.NewDispatcher(webhookRepo, logger, metrics)

	inference, err := ai.NewClient(cfg.Inference, logger)
	if err != nil {
		logger.Fatal("failed to build inference client", zap.Error(err))
	}
	retriever := rag.NewRetriever(inference, cfg.RAG, logger, metrics)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpireMinutes, cfg.Auth.RefreshTokenExpireDays)
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo, cfg.App.RLSDegradedMode)

	authService := service.NewAuthService(service.AuthDependencies{
		Users:    userRepo,
		Orgs:     orgRepo,
		Attempts: attemptRepo,
		Audit:    auditWriter,
		Tokens:   tokens,
		Redis:    redis,
		Cfg:      cfg,
		Logger:   logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Runner:     runner,
		Tickets:    ticketRepo,
		Comments:   commentRepo,
		Users:      userRepo,
		Orgs:       orgRepo,
		Policies:   policyRepo,
		Rules:      ruleRepo,
		Jobs:       jobRepo,
		RAGQueue:   ragQueueRepo,
		Audit:      auditWriter,
		Dispatcher: dispatcher,
		Webhooks:   webhookDispatcher,
		Cfg:        cfg,
		Logger:     logger,
	})
	searchService := service.NewSearchService(service.SearchDependencies{
		Runner:    runner,
		RAG:       ragRepo,
		Graph:     ragGraphRepo,
		Retriever: retriever,
		Logger:    logger,
	})
	kbService := service.NewKBService(service.KBDependencies{
		Runner:     runner,
		KB:         kbRepo,
		RAGQueue:   ragQueueRepo,
		Dispatcher: dispatcher,
		Webhooks:   webhookDispatcher,
		Cfg:        cfg,
		Logger:     logger,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		Runner:   runner,
		Orgs:     orgRepo,
		Rules:    ruleRepo,
		Policies: policyRepo,
		Webhooks: webhookRepo,
		Metrics:  metricsRepo,
		Audit:    auditWriter,
		Logger:   logger,
	})

	ingestor := email.NewIngestor(runner, orgRepo, userRepo, ticketService, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService),
		Search:         handlers.NewSearchHandler(searchService),
		KB:             handlers.NewKBHandler(kbService),
		Admin:          handlers.NewAdminHandler(adminService),
		Email:          handlers.NewEmailHandler(ingestor),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
