package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/ai"
	"github.com/atum-helpdesk/atum/internal/audit"
	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/events"
	"github.com/atum-helpdesk/atum/internal/jobs"
	"github.com/atum-helpdesk/atum/internal/observability"
	"github.com/atum-helpdesk/atum/internal/persistence"
	"github.com/atum-helpdesk/atum/internal/queue"
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

	metrics := observability.NewMetrics()
	pool := pg.PoolHandle()
	runner := tenant.NewRunner(pool)

	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	orgRepo := repository.NewOrganizationRepository(pool)
	policyRepo := repository.NewSLAPolicyRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	aiRepo := repository.NewAIRepository(pool)
	metricsRepo := repository.NewMetricsRepository(pool)
	jobRepo := repository.NewJobRepository(pool)
	webhookRepo := repository.NewWebhookRepository(pool)
	kbRepo := repository.NewKBRepository(pool)
	ragRepo := repository.NewRAGRepository(pool)
	ragGraphRepo := repository.NewRAGGraphRepository(pool)
	ragQueueRepo := repository.NewRAGQueueRepository(pool)

	auditWriter := audit.NewWriter(pool)
	dispatcher := events.NewInMemoryDispatcher(logger)
	webhookDispatcher := webhook.NewDispatcher(webhookRepo, logger, metrics)

	inference, err := ai.NewClient(cfg.Inference, logger)
	if err != nil {
		logger.Fatal("failed to build inference client", zap.Error(err))
	}
	retriever := rag.NewRetriever(inference, cfg.RAG, logger, metrics)

	registry, err := jobs.NewRegistry(jobs.Deps{
		Tickets:   ticketRepo,
		Comments:  commentRepo,
		Orgs:      orgRepo,
		Policies:  policyRepo,
		AIStore:   aiRepo,
		Metrics:   metricsRepo,
		Jobs:      jobRepo,
		RAGQueue:  ragQueueRepo,
		RAGStore:  ragRepo,
		RAGGraph:  ragGraphRepo,
		Audit:     auditWriter,
		Inference: inference,
		Retriever: retriever,
		Cfg:       cfg,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to build job registry", zap.Error(err))
	}

	workerPool := queue.NewPool(runner, jobRepo, registry, cfg.Queue, logger, metrics)
	jobSweeper := queue.NewSweeper(jobRepo, cfg.Queue, logger)
	indexer := rag.NewIndexer(runner, ragQueueRepo, ragRepo, ragGraphRepo, ticketRepo, commentRepo, kbRepo, inference, cfg.RAG, logger)

	slaService := service.NewSLAService(service.SLADependencies{
		Runner:     runner,
		Tickets:    ticketRepo,
		Policies:   policyRepo,
		Rules:      ruleRepo,
		Audit:      auditWriter,
		Dispatcher: dispatcher,
		Webhooks:   webhookDispatcher,
		Metrics:    metrics,
		Cfg:        cfg,
		Logger:     logger,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		workerPool.Run(ctx)
	}()
	if cfg.RAG.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			indexer.Run(ctx)
		}()
	}

	scheduler := cron.New()
	slaSpec := fmt.Sprintf("@every %ds", cfg.SLA.CheckIntervalSeconds)
	if _, err := scheduler.AddFunc(slaSpec, func() { slaService.Sweep(ctx) }); err != nil {
		logger.Fatal("failed to schedule sla sweep", zap.Error(err))
	}
	if _, err := scheduler.AddFunc("@every 1m", func() { jobSweeper.Sweep(ctx) }); err != nil {
		logger.Fatal("failed to schedule job sweep", zap.Error(err))
	}
	if _, err := scheduler.AddFunc("@hourly", func() { enqueueForAllOrgs(ctx, orgRepo, jobRepo, logger, "metrics_snapshot") }); err != nil {
		logger.Fatal("failed to schedule metrics snapshots", zap.Error(err))
	}
	if _, err := scheduler.AddFunc("@daily", func() { enqueueForAllOrgs(ctx, orgRepo, jobRepo, logger, "cleanup_logs") }); err != nil {
		logger.Fatal("failed to schedule retention cleanup", zap.Error(err))
	}
	scheduler.Start()

	logger.Info("worker started",
		zap.Int("workers", cfg.Queue.WorkerCount),
		zap.Bool("rag_enabled", cfg.RAG.Enabled),
	)

	waitForShutdown(logger)

	cancel()
	cronCtx := scheduler.Stop()
	<-cronCtx.Done()
	wg.Wait()
}

// enqueueForAllOrgs fans a periodic job out to every active tenant; the
// enqueue is idempotent enough for overlap because handlers tolerate
// duplicate snapshots and cleanups.
func enqueueForAllOrgs(ctx context.Context, orgs repository.OrganizationRepository, jobQueue repository.JobRepository, logger *zap.Logger, jobType string) {
	active, err := orgs.ListActive(ctx)
	if err != nil {
		logger.Error("listing organizations failed", zap.Error(err))
		return
	}
	for i := range active {
		orgID := active[i].ID
		job := jobs.PeriodicJob(orgID, jobType)
		if err := jobQueue.Enqueue(ctx, job); err != nil {
			logger.Error("enqueueing periodic job failed",
				zap.String("organization_id", orgID),
				zap.String("type", jobType),
				zap.Error(err),
			)
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
