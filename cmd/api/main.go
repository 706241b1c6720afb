package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadintake_backend/internal/analytics"
	"leadintake_backend/internal/casestudies"
	"leadintake_backend/internal/email"
	"leadintake_backend/internal/events"
	apphttp "leadintake_backend/internal/http"
	"leadintake_backend/internal/http/router"
	"leadintake_backend/internal/leads"
	"leadintake_backend/internal/leads/agent"
	"leadintake_backend/internal/leads/intake"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/internal/notification"
	"leadintake_backend/internal/scheduler"
	"leadintake_backend/internal/settings"
	"leadintake_backend/platform/ai/embeddings"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/db"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/qdrant"
	"leadintake_backend/platform/storage"
	"leadintake_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	val := validator.New()
	sender := email.NewSender(cfg)
	composer := email.NewComposer(cfg)

	// Vector matching infrastructure; nil clients disable matching.
	caseStudyDeps := casestudies.Dependencies{Bucket: cfg.GetMinioBucketCaseStudyAssets()}
	if cfg.IsEmbeddingEnabled() {
		caseStudyDeps.Embedder = embeddings.NewClient(embeddings.Config{
			BaseURL: cfg.GetEmbeddingAPIURL(),
			APIKey:  cfg.GetEmbeddingAPIKey(),
		})
	}
	if cfg.IsQdrantEnabled() {
		caseStudyDeps.Index = qdrant.NewClient(qdrant.Config{
			BaseURL:    cfg.GetQdrantURL(),
			APIKey:     cfg.GetQdrantAPIKey(),
			Collection: cfg.GetQdrantCollection(),
		})
	}
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure case study bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx, cfg.GetMinioBucketCaseStudyAssets())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketCaseStudyAssets())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		caseStudyDeps.Storage = storageSvc
		log.Info("storage service initialized", "caseStudyAssetsBucket", cfg.GetMinioBucketCaseStudyAssets())
	}

	// AI classification and draft generation.
	var (
		classifier ports.Classifier    = agent.Disabled{}
		generator  ports.BodyGenerator = agent.Disabled{}
	)
	if cfg.IsAIEnabled() {
		c, err := agent.NewClassifier(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize classifier", "error", err)
			panic("failed to initialize classifier: " + err.Error())
		}
		g, err := agent.NewGenerator(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize draft generator", "error", err)
			panic("failed to initialize draft generator: " + err.Error())
		}
		classifier, generator = c, g
		log.Info("AI services initialized", "model", cfg.GetGeminiModel())
	} else {
		log.Warn("GEMINI_API_KEY not configured; automated classification disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	settingsModule := settings.NewModule(pool, val, log)
	if err := settingsModule.Service().Seed(ctx); err != nil {
		log.Error("failed to seed configuration", "error", err)
		panic("failed to seed configuration: " + err.Error())
	}

	analyticsModule := analytics.NewModule(pool, log)
	caseStudiesModule := casestudies.NewModule(pool, caseStudyDeps, val, log)

	// Classification job dispatch: asynq when redis is configured,
	// in-process otherwise.
	var (
		dispatcher ports.ClassifyDispatcher
		inProcess  *scheduler.InProcess
	)
	if cfg.GetRedisURL() != "" {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
			panic("failed to initialize scheduler client: " + err.Error())
		}
		defer func() { _ = client.Close() }()
		dispatcher = client
	} else {
		log.Warn("REDIS_URL not configured; running classification in process")
		inProcess = scheduler.NewInProcess(log)
		dispatcher = inProcess
	}

	leadsModule := leads.NewModule(pool, leads.Dependencies{
		Classifier: classifier,
		Generator:  generator,
		Matcher:    caseStudiesModule.Matcher(),
		Dispatcher: dispatcher,
		Sender:     sender,
		Composer:   composer,
		Config:     settingsModule.Service(),
		Analytics:  analyticsModule.Sink(),
	}, eventBus, val, cfg, log)

	if inProcess != nil {
		inProcess.Bind(leadsModule.Service().AutoClassify)
	}

	// Notification module subscribes to domain events (not HTTP-facing);
	// lifecycle events become audit notes on the lead.
	notificationModule := notification.New(leadsModule.Repository(), log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			settingsModule,
			caseStudiesModule,
			analyticsModule,
		},
	}

	engine := router.New(app)

	background, bgCtx := errgroup.WithContext(ctx)
	if cfg.IsIMAPEnabled() {
		poller := intake.NewPoller(cfg, leadsModule.Service(), log)
		background.Go(func() error {
			poller.Run(bgCtx)
			return nil
		})
		log.Info("inbox poller started", "host", cfg.GetIMAPHost(), "folder", cfg.GetIMAPFolder())
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
	_ = background.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}
