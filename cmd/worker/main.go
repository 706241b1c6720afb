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
	"leadintake_backend/internal/leads"
	"leadintake_backend/internal/leads/agent"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/internal/notification"
	"leadintake_backend/internal/scheduler"
	"leadintake_backend/internal/settings"
	"leadintake_backend/platform/ai/embeddings"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/db"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/qdrant"
	"leadintake_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	sender := email.NewSender(cfg)
	composer := email.NewComposer(cfg)

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
	} else {
		log.Warn("GEMINI_API_KEY not configured; classification jobs will fail upstream")
	}

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

	dispatcher, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	settingsModule := settings.NewModule(pool, val, log)
	analyticsModule := analytics.NewModule(pool, log)
	caseStudiesModule := casestudies.NewModule(pool, caseStudyDeps, val, log)

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

	// Worker-side classification also emits lifecycle events; record them
	// as audit notes the same way the API process does.
	notificationModule := notification.New(leadsModule.Repository(), log)
	notificationModule.RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, leadsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
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
