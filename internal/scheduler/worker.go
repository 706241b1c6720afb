package scheduler

import (
	"context"
	"fmt"

	"leadintake_backend/internal/leads/service"
	"leadintake_backend/platform/apperr"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	leads  *service.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, leads *service.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		leads:  leads,
		log:    log,
	}

	mux.HandleFunc(TaskLeadClassify, w.handleLeadClassify)

	return w, nil
}

func (w *Worker) handleLeadClassify(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadClassifyPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	err = w.leads.AutoClassify(ctx, leadID)
	switch apperr.GetKind(err) {
	case apperr.KindNotFound:
		// The lead was deleted; nothing to retry.
		w.log.Warn("classification target gone", "lead_id", leadID)
		return nil
	case apperr.KindConflict:
		// Someone classified the lead while this job ran. The result is
		// superseded, not failed; retrying would stack a duplicate entry.
		w.log.Info("classification superseded by concurrent decision", "lead_id", leadID)
		return nil
	}
	return err
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
