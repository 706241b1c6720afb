package scheduler

import (
	"context"

	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/logger"

	"github.com/google/uuid"
)

// InProcess runs classification jobs in a goroutine inside the API
// process. Used in development when no redis is configured. The handler
// is bound after service construction because the service itself needs a
// dispatcher at construction time.
type InProcess struct {
	handler func(ctx context.Context, leadID uuid.UUID) error
	log     *logger.Logger
}

func NewInProcess(log *logger.Logger) *InProcess {
	return &InProcess{log: log}
}

var _ ports.ClassifyDispatcher = (*InProcess)(nil)

// Bind sets the job handler. Must be called before the first dispatch.
func (d *InProcess) Bind(handler func(ctx context.Context, leadID uuid.UUID) error) {
	d.handler = handler
}

func (d *InProcess) DispatchClassification(ctx context.Context, leadID uuid.UUID) error {
	if d.handler == nil {
		return nil
	}
	go func() {
		if err := d.handler(context.WithoutCancel(ctx), leadID); err != nil {
			d.log.Error("in-process classification failed", "lead_id", leadID, "error", err)
		}
	}()
	return nil
}
