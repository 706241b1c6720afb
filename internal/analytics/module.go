// Package analytics records append-only lifecycle events and reports on
// how often human reviewers agree with the automated classifier.
package analytics

import (
	"leadintake_backend/internal/analytics/handler"
	"leadintake_backend/internal/analytics/repository"
	"leadintake_backend/internal/analytics/service"
	apphttp "leadintake_backend/internal/http"
	"leadintake_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "analytics"
}

// Sink returns the event sink handed to the leads module.
func (m *Module) Sink() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/analytics/agreement", m.handler.Agreement)
	ctx.Protected.GET("/analytics/events", m.handler.EventCounts)
}
